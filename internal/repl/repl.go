// internal/repl/repl.go
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"kaleido/internal/codegen"
	"kaleido/internal/config"
	"kaleido/internal/driver"
	"kaleido/internal/engine"
)

// Start runs the interactive loop. Definitions and externs stay resident
// across lines; each line is fed through a fresh driver over the shared
// session and engine.
func Start(cfg config.Config) {
	fmt.Println("Kaleido REPL | type 'exit' to quit")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sess := codegen.NewSession()
	sess.Optimize = cfg.Optimize
	eng := engine.New()

	for {
		line, err := ln.Prompt(cfg.Prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == "exit" {
			break
		}

		d := driver.New(strings.NewReader(line), driver.Options{
			Session:      sess,
			Engine:       eng,
			EmitIR:       cfg.EmitIR,
			ResultFormat: "%g\n",
		})
		d.Run()
		ln.AppendHistory(line)
	}
}
