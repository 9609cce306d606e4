// cmd/kaleido/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"kaleido/internal/codegen"
	"kaleido/internal/config"
	"kaleido/internal/driver"
	"kaleido/internal/lexer"
	"kaleido/internal/parser"
	"kaleido/internal/repl"
)

const VERSION = "1.0.0"

func main() {
	args := os.Args[1:]
	emitIR := false
	if len(args) > 0 && args[0] == "--emit-ir" {
		emitIR = true
		args = args[1:]
	}

	if len(args) > 0 {
		switch args[0] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "--version", "-v", "version":
			fmt.Printf("kaleido %s\n", VERSION)
			return
		case "repl":
			startRepl(emitIR)
			return
		case "check":
			if len(args) < 2 {
				log.Fatal("Error: check requires a file")
			}
			checkSyntax(args[1])
			return
		}
		runFile(args[0], emitIR)
		return
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		startRepl(emitIR)
		return
	}

	// Piped input: stream mode with the classic prompt on stderr.
	cfg := config.LoadDefault()
	d := driver.New(os.Stdin, sessionOptions(cfg, emitIR, "READY> "))
	d.Run()
}

func startRepl(emitIR bool) {
	cfg := config.LoadDefault()
	if emitIR {
		cfg.EmitIR = true
	}
	repl.Start(cfg)
}

func runFile(path string, emitIR bool) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer f.Close()

	cfg := config.LoadDefault()
	d := driver.New(f, sessionOptions(cfg, emitIR, ""))
	d.Run()
}

func sessionOptions(cfg config.Config, emitIR bool, prompt string) driver.Options {
	sess := codegen.NewSession()
	sess.Optimize = cfg.Optimize
	return driver.Options{
		Session: sess,
		EmitIR:  cfg.EmitIR || emitIR,
		Prompt:  prompt,
	}
}

// checkSyntax parses a file without lowering or executing it.
func checkSyntax(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer f.Close()

	scan := lexer.NewScanner(f)
	p := parser.NewParser(scan)
	scan.Advance()

	failed := false
	for {
		tok := scan.Current()
		var err error
		switch {
		case tok.Type == lexer.TokenEOF:
			if failed {
				os.Exit(1)
			}
			fmt.Printf("%s: syntax OK\n", path)
			return
		case tok.Type == lexer.TokenPunct && tok.Punct() == ';':
			scan.Advance()
		case tok.Type == lexer.TokenDef:
			_, err = p.ParseDefinition()
		case tok.Type == lexer.TokenExtern:
			_, err = p.ParseExtern()
		default:
			_, err = p.ParseTopLevel()
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			scan.Advance()
		}
	}
}

func showUsage() {
	fmt.Println(`kaleido - a small expression language with a JIT pipeline

Usage:
  kaleido [--emit-ir]          start the REPL (or read stdin when piped)
  kaleido [--emit-ir] <file>   run a source file
  kaleido repl                 start the REPL explicitly
  kaleido check <file>         parse a file without running it
  kaleido --version            print version
  kaleido --help               show this help`)
}
