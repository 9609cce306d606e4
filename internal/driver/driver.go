// internal/driver/driver.go
//
// The incremental compile-and-execute loop. Each top-level unit is
// classified off its leading token: 'def' lowers a definition and commits
// it to the engine, 'extern' records a declaration, and anything else is a
// bare expression that is wrapped, executed in a disposable module, and
// unloaded again. Top-level ';' separators are skipped.
package driver

import (
	"fmt"
	"io"
	"os"

	"kaleido/internal/codegen"
	"kaleido/internal/engine"
	"kaleido/internal/errors"
	"kaleido/internal/lexer"
	"kaleido/internal/parser"
)

const defaultResultFormat = "Evaluated to %g\n"

type Options struct {
	// Session and Engine may be shared across drivers so that a REPL can
	// feed one line at a time while definitions stay resident. Nil means a
	// fresh one.
	Session *codegen.Session
	Engine  *engine.Engine

	// Out receives evaluation results, Diag receives prompts, diagnostics
	// and echoed IR. They default to stdout and stderr.
	Out  io.Writer
	Diag io.Writer

	// Prompt is printed before each top-level unit; empty disables it.
	Prompt string

	// EmitIR echoes each finalized function and declaration to Diag.
	EmitIR bool

	// ResultFormat overrides the "Evaluated to %g\n" result line.
	ResultFormat string
}

type Driver struct {
	scan   *lexer.Scanner
	p      *parser.Parser
	sess   *codegen.Session
	eng    *engine.Engine
	out    io.Writer
	diag   io.Writer
	prompt string
	emitIR bool
	format string
}

func New(r io.Reader, opts Options) *Driver {
	if opts.Session == nil {
		opts.Session = codegen.NewSession()
	}
	if opts.Engine == nil {
		opts.Engine = engine.New()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Diag == nil {
		opts.Diag = os.Stderr
	}
	if opts.ResultFormat == "" {
		opts.ResultFormat = defaultResultFormat
	}
	scan := lexer.NewScanner(r)
	return &Driver{
		scan:   scan,
		p:      parser.NewParser(scan),
		sess:   opts.Session,
		eng:    opts.Engine,
		out:    opts.Out,
		diag:   opts.Diag,
		prompt: opts.Prompt,
		emitIR: opts.EmitIR,
		format: opts.ResultFormat,
	}
}

// Run processes top-level units until end of input. Errors are reported and
// recovered from; only end of input stops the loop.
func (d *Driver) Run() {
	d.scan.Advance() // prime the first token
	for {
		d.showPrompt()
		tok := d.scan.Current()
		switch {
		case tok.Type == lexer.TokenEOF:
			return
		case tok.Type == lexer.TokenPunct && tok.Punct() == ';':
			d.scan.Advance() // ignore top-level semicolons
		case tok.Type == lexer.TokenDef:
			d.handleDefinition()
		case tok.Type == lexer.TokenExtern:
			d.handleExtern()
		default:
			d.handleTopLevelExpr()
		}
	}
}

func (d *Driver) handleDefinition() {
	fn, err := d.p.ParseDefinition()
	if err != nil {
		d.recover(err)
		return
	}
	f, err := d.sess.Function(fn)
	if err != nil {
		d.report(err)
		return
	}
	d.echoIR(f.LLString())

	// Commit the module so the definition stays callable, then open a
	// fresh one for the next unit.
	d.eng.AddModule(d.sess.Module)
	d.sess.Reset()
}

func (d *Driver) handleExtern() {
	proto, err := d.p.ParseExtern()
	if err != nil {
		d.recover(err)
		return
	}
	f := d.sess.Extern(proto)
	d.echoIR(f.LLString())
}

func (d *Driver) handleTopLevelExpr() {
	fn, err := d.p.ParseTopLevel()
	if err != nil {
		d.recover(err)
		return
	}
	f, err := d.sess.Function(fn)
	if err != nil {
		d.report(err)
		return
	}
	d.echoIR(f.LLString())

	// One-shot module: commit, resolve, invoke, unload.
	h := d.eng.AddModule(d.sess.Module)
	d.sess.Reset()

	call, err := d.eng.FindSymbol(parser.AnonName)
	if err == nil {
		var v float64
		v, err = call()
		if err == nil {
			fmt.Fprintf(d.out, d.format, v)
		}
	}
	if err != nil {
		d.report(errors.NewRuntimeError(err.Error()))
	}
	d.eng.RemoveModule(h)
}

// recover reports a parse failure and discards one token, resuming at what
// is hopefully the next top-level boundary. Best effort: a malformed unit
// can leave the stream mid-expression and cascade secondary diagnostics.
func (d *Driver) recover(err error) {
	d.report(err)
	d.scan.Advance()
}

func (d *Driver) report(err error) {
	fmt.Fprintln(d.diag, err)
}

func (d *Driver) echoIR(s string) {
	if d.emitIR {
		fmt.Fprintln(d.diag, s)
	}
}

func (d *Driver) showPrompt() {
	if d.prompt != "" {
		fmt.Fprint(d.diag, d.prompt)
	}
}
