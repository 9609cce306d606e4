package codegen

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"

	kerrors "kaleido/internal/errors"
	"kaleido/internal/lexer"
	"kaleido/internal/parser"
)

func parseDefinition(t *testing.T, src string) *parser.Function {
	t.Helper()
	s := lexer.NewScanner(strings.NewReader(src))
	s.Advance()
	fn, err := parser.NewParser(s).ParseDefinition()
	if err != nil {
		t.Fatalf("parsing %q failed: %v", src, err)
	}
	return fn
}

func parseProto(t *testing.T, src string) *parser.Prototype {
	t.Helper()
	s := lexer.NewScanner(strings.NewReader(src))
	s.Advance()
	proto, err := parser.NewParser(s).ParseExtern()
	if err != nil {
		t.Fatalf("parsing %q failed: %v", src, err)
	}
	return proto
}

func compileError(t *testing.T, err error, fragment string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a compile error")
	}
	ke, ok := err.(*kerrors.KaleidoError)
	if !ok {
		t.Fatalf("got %T, want *KaleidoError", err)
	}
	if ke.Type != kerrors.CompileError {
		t.Errorf("type: got %v, want %v", ke.Type, kerrors.CompileError)
	}
	if !strings.Contains(ke.Message, fragment) {
		t.Errorf("message %q does not mention %q", ke.Message, fragment)
	}
}

func TestLowerSimpleDefinition(t *testing.T) {
	s := NewSession()
	f, err := s.Function(parseDefinition(t, "def id(x) x"))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if f.Name() != "id" {
		t.Errorf("name: got %q", f.Name())
	}
	if len(f.Params) != 1 || f.Params[0].Name() != "x" {
		t.Errorf("params: got %v", f.Params)
	}
	if len(f.Blocks) != 1 || f.Blocks[0].Term == nil {
		t.Error("function body is not a single terminated block")
	}
}

func TestLowerArithmetic(t *testing.T) {
	s := NewSession()
	s.Optimize = false
	f, err := s.Function(parseDefinition(t, "def calc(x y) x*y + x - y"))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	var muls, adds, subs int
	for _, inst := range f.Blocks[0].Insts {
		switch inst.(type) {
		case *ir.InstFMul:
			muls++
		case *ir.InstFAdd:
			adds++
		case *ir.InstFSub:
			subs++
		}
	}
	if muls != 1 || adds != 1 || subs != 1 {
		t.Errorf("got %d fmul, %d fadd, %d fsub; want 1 of each", muls, adds, subs)
	}
}

func TestLowerComparison(t *testing.T) {
	// '<' produces a compare plus a widen back to double.
	s := NewSession()
	s.Optimize = false
	f, err := s.Function(parseDefinition(t, "def lt(x y) x < y"))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	var cmps, exts int
	for _, inst := range f.Blocks[0].Insts {
		switch inst.(type) {
		case *ir.InstFCmp:
			cmps++
		case *ir.InstUIToFP:
			exts++
		}
	}
	if cmps != 1 || exts != 1 {
		t.Errorf("got %d fcmp, %d uitofp; want 1 of each", cmps, exts)
	}
}

func TestUnknownVariable(t *testing.T) {
	s := NewSession()
	_, err := s.Function(parseDefinition(t, "def f(x) y"))
	compileError(t, err, "unknown variable")

	// The partial function must be gone from the module.
	if got := len(s.Module.Funcs); got != 0 {
		t.Errorf("module still holds %d functions after failed lowering", got)
	}
}

func TestUnknownFunction(t *testing.T) {
	s := NewSession()
	_, err := s.Function(parseDefinition(t, "def f(x) missing(x)"))
	compileError(t, err, "unknown function")
}

func TestArityMismatch(t *testing.T) {
	s := NewSession()
	s.Extern(parseProto(t, "extern one(x)"))

	_, err := s.Function(parseDefinition(t, "def f(x) one(x, x)"))
	compileError(t, err, "incorrect number of arguments")

	// No call instruction may survive: f was discarded entirely, leaving
	// only the extern declaration.
	for _, f := range s.Module.Funcs {
		for _, b := range f.Blocks {
			for _, inst := range b.Insts {
				if _, ok := inst.(*ir.InstCall); ok {
					t.Error("call instruction emitted despite arity error")
				}
			}
		}
	}
}

func TestRedefinition(t *testing.T) {
	s := NewSession()
	if _, err := s.Function(parseDefinition(t, "def f(x) x")); err != nil {
		t.Fatalf("first definition failed: %v", err)
	}
	_, err := s.Function(parseDefinition(t, "def f(x) x+1"))
	compileError(t, err, "redefined")
}

func TestAnonymousNotRecordedAsDefined(t *testing.T) {
	s := NewSession()
	wrap := func(body parser.Expr) *parser.Function {
		return &parser.Function{Proto: &parser.Prototype{Name: parser.AnonName}, Body: body}
	}
	if _, err := s.Function(wrap(&parser.NumberExpr{Value: 1})); err != nil {
		t.Fatalf("first anonymous unit failed: %v", err)
	}
	s.Reset()
	if _, err := s.Function(wrap(&parser.NumberExpr{Value: 2})); err != nil {
		t.Fatalf("second anonymous unit failed: %v", err)
	}
}

func TestForwardReferenceThroughPrototype(t *testing.T) {
	s := NewSession()
	s.Extern(parseProto(t, "extern foo(x)"))
	s.Reset() // next unit opens a fresh module; foo survives in the table

	f, err := s.Function(parseDefinition(t, "def bar(y) foo(y)"))
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	// The call must resolve against a lazily declared foo in this module.
	var declared bool
	for _, mf := range s.Module.Funcs {
		if mf.Name() == "foo" && len(mf.Blocks) == 0 {
			declared = true
		}
	}
	if !declared {
		t.Error("prototype table did not redeclare foo in the fresh module")
	}
	_ = f
}

func TestResetKeepsDefinitions(t *testing.T) {
	s := NewSession()
	if _, err := s.Function(parseDefinition(t, "def twice(x) x+x")); err != nil {
		t.Fatalf("definition failed: %v", err)
	}
	s.Reset()

	if got := len(s.Module.Funcs); got != 0 {
		t.Errorf("fresh module holds %d functions", got)
	}
	// Calling twice from the new module still lowers, via the table.
	if _, err := s.Function(parseDefinition(t, "def f(x) twice(x)")); err != nil {
		t.Fatalf("call after reset failed: %v", err)
	}
}

func TestPerFunctionSymbolTable(t *testing.T) {
	// A parameter of one function must not leak into the next.
	s := NewSession()
	if _, err := s.Function(parseDefinition(t, "def f(x) x")); err != nil {
		t.Fatalf("definition failed: %v", err)
	}
	s.Reset()
	_, err := s.Function(parseDefinition(t, "def g(y) x"))
	compileError(t, err, "unknown variable")
}
