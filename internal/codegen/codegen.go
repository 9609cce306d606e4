// internal/codegen/codegen.go
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"kaleido/internal/errors"
	"kaleido/internal/opt"
	"kaleido/internal/parser"
)

// Session owns all lowering state for one interactive session: the currently
// open IR module, the session-wide prototype table, and the transient
// per-function named-value table. Nothing here is a process global, so
// independent sessions (and tests) never interfere.
type Session struct {
	Module *ir.Module

	// Optimize runs the local optimization pipeline over each finalized
	// function.
	Optimize bool

	// protos maps name to the signature of every function ever declared or
	// defined, keyed for forward reference. Signatures are stored by value;
	// the AST keeps its own copy.
	protos map[string]parser.Prototype

	// defined records names whose definition has a lowered body. A second
	// definition of such a name is a compile error.
	defined map[string]bool

	// named is the per-function symbol table. It is rebuilt at the start of
	// each function body and is meaningless outside it.
	named map[string]value.Value

	// block is the current insertion point.
	block *ir.Block
}

func NewSession() *Session {
	s := &Session{
		Optimize: true,
		protos:   make(map[string]parser.Prototype),
		defined:  make(map[string]bool),
	}
	s.Reset()
	return s
}

// Reset opens a fresh module. The driver calls this after committing the
// previous module to the engine, so in-progress lowering never writes into
// an already-submitted module. Prototype and definition tables persist.
func (s *Session) Reset() {
	s.Module = ir.NewModule()
}

// Extern lowers an external declaration: the prototype is registered for
// forward reference and declared in the open module.
func (s *Session) Extern(proto *parser.Prototype) *ir.Func {
	s.protos[proto.Name] = *proto
	if f := s.moduleFunc(proto.Name); f != nil {
		return f
	}
	return s.declare(*proto)
}

// Function lowers a definition: register the prototype, declare the
// function, lower the body into a fresh entry block, and finalize. On any
// body failure the partially built function is removed from the module.
func (s *Session) Function(fn *parser.Function) (*ir.Func, error) {
	name := fn.Proto.Name
	if s.defined[name] {
		return nil, errors.NewCompileError(fmt.Sprintf("function %q cannot be redefined", name))
	}

	s.protos[name] = *fn.Proto
	f := s.lookupFunc(name)
	if f == nil {
		return nil, errors.NewCompileError(fmt.Sprintf("unknown function %q", name))
	}

	s.block = f.NewBlock("entry")
	s.named = make(map[string]value.Value)
	for _, p := range f.Params {
		s.named[p.Name()] = p
	}

	ret, err := s.expr(fn.Body)
	if err != nil {
		// No dangling half-built bodies: drop the function entirely.
		s.removeFunc(f)
		s.block = nil
		return nil, err
	}

	s.block.NewRet(ret)
	s.block = nil

	if err := verify(f); err != nil {
		s.removeFunc(f)
		return nil, err
	}
	if s.Optimize {
		opt.Run(f)
	}

	if !fn.IsAnon() {
		s.defined[name] = true
	}
	return f, nil
}

// expr lowers one AST node to an IR value. The switch is exhaustive over
// the closed Expr set.
func (s *Session) expr(e parser.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *parser.NumberExpr:
		return constant.NewFloat(types.Double, e.Value), nil

	case *parser.VariableExpr:
		v, ok := s.named[e.Name]
		if !ok {
			return nil, errors.NewCompileError(fmt.Sprintf("unknown variable name %q", e.Name))
		}
		return v, nil

	case *parser.BinaryExpr:
		return s.binary(e)

	case *parser.CallExpr:
		return s.call(e)
	}
	return nil, errors.NewCompileError(fmt.Sprintf("cannot lower expression %T", e))
}

func (s *Session) binary(e *parser.BinaryExpr) (value.Value, error) {
	l, err := s.expr(e.Left)
	if err != nil {
		return nil, err
	}
	r, err := s.expr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case '+':
		return s.block.NewFAdd(l, r), nil
	case '-':
		return s.block.NewFSub(l, r), nil
	case '*':
		return s.block.NewFMul(l, r), nil
	case '<':
		// Comparisons produce 0.0/1.0 doubles; the language has no boolean
		// type.
		cmp := s.block.NewFCmp(enum.FPredULT, l, r)
		return s.block.NewUIToFP(cmp, types.Double), nil
	}
	return nil, errors.NewCompileError(fmt.Sprintf("invalid binary operator %q", string(e.Op)))
}

func (s *Session) call(e *parser.CallExpr) (value.Value, error) {
	callee := s.lookupFunc(e.Callee)
	if callee == nil {
		return nil, errors.NewCompileError(fmt.Sprintf("unknown function %q referenced", e.Callee))
	}
	if len(callee.Params) != len(e.Args) {
		return nil, errors.NewCompileError(fmt.Sprintf(
			"incorrect number of arguments passed to %q: want %d, got %d",
			e.Callee, len(callee.Params), len(e.Args)))
	}

	args := make([]value.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := s.expr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return s.block.NewCall(callee, args...), nil
}

// lookupFunc resolves a function by name: first the open module, then the
// prototype table, lazily declaring into the module from the latter.
func (s *Session) lookupFunc(name string) *ir.Func {
	if f := s.moduleFunc(name); f != nil {
		return f
	}
	if proto, ok := s.protos[name]; ok {
		return s.declare(proto)
	}
	return nil
}

func (s *Session) moduleFunc(name string) *ir.Func {
	for _, f := range s.Module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// declare emits a declaration of type double(double...) into the open
// module, binding parameter names for later named-value seeding.
func (s *Session) declare(proto parser.Prototype) *ir.Func {
	params := make([]*ir.Param, len(proto.Params))
	for i, name := range proto.Params {
		params[i] = ir.NewParam(name, types.Double)
	}
	return s.Module.NewFunc(proto.Name, types.Double, params...)
}

func (s *Session) removeFunc(f *ir.Func) {
	for i, mf := range s.Module.Funcs {
		if mf == f {
			s.Module.Funcs = append(s.Module.Funcs[:i], s.Module.Funcs[i+1:]...)
			return
		}
	}
}

// verify checks structural consistency of a finalized function: one entry
// block, terminated, with an operand for the return.
func verify(f *ir.Func) error {
	if len(f.Blocks) != 1 {
		return errors.NewCompileError(fmt.Sprintf("function %q: want a single entry block, got %d", f.Name(), len(f.Blocks)))
	}
	term, ok := f.Blocks[0].Term.(*ir.TermRet)
	if !ok || term.X == nil {
		return errors.NewCompileError(fmt.Sprintf("function %q: entry block is not terminated by a value return", f.Name()))
	}
	return nil
}
