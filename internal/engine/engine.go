// internal/engine/engine.go
//
// Execution engine behind the driver: it accepts finalized IR modules,
// keeps them resident so later units can call into them, resolves symbols
// by name, and evaluates function bodies. A disposable module (a bare
// top-level expression) is added, executed, and removed again by its
// handle; definitions stay resident for the life of the session.
package engine

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
)

// Handle identifies a module committed to the engine.
type Handle int

// Callable is a resolved symbol: a function invocable with scalar arguments.
type Callable func(args ...float64) (float64, error)

// Builtin is a host function made available to 'extern' declarations.
type Builtin func(args []float64) float64

type resident struct {
	handle Handle
	module *ir.Module
}

// Engine holds the resident modules and the host-builtin registry. It is
// single-threaded by design, like the rest of the pipeline.
type Engine struct {
	modules  []resident
	builtins map[string]Builtin
	next     Handle

	// Out receives output of side-effecting builtins such as printd.
	Out io.Writer
}

func New() *Engine {
	e := &Engine{
		builtins: make(map[string]Builtin),
		next:     1,
		Out:      os.Stdout,
	}
	e.installHostBuiltins()
	return e
}

// RegisterBuiltin exposes a host function under name. Extern declarations
// with no resident definition resolve against this registry.
func (e *Engine) RegisterBuiltin(name string, fn Builtin) {
	e.builtins[name] = fn
}

// AddModule commits a module and returns its handle.
func (e *Engine) AddModule(m *ir.Module) Handle {
	h := e.next
	e.next++
	e.modules = append(e.modules, resident{handle: h, module: m})
	return h
}

// RemoveModule unloads a previously committed module. Unknown handles are
// ignored.
func (e *Engine) RemoveModule(h Handle) {
	for i, r := range e.modules {
		if r.handle == h {
			e.modules = append(e.modules[:i], e.modules[i+1:]...)
			return
		}
	}
}

// FindSymbol resolves name to a callable. Resident definitions win over
// host builtins; among residents the most recently added wins.
func (e *Engine) FindSymbol(name string) (Callable, error) {
	if f := e.definition(name); f != nil {
		return func(args ...float64) (float64, error) {
			return e.call(f, args)
		}, nil
	}
	if b, ok := e.builtins[name]; ok {
		return func(args ...float64) (float64, error) {
			return b(args), nil
		}, nil
	}
	return nil, errors.Errorf("symbol %q not found", name)
}

// definition returns the newest resident function with a lowered body.
func (e *Engine) definition(name string) *ir.Func {
	for i := len(e.modules) - 1; i >= 0; i-- {
		for _, f := range e.modules[i].module.Funcs {
			if f.Name() == name && len(f.Blocks) > 0 {
				return f
			}
		}
	}
	return nil
}

// call evaluates a function body. Bodies are straight-line single-block
// code; every value is a double.
func (e *Engine) call(f *ir.Func, args []float64) (float64, error) {
	if len(args) != len(f.Params) {
		return 0, errors.Errorf("function %q takes %d arguments, got %d", f.Name(), len(f.Params), len(args))
	}

	env := make(map[value.Value]float64, len(args))
	for i, p := range f.Params {
		env[p] = args[i]
	}

	block := f.Blocks[0]
	for _, inst := range block.Insts {
		switch in := inst.(type) {
		case *ir.InstFAdd:
			env[in] = e.operand(in.X, env) + e.operand(in.Y, env)
		case *ir.InstFSub:
			env[in] = e.operand(in.X, env) - e.operand(in.Y, env)
		case *ir.InstFMul:
			env[in] = e.operand(in.X, env) * e.operand(in.Y, env)
		case *ir.InstFCmp:
			if in.Pred != enum.FPredULT {
				return 0, errors.Errorf("function %q: unsupported compare predicate %v", f.Name(), in.Pred)
			}
			x, y := e.operand(in.X, env), e.operand(in.Y, env)
			if x < y || math.IsNaN(x) || math.IsNaN(y) {
				env[in] = 1
			} else {
				env[in] = 0
			}
		case *ir.InstUIToFP:
			env[in] = e.operand(in.From, env)
		case *ir.InstCall:
			v, err := e.callInst(f, in, env)
			if err != nil {
				return 0, err
			}
			env[in] = v
		default:
			return 0, errors.Errorf("function %q: unsupported instruction %T", f.Name(), inst)
		}
	}

	ret, ok := block.Term.(*ir.TermRet)
	if !ok || ret.X == nil {
		return 0, errors.Errorf("function %q: body does not return a value", f.Name())
	}
	return e.operand(ret.X, env), nil
}

func (e *Engine) callInst(caller *ir.Func, in *ir.InstCall, env map[value.Value]float64) (float64, error) {
	callee, ok := in.Callee.(*ir.Func)
	if !ok {
		return 0, errors.Errorf("function %q: indirect calls are not supported", caller.Name())
	}

	args := make([]float64, len(in.Args))
	for i, a := range in.Args {
		args[i] = e.operand(a, env)
	}

	// A callee with a body in the same module is invoked directly; a bare
	// declaration resolves through the engine, so cross-module calls and
	// host builtins both work.
	if len(callee.Blocks) > 0 {
		return e.call(callee, args)
	}
	if f := e.definition(callee.Name()); f != nil {
		return e.call(f, args)
	}
	if b, ok := e.builtins[callee.Name()]; ok {
		return b(args), nil
	}
	return 0, errors.Wrapf(
		errors.Errorf("symbol %q not found", callee.Name()),
		"call from %q", caller.Name())
}

// operand evaluates a value reference: constants fold directly, everything
// else was produced earlier in the block or is a parameter.
func (e *Engine) operand(v value.Value, env map[value.Value]float64) float64 {
	switch c := v.(type) {
	case *constant.Float:
		if c.NaN {
			return math.NaN()
		}
		f, _ := c.X.Float64()
		return f
	case *constant.Int:
		return float64(c.X.Int64())
	}
	return env[v]
}

// installHostBuiltins registers the standard externs available to programs.
func (e *Engine) installHostBuiltins() {
	e.RegisterBuiltin("sin", func(args []float64) float64 {
		return math.Sin(arg(args, 0))
	})
	e.RegisterBuiltin("cos", func(args []float64) float64 {
		return math.Cos(arg(args, 0))
	})
	e.RegisterBuiltin("sqrt", func(args []float64) float64 {
		return math.Sqrt(arg(args, 0))
	})
	e.RegisterBuiltin("printd", func(args []float64) float64 {
		fmt.Fprintf(e.Out, "%g\n", arg(args, 0))
		return 0
	})
}

func arg(args []float64, i int) float64 {
	if i >= len(args) {
		return 0
	}
	return args[i]
}
