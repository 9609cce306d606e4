// internal/opt/opt.go
//
// Local peephole pipeline run over each finalized function: constant
// folding, common-subexpression elimination, and a dead-instruction sweep.
// Functions are single-block straight-line code, so there is no control
// flow graph to simplify beyond verifying that shape.
package opt

import (
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Run applies the pipeline to a finalized function in place.
func Run(f *ir.Func) {
	for _, b := range f.Blocks {
		combine(b)
		sweep(b)
	}
}

// exprKey identifies an instruction by operation and operands for CSE.
type exprKey struct {
	op   string
	pred enum.FPred
	x, y value.Value
}

// combine makes one forward pass folding constant operations and merging
// repeated computations. Values are defined before use inside a block, so a
// single pass reaches a fixpoint.
func combine(b *ir.Block) {
	repl := make(map[value.Value]value.Value)
	seen := make(map[exprKey]value.Value)
	kept := b.Insts[:0]

	for _, inst := range b.Insts {
		switch in := inst.(type) {
		case *ir.InstFAdd:
			in.X, in.Y = rewrite(in.X, repl), rewrite(in.Y, repl)
			if !reduce(in, "fadd", 0, in.X, in.Y, repl, seen) {
				kept = append(kept, in)
			}
		case *ir.InstFSub:
			in.X, in.Y = rewrite(in.X, repl), rewrite(in.Y, repl)
			if !reduce(in, "fsub", 0, in.X, in.Y, repl, seen) {
				kept = append(kept, in)
			}
		case *ir.InstFMul:
			in.X, in.Y = rewrite(in.X, repl), rewrite(in.Y, repl)
			if !reduce(in, "fmul", 0, in.X, in.Y, repl, seen) {
				kept = append(kept, in)
			}
		case *ir.InstFCmp:
			in.X, in.Y = rewrite(in.X, repl), rewrite(in.Y, repl)
			if x, y, ok := floatOperands(in.X, in.Y); ok && in.Pred == enum.FPredULT {
				bit := int64(0)
				if x < y || math.IsNaN(x) || math.IsNaN(y) {
					bit = 1
				}
				repl[in] = constant.NewInt(types.I1, bit)
				continue
			}
			k := exprKey{op: "fcmp", pred: in.Pred, x: in.X, y: in.Y}
			if prev, ok := seen[k]; ok {
				repl[in] = prev
				continue
			}
			seen[k] = in
			kept = append(kept, in)
		case *ir.InstUIToFP:
			in.From = rewrite(in.From, repl)
			if c, ok := in.From.(*constant.Int); ok {
				repl[in] = constant.NewFloat(types.Double, float64(c.X.Int64()))
				continue
			}
			k := exprKey{op: "uitofp", x: in.From}
			if prev, ok := seen[k]; ok {
				repl[in] = prev
				continue
			}
			seen[k] = in
			kept = append(kept, in)
		case *ir.InstCall:
			// Calls may have side effects: operands are rewritten, the call
			// itself is never folded or merged.
			for i := range in.Args {
				in.Args[i] = rewrite(in.Args[i], repl)
			}
			kept = append(kept, in)
		default:
			kept = append(kept, inst)
		}
	}
	b.Insts = kept

	if ret, ok := b.Term.(*ir.TermRet); ok && ret.X != nil {
		ret.X = rewrite(ret.X, repl)
	}
}

// reduce folds inst when both operands are constant, or merges it with an
// identical earlier instruction. It reports whether inst was eliminated.
func reduce(inst value.Value, op string, pred enum.FPred, x, y value.Value, repl map[value.Value]value.Value, seen map[exprKey]value.Value) bool {
	if xv, yv, ok := floatOperands(x, y); ok {
		var v float64
		switch op {
		case "fadd":
			v = xv + yv
		case "fsub":
			v = xv - yv
		case "fmul":
			v = xv * yv
		}
		repl[inst] = constant.NewFloat(types.Double, v)
		return true
	}
	k := exprKey{op: op, pred: pred, x: x, y: y}
	if prev, ok := seen[k]; ok {
		repl[inst] = prev
		return true
	}
	seen[k] = inst
	return false
}

func rewrite(v value.Value, repl map[value.Value]value.Value) value.Value {
	if r, ok := repl[v]; ok {
		return r
	}
	return v
}

func floatOperands(x, y value.Value) (float64, float64, bool) {
	cx, ok := x.(*constant.Float)
	if !ok {
		return 0, 0, false
	}
	cy, ok := y.(*constant.Float)
	if !ok {
		return 0, 0, false
	}
	return floatValue(cx), floatValue(cy), true
}

func floatValue(c *constant.Float) float64 {
	if c.NaN {
		return math.NaN()
	}
	v, _ := c.X.Float64()
	return v
}

// sweep drops instructions whose results are unused. Calls are kept
// unconditionally. A backward pass sees each use before its definition.
func sweep(b *ir.Block) {
	used := make(map[value.Value]bool)
	if ret, ok := b.Term.(*ir.TermRet); ok && ret.X != nil {
		used[ret.X] = true
	}

	kept := make([]ir.Instruction, 0, len(b.Insts))
	for i := len(b.Insts) - 1; i >= 0; i-- {
		inst := b.Insts[i]
		if v, ok := inst.(value.Value); ok && !used[v] {
			if _, isCall := inst.(*ir.InstCall); !isCall {
				continue
			}
		}
		switch in := inst.(type) {
		case *ir.InstFAdd:
			used[in.X], used[in.Y] = true, true
		case *ir.InstFSub:
			used[in.X], used[in.Y] = true, true
		case *ir.InstFMul:
			used[in.X], used[in.Y] = true, true
		case *ir.InstFCmp:
			used[in.X], used[in.Y] = true, true
		case *ir.InstUIToFP:
			used[in.From] = true
		case *ir.InstCall:
			for _, a := range in.Args {
				used[a] = true
			}
		}
		kept = append(kept, inst)
	}

	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	b.Insts = kept
}
