// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/reduce"
)

// ScalarTolerance is how close a single atom's probability must be to 1
// for a distribution to be treated as a plain scalar (§4.4: MUL/DIV
// "requires a scalar operand").
const ScalarTolerance = 1e-9

// evalState threads the dynamically-scoped component limit through a
// single Eval call, per §4.4/§9: CONFIG saves and restores this field
// around its inner evaluation rather than using a process-wide variable.
type evalState struct {
	ctx   Context
	limit int
}

// Eval tokenizes, parses and evaluates s against ctx, returning the
// resulting distribution (§4.4). If s does not start with '=' the caller
// is expected to have already stripped it (Eval always evaluates s as a
// formula body); see graph.Cell for the raw-input convention of §4.5.
func Eval(s string, ctx Context) (dist.Distribution, error) {
	e, err := parseTopLevel(s)
	if err != nil {
		return dist.Empty(), err
	}
	st := &evalState{ctx: ctx, limit: ctx.defaultLimit()}
	return st.eval(e)
}

func (st *evalState) eval(e expr) (dist.Distribution, error) {
	switch n := e.(type) {
	case numberLit:
		return dist.New(component.NewAtom(n.value, 1)), nil
	case identExpr:
		return st.ctx.resolve(n.name), nil
	case unaryMinus:
		x, err := st.eval(n.x)
		if err != nil {
			return dist.Empty(), err
		}
		return st.safetyCheck(st.scale(x, -1)), nil
	case binaryOp:
		return st.evalBinary(n)
	case callExpr:
		return st.evalCall(n)
	default:
		return dist.Empty(), errf(ParseError, "unrecognized expression node")
	}
}

func (st *evalState) safetyCheck(d dist.Distribution) dist.Distribution {
	return reduce.SafetyCheck(d, st.limit, nil, nil)
}

// add, scale, subtract and mix route through the context's accelerator
// (§6: Add/Scale/Mix each try a Provider fast path before falling back to
// the reference dist implementation).
func (st *evalState) add(a, b dist.Distribution) dist.Distribution {
	return accel.Add(st.ctx.Accelerator, a, b)
}

func (st *evalState) scale(d dist.Distribution, k float64) dist.Distribution {
	return accel.Scale(st.ctx.Accelerator, d, k)
}

func (st *evalState) subtract(a, b dist.Distribution) dist.Distribution {
	return st.add(a, st.scale(b, -1))
}

func (st *evalState) mix(a, b dist.Distribution, p float64) dist.Distribution {
	return accel.Mix(st.ctx.Accelerator, a, b, p)
}

func (st *evalState) evalBinary(n binaryOp) (dist.Distribution, error) {
	x, err := st.eval(n.x)
	if err != nil {
		return dist.Empty(), err
	}
	y, err := st.eval(n.y)
	if err != nil {
		return dist.Empty(), err
	}

	switch n.op {
	case '+':
		return st.safetyCheck(st.add(x, y)), nil
	case '-':
		return st.safetyCheck(st.subtract(x, y)), nil
	case '*':
		return st.evalMul(x, y)
	case '/':
		return st.evalDiv(x, y)
	default:
		return dist.Empty(), errf(ParseError, "unknown operator")
	}
}

func (st *evalState) evalMul(x, y dist.Distribution) (dist.Distribution, error) {
	if k, ok := asScalar(x); ok {
		return st.safetyCheck(st.scale(y, k)), nil
	}
	if k, ok := asScalar(y); ok {
		return st.safetyCheck(st.scale(x, k)), nil
	}
	return dist.Empty(), errf(ArgumentError, "* requires at least one scalar operand")
}

func (st *evalState) evalDiv(x, y dist.Distribution) (dist.Distribution, error) {
	if k, ok := asScalar(y); ok {
		if k == 0 {
			return dist.Empty(), errf(ArgumentError, "division by zero")
		}
		return st.safetyCheck(st.scale(x, 1/k)), nil
	}
	if k, ok := asScalar(x); ok {
		return st.safetyCheck(st.scale(dist.Reciprocal(y), k)), nil
	}
	return dist.Empty(), errf(ArgumentError, "/ requires a scalar divisor or dividend")
}

// asScalar reports whether d is a plain scalar: exactly one atom
// component with probability 1 (within ScalarTolerance). This is how
// NUMBER literals evaluate, and also how MEAN/VAR/STD/MEDIAN/PROB_GT
// publish their scalar observations (§4.4), so either can feed a
// scalar-required position.
func asScalar(d dist.Distribution) (float64, bool) {
	if len(d.Components) != 1 {
		return 0, false
	}
	c := d.Components[0]
	if c.Kind != component.Atom {
		return 0, false
	}
	if absF(c.P-1) > ScalarTolerance {
		return 0, false
	}
	return c.X, true
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// expandArgs flattens a call's argument list, expanding any range
// literal into individual identExpr cell references in row-major order
// (§4.4/§4.5: "Range expansion").
func expandArgs(args []arg) ([]expr, error) {
	var out []expr
	for _, a := range args {
		if a.rng == nil {
			out = append(out, a.expr)
			continue
		}
		ids, err := expandRange(a.rng.from, a.rng.to)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out = append(out, identExpr{name: id})
		}
	}
	return out, nil
}

// evalArgs flattens and evaluates every argument of a call in order.
func (st *evalState) evalArgs(args []arg) ([]dist.Distribution, error) {
	flat, err := expandArgs(args)
	if err != nil {
		return nil, err
	}
	out := make([]dist.Distribution, len(flat))
	for i, e := range flat {
		v, err := st.eval(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func requireScalar(d dist.Distribution, what string) (float64, error) {
	k, ok := asScalar(d)
	if !ok {
		return 0, errf(ArgumentError, what+" must be a scalar")
	}
	return k, nil
}
