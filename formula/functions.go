// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/ops"
	"github.com/RyuU12358/Bunpu/reduce"
)

func (st *evalState) evalCall(n callExpr) (dist.Distribution, error) {
	name := upper(n.name)
	if name == "CONFIG" {
		return st.evalConfig(n.args)
	}
	vals, err := st.evalArgs(n.args)
	if err != nil {
		return dist.Empty(), err
	}
	return st.dispatch(name, vals)
}

// evalConfig implements CONFIG's dynamic scoping (§4.4, §9): the second
// argument is parsed and evaluated with the enclosing limit temporarily
// overridden by the first argument, restored on exit regardless of
// success or failure.
func (st *evalState) evalConfig(args []arg) (dist.Distribution, error) {
	flat, err := expandArgs(args)
	if err != nil {
		return dist.Empty(), err
	}
	if len(flat) != 2 {
		return dist.Empty(), errf(ArityError, "CONFIG requires exactly 2 arguments")
	}
	limitVal, err := st.eval(flat[0])
	if err != nil {
		return dist.Empty(), err
	}
	k, err := requireScalar(limitVal, "CONFIG limit")
	if err != nil {
		return dist.Empty(), err
	}
	newLimit := int(k + 0.5)
	if newLimit < 1 {
		return dist.Empty(), errf(ArgumentError, "CONFIG limit must be >= 1")
	}
	saved := st.limit
	st.limit = newLimit
	defer func() { st.limit = saved }()
	return st.eval(flat[1])
}

// dispatch implements the function table of §4.4. Names are
// case-insensitive (the caller has already upper-cased name).
func (st *evalState) dispatch(name string, a []dist.Distribution) (dist.Distribution, error) {
	switch name {
	case "CONST":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		x, err := requireScalar(a[0], "CONST(x)")
		if err != nil {
			return dist.Empty(), err
		}
		return dist.New(component.NewAtom(x, 1)), nil

	case "UNIFORM":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		lo, hi, err := scalarPair(a, "UNIFORM")
		if err != nil {
			return dist.Empty(), err
		}
		if lo >= hi {
			return dist.Empty(), errf(ArgumentError, "UNIFORM requires min < max")
		}
		return dist.New(component.NewUniformBin(lo, hi, 1)), nil

	case "NORMAL":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		mean, sigma, err := scalarPair(a, "NORMAL")
		if err != nil {
			return dist.Empty(), err
		}
		if sigma <= 0 {
			return dist.Empty(), errf(ArgumentError, "NORMAL requires sigma > 0")
		}
		return buildNormal(mean, sigma), nil

	case "DISCRETE":
		if err := evenArityAtLeast2(name, a); err != nil {
			return dist.Empty(), err
		}
		return buildPairs(a, false)

	case "CHOICE":
		if err := evenArityAtLeast2(name, a); err != nil {
			return dist.Empty(), err
		}
		return buildPairs(a, true)

	case "EXPONENTIAL":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		lambda, err := requireScalar(a[0], "EXPONENTIAL(lambda)")
		if err != nil {
			return dist.Empty(), err
		}
		if lambda <= 0 {
			return dist.Empty(), errf(ArgumentError, "EXPONENTIAL requires lambda > 0")
		}
		return buildExponential(lambda), nil

	case "POISSON":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		lambda, err := requireScalar(a[0], "POISSON(lambda)")
		if err != nil {
			return dist.Empty(), err
		}
		if lambda <= 0 {
			return dist.Empty(), errf(ArgumentError, "POISSON requires lambda > 0")
		}
		return buildPoisson(lambda, st.limit), nil

	case "BINOMIAL":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		nf, pf, err := scalarPair(a, "BINOMIAL")
		if err != nil {
			return dist.Empty(), err
		}
		n := int(nf + 0.5)
		if n < 0 || pf < 0 || pf > 1 {
			return dist.Empty(), errf(ArgumentError, "BINOMIAL requires n >= 0 and p in [0, 1]")
		}
		if n > st.limit {
			return dist.Empty(), errf(ArgumentError, "BINOMIAL n exceeds component limit")
		}
		return buildBinomial(n, pf), nil

	case "ADD", "CONVOLVE":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		return st.safetyCheck(st.add(a[0], a[1])), nil

	case "SUB":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		return st.safetyCheck(st.subtract(a[0], a[1])), nil

	case "MUL":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		return st.evalMul(a[0], a[1])

	case "DIV":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		return st.evalDiv(a[0], a[1])

	case "POWER":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		k, err := requireScalar(a[1], "POWER exponent")
		if err != nil {
			return dist.Empty(), err
		}
		return st.safetyCheck(powerDist(a[0], k)), nil

	case "MIX":
		if err := arity(name, a, 3); err != nil {
			return dist.Empty(), err
		}
		p, err := requireScalar(a[0], "MIX weight")
		if err != nil {
			return dist.Empty(), err
		}
		if p < 0 || p > 1 {
			return dist.Empty(), errf(ArgumentError, "MIX weight must be in [0, 1]")
		}
		return st.mix(a[1], a[2], p), nil

	case "SCALE":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		k, err := requireScalar(a[1], "SCALE(d, k)")
		if err != nil {
			return dist.Empty(), err
		}
		return st.scale(a[0], k), nil

	case "SHIFT":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		k, err := requireScalar(a[1], "SHIFT(d, k)")
		if err != nil {
			return dist.Empty(), err
		}
		return shiftDist(a[0], k), nil

	case "BIN":
		if len(a) != 2 && len(a) != 3 {
			return dist.Empty(), errf(ArityError, "BIN requires 2 or 3 arguments")
		}
		lo, hi, err := scalarPair(a[:2], "BIN")
		if err != nil {
			return dist.Empty(), err
		}
		p := 1.0
		if len(a) == 3 {
			p, err = requireScalar(a[2], "BIN probability")
			if err != nil {
				return dist.Empty(), err
			}
		}
		return dist.New(component.NewUniformBin(lo, hi, p)), nil

	case "RESAMPLE":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		nf, err := requireScalar(a[1], "RESAMPLE(d, n)")
		if err != nil {
			return dist.Empty(), err
		}
		n := int(nf + 0.5)
		if n < 1 {
			return dist.Empty(), errf(ArgumentError, "RESAMPLE requires n >= 1")
		}
		samples := dist.Sample(a[0], n, st.ctx.Source)
		return st.safetyCheck(buildEmpirical(samples)), nil

	case "REDUCE":
		return st.dispatchReduce(a)

	case "MEAN":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		mean, _, _, _ := accel.Moments(st.ctx.Accelerator, a[0], 0)
		return scalarResult(mean), nil

	case "VAR":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		_, variance, _, _ := accel.Moments(st.ctx.Accelerator, a[0], 0)
		return scalarResult(variance), nil

	case "STD":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		_, _, std, _ := accel.Moments(st.ctx.Accelerator, a[0], 0)
		return scalarResult(std), nil

	case "MEDIAN":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		return scalarResult(dist.Median(a[0])), nil

	case "PROB_GT":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		x, err := requireScalar(a[1], "PROB_GT(d, x)")
		if err != nil {
			return dist.Empty(), err
		}
		_, _, _, probGT := accel.Moments(st.ctx.Accelerator, a[0], x)
		return scalarResult(probGT), nil

	case "MAX_OF":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		nf, err := requireScalar(a[1], "MAX_OF(d, n)")
		if err != nil {
			return dist.Empty(), err
		}
		return st.safetyCheck(dist.MaxOf(a[0], int(nf+0.5))), nil

	case "GEOM_SUM":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		p, err := requireScalar(a[1], "GEOM_SUM(d, p)")
		if err != nil {
			return dist.Empty(), err
		}
		if p < 0 || p >= 1 {
			return dist.Empty(), errf(ArgumentError, "GEOM_SUM requires p in [0, 1)")
		}
		return ops.GeomSum(a[0], p, st.limit, st.ctx.Accelerator), nil

	case "REPEAT_ADD":
		if err := arity(name, a, 2); err != nil {
			return dist.Empty(), err
		}
		nf, err := requireScalar(a[1], "REPEAT_ADD(d, n)")
		if err != nil {
			return dist.Empty(), err
		}
		n := int(nf + 0.5)
		if n < 0 {
			return dist.Empty(), errf(ArgumentError, "REPEAT_ADD requires n >= 0")
		}
		return ops.RepeatAdd(a[0], n, st.limit, st.ctx.Accelerator), nil

	case "RUIN_PROB":
		if err := arity(name, a, 3); err != nil {
			return dist.Empty(), err
		}
		w0, T, err := scalarPair(a[1:], "RUIN_PROB")
		if err != nil {
			return dist.Empty(), err
		}
		p := ops.RuinProb(a[0], w0, int(T+0.5), st.limit, st.ctx.Accelerator, st.ctx.Source)
		return scalarResult(p), nil

	case "REF":
		if err := arity(name, a, 1); err != nil {
			return dist.Empty(), err
		}
		return a[0], nil

	default:
		return dist.Empty(), errf(UnknownFunction, "unknown function "+name)
	}
}

func arity(name string, a []dist.Distribution, want int) error {
	if len(a) != want {
		return errf(ArityError, fmt.Sprintf("%s requires exactly %d arguments", name, want))
	}
	return nil
}

func evenArityAtLeast2(name string, a []dist.Distribution) error {
	if len(a) < 2 || len(a)%2 != 0 {
		return errf(ArityError, name+" requires an even number of arguments, at least 2")
	}
	return nil
}

func scalarPair(a []dist.Distribution, name string) (float64, float64, error) {
	x, err := requireScalar(a[0], name)
	if err != nil {
		return 0, 0, err
	}
	y, err := requireScalar(a[1], name)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func scalarResult(x float64) dist.Distribution {
	return dist.New(component.NewAtom(x, 1))
}

func (st *evalState) dispatchReduce(a []dist.Distribution) (dist.Distribution, error) {
	if len(a) < 2 || len(a) > 6 {
		return dist.Empty(), errf(ArityError, "REDUCE requires 2 to 6 arguments")
	}
	nf, err := requireScalar(a[1], "REDUCE(d, N, ...)")
	if err != nil {
		return dist.Empty(), err
	}
	n := int(nf + 0.5)
	if n < 1 {
		return dist.Empty(), errf(ArgumentError, "REDUCE requires N >= 1")
	}
	opts := reduce.Options{N: n, Boundaries: []float64{0}}
	if len(a) >= 3 {
		c, err := requireScalar(a[2], "REDUCE center")
		if err != nil {
			return dist.Empty(), err
		}
		opts.Center = &c
	}
	if len(a) >= 4 {
		tau, err := requireScalar(a[3], "REDUCE tau")
		if err != nil {
			return dist.Empty(), err
		}
		opts.Valley = &tau
	}
	// a[4], when present, is a reserved/unused slot (§4.4: "—").
	if len(a) >= 6 {
		w, err := requireScalar(a[5], "REDUCE widthWeight")
		if err != nil {
			return dist.Empty(), err
		}
		opts.WidthWeight = &w
	}
	return reduce.Reduce(a[0], opts), nil
}

func shiftDist(d dist.Distribution, k float64) dist.Distribution {
	out := make([]component.Component, len(d.Components))
	for i, c := range d.Components {
		out[i] = component.Shift(c, k)
	}
	return dist.New(out...)
}

func powerDist(d dist.Distribution, k float64) dist.Distribution {
	out := make([]component.Component, 0, len(d.Components))
	for _, c := range d.Components {
		switch c.Kind {
		case component.Atom:
			out = append(out, component.NewAtom(math.Pow(c.X, k), c.P))
		case component.Bin:
			a, b := math.Pow(c.A, k), math.Pow(c.B, k)
			if a > b {
				a, b = b, a
			}
			if a == b {
				out = append(out, component.NewAtom(a, c.P))
				continue
			}
			out = append(out, component.NewUniformBin(a, b, c.P))
		case component.Tail:
			out = append(out, c) // unchanged: documented approximation, as with Scale.
		}
	}
	return dist.New(out...)
}

func buildPairs(a []dist.Distribution, normalize bool) (dist.Distribution, error) {
	cs := make([]component.Component, 0, len(a)/2)
	var totalWeight float64
	for i := 0; i < len(a); i += 2 {
		v, err := requireScalar(a[i], "DISCRETE/CHOICE value")
		if err != nil {
			return dist.Empty(), err
		}
		w, err := requireScalar(a[i+1], "DISCRETE/CHOICE weight")
		if err != nil {
			return dist.Empty(), err
		}
		cs = append(cs, component.NewAtom(v, w))
		totalWeight += w
	}
	if totalWeight <= 0 {
		return dist.Empty(), errf(ArgumentError, "DISCRETE/CHOICE requires total weight > 0")
	}
	d := dist.New(cs...)
	if normalize {
		return dist.Normalize(d), nil
	}
	return d, nil
}

func buildEmpirical(samples []float64) dist.Distribution {
	n := len(samples)
	cs := make([]component.Component, n)
	w := 1.0 / float64(n)
	for i, x := range samples {
		cs[i] = component.NewAtom(x, w)
	}
	return dist.New(cs...)
}

// buildNormal discretizes N(mean, sigma) into 20 uniform bins across
// mean ± 4σ, with masses from the Gaussian PDF at each bin's midpoint,
// normalized (§4.4).
func buildNormal(mean, sigma float64) dist.Distribution {
	const nBins = 20
	lo := mean - 4*sigma
	hi := mean + 4*sigma
	width := (hi - lo) / nBins
	n := distuv.Normal{Mu: mean, Sigma: sigma}

	masses := make([]float64, nBins)
	cs := make([]component.Component, nBins)
	for i := 0; i < nBins; i++ {
		a := lo + float64(i)*width
		b := a + width
		mid := (a + b) / 2
		masses[i] = n.Prob(mid)
		cs[i] = component.NewUniformBin(a, b, masses[i])
	}
	total := floats.Sum(masses)
	if total <= 0 {
		return dist.New(cs...)
	}
	return dist.Normalize(dist.New(cs...))
}

// buildExponential discretizes Exponential(lambda) into 50 bins over
// [0, 7/lambda], with bin mass = exp(-λa) - exp(-λb), normalized (§4.4).
func buildExponential(lambda float64) dist.Distribution {
	const nBins = 50
	hi := 7 / lambda
	width := hi / nBins
	cs := make([]component.Component, nBins)
	for i := 0; i < nBins; i++ {
		a := float64(i) * width
		b := a + width
		mass := math.Exp(-lambda*a) - math.Exp(-lambda*b)
		cs[i] = component.NewUniformBin(a, b, mass)
	}
	return dist.Normalize(dist.New(cs...))
}

// buildPoisson emits atoms for k = 0..min(limit, tail) using the
// standard PMF recurrence p_k = p_{k-1} * lambda / k, stopping once
// cumulative mass exceeds 1 - 1e-5, then normalizes (§4.4).
func buildPoisson(lambda float64, limit int) dist.Distribution {
	var cs []component.Component
	pk := math.Exp(-lambda)
	var cumulative float64
	for k := 0; k <= limit; k++ {
		if k > 0 {
			pk *= lambda / float64(k)
		}
		cs = append(cs, component.NewAtom(float64(k), pk))
		cumulative += pk
		if cumulative > 1-1e-5 {
			break
		}
	}
	return dist.Normalize(dist.New(cs...))
}

// buildBinomial emits atoms for k = 0..n using the exact PMF
// C(n,k)*p^k*(1-p)^(n-k), computed from gonum's combinatorics package
// (§4.4).
func buildBinomial(n int, p float64) dist.Distribution {
	cs := make([]component.Component, 0, n+1)
	for k := 0; k <= n; k++ {
		pmf := float64(combin.Binomial(n, k)) * math.Pow(p, float64(k)) * math.Pow(1-p, float64(n-k))
		cs = append(cs, component.NewAtom(float64(k), pmf))
	}
	return dist.New(cs...)
}
