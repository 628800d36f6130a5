// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyuU12358/Bunpu/component"
)

// Add returns the independent sum (convolution) of a and b: the
// Cartesian product of their components via component.Convolve, with any
// pairing involving a tail dropped (§4.1). The result is not reduced; the
// caller is responsible for invoking the reducer when the component count
// exceeds its effective limit (§4.4).
func Add(a, b Distribution) Distribution {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	out := make([]component.Component, 0, len(a.Components)*len(b.Components))
	for _, x := range a.Components {
		for _, y := range b.Components {
			if c, ok := component.Convolve(x, y); ok {
				out = append(out, c)
			}
		}
	}
	d := Distribution{Components: out}
	d.sortInPlace()
	return d
}

// Subtract returns a ⊕ scale(b, -1), the independent difference (§4.2).
func Subtract(a, b Distribution) Distribution {
	return Add(a, Scale(b, -1))
}

// Scale returns d with every atom and bin scaled by k about the origin;
// tails are left unchanged (documented approximation, §4.2).
func Scale(d Distribution, k float64) Distribution {
	out := make([]component.Component, len(d.Components))
	for i, c := range d.Components {
		out[i] = component.Scale(c, k)
	}
	r := Distribution{Components: out}
	r.sortInPlace()
	return r
}

// Mix returns the probabilistic mixture (1-p)*a + p*b (§4.2). p must lie
// in [0, 1].
func Mix(a, b Distribution, p float64) Distribution {
	if p < 0 || p > 1 {
		panic("dist: mix weight out of [0, 1]")
	}
	out := make([]component.Component, 0, len(a.Components)+len(b.Components))
	for _, c := range a.Components {
		out = append(out, c.WithProb(c.Prob()*(1-p)))
	}
	for _, c := range b.Components {
		out = append(out, c.WithProb(c.Prob()*p))
	}
	r := Distribution{Components: out}
	r.sortInPlace()
	return r
}

// Reciprocal maps d through x -> 1/x, per the coarse approximations
// documented in §4.2: bins crossing zero collapse to a single atom at the
// mid-reciprocal of their two halves, and tails collapse to an atom at the
// reciprocal of their conditional mean. Mass may be lost or coarsened;
// this is documented, not a bug.
func Reciprocal(d Distribution) Distribution {
	out := make([]component.Component, 0, len(d.Components))
	for _, c := range d.Components {
		switch c.Kind {
		case component.Atom:
			if c.X == 0 {
				continue // division by zero: mass dropped, documented approximation
			}
			out = append(out, component.NewAtom(1/c.X, c.P))
		case component.Bin:
			out = append(out, reciprocalBin(c))
		case component.Tail:
			out = append(out, reciprocalTail(c))
		}
	}
	r := Distribution{Components: out}
	r.sortInPlace()
	return r
}

func reciprocalBin(c component.Component) component.Component {
	if c.A >= 0 || c.B <= 0 {
		// does not cross zero: map [a,b] -> [1/b, 1/a].
		lo, hi := 1/c.B, 1/c.A
		if lo > hi {
			lo, hi = hi, lo
		}
		return component.NewBin(lo, hi, c.P, component.Uniform, math.NaN())
	}
	// crosses zero: approximate each half as a single atom at the
	// mid-reciprocal, then recombine their mass into one atom at the
	// probability-weighted midpoint (coarse, documented approximation).
	negFrac := (0 - c.A) / (c.B - c.A)
	posFrac := 1 - negFrac
	negMid := (c.A + 0) / 2
	posMid := (0 + c.B) / 2
	var negRecip, posRecip float64
	if negMid != 0 {
		negRecip = 1 / negMid
	}
	if posMid != 0 {
		posRecip = 1 / posMid
	}
	x := negFrac*negRecip + posFrac*posRecip
	return component.NewAtom(x, c.P)
}

func reciprocalTail(c component.Component) component.Component {
	mean := tailConditionalMean(c)
	var x float64
	if mean != 0 {
		x = 1 / mean
	}
	return component.NewAtom(x, c.Mass)
}

func tailConditionalMean(c component.Component) float64 {
	lambda := c.Lambda()
	if lambda <= 0 {
		return c.X0
	}
	if c.Side == component.Right {
		return c.X0 + 1/lambda
	}
	return c.X0 - 1/lambda
}

// Mean returns Σ p·x over atoms, Σ p·(a+b)/2 over bins, and
// Σ mass·(x0 ± 1/λ) over exponential tails (§4.2).
func Mean(d Distribution) float64 {
	if len(d.Components) == 0 {
		return 0
	}
	terms := make([]float64, len(d.Components))
	for i, c := range d.Components {
		switch c.Kind {
		case component.Atom:
			terms[i] = c.P * c.X
		case component.Bin:
			terms[i] = c.P * (c.A + c.B) / 2
		case component.Tail:
			terms[i] = c.Mass * tailConditionalMean(c)
		}
	}
	return floats.Sum(terms)
}

// secondMoment returns E[X^2] over d.
func secondMoment(d Distribution) float64 {
	if len(d.Components) == 0 {
		return 0
	}
	terms := make([]float64, len(d.Components))
	for i, c := range d.Components {
		switch c.Kind {
		case component.Atom:
			terms[i] = c.P * c.X * c.X
		case component.Bin:
			terms[i] = c.P * (c.A*c.A + c.A*c.B + c.B*c.B) / 3
		case component.Tail:
			lambda := c.Lambda()
			var condVar, condMean float64
			if lambda > 0 {
				condVar = 1 / (lambda * lambda)
			}
			condMean = tailConditionalMean(c)
			terms[i] = c.Mass * (condVar + condMean*condMean)
		}
	}
	return floats.Sum(terms)
}

// Variance returns E[X^2] - (E[X])^2 (§4.2).
func Variance(d Distribution) float64 {
	mean := Mean(d)
	return secondMoment(d) - mean*mean
}

// Std returns the square root of Variance(d).
func Std(d Distribution) float64 {
	v := Variance(d)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// ProbGT returns the mass of d strictly above x: bins contribute a linear
// overlap fraction and exponential tails contribute their closed-form
// survival mass (§4.2).
func ProbGT(d Distribution, x float64) float64 {
	var total float64
	for _, c := range d.Components {
		total += componentProbGT(c, x)
	}
	return total
}

func componentProbGT(c component.Component, x float64) float64 {
	switch c.Kind {
	case component.Atom:
		if c.X > x {
			return c.P
		}
		return 0
	case component.Bin:
		if x <= c.A {
			return c.P
		}
		if x >= c.B {
			return 0
		}
		frac := (c.B - x) / (c.B - c.A)
		return c.P * frac
	case component.Tail:
		lambda := c.Lambda()
		if c.Side == component.Right {
			if x <= c.X0 {
				return c.Mass
			}
			if lambda <= 0 {
				return 0
			}
			return c.Mass * math.Exp(-lambda*(x-c.X0))
		}
		// left tail: mass above x is the complementary exponential form.
		if x >= c.X0 {
			return 0
		}
		if lambda <= 0 {
			return c.Mass
		}
		return c.Mass * (1 - math.Exp(-lambda*(c.X0-x)))
	default:
		return 0
	}
}
