// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accel defines the pluggable accelerated-callback surface of
// §6: a Provider may supply fast paths for convolution, moment queries,
// scale, mixture and Monte Carlo ruin over flattened component arrays.
// When no Provider is supplied, or the Provider declines, callers fall
// back to the pure Go dist functions; Reference is a Provider that always
// declines. This follows the same
// optional-acceleration pattern distuv uses for its optional
// *rand.Rand Source field.
package accel

import (
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
)

// Flat is a flattened component encoding, one slice per component:
//
//	atom:             [0, x, p]
//	bin:               [1, a, b, p]
//	exponential tail:  [2, x0, mass, lambda, side]  (side: 0 = left, 1 = right)
type Flat []float64

// Encode flattens a single component (§6). Only the exponential tail
// family is representable; other families are encoded with their mass
// carried but their shape parameters dropped, matching the core's
// pass-through treatment of non-exponential tails (§3).
func Encode(c component.Component) Flat {
	switch c.Kind {
	case component.Atom:
		return Flat{0, c.X, c.P}
	case component.Bin:
		return Flat{1, c.A, c.B, c.P}
	case component.Tail:
		side := 0.0
		if c.Side == component.Right {
			side = 1
		}
		return Flat{2, c.X0, c.Mass, c.Params["lambda"], side}
	default:
		panic("accel: invalid kind")
	}
}

// Decode reconstructs a component from its flattened encoding.
func Decode(f Flat) component.Component {
	switch int(f[0]) {
	case 0:
		return component.NewAtom(f[1], f[2])
	case 1:
		return component.NewUniformBin(f[1], f[2], f[3])
	case 2:
		side := component.Left
		if f[4] == 1 {
			side = component.Right
		}
		return component.NewTail(side, f[1], f[2], component.Exponential, map[string]float64{"lambda": f[3]}, nil)
	default:
		panic("accel: invalid flattened kind")
	}
}

// EncodeAll flattens every component of d.
func EncodeAll(d dist.Distribution) []Flat {
	out := make([]Flat, len(d.Components))
	for i, c := range d.Components {
		out[i] = Encode(c)
	}
	return out
}

// DecodeAll reconstructs a Distribution from flattened components.
func DecodeAll(fs []Flat) dist.Distribution {
	cs := make([]component.Component, len(fs))
	for i, f := range fs {
		cs[i] = Decode(f)
	}
	return dist.New(cs...)
}

// Provider is the set of fast paths a host environment may supply.
// Every method must have identical semantics to the corresponding
// pure-Go operation; a nil Provider means "use the pure Go dist
// functions".
type Provider interface {
	// Convolve returns the flattened Cartesian convolution of a and b
	// (§4.1/§4.2 Add), or false if it declines to handle this input
	// (the caller then falls back to dist.Add).
	Convolve(a, b []Flat) (result []Flat, ok bool)

	// Moments returns mean, variance, std and ProbGT(x) of a flattened
	// component array in one pass, or false to decline.
	Moments(cs []Flat, probGTAt float64) (mean, variance, std, probGT float64, ok bool)

	// Scale returns cs with every component scaled by k, or false to
	// decline.
	Scale(cs []Flat, k float64) (result []Flat, ok bool)

	// Mixture returns the weighted concatenation of a (weight 1-p) and
	// b (weight p), or false to decline.
	Mixture(a, b []Flat, p float64) (result []Flat, ok bool)

	// RuinMonteCarlo runs a Monte Carlo ruin simulation: trials random
	// walks of steps increments each, drawn from the distribution
	// encoded by step, starting at initialWealth, and returns the
	// number that are ruined (hit <= 0) within steps. ok is false to
	// decline (the caller falls back to a pure Go sampler).
	RuinMonteCarlo(step []Flat, initialWealth float64, steps, trials int) (ruined int, ok bool)
}

// Add returns the independent sum (convolution) of a and b, trying p's
// Convolve fast path first and falling back to dist.Add (§6: "try the
// accelerated callback, then fall back to the reference implementation").
// p may be nil, which always falls back.
func Add(p Provider, a, b dist.Distribution) dist.Distribution {
	if p != nil {
		if flat, ok := p.Convolve(EncodeAll(a), EncodeAll(b)); ok {
			return DecodeAll(flat)
		}
	}
	return dist.Add(a, b)
}

// Scale returns d with every component scaled by k, trying p's Scale fast
// path first (§6). p may be nil.
func Scale(p Provider, d dist.Distribution, k float64) dist.Distribution {
	if p != nil {
		if flat, ok := p.Scale(EncodeAll(d), k); ok {
			return DecodeAll(flat)
		}
	}
	return dist.Scale(d, k)
}

// Mix returns the probabilistic mixture (1-w)*a + w*b, trying p's Mixture
// fast path first (§6). p may be nil.
func Mix(p Provider, a, b dist.Distribution, w float64) dist.Distribution {
	if p != nil {
		if flat, ok := p.Mixture(EncodeAll(a), EncodeAll(b), w); ok {
			return DecodeAll(flat)
		}
	}
	return dist.Mix(a, b, w)
}

// Moments returns mean, variance, std and ProbGT(x) of d in one pass,
// trying p's Moments fast path first (§6). p may be nil.
func Moments(p Provider, d dist.Distribution, x float64) (mean, variance, std, probGT float64) {
	if p != nil {
		if m, v, s, pg, ok := p.Moments(EncodeAll(d), x); ok {
			return m, v, s, pg
		}
	}
	return dist.Mean(d), dist.Variance(d), dist.Std(d), dist.ProbGT(d, x)
}

// Reference is the zero-value Provider: every method declines, so every
// caller always falls back to the pure Go implementation. It exists so
// call sites can depend on a non-nil Provider without a special case for
// "no acceleration configured".
type Reference struct{}

// Convolve always declines.
func (Reference) Convolve(a, b []Flat) ([]Flat, bool) { return nil, false }

// Moments always declines.
func (Reference) Moments(cs []Flat, probGTAt float64) (float64, float64, float64, float64, bool) {
	return 0, 0, 0, 0, false
}

// Scale always declines.
func (Reference) Scale(cs []Flat, k float64) ([]Flat, bool) { return nil, false }

// Mixture always declines.
func (Reference) Mixture(a, b []Flat, p float64) ([]Flat, bool) { return nil, false }

// RuinMonteCarlo always declines.
func (Reference) RuinMonteCarlo(step []Flat, initialWealth float64, steps, trials int) (int, bool) {
	return 0, false
}
