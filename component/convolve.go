// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package component

import "math"

// Convolve returns the pairwise convolution of two components, following
// §4.1: the resulting probability is the product of the inputs' masses.
// Any pairing involving a Tail is dropped (ok is false) — this is the
// documented lossy approximation; callers must track the dropped mass
// themselves (dist.Add skips such pairs and does not track it).
func Convolve(x, y Component) (result Component, ok bool) {
	if x.Kind == Tail || y.Kind == Tail {
		return Component{}, false
	}
	p := x.Prob() * y.Prob()
	switch {
	case x.Kind == Atom && y.Kind == Atom:
		return NewAtom(x.X+y.X, p), true
	case x.Kind == Atom && y.Kind == Bin:
		return convolveAtomBin(x, y, p), true
	case x.Kind == Bin && y.Kind == Atom:
		return convolveAtomBin(y, x, p), true
	case x.Kind == Bin && y.Kind == Bin:
		return convolveBinBin(x, y, p), true
	default:
		panic("component: unreachable convolution case")
	}
}

func convolveAtomBin(atom, bin Component, p float64) Component {
	shifted := Shift(bin, atom.X)
	shifted.P = p
	return shifted
}

// convolveBinBin implements the variance-matched uniform approximation of
// §4.1: the exact convolution of two uniforms is a triangular
// distribution; rather than introduce a new shape family, Bunpu matches
// its first two moments with a single wider uniform bin.
func convolveBinBin(x, y Component, p float64) Component {
	w1 := x.B - x.A
	w2 := y.B - y.A
	v1 := w1 * w1 / 12
	v2 := w2 * w2 / 12
	v := v1 + v2
	wPrime := math.Sqrt(12 * v)
	center := (x.A+x.B)/2 + (y.A+y.B)/2
	a := center - wPrime/2
	b := center + wPrime/2
	return Component{Kind: Bin, A: a, B: b, P: p, Shape: Uniform, Repr: center}
}
