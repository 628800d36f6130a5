// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"

	"github.com/RyuU12358/Bunpu/component"
)

// Quantile traverses d in sort order accumulating mass until q falls
// inside a component, interpolating linearly within a uniform bin and
// inverting the CDF analytically within an exponential tail (§4.2). d is
// normalized first so q is interpreted against total mass 1. Quantile
// panics if q is outside [0, 1] or d is empty.
func Quantile(d Distribution, q float64) float64 {
	if q < 0 || q > 1 {
		panic("dist: quantile out of [0, 1]")
	}
	if d.IsEmpty() {
		panic("dist: quantile of empty distribution")
	}
	nd := Normalize(d)
	var acc float64
	for i, c := range nd.Components {
		p := c.Prob()
		last := i == len(nd.Components)-1
		if q <= acc+p || last {
			return quantileWithin(c, q-acc)
		}
		acc += p
	}
	// Unreachable: the loop above always returns on its last iteration.
	panic("dist: quantile traversal exhausted without returning")
}

// quantileWithin returns the position at which component c's cumulative
// mass (measured from its low end) reaches r.
func quantileWithin(c component.Component, r float64) float64 {
	switch c.Kind {
	case component.Atom:
		return c.X
	case component.Bin:
		if c.P <= 0 {
			return c.Repr
		}
		frac := r / c.P
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		return c.A + frac*(c.B-c.A)
	case component.Tail:
		lambda := c.Lambda()
		if lambda <= 0 || c.Mass <= 0 {
			return c.X0
		}
		ratio := r / c.Mass
		if ratio <= 0 {
			if c.Side == component.Left {
				return math.Inf(-1)
			}
			return c.X0
		}
		if ratio >= 1 {
			if c.Side == component.Left {
				return c.X0
			}
			return math.Inf(1)
		}
		if c.Side == component.Right {
			return c.X0 - math.Log(1-ratio)/lambda
		}
		return c.X0 + math.Log(ratio)/lambda
	default:
		panic("dist: invalid kind")
	}
}

// Median returns Quantile(d, 0.5).
func Median(d Distribution) float64 {
	return Quantile(d, 0.5)
}
