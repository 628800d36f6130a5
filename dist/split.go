// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"

	"github.com/RyuU12358/Bunpu/component"
)

// SplitAt partitions d into a "<= x" distribution and a "> x"
// distribution: bins are split proportionally by width, tails
// analytically via their closed-form exponential CDF, and atoms placed
// entirely on one side. Masses are preserved, not renormalized (§4.2).
func SplitAt(d Distribution, x float64) (leq, gt Distribution) {
	var below, above []component.Component
	for _, c := range d.Components {
		switch c.Kind {
		case component.Atom:
			if c.X <= x {
				below = append(below, c)
			} else {
				above = append(above, c)
			}
		case component.Bin:
			b, a := splitBin(c, x)
			if b.P > 0 {
				below = append(below, b)
			}
			if a.P > 0 {
				above = append(above, a)
			}
		case component.Tail:
			b, a := splitTail(c, x)
			if b != nil {
				below = append(below, *b)
			}
			if a != nil {
				above = append(above, *a)
			}
		}
	}
	leq = Distribution{Components: below}
	gt = Distribution{Components: above}
	leq.sortInPlace()
	gt.sortInPlace()
	return leq, gt
}

// splitBin splits bin c at x into its below-x and above-x portions,
// proportionally by width. Either return value may carry zero mass if c
// lies entirely on one side.
func splitBin(c component.Component, x float64) (below, above component.Component) {
	if x <= c.A {
		return component.Component{}, c
	}
	if x >= c.B {
		return c, component.Component{}
	}
	fracBelow := (x - c.A) / (c.B - c.A)
	below = component.NewUniformBin(c.A, x, c.P*fracBelow)
	above = component.NewUniformBin(x, c.B, c.P*(1-fracBelow))
	return below, above
}

// splitTail splits an exponential tail at x into its below-x and
// above-x portions using the closed-form exponential CDF. A nil return
// means that side carries no mass.
func splitTail(c component.Component, x float64) (below, above *component.Component) {
	lambda := c.Lambda()
	if c.Side == component.Right {
		if x <= c.X0 {
			cp := c
			return nil, &cp
		}
		var belowMass float64
		if lambda > 0 {
			belowMass = c.Mass * (1 - math.Exp(-lambda*(x-c.X0)))
		}
		aboveMass := c.Mass - belowMass
		if belowMass > 0 {
			b := component.NewUniformBin(c.X0, x, belowMass)
			below = &b
		}
		if aboveMass > 0 {
			a := component.NewTail(component.Right, x, aboveMass, c.Family, c.Params, c.Cap)
			above = &a
		}
		return below, above
	}
	// Left tail covers (-inf, x0].
	if x >= c.X0 {
		cp := c
		return &cp, nil
	}
	var belowMass float64
	if lambda > 0 {
		belowMass = c.Mass * math.Exp(-lambda*(c.X0-x))
	}
	aboveMass := c.Mass - belowMass
	if belowMass > 0 {
		b := component.NewTail(component.Left, x, belowMass, c.Family, c.Params, c.Cap)
		below = &b
	}
	if aboveMass > 0 {
		a := component.NewUniformBin(x, c.X0, aboveMass)
		above = &a
	}
	return below, above
}
