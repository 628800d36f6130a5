// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"
	"math/rand"

	"github.com/RyuU12358/Bunpu/component"
)

// logNotZero guards math.Log against a zero argument, which can occur
// when a uniform draw lands exactly on 1.
func logNotZero(x float64) float64 {
	if x <= 0 {
		return math.Log(1e-300)
	}
	return math.Log(x)
}

// aliasTable implements Vose's alias method: O(k) construction, O(1)
// sampling per draw (§4.2, §9).
type aliasTable struct {
	prob  []float64
	alias []int
}

// newAliasTable builds an alias table over the given component masses.
// masses need not sum to 1; they are treated as relative weights.
func newAliasTable(masses []float64) aliasTable {
	n := len(masses)
	t := aliasTable{prob: make([]float64, n), alias: make([]int, n)}
	if n == 0 {
		return t
	}

	var total float64
	for _, m := range masses {
		total += m
	}

	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, m := range masses {
		if total > 0 {
			scaled[i] = m / total * float64(n)
		}
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		t.prob[l] = scaled[l]
		t.alias[l] = g

		scaled[g] = (scaled[g] + scaled[l]) - 1
		if scaled[g] < 1 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}

	// Numerical residues: small and large stacks may both be nonempty at
	// the same time due to floating-point drift. Fall through to
	// probFinal = 1 for whatever remains, per §9.
	for _, g := range large {
		t.prob[g] = 1
	}
	for _, l := range small {
		t.prob[l] = 1
	}

	return t
}

// draw returns a component index chosen in O(1) using two uniform draws
// from src (or the package-level math/rand source if src is nil).
func (t aliasTable) draw(src *rand.Rand) int {
	n := len(t.prob)
	if n == 0 {
		panic("dist: sample from empty distribution")
	}
	var u1, u2 float64
	if src != nil {
		u1, u2 = src.Float64(), src.Float64()
	} else {
		u1, u2 = rand.Float64(), rand.Float64()
	}
	i := int(u1 * float64(n))
	if i >= n {
		i = n - 1
	}
	if u2 < t.prob[i] {
		return i
	}
	return t.alias[i]
}

// Sample draws n independent values from d using an alias table built
// over its component masses; within a component, an atom returns its x,
// a uniform bin returns a + U*(b-a), and an exponential tail returns
// x0 ± -ln(1-U)/λ (§4.2). src may be nil to use the package-level
// math/rand source.
func Sample(d Distribution, n int, src *rand.Rand) []float64 {
	if d.IsEmpty() || n <= 0 {
		return nil
	}
	masses := make([]float64, len(d.Components))
	for i, c := range d.Components {
		masses[i] = c.Prob()
	}
	table := newAliasTable(masses)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := table.draw(src)
		out[i] = sampleWithin(d.Components[idx], src)
	}
	return out
}

func sampleWithin(c component.Component, src *rand.Rand) float64 {
	u := func() float64 {
		if src != nil {
			return src.Float64()
		}
		return rand.Float64()
	}
	switch c.Kind {
	case component.Atom:
		return c.X
	case component.Bin:
		return c.A + u()*(c.B-c.A)
	case component.Tail:
		lambda := c.Lambda()
		if lambda <= 0 {
			return c.X0
		}
		draw := -logNotZero(1-u()) / lambda
		if c.Side == component.Right {
			return c.X0 + draw
		}
		return c.X0 - draw
	default:
		panic("dist: invalid kind")
	}
}
