// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dist implements the Distribution container: an ordered mixture
// of component.Component values with normalization, convolution,
// mixture, reciprocal, moment and quantile queries, alias-table sampling,
// max-of-n and split-at-x, as specified in §4.2.
package dist

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/RyuU12358/Bunpu/component"
)

// MassTolerance is the numerical tolerance used when deciding whether a
// distribution's total mass already equals 1 (§3).
const MassTolerance = 1e-9

// Distribution is an ordered mixture of components. The zero value is the
// empty distribution (no mass).
type Distribution struct {
	Components []component.Component
}

// Empty returns the empty distribution.
func Empty() Distribution {
	return Distribution{}
}

// New returns a distribution over the given components, sorted by
// position key (§3).
func New(cs ...component.Component) Distribution {
	d := Distribution{Components: append([]component.Component(nil), cs...)}
	d.sortInPlace()
	return d
}

func (d Distribution) sortInPlace() {
	sort.SliceStable(d.Components, func(i, j int) bool {
		return d.Components[i].PositionKey() < d.Components[j].PositionKey()
	})
}

// IsEmpty reports whether d carries no components.
func (d Distribution) IsEmpty() bool {
	return len(d.Components) == 0
}

// TotalMass returns Σ mass over every component.
func (d Distribution) TotalMass() float64 {
	if len(d.Components) == 0 {
		return 0
	}
	masses := make([]float64, len(d.Components))
	for i, c := range d.Components {
		masses[i] = c.Prob()
	}
	return floats.Sum(masses)
}

// Normalize rescales every component's mass so the total equals 1. If the
// distribution is empty, or its total mass is already within
// MassTolerance of 1, Normalize returns d unchanged.
func Normalize(d Distribution) Distribution {
	total := d.TotalMass()
	if total <= 0 || math.Abs(total-1) <= MassTolerance {
		return d
	}
	out := make([]component.Component, len(d.Components))
	for i, c := range d.Components {
		out[i] = c.WithProb(c.Prob() / total)
	}
	return Distribution{Components: out}
}

// Clone returns a deep-enough copy of d (component slice copied; Tail
// Params maps are shared, since tails are treated as immutable once
// constructed).
func (d Distribution) Clone() Distribution {
	return Distribution{Components: append([]component.Component(nil), d.Components...)}
}
