// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyuU12358/Bunpu/component"
)

// MaxOfBuckets is the fixed discretization resolution used by MaxOf
// (§4.2: "≈200 buckets").
const MaxOfBuckets = 200

// MaxOf returns the distribution of the maximum of n i.i.d. copies of d.
// The support is discretized into MaxOfBuckets uniform buckets between
// the observed min and max of d's atoms and bins; CDF(x) = 1 - ProbGT(x)
// is raised to the n-th power pointwise, and consecutive differences
// become uniform bins (§4.2). n must be >= 1.
func MaxOf(d Distribution, n int) Distribution {
	if n < 1 {
		panic("dist: MaxOf requires n >= 1")
	}
	if d.IsEmpty() {
		return d
	}

	lo, hi := finiteSupport(d)
	if lo == hi {
		// Degenerate support: max of n copies of a point mass is the
		// same point mass.
		return New(component.NewAtom(lo, 1))
	}

	buckets := MaxOfBuckets
	width := (hi - lo) / float64(buckets)

	cdf := make([]float64, buckets+1)
	for i := 0; i <= buckets; i++ {
		x := lo + float64(i)*width
		base := 1 - ProbGT(d, x)
		cdf[i] = math.Pow(base, float64(n))
	}

	out := make([]component.Component, 0, buckets)
	for i := 0; i < buckets; i++ {
		mass := cdf[i+1] - cdf[i]
		if mass <= 0 {
			continue
		}
		a := lo + float64(i)*width
		b := a + width
		out = append(out, component.NewUniformBin(a, b, mass))
	}
	return Normalize(Distribution{Components: out})
}

// finiteSupport returns the min/max position spanned by d's atoms and
// bins, ignoring tails (whose support is infinite). If d has no atoms or
// bins, the anchor of its first tail is used for both bounds.
func finiteSupport(d Distribution) (lo, hi float64) {
	var starts, ends []float64
	for _, c := range d.Components {
		if c.Kind == component.Tail {
			continue
		}
		starts = append(starts, c.Start())
		ends = append(ends, c.End())
	}
	if len(starts) == 0 {
		// All-tail distribution: anchor both bounds at the first tail's x0.
		x0 := d.Components[0].X0
		return x0, x0
	}
	lo = floats.Min(starts)
	hi = floats.Max(ends)
	return lo, hi
}
