// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ops implements the specialized operators of §4.4/§8 that
// compose the component algebra, the distribution container and the
// reducer: geometric-sum, binary-exponentiation repeat-add, and
// ruin-probability (exact and Monte Carlo).
package ops

import (
	"math"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/reduce"
)

// GeomSumEmitThreshold is the cumulative-mass stopping condition for
// GeomSum (§4.4: "stop when cumulative emitted mass exceeds 0.9999").
const GeomSumEmitThreshold = 0.9999

// GeomSumSafetyCap bounds the number of convolution steps GeomSum will
// take (§4.4: "k reaches a safety cap (2000)").
const GeomSumSafetyCap = 2000

// GeomSum returns Σ_{k=0}^∞ (1-p)·p^k · d^{⊕k}, the distribution of a sum
// of a geometrically-distributed number of i.i.d. copies of d (§4.4,
// §8). p must lie in [0, 1). limit is the effective component limit used
// by the safety check applied after every convolution step. acc may be
// nil; the per-step convolution tries its Convolve fast path first (§6).
func GeomSum(d dist.Distribution, p float64, limit int, acc accel.Provider) dist.Distribution {
	if p < 0 || p >= 1 {
		panic("ops: GeomSum requires p in [0, 1)")
	}

	result := dist.Empty()
	running := dist.New(component.NewAtom(0, 1)) // C_0 = delta_0
	var emitted float64

	for k := 0; k <= GeomSumSafetyCap; k++ {
		weight := (1 - p) * math.Pow(p, float64(k))
		weighted := dist.Distribution{Components: scaleMasses(running, weight)}
		result = concat(result, weighted)
		result = reduce.SafetyCheck(result, limit, nil, nil)
		emitted += weight

		if emitted > GeomSumEmitThreshold {
			break
		}

		running = accel.Add(acc, running, d)
		running = reduce.SafetyCheck(running, limit, nil, nil)
	}

	return result
}

// concat returns the component-wise union of a and b (no convolution,
// no reweighting) — used to accumulate geometric-sum terms that have
// already been scaled to their emission weight.
func concat(a, b dist.Distribution) dist.Distribution {
	out := make([]component.Component, 0, len(a.Components)+len(b.Components))
	out = append(out, a.Components...)
	out = append(out, b.Components...)
	return dist.New(out...)
}

// scaleMasses returns a copy of d's components with every mass multiplied
// by w, without touching position (unlike dist.Scale, which also scales
// position — GeomSum needs only a probability reweighting of each term).
func scaleMasses(d dist.Distribution, w float64) []component.Component {
	out := make([]component.Component, len(d.Components))
	for i, c := range d.Components {
		out[i] = c.WithProb(c.Prob() * w)
	}
	return out
}
