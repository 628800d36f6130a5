// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ops

import (
	"math/rand"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/reduce"
)

// RuinExactThreshold is the step-count boundary below which RuinProb uses
// the exact recursive method; above it, Monte Carlo is used (§4.4).
const RuinExactThreshold = 300

// RuinSurvivalFloor is the early-exit threshold for the exact method:
// once surviving probability drops below this, RuinProb stops iterating
// (§4.4).
const RuinSurvivalFloor = 1e-9

// signBoundary is the boundary list {0} the exact method's safety checks
// use, so a reduction never merges a bin across the ruin line (§4.3's
// worked example).
var signBoundary = []float64{0}

// RuinProb returns the probability that a random walk starting at
// initialWealth with i.i.d. increments drawn from step hits <= 0 within
// steps iterations (§4.4 RUIN_PROB, §8 "Ruin"). It dispatches to the
// exact recursive method for steps <= RuinExactThreshold and to Monte
// Carlo otherwise. acc may be nil; src may be nil to use the
// package-level math/rand source.
func RuinProb(step dist.Distribution, initialWealth float64, steps int, limit int, acc accel.Provider, src *rand.Rand) float64 {
	if steps <= RuinExactThreshold {
		return ruinExact(step, initialWealth, steps, limit, acc)
	}
	return ruinMonteCarlo(step, initialWealth, steps, limit, acc, src)
}

// ruinExact implements §4.4's exact recursive method: maintain a
// surviving-wealth distribution normalized to 1 (conditional on having
// survived so far), convolve with step each round, split at the sign
// boundary, and accumulate ruined mass weighted by prior survival
// probability. acc may be nil; each round's convolution tries its
// Convolve fast path first (§6).
func ruinExact(step dist.Distribution, w0 float64, steps int, limit int, acc accel.Provider) float64 {
	wealth := dist.New(component.NewAtom(w0, 1))
	survival := 1.0
	var ruined float64

	for i := 0; i < steps; i++ {
		wealth = accel.Add(acc, wealth, step)
		wealth = reduce.SafetyCheck(wealth, limit, nil, signBoundary)

		below, above := dist.SplitAt(wealth, 0)
		failureMass := below.TotalMass()

		ruined += survival * failureMass
		survival *= 1 - failureMass

		if survival < RuinSurvivalFloor {
			break
		}
		wealth = dist.Normalize(above)
	}
	return ruined
}

// ruinMonteCarlo implements §4.4's Monte Carlo method: N trials, each
// sampling `steps` increments and accumulating wealth, stopping at <= 0.
// A Provider's RuinMonteCarlo is tried first; the pure Go trial loop is
// the fallback.
func ruinMonteCarlo(step dist.Distribution, w0 float64, steps int, limit int, acc accel.Provider, src *rand.Rand) float64 {
	trials := clampInt(10_000_000/maxInt1(steps), 1000, 10000)

	if acc != nil {
		if ruined, ok := acc.RuinMonteCarlo(accel.EncodeAll(step), w0, steps, trials); ok {
			return float64(ruined) / float64(trials)
		}
	}

	var ruined int
	for t := 0; t < trials; t++ {
		wealth := w0
		increments := dist.Sample(step, steps, src)
		for _, inc := range increments {
			wealth += inc
			if wealth <= 0 {
				ruined++
				break
			}
		}
	}
	return float64(ruined) / float64(trials)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
