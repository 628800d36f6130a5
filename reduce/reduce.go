// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reduce implements the boundary-aware reducer of §4.3: it
// compresses a dist.Distribution with many components down to a target
// component count under an importance metric, honoring hard boundaries
// (e.g. the sign boundary for ruin-probability calculations) that a
// merged bin must never cross.
package reduce

import (
	"math"
	"sort"

	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
)

// Options configures a single Reduce call. N is the target component
// count. Center, WidthWeight and Valley are optional (nil means "not
// provided", taking the defaults documented in §4.3: Center 0,
// WidthWeight 0, no valley pass). Boundaries lists points a merged bin
// must never straddle.
type Options struct {
	N           int
	Center      *float64
	WidthWeight *float64
	Valley      *float64
	Boundaries  []float64
}

func (o Options) center() float64 {
	if o.Center != nil {
		return *o.Center
	}
	return 0
}

func (o Options) widthWeight() float64 {
	if o.WidthWeight != nil {
		return *o.WidthWeight
	}
	return 0
}

// importance returns I(c) per §4.3: tails are always +Inf (never merged
// with a neighbor).
func importance(c component.Component, center, widthWeight float64) float64 {
	switch c.Kind {
	case component.Atom:
		return c.P * math.Abs(c.X-center)
	case component.Bin:
		return c.P * (math.Abs(c.Repr-center) + widthWeight*(c.B-c.A))
	case component.Tail:
		return math.Inf(1)
	default:
		panic("reduce: invalid kind")
	}
}

// Reduce compresses d to at most opts.N components following the
// six-step algorithm of §4.3. If every adjacent pair becomes blocked
// before the target is reached (tails or boundaries), Reduce returns a
// result above the target — this is an allowed failure mode, not an
// error.
func Reduce(d dist.Distribution, opts Options) dist.Distribution {
	if opts.N < 1 {
		panic("reduce: target N must be >= 1")
	}

	cs := dist.Normalize(d).Components
	cs = boundarySplit(cs, opts.Boundaries)

	if opts.Valley != nil {
		cs = valleyMerge(cs, *opts.Valley, opts.Boundaries, opts.center(), opts.widthWeight())
	}

	if len(cs) > maxInt(1000, 4*opts.N) {
		cs = fastBucketReduce(cs, opts.N, opts.Boundaries)
	}

	cs = greedyMerge(cs, opts.N, opts.Boundaries, opts.center(), opts.widthWeight())

	out := dist.Distribution{Components: cs}
	return out
}

// SafetyCheck invokes Reduce with targetN = limit only when d's component
// count exceeds limit, following §4.4's size-bounded arithmetic: "after
// every add/subtract ... the current component count is compared against
// the effective limit ... on exceed, the reducer is invoked with
// targetN = limit". center defaults to 0 and boundaries default to {0}
// when nil, matching the documented defaults.
func SafetyCheck(d dist.Distribution, limit int, center *float64, boundaries []float64) dist.Distribution {
	if len(d.Components) <= limit {
		return d
	}
	if boundaries == nil {
		boundaries = []float64{0}
	}
	return Reduce(d, Options{N: limit, Center: center, Boundaries: boundaries})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// boundarySplit splits every bin whose interior strictly contains a
// boundary point, proportionally by width (§4.3 step 2).
func boundarySplit(cs []component.Component, boundaries []float64) []component.Component {
	if len(boundaries) == 0 {
		return cs
	}
	out := make([]component.Component, 0, len(cs))
	for _, c := range cs {
		if c.Kind != component.Bin {
			out = append(out, c)
			continue
		}
		pieces := []component.Component{c}
		for _, b := range boundaries {
			var next []component.Component
			for _, p := range pieces {
				if p.Kind == component.Bin && p.A < b && b < p.B {
					fracBelow := (b - p.A) / (p.B - p.A)
					left := component.NewUniformBin(p.A, b, p.P*fracBelow)
					right := component.NewUniformBin(b, p.B, p.P*(1-fracBelow))
					next = append(next, left, right)
				} else {
					next = append(next, p)
				}
			}
			pieces = next
		}
		out = append(out, pieces...)
	}
	sortComponents(out)
	return out
}

func sortComponents(cs []component.Component) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].PositionKey() < cs[j].PositionKey()
	})
}

// boundaryBlocks reports whether any boundary point lies within
// [start, end], inclusive (§4.3).
func boundaryBlocks(start, end float64, boundaries []float64) bool {
	for _, b := range boundaries {
		if start <= b && b <= end {
			return true
		}
	}
	return false
}

// mergeComponents merges m >= 2 non-tail components into a single
// uniform bin spanning their combined extent, with probability-weighted
// repr (§4.3, §4.4).
func mergeComponents(cs []component.Component) component.Component {
	start, end := math.Inf(1), math.Inf(-1)
	var totalP, weightedRepr float64
	for _, c := range cs {
		if c.Start() < start {
			start = c.Start()
		}
		if c.End() > end {
			end = c.End()
		}
		p := c.Prob()
		totalP += p
		weightedRepr += p * reprOf(c)
	}
	repr := 0.0
	if totalP > 0 {
		repr = weightedRepr / totalP
	}
	if start == end {
		// Degenerate: all inputs were atoms at the same point.
		return component.NewAtom(start, totalP)
	}
	if repr < start || repr > end {
		repr = (start + end) / 2
	}
	return component.NewBin(start, end, totalP, component.Uniform, repr)
}

func reprOf(c component.Component) float64 {
	switch c.Kind {
	case component.Atom:
		return c.X
	case component.Bin:
		return c.Repr
	default:
		return c.X0
	}
}

// valleyMerge accumulates consecutive low-importance components into a
// buffer and flushes (merges) it whenever a boundary would sit inside
// the merged span, a tail appears, or a component with I >= tau appears
// (§4.3 step 3).
func valleyMerge(cs []component.Component, tau float64, boundaries []float64, center, widthWeight float64) []component.Component {
	var out []component.Component
	var buf []component.Component

	flush := func() {
		switch len(buf) {
		case 0:
			// nothing to do
		case 1:
			out = append(out, buf[0])
		default:
			out = append(out, mergeComponents(buf))
		}
		buf = buf[:0]
	}

	for _, c := range cs {
		if c.Kind == component.Tail {
			flush()
			out = append(out, c)
			continue
		}
		imp := importance(c, center, widthWeight)
		if imp >= tau {
			flush()
			out = append(out, c)
			continue
		}
		// Would adding c to buf cross a boundary within the merged span?
		candidateStart, candidateEnd := c.Start(), c.End()
		if len(buf) > 0 {
			if buf[0].Start() < candidateStart {
				candidateStart = buf[0].Start()
			}
			if buf[len(buf)-1].End() > candidateEnd {
				candidateEnd = buf[len(buf)-1].End()
			}
		}
		if boundaryBlocks(candidateStart, candidateEnd, boundaries) {
			flush()
			out = append(out, c)
			continue
		}
		buf = append(buf, c)
	}
	flush()
	return out
}

// fastBucketReduce places components into ceil(2N) equal-width buckets
// between the global min and max component center, merges each bucket,
// then re-splits at boundaries (§4.3 step 4). Only invoked when
// len(cs) > max(1000, 4N).
func fastBucketReduce(cs []component.Component, n int, boundaries []float64) []component.Component {
	nBuckets := int(math.Ceil(2 * float64(n)))
	if nBuckets < 1 {
		nBuckets = 1
	}

	var tails []component.Component
	var rest []component.Component
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range cs {
		if c.Kind == component.Tail {
			tails = append(tails, c)
			continue
		}
		rest = append(rest, c)
		center := reprOf(c)
		if center < lo {
			lo = center
		}
		if center > hi {
			hi = center
		}
	}
	if len(rest) == 0 {
		return cs
	}
	if lo == hi {
		hi = lo + 1
	}
	width := (hi - lo) / float64(nBuckets)

	buckets := make([][]component.Component, nBuckets)
	for _, c := range rest {
		idx := int((reprOf(c) - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= nBuckets {
			idx = nBuckets - 1
		}
		buckets[idx] = append(buckets[idx], c)
	}

	out := make([]component.Component, 0, nBuckets+len(tails))
	for _, b := range buckets {
		switch len(b) {
		case 0:
			// empty bucket
		case 1:
			out = append(out, b[0])
		default:
			out = append(out, mergeComponents(b))
		}
	}
	out = append(out, tails...)
	out = boundarySplit(out, boundaries)
	return out
}

// greedyMerge repeatedly merges the adjacent non-tail pair with the
// smallest combined importance until len(cs) <= n or no legal pair
// remains (§4.3 step 5).
func greedyMerge(cs []component.Component, n int, boundaries []float64, center, widthWeight float64) []component.Component {
	cur := append([]component.Component(nil), cs...)
	sortComponents(cur)

	for len(cur) > n {
		bestIdx := -1
		bestCost := math.Inf(1)
		for i := 0; i < len(cur)-1; i++ {
			a, b := cur[i], cur[i+1]
			if a.Kind == component.Tail || b.Kind == component.Tail {
				continue
			}
			if boundaryBlocks(a.Start(), b.End(), boundaries) {
				continue
			}
			cost := importance(a, center, widthWeight) + importance(b, center, widthWeight)
			if cost < bestCost {
				bestCost = cost
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			// Every adjacent pair is blocked: terminate above target.
			break
		}
		merged := mergeComponents([]component.Component{cur[bestIdx], cur[bestIdx+1]})
		next := make([]component.Component, 0, len(cur)-1)
		next = append(next, cur[:bestIdx]...)
		next = append(next, merged)
		next = append(next, cur[bestIdx+2:]...)
		cur = next
	}
	return cur
}
