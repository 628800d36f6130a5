// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reduce

import (
	"testing"

	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/internal/approx"
)

func manyAtoms(n int) dist.Distribution {
	cs := make([]component.Component, n)
	p := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		cs[i] = component.NewAtom(float64(i), p)
	}
	return dist.New(cs...)
}

func TestReducerMeanPreservation(t *testing.T) {
	d := manyAtoms(40)
	want := dist.Mean(d)
	reduced := Reduce(d, Options{N: 5})
	if got := dist.Mean(reduced); !approx.EqualWithinAbs(got, want, 1e-6) {
		t.Errorf("Mean(reduce(d,5)) = %v, want %v", got, want)
	}
	if len(reduced.Components) > 5 {
		t.Errorf("len(components) = %d, want <= 5", len(reduced.Components))
	}
}

func TestReducerBoundaryPreservation(t *testing.T) {
	d := manyAtoms(40)
	boundary := 10.5
	reduced := Reduce(d, Options{N: 3, Boundaries: []float64{boundary}})
	for _, c := range reduced.Components {
		if c.Kind != component.Bin {
			continue
		}
		if c.A < boundary && boundary < c.B {
			t.Errorf("bin [%v, %v] straddles boundary %v", c.A, c.B, boundary)
		}
	}
}

func TestReducerAlreadyUnderTarget(t *testing.T) {
	d := manyAtoms(3)
	reduced := Reduce(d, Options{N: 10})
	if len(reduced.Components) != 3 {
		t.Errorf("len(components) = %d, want 3 (no merging needed)", len(reduced.Components))
	}
}
