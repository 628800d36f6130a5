// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dist

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/internal/approx"
)

func atomMix(pairs ...[2]float64) Distribution {
	cs := make([]component.Component, len(pairs))
	for i, p := range pairs {
		cs[i] = component.NewAtom(p[0], p[1])
	}
	return New(cs...)
}

func TestMassConservation(t *testing.T) {
	a := New(component.NewAtom(0, 0.3), component.NewAtom(1, 0.3), component.NewUniformBin(0, 10, 0.4))
	b := New(component.NewUniformBin(0, 10, 1))
	sum := Add(a, b)
	got := sum.TotalMass()
	if !approx.EqualWithinAbs(got, 1, 1e-9) {
		t.Errorf("TotalMass() = %v, want 1", got)
	}
}

func TestConvolutionMeanAdditivity(t *testing.T) {
	a := atomMix([2]float64{2, 0.5}, [2]float64{4, 0.5})
	b := New(component.NewUniformBin(0, 2, 1))
	sum := Add(a, b)
	want := Mean(a) + Mean(b)
	if got := Mean(sum); !approx.EqualWithinAbs(got, want, 1e-6) {
		t.Errorf("Mean(Add(a,b)) = %v, want %v", got, want)
	}
}

func TestConvolutionVarianceAdditivity(t *testing.T) {
	a := New(component.NewUniformBin(0, 4, 1))
	b := New(component.NewUniformBin(0, 2, 1))
	sum := Add(a, b)
	want := Variance(a) + Variance(b)
	if got := Variance(sum); !approx.EqualWithinAbs(got, want, 1e-6) {
		t.Errorf("Variance(Add(a,b)) = %v, want %v", got, want)
	}
}

func TestScaleLinearity(t *testing.T) {
	a := New(component.NewUniformBin(1, 3, 1))
	k := 2.5
	scaled := Scale(a, k)
	if got, want := Mean(scaled), k*Mean(a); !approx.EqualWithinAbs(got, want, 1e-9) {
		t.Errorf("Mean(Scale) = %v, want %v", got, want)
	}
	if got, want := Variance(scaled), k*k*Variance(a); !approx.EqualWithinAbs(got, want, 1e-9) {
		t.Errorf("Variance(Scale) = %v, want %v", got, want)
	}
}

func TestMixtureLaw(t *testing.T) {
	a := atomMix([2]float64{0, 1})
	b := atomMix([2]float64{10, 1})
	p := 0.25
	m := Mix(a, b, p)
	want := (1-p)*Mean(a) + p*Mean(b)
	if got := Mean(m); !approx.EqualWithinAbs(got, want, 1e-9) {
		t.Errorf("Mean(Mix) = %v, want %v", got, want)
	}
}

func TestMixConcreteScenario(t *testing.T) {
	m := Mix(atomMix([2]float64{0, 1}), atomMix([2]float64{100, 1}), 0.1)
	if len(m.Components) != 2 {
		t.Fatalf("len(components) = %d, want 2", len(m.Components))
	}
	if got := m.Components[0].P; !approx.EqualWithinAbs(got, 0.9, 1e-9) {
		t.Errorf("first atom p = %v, want 0.9", got)
	}
	if got := m.Components[1].P; !approx.EqualWithinAbs(got, 0.1, 1e-9) {
		t.Errorf("second atom p = %v, want 0.1", got)
	}
}

func TestUniformPlusScalarShift(t *testing.T) {
	u := New(component.NewUniformBin(0, 10, 1))
	shifted := Add(u, atomMix([2]float64{5, 1}))
	if len(shifted.Components) != 1 {
		t.Fatalf("len(components) = %d, want 1", len(shifted.Components))
	}
	c := shifted.Components[0]
	if !approx.EqualWithinAbs(c.A, 5, 1e-9) || !approx.EqualWithinAbs(c.B, 15, 1e-9) {
		t.Errorf("bin = [%v, %v], want [5, 15]", c.A, c.B)
	}
}

func TestProbGTUniform(t *testing.T) {
	u := New(component.NewUniformBin(0, 10, 1))
	got := ProbGT(u, 8)
	if !approx.EqualWithinAbs(got, 0.2, 1e-9) {
		t.Errorf("ProbGT(8) = %v, want 0.2", got)
	}
}

func TestAliasSamplingUnbiased(t *testing.T) {
	d := New(component.NewUniformBin(0, 10, 1))
	n := 100000
	src := rand.New(rand.NewSource(1))
	samples := Sample(d, n, src)
	var sum float64
	for _, s := range samples {
		sum += s
	}
	empMean := sum / float64(n)
	wantMean := Mean(d)
	bound := 4 * Std(d) / math.Sqrt(float64(n))
	if diff := absF(empMean - wantMean); diff > bound {
		t.Errorf("empirical mean %v too far from analytical mean %v (bound %v)", empMean, wantMean, bound)
	}
}

func TestMedianCDFLaw(t *testing.T) {
	d := New(component.NewUniformBin(0, 10, 0.5), component.NewUniformBin(10, 20, 0.5))
	med := Median(d)
	got := ProbGT(d, med) - 0.5
	if absF(got) > 1/float64(len(d.Components)) {
		t.Errorf("ProbGT(median)-0.5 = %v, too large", got)
	}
}

func TestSplitAtPreservesMass(t *testing.T) {
	d := New(component.NewUniformBin(0, 10, 0.7), component.NewAtom(5, 0.3))
	leq, gt := SplitAt(d, 5)
	if got, want := leq.TotalMass()+gt.TotalMass(), d.TotalMass(); !approx.EqualWithinAbs(got, want, 1e-9) {
		t.Errorf("split masses sum to %v, want %v", got, want)
	}
}

func TestSplitAtStructuralResult(t *testing.T) {
	d := New(component.NewUniformBin(0, 10, 0.7), component.NewAtom(5, 0.3))
	leq, gt := SplitAt(d, 5)

	wantLeq := []component.Component{
		component.NewUniformBin(0, 5, 0.35),
		component.NewAtom(5, 0.3),
	}
	wantGt := []component.Component{
		component.NewUniformBin(5, 10, 0.35),
	}

	approxFloats := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(wantLeq, leq.Components, approxFloats); diff != "" {
		t.Errorf("leq components mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantGt, gt.Components, approxFloats); diff != "" {
		t.Errorf("gt components mismatch (-want +got):\n%s", diff)
	}
}

func absF(x float64) float64 {
	return math.Abs(x)
}
