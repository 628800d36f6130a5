// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"math"
	"math/rand"
	"testing"

	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
)

func absF2(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func evalString(t *testing.T, s string, ctx Context) dist.Distribution {
	t.Helper()
	d, err := Eval(s, ctx)
	if err != nil {
		t.Fatalf("Eval(%q): %v", s, err)
	}
	return d
}

func TestLexerSkipsWhitespaceAndRecognizesTokens(t *testing.T) {
	toks, err := lex(" ADD( 1.5 , A1:B2 ) ")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	wantKinds := []tokenKind{tokIdent, tokLParen, tokNumber, tokComma, tokIdent, tokColon, tokIdent, tokRParen, tokEOF}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(wantKinds))
	}
	for i, k := range wantKinds {
		if toks[i].kind != k {
			t.Errorf("token %d: got kind %d, want %d", i, toks[i].kind, k)
		}
	}
}

func TestLexerRejectsUnknownCharacter(t *testing.T) {
	if _, err := lex("1 @ 2"); err == nil {
		t.Fatal("expected lex error for '@'")
	}
}

func TestParserPrecedence(t *testing.T) {
	// 2 + 3 * 4 must parse as 2 + (3 * 4), so evaluating against CONST
	// atoms should give 14, not 20.
	ctx := Context{}
	d := evalString(t, "CONST(2) + CONST(3) * CONST(4)", ctx)
	if x, ok := asScalar(d); !ok || absF2(x-14) > 1e-9 {
		t.Fatalf("got %v, want scalar 14", d)
	}
}

func TestParserParenthesesOverridePrecedence(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "(CONST(2) + CONST(3)) * CONST(4)", ctx)
	if x, ok := asScalar(d); !ok || absF2(x-20) > 1e-9 {
		t.Fatalf("got %v, want scalar 20", d)
	}
}

func TestRangeLiteralOnlyInArgPosition(t *testing.T) {
	// Outside of argument position a range literal does not parse as a
	// range: "A1:B3" parses A1 as an expression and ignores the rest.
	resolver := func(id string) dist.Distribution {
		if id == "A1" {
			return dist.New(component.NewAtom(7, 1))
		}
		return dist.Empty()
	}
	ctx := Context{Resolve: resolver}
	d := evalString(t, "A1:B3", ctx)
	if x, ok := asScalar(d); !ok || absF2(x-7) > 1e-9 {
		t.Fatalf("got %v, want scalar 7 (A1 alone)", d)
	}
}

func TestRangeExpansionIsOrderIndependentAndRowMajor(t *testing.T) {
	ids1, err := expandRange("A1", "B2")
	if err != nil {
		t.Fatal(err)
	}
	ids2, err := expandRange("B2", "A1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A1", "B1", "A2", "B2"}
	for _, ids := range [][]string{ids1, ids2} {
		if len(ids) != len(want) {
			t.Fatalf("got %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Fatalf("got %v, want %v", ids, want)
			}
		}
	}
}

func TestDiscreteViaRangeScenario(t *testing.T) {
	// DISCRETE(A1:B2) expands to DISCRETE(A1, B1, A2, B2): value/weight
	// pairs pulled row-major from a 2x2 cell block.
	cells := map[string]dist.Distribution{
		"A1": dist.New(component.NewAtom(10, 1)),
		"B1": dist.New(component.NewAtom(1, 1)),
		"A2": dist.New(component.NewAtom(20, 1)),
		"B2": dist.New(component.NewAtom(3, 1)),
	}
	resolver := func(id string) dist.Distribution {
		if d, ok := cells[id]; ok {
			return d
		}
		return dist.Empty()
	}
	ctx := Context{Resolve: resolver}
	d := evalString(t, "DISCRETE(A1:B2)", ctx)
	if len(d.Components) != 2 {
		t.Fatalf("got %d components, want 2", len(d.Components))
	}
	total := d.TotalMass()
	if absF2(total-4) > 1e-9 {
		t.Fatalf("DISCRETE should not auto-normalize: got total mass %v, want 4", total)
	}
}

func TestConfigScopesComponentLimit(t *testing.T) {
	ctx := Context{DefaultLimit: 200, Source: rand.New(rand.NewSource(1))}
	d := evalString(t, "CONFIG(50, RESAMPLE(UNIFORM(0,1), 20))", ctx)
	if len(d.Components) != 20 {
		t.Fatalf("got %d components, want 20 (well under the 50 scoped limit)", len(d.Components))
	}
}

func TestConfigRestoresLimitAfterEvaluation(t *testing.T) {
	// A later operation outside the CONFIG call must see the original
	// (tighter) limit, not the one CONFIG pushed for its inner expression.
	ctx := Context{DefaultLimit: 5, Source: rand.New(rand.NewSource(2))}
	d := evalString(t, "ADD(CONFIG(500, RESAMPLE(UNIFORM(0,1), 100)), CONST(0))", ctx)
	if len(d.Components) > 5 {
		t.Fatalf("got %d components, want <= 5 (outer limit restored after CONFIG)", len(d.Components))
	}
}

func TestMulRequiresScalarOperand(t *testing.T) {
	ctx := Context{}
	_, err := Eval("UNIFORM(0,1) * UNIFORM(0,1)", ctx)
	if err == nil {
		t.Fatal("expected an ArgumentError: MUL needs at least one scalar operand")
	}
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != ArgumentError {
		t.Fatalf("got %v, want ArgumentError", err)
	}
}

func TestDivByScalarUsesReciprocal(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "CONST(2) / CONST(4)", ctx)
	if x, ok := asScalar(d); !ok || absF2(x-0.5) > 1e-9 {
		t.Fatalf("got %v, want scalar 0.5", d)
	}
}

func TestMixConcreteScenarioViaFormula(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "MIX(0.1, CONST(0), CONST(100))", ctx)
	if absF2(dist.Mean(d)-10) > 1e-9 {
		t.Fatalf("got mean %v, want 10", dist.Mean(d))
	}
}

func TestUniformPlusScalarShiftScenario(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "UNIFORM(0,10) + 5", ctx)
	if absF2(dist.Mean(d)-10) > 1e-9 {
		t.Fatalf("got mean %v, want 10", dist.Mean(d))
	}
}

func TestProbGTUniformScenario(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "PROB_GT(UNIFORM(0,10), 8)", ctx)
	x, ok := asScalar(d)
	if !ok {
		t.Fatalf("PROB_GT should publish a scalar, got %v", d)
	}
	if absF2(x-0.2) > 1e-9 {
		t.Fatalf("got %v, want 0.2", x)
	}
}

func TestGeomSumScenario(t *testing.T) {
	ctx := Context{DefaultLimit: 200}
	d := evalString(t, "ADD(CONST(1), GEOM_SUM(CONST(1500), 0.81))", ctx)
	mean := dist.Mean(d)
	if mean < 7800 || mean > 8000 {
		t.Fatalf("got mean %v, want in [7800, 8000]", mean)
	}
}

func TestBinomialMatchesMeanIdentity(t *testing.T) {
	ctx := Context{DefaultLimit: 200}
	d := evalString(t, "BINOMIAL(10, 0.3)", ctx)
	want := 10 * 0.3
	if absF2(dist.Mean(d)-want) > 1e-6 {
		t.Fatalf("got mean %v, want %v", dist.Mean(d), want)
	}
}

func TestBinomialRejectsNAboveLimit(t *testing.T) {
	ctx := Context{DefaultLimit: 5}
	_, err := Eval("BINOMIAL(10, 0.3)", ctx)
	if err == nil {
		t.Fatal("expected an ArgumentError: n exceeds component limit")
	}
}

func TestPoissonMeanApproximatesLambda(t *testing.T) {
	ctx := Context{DefaultLimit: 200}
	d := evalString(t, "POISSON(4)", ctx)
	if absF2(dist.Mean(d)-4) > 0.05 {
		t.Fatalf("got mean %v, want close to 4", dist.Mean(d))
	}
}

func TestUnknownFunctionError(t *testing.T) {
	ctx := Context{}
	_, err := Eval("BOGUS(1)", ctx)
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != UnknownFunction {
		t.Fatalf("got %v, want UnknownFunction", err)
	}
}

func TestArityErrorOnWrongArgCount(t *testing.T) {
	ctx := Context{}
	_, err := Eval("UNIFORM(1)", ctx)
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != ArityError {
		t.Fatalf("got %v, want ArityError", err)
	}
}

func TestFunctionNamesAreCaseInsensitive(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "uniform(0, 10)", ctx)
	if absF2(dist.Mean(d)-5) > 1e-9 {
		t.Fatalf("got mean %v, want 5", dist.Mean(d))
	}
}

func TestRefIsIdentity(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "REF(CONST(42))", ctx)
	if x, ok := asScalar(d); !ok || absF2(x-42) > 1e-9 {
		t.Fatalf("got %v, want scalar 42", d)
	}
}

func TestRepeatAddMatchesAdditivity(t *testing.T) {
	ctx := Context{DefaultLimit: 200}
	d := evalString(t, "REPEAT_ADD(UNIFORM(0,10), 4)", ctx)
	want := 4 * 5.0
	if absF2(dist.Mean(d)-want) > 1e-6 {
		t.Fatalf("got mean %v, want %v", dist.Mean(d), want)
	}
}

func TestReduceRespectsSignBoundary(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "REDUCE(UNIFORM(-10,10), 4)", ctx)
	for _, c := range d.Components {
		if c.Kind == component.Bin && c.A < 0 && c.B > 0 {
			t.Fatalf("REDUCE must not merge across the sign boundary: got bin [%v, %v]", c.A, c.B)
		}
	}
}

func TestNormalApproximatesMoments(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "NORMAL(0, 1)", ctx)
	if absF2(dist.Mean(d)) > 0.05 {
		t.Fatalf("got mean %v, want close to 0", dist.Mean(d))
	}
	if absF2(dist.Variance(d)-1) > 0.2 {
		t.Fatalf("got variance %v, want close to 1", dist.Variance(d))
	}
}

func TestExponentialApproximatesMean(t *testing.T) {
	ctx := Context{}
	lambda := 2.0
	d := evalString(t, "EXPONENTIAL(2)", ctx)
	if absF2(dist.Mean(d)-1/lambda) > 0.05 {
		t.Fatalf("got mean %v, want close to %v", dist.Mean(d), 1/lambda)
	}
}

func TestChoiceNormalizesDiscreteDoesNot(t *testing.T) {
	ctx := Context{}
	choice := evalString(t, "CHOICE(1, 2, 2, 2)", ctx)
	if absF2(choice.TotalMass()-1) > 1e-9 {
		t.Fatalf("CHOICE should normalize: got total mass %v", choice.TotalMass())
	}
	discrete := evalString(t, "DISCRETE(1, 2, 2, 2)", ctx)
	if absF2(discrete.TotalMass()-4) > 1e-9 {
		t.Fatalf("DISCRETE should not normalize: got total mass %v", discrete.TotalMass())
	}
}

func TestRuinProbIsMonotoneInWealth(t *testing.T) {
	ctx := Context{DefaultLimit: 50, Source: rand.New(rand.NewSource(3))}
	lowWealth := evalString(t, "RUIN_PROB(MIX(0.5, CONST(-1), CONST(1)), 2, 100)", ctx)
	highWealth := evalString(t, "RUIN_PROB(MIX(0.5, CONST(-1), CONST(1)), 50, 100)", ctx)
	lx, _ := asScalar(lowWealth)
	hx, _ := asScalar(highWealth)
	if hx > lx {
		t.Fatalf("ruin probability should not increase with initial wealth: low=%v high=%v", lx, hx)
	}
}

func TestMaxOfTwoUniformsHasHigherMean(t *testing.T) {
	ctx := Context{}
	one := evalString(t, "UNIFORM(0,10)", ctx)
	maxOfTwo := evalString(t, "MAX_OF(UNIFORM(0,10), 2)", ctx)
	if dist.Mean(maxOfTwo) <= dist.Mean(one) {
		t.Fatalf("MAX_OF(d, 2) should have a higher mean than d alone")
	}
}

func TestShiftThenScaleKeepsUnitMass(t *testing.T) {
	// Sanity check that chained arithmetic keeps producing a well formed
	// distribution (mass 1) through several operators.
	ctx := Context{}
	d := evalString(t, "SCALE(SHIFT(UNIFORM(0,1), 1), 2)", ctx)
	if absF2(d.TotalMass()-1) > 1e-9 {
		t.Fatalf("got total mass %v, want 1", d.TotalMass())
	}
	if absF2(dist.Mean(d)-3) > 1e-9 {
		t.Fatalf("got mean %v, want 3", dist.Mean(d))
	}
}

func TestNaNGuard(t *testing.T) {
	ctx := Context{}
	d := evalString(t, "CONST(1)", ctx)
	if math.IsNaN(dist.Mean(d)) {
		t.Fatal("mean should not be NaN")
	}
}
