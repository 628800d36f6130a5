// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package approx provides small floating-point tolerance helpers in the
// style of Gonum's floats/scalar equality helpers, used by the module's
// tests.
package approx

import "math"

// EqualWithinAbs returns true if a and b are within absTol of each other.
func EqualWithinAbs(a, b, absTol float64) bool {
	return a == b || math.Abs(a-b) <= absTol
}

// EqualWithinRel returns true if the difference between a and b is not
// greater than relTol times the larger absolute value of a and b.
func EqualWithinRel(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	delta := math.Abs(a - b)
	largest := math.Max(math.Abs(a), math.Abs(b))
	return delta <= largest*relTol
}

// EqualWithinAbsOrRel returns true if a and b are equal within either the
// absolute or the relative tolerance.
func EqualWithinAbsOrRel(a, b, absTol, relTol float64) bool {
	if EqualWithinAbs(a, b, absTol) {
		return true
	}
	return EqualWithinRel(a, b, relTol)
}
