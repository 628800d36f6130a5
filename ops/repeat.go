// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/reduce"
)

// RepeatAdd returns d^{⊕n}, the n-fold independent self-convolution of d,
// computed by binary exponentiation (repeated squaring) rather than n
// sequential convolutions, applying the size-bounded safety check after
// every multiply (§4.4 REPEAT_ADD). n must be >= 0; RepeatAdd(d, 0)
// returns the point mass at 0. acc may be nil; every multiply tries its
// Convolve fast path first (§6).
func RepeatAdd(d dist.Distribution, n int, limit int, acc accel.Provider) dist.Distribution {
	if n < 0 {
		panic("ops: RepeatAdd requires n >= 0")
	}
	if n == 0 {
		return dist.New(component.NewAtom(0, 1))
	}

	result := dist.New(component.NewAtom(0, 1))
	base := d
	for n > 0 {
		if n&1 == 1 {
			result = accel.Add(acc, result, base)
			result = reduce.SafetyCheck(result, limit, nil, nil)
		}
		n >>= 1
		if n > 0 {
			base = accel.Add(acc, base, base)
			base = reduce.SafetyCheck(base, limit, nil, nil)
		}
	}
	return result
}
