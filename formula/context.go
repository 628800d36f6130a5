// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"math/rand"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/dist"
)

// DefaultComponentLimit is the effective component limit used when
// Context.DefaultLimit is zero (§4.4: "default 200").
const DefaultComponentLimit = 200

// Resolver resolves a bare identifier to its current distribution. It
// never fails: an unknown id returns the empty distribution (§6).
type Resolver func(id string) dist.Distribution

// Context is the evaluator context interface of §6: a value resolver, an
// optional component-limit override, and an optional accelerator
// providing pluggable fast paths (including the Monte Carlo ruin
// callback).
type Context struct {
	Resolve      Resolver
	DefaultLimit int // 0 means DefaultComponentLimit
	Accelerator  accel.Provider
	Source       *rand.Rand
}

func (c Context) defaultLimit() int {
	if c.DefaultLimit > 0 {
		return c.DefaultLimit
	}
	return DefaultComponentLimit
}

func (c Context) resolve(id string) dist.Distribution {
	if c.Resolve == nil {
		return dist.Empty()
	}
	return c.Resolve(id)
}
