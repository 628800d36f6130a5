// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph implements the reactive spreadsheet graph of §4.5: cells
// hold a raw input string and an evaluated distribution, connected by
// dependency/dependent edges extracted from a coarse identifier scan,
// recalculated by a cooperative, batch-yielding topological walk.
package graph

import (
	"fmt"

	"github.com/RyuU12358/Bunpu/dist"
)

// Status is a cell's lifecycle state.
type Status int

// Cell statuses (§4.5).
const (
	StatusPending Status = iota
	StatusEvaluating
	StatusOK
	StatusError
	StatusCircular
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusEvaluating:
		return "evaluating"
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusCircular:
		return "circular"
	default:
		return fmt.Sprintf("graph.Status(%d)", int(s))
	}
}

// Snapshot is an immutable view of a cell's published state, returned by
// GetCell, IterateCells and DrainDirty. It holds no reference back into
// the graph (§9: "no back-pointers").
type Snapshot struct {
	ID       string
	RawInput string
	Value    dist.Distribution
	Status   Status
	Err      string
}

// cell is the graph's internal, mutable representation. Dependencies and
// dependents are held as identifier sets, never as pointers to other
// cells; the graph alone owns the identifier table (§9).
type cell struct {
	id           string
	rawInput     string
	value        dist.Distribution
	status       Status
	err          string
	dependencies map[string]struct{}
	dependents   map[string]struct{}
}

func newCell(id string) *cell {
	return &cell{
		id:           id,
		value:        dist.Empty(),
		status:       StatusOK,
		dependencies: make(map[string]struct{}),
		dependents:   make(map[string]struct{}),
	}
}

func (c *cell) snapshot() Snapshot {
	return Snapshot{
		ID:       c.id,
		RawInput: c.rawInput,
		Value:    c.value,
		Status:   c.status,
		Err:      c.err,
	}
}
