// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// topoMirror keeps a gonum.org/v1/gonum/graph.Directed view of the
// dependency→dependent edges in sync with the cell table, so the graph
// can hand off cycle diagnostics to Gonum's Tarjan SCC implementation
// instead of re-deriving them by hand (§4.5's in-degree walk already
// detects cycle membership as a side effect of recalculation; SCC is a
// standalone diagnostic over the same edges, for tooling and tests).
type topoMirror struct {
	ids  map[string]int64
	rev  map[int64]string
	next int64
	g    *simple.DirectedGraph
}

func newTopoMirror() *topoMirror {
	return &topoMirror{
		ids: make(map[string]int64),
		rev: make(map[int64]string),
		g:   simple.NewDirectedGraph(),
	}
}

func (m *topoMirror) nodeID(id string) int64 {
	if nid, ok := m.ids[id]; ok {
		return nid
	}
	nid := m.next
	m.next++
	m.ids[id] = nid
	m.rev[nid] = id
	m.g.AddNode(simple.Node(nid))
	return nid
}

func (m *topoMirror) setEdge(from, to string) {
	f, t := m.nodeID(from), m.nodeID(to)
	m.g.SetEdge(simple.Edge{F: simple.Node(f), T: simple.Node(t)})
}

func (m *topoMirror) removeEdge(from, to string) {
	if fid, ok := m.ids[from]; ok {
		if tid, ok := m.ids[to]; ok {
			m.g.RemoveEdge(fid, tid)
		}
	}
}

// stronglyConnectedComponents returns every non-trivial strongly
// connected component (size > 1, i.e. an actual cycle) of the current
// dependency graph, as sorted groups of cell identifiers.
func (m *topoMirror) stronglyConnectedComponents() [][]string {
	var out [][]string
	for _, scc := range topo.TarjanSCC(gonumgraph.Directed(m.g)) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, len(scc))
		for i, n := range scc {
			ids[i] = m.rev[n.ID()]
		}
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// StronglyConnectedComponents exposes the current dependency graph's
// non-trivial cycles (size > 1), for diagnostics independent of the
// per-recalculation circular status (§8 property 11; §9 "no
// back-pointers" — this reports identifiers only, never cell pointers).
func (g *Graph) StronglyConnectedComponents() [][]string {
	return g.topo.stronglyConnectedComponents()
}
