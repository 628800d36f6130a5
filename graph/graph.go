// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"math/rand"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/component"
	"github.com/RyuU12358/Bunpu/dist"
	"github.com/RyuU12358/Bunpu/formula"
)

// dependencyPattern implements §4.5's coarse dependency scan: any run of
// uppercase letters followed by digits, wherever it occurs in the raw
// input. This is deliberately coarser than the formula parser — it also
// picks up identifiers that only appear inside a range literal.
var dependencyPattern = regexp.MustCompile(`[A-Z]+[0-9]+`)

// evalBatchSize is how many cell evaluations occur between cooperative
// yields and listener notifications during a recalculation (§4.5 step 6,
// §5 "Scheduling model").
const evalBatchSize = 5

// Config is the graph-wide tuning knob exposed to formulas as the
// default component limit (§4.5 "Configuration").
type Config struct {
	MaxComponents int
}

// Listener observes incremental recalculation progress: it receives the
// current dirty set (as of the notification) without consuming it —
// only DrainDirty clears the dirty set (§5 "Ordering guarantees").
type Listener func(dirty []Snapshot)

// Graph is a single-threaded, cooperatively-scheduled reactive
// dependency graph of formula cells (§4.5).
type Graph struct {
	cells     map[string]*cell
	config    Config
	dirty     map[string]struct{}
	listeners []Listener
	accel     accel.Provider
	source    *rand.Rand
	topo      *topoMirror
}

// New returns an empty graph with the default component limit.
func New() *Graph {
	return &Graph{
		cells:  make(map[string]*cell),
		config: Config{MaxComponents: formula.DefaultComponentLimit},
		dirty:  make(map[string]struct{}),
		accel:  accel.Reference{},
		source: rand.New(rand.NewSource(1)),
		topo:   newTopoMirror(),
	}
}

// SetAccelerator installs a Provider used for every subsequent formula
// evaluation (§6 "Accelerated callbacks"). A nil Provider reverts to
// accel.Reference.
func (g *Graph) SetAccelerator(p accel.Provider) {
	if p == nil {
		p = accel.Reference{}
	}
	g.accel = p
}

// SetSource installs the random source used by RESAMPLE/Monte Carlo
// formula evaluation.
func (g *Graph) SetSource(src *rand.Rand) {
	g.source = src
}

// Accelerator returns the Provider installed by SetAccelerator (or
// accel.Reference if none was set), so callers outside the evaluation
// path (e.g. a CLI summary) can reuse the same fast paths.
func (g *Graph) Accelerator() accel.Provider {
	return g.accel
}

// SetGlobalConfig updates the component limit. It does not itself
// trigger recomputation (§4.5 "Configuration").
func (g *Graph) SetGlobalConfig(cfg Config) {
	g.config = cfg
}

// GlobalConfig returns the current configuration.
func (g *Graph) GlobalConfig() Config {
	return g.config
}

func (g *Graph) ensureCell(id string) *cell {
	c, ok := g.cells[id]
	if !ok {
		c = newCell(id)
		g.cells[id] = c
	}
	return c
}

// GetCell returns a snapshot of id's current state, creating an empty
// cell with status ok if id has never been referenced.
func (g *Graph) GetCell(id string) Snapshot {
	return g.ensureCell(id).snapshot()
}

// IterateCells returns a snapshot of every known cell, ordered by
// identifier for determinism.
func (g *Graph) IterateCells() []Snapshot {
	ids := make([]string, 0, len(g.cells))
	for id := range g.cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Snapshot, len(ids))
	for i, id := range ids {
		out[i] = g.cells[id].snapshot()
	}
	return out
}

// Subscribe registers a listener invoked after each evaluation batch
// during a recalculation.
func (g *Graph) Subscribe(l Listener) {
	g.listeners = append(g.listeners, l)
}

func (g *Graph) markDirty(id string) {
	g.dirty[id] = struct{}{}
}

// DrainDirty returns a snapshot of every currently dirty cell, in
// identifier order, and clears the dirty set.
func (g *Graph) DrainDirty() []Snapshot {
	ids := make([]string, 0, len(g.dirty))
	for id := range g.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Snapshot, len(ids))
	for i, id := range ids {
		out[i] = g.ensureCell(id).snapshot()
	}
	g.dirty = make(map[string]struct{})
	return out
}

func (g *Graph) notifyListeners() {
	if len(g.listeners) == 0 {
		return
	}
	ids := make([]string, 0, len(g.dirty))
	for id := range g.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snap := make([]Snapshot, len(ids))
	for i, id := range ids {
		snap[i] = g.cells[id].snapshot()
	}
	for _, l := range g.listeners {
		l(snap)
	}
}

func extractDependencies(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, id := range dependencyPattern.FindAllString(raw, -1) {
		out[id] = struct{}{}
	}
	return out
}

// updateEdges replaces id's dependency set with the identifiers found in
// raw, updating the dependents of every affected cell (§4.5 "Edge
// update").
func (g *Graph) updateEdges(id, raw string) {
	c := g.ensureCell(id)
	newDeps := extractDependencies(raw)

	for dep := range c.dependencies {
		if _, stillUsed := newDeps[dep]; !stillUsed {
			if depCell, ok := g.cells[dep]; ok {
				delete(depCell.dependents, id)
			}
			g.topo.removeEdge(dep, id)
		}
	}
	for dep := range newDeps {
		if _, alreadyUsed := c.dependencies[dep]; !alreadyUsed {
			g.ensureCell(dep).dependents[id] = struct{}{}
			g.topo.setEdge(dep, id)
		}
	}
	c.dependencies = newDeps
}

// bfsDependentsClosure returns id and every cell transitively reachable
// from it over the dependents relation (§4.5 step 2).
func (g *Graph) bfsDependentsClosure(id string) map[string]struct{} {
	closure := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.cells[cur].dependents {
			if _, seen := closure[dep]; !seen {
				closure[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return closure
}

// subgraphInDegree computes, for every cell in closure, how many of its
// dependencies also lie in closure. It is built by walking the
// dependents edges (rather than dependencies) because that is the
// adjacency the BFS closure already established; a dependency→dependent
// edge (u, v) with both endpoints in the closure contributes one unit to
// v's in-degree (§4.5 step 3).
func (g *Graph) subgraphInDegree(closure map[string]struct{}) map[string]int {
	indeg := make(map[string]int, len(closure))
	for id := range closure {
		indeg[id] = 0
	}
	for id := range closure {
		for dep := range g.cells[id].dependents {
			if _, inClosure := closure[dep]; inClosure {
				indeg[dep]++
			}
		}
	}
	return indeg
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SetInput sets id's raw input and, if it actually changed, recalculates
// every reachable dependent following §4.5's recalculation protocol.
func (g *Graph) SetInput(id, raw string) {
	c := g.ensureCell(id)
	if c.rawInput == raw {
		return
	}

	c.rawInput = raw
	g.markDirty(id)
	g.updateEdges(id, raw)

	closure := g.bfsDependentsClosure(id)
	for _, cid := range sortedKeys(closure) {
		cc := g.cells[cid]
		if cc.status != StatusCircular {
			cc.status = StatusEvaluating
		}
		g.markDirty(cid)
	}

	indeg := g.subgraphInDegree(closure)
	var queue []string
	for _, cid := range sortedKeys(closure) {
		if indeg[cid] == 0 {
			queue = append(queue, cid)
		}
	}

	processed := 0
	for len(queue) > 0 {
		cid := queue[0]
		queue = queue[1:]

		g.evaluateCell(cid)
		processed++
		if processed%evalBatchSize == 0 {
			runtime.Gosched()
			g.notifyListeners()
		}

		for _, dep := range sortedKeys(g.cells[cid].dependents) {
			if _, inClosure := closure[dep]; !inClosure {
				continue
			}
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for _, cid := range sortedKeys(closure) {
		if indeg[cid] > 0 {
			cc := g.cells[cid]
			cc.status = StatusCircular
			g.markDirty(cid)
		}
	}

	g.notifyListeners()
}

func (g *Graph) resolve(id string) dist.Distribution {
	c, ok := g.cells[id]
	if !ok {
		return dist.Empty()
	}
	return c.value
}

func (g *Graph) contextFor() formula.Context {
	return formula.Context{
		Resolve:      g.resolve,
		DefaultLimit: g.config.MaxComponents,
		Accelerator:  g.accel,
		Source:       g.source,
	}
}

// evaluateCell computes a single cell's value from its raw input (§4.5
// "Evaluation of a single cell"). A formula/parse failure leaves the
// cell's previously published value untouched — only its status and
// error message change — per §7's propagation policy.
func (g *Graph) evaluateCell(id string) {
	c := g.cells[id]
	raw := strings.TrimSpace(c.rawInput)

	if raw == "" {
		c.value = dist.Empty()
		c.status = StatusOK
		c.err = ""
		return
	}

	if strings.HasPrefix(raw, "=") {
		d, err := formula.Eval(raw[1:], g.contextFor())
		if err != nil {
			c.status = StatusError
			c.err = err.Error()
			return
		}
		c.value = d
		c.status = StatusOK
		c.err = ""
		return
	}

	x, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.status = StatusError
		c.err = "invalid numeric literal: " + raw
		return
	}
	c.value = dist.New(component.NewAtom(x, 1))
	c.status = StatusOK
	c.err = ""
}
