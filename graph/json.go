// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SupportedVersion is the only persisted-format version this package
// reads or writes (§6 "Persisted file format").
const SupportedVersion = 1

type persistedConfig struct {
	MaxComponents int `json:"maxComponents"`
}

type persistedGraph struct {
	Version int               `json:"version"`
	Config  persistedConfig   `json:"config"`
	Cells   map[string]string `json:"cells"`
}

// ToJSON serializes the graph's configuration and every non-empty raw
// input (§4.5 "Persistence", §6 "Persisted file format").
func (g *Graph) ToJSON() (string, error) {
	cells := make(map[string]string)
	for id, c := range g.cells {
		if c.rawInput == "" {
			continue
		}
		cells[id] = c.rawInput
	}
	p := persistedGraph{
		Version: SupportedVersion,
		Config:  persistedConfig{MaxComponents: g.config.MaxComponents},
		Cells:   cells,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON replaces the graph's entire state with the persisted
// document's configuration and cells, re-evaluating each cell in
// identifier order (§4.5 "Persistence").
func (g *Graph) FromJSON(s string) error {
	var p persistedGraph
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return err
	}
	if p.Version != SupportedVersion {
		return fmt.Errorf("graph: unsupported persisted version %d", p.Version)
	}

	g.cells = make(map[string]*cell)
	g.dirty = make(map[string]struct{})
	g.config = Config{MaxComponents: p.Config.MaxComponents}
	g.topo = newTopoMirror()

	ids := make([]string, 0, len(p.Cells))
	for id := range p.Cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g.SetInput(id, p.Cells[id])
	}
	return nil
}
