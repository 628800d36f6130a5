// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The bunpu program loads a persisted probability workbook, applies a
// sequence of cell edits, and prints the resulting cell snapshots (and
// optionally re-persists the workbook), as a small flag-driven front-end
// over the graph package.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/RyuU12358/Bunpu/accel"
	"github.com/RyuU12358/Bunpu/graph"
)

// edits collects repeated -set flags of the form ID=RAWINPUT.
type edits []string

func (e *edits) String() string { return strings.Join(*e, ",") }

func (e *edits) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("bunpu: -set value %q must be ID=RAWINPUT", v)
	}
	*e = append(*e, v)
	return nil
}

func main() {
	in := flag.String("in", "", "path to an existing persisted workbook (JSON); omit to start empty")
	out := flag.String("out", "", "path to write the resulting workbook (JSON); omit to skip persisting")
	limit := flag.Int("limit", 0, "override the component limit (0 keeps the workbook's existing value)")
	cycles := flag.Bool("cycles", false, "report strongly connected components (circular references) after applying edits")
	var sets edits
	flag.Var(&sets, "set", "apply a cell edit ID=RAWINPUT (repeatable); a formula starts with '='")
	flag.Parse()

	g := graph.New()
	if *in != "" {
		b, err := os.ReadFile(*in)
		if err != nil {
			log.Fatalf("bunpu: reading %s: %v", *in, err)
		}
		if err := g.FromJSON(string(b)); err != nil {
			log.Fatalf("bunpu: parsing %s: %v", *in, err)
		}
	}
	if *limit > 0 {
		g.SetGlobalConfig(graph.Config{MaxComponents: *limit})
	}

	for _, e := range sets {
		id, raw, _ := strings.Cut(e, "=")
		g.SetInput(id, raw)
	}

	for _, s := range g.IterateCells() {
		fmt.Printf("%-8s %-10s %s\n", s.ID, s.Status, summarize(s, g.Accelerator()))
	}

	if *cycles {
		for _, scc := range g.StronglyConnectedComponents() {
			fmt.Printf("cycle: %s\n", strings.Join(scc, " <-> "))
		}
	}

	if *out != "" {
		blob, err := g.ToJSON()
		if err != nil {
			log.Fatalf("bunpu: serializing workbook: %v", err)
		}
		if err := os.WriteFile(*out, []byte(blob), 0o644); err != nil {
			log.Fatalf("bunpu: writing %s: %v", *out, err)
		}
	}
}

func summarize(s graph.Snapshot, acc accel.Provider) string {
	switch s.Status {
	case graph.StatusError:
		return s.Err
	case graph.StatusPending:
		return ""
	default:
		if s.Value.IsEmpty() {
			return "(empty)"
		}
		mean, variance, _, _ := accel.Moments(acc, s.Value, 0)
		return fmt.Sprintf("mean=%.6g var=%.6g n=%d", mean, variance, len(s.Value.Components))
	}
}
