// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package resolve

import (
	"fmt"
	"sort"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Reason explains why an extension is part of a resolved set.
type Reason string

const (
	ReasonRequested Reason = "requested"
	// ReasonTransitive is formatted as "transitive-of-<name>" at use sites.
	ReasonTransitive Reason = "transitive"
)

// Resolution is one entry of a resolved order.
type Resolution struct {
	Name   string
	Reason string
}

// PriorityLookup resolves a name's project-init priority for tie-breaking;
// extensions with no declared priority use 100, matching C1.Discover.
type PriorityLookup func(name string) int

// Resolve builds the dependency closure of requested against reg, checks for
// conflicts and cycles, and returns a deterministic leaves-first order with
// protected extensions pinned to the front. priority is used only to break
// ties between extensions with no dependency relationship to each other;
// pass nil to fall back to name-only ordering.
func Resolve(requested []string, reg *manifest.Registry, priority PriorityLookup) ([]Resolution, error) {
	if priority == nil {
		priority = func(string) int { return 100 }
	}

	graph := NewGraph()
	reasons := make(map[string]string)

	queue := append([]string(nil), requested...)
	for _, name := range requested {
		reasons[name] = string(ReasonRequested)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if graph.Has(name) {
			continue
		}
		entry, err := reg.Get(name)
		if err != nil {
			return nil, sinderr.Wrap(sinderr.UnknownDependency, name, err)
		}
		graph.AddNode(name)

		for _, dep := range entry.Dependencies {
			if _, ok := reg.Extensions[dep]; !ok {
				return nil, sinderr.New(sinderr.UnknownDependency, fmt.Sprintf("%s depends on unknown extension %s", name, dep))
			}
			graph.AddEdge(name, dep)
			if _, seen := reasons[dep]; !seen {
				reasons[dep] = fmt.Sprintf("transitive-of-%s", name)
				queue = append(queue, dep)
			}
		}
	}

	closure := graph.Names()

	// Conflict check: any pair in the closure that mutually or
	// unilaterally lists the other in `conflicts` is an error.
	for _, a := range closure {
		entryA, err := reg.Get(a)
		if err != nil {
			return nil, sinderr.Wrap(sinderr.UnknownDependency, a, err)
		}
		for _, b := range entryA.Conflicts {
			if graph.Has(b) {
				return nil, sinderr.New(sinderr.ConflictingExtensions, fmt.Sprintf("%s conflicts with %s", a, b))
			}
		}
	}

	within := make(map[int]bool)
	for _, n := range closure {
		within[indexOf(graph, n)] = true
	}
	if chain := graph.detectCycle(within); chain != nil {
		return nil, sinderr.New(sinderr.DependencyCycle, fmt.Sprintf("%v", chain))
	}

	order := topoSort(graph, closure, priority)

	protectedFirst := make([]string, 0, len(order))
	rest := make([]string, 0, len(order))
	protected := make(map[string]bool)
	for _, n := range reg.Protected() {
		protected[n] = true
	}
	for _, n := range order {
		if protected[n] {
			protectedFirst = append(protectedFirst, n)
		} else {
			rest = append(rest, n)
		}
	}
	sort.Strings(protectedFirst)
	final := append(protectedFirst, rest...)

	out := make([]Resolution, len(final))
	for i, n := range final {
		out[i] = Resolution{Name: n, Reason: reasons[n]}
	}
	return out, nil
}

// Remove resolves a removal order: dependents before dependencies, i.e. the
// reverse of the install order restricted to the requested set's closure in
// the opposite direction. Protected extensions are rejected outright.
func Remove(requested []string, reg *manifest.Registry) ([]string, error) {
	for _, name := range requested {
		entry, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		if entry.Protected {
			return nil, sinderr.New(sinderr.ConflictingExtensions, fmt.Sprintf("%s is protected and cannot be removed", name))
		}
	}

	order, err := Resolve(requested, reg, nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(order))
	for i, r := range order {
		names[len(order)-1-i] = r.Name
	}
	return names, nil
}

func indexOf(g *Graph, name string) int {
	for i, n := range g.names {
		if n == name {
			return i
		}
	}
	return -1
}

// topoSort emits nodes leaves-first (a node's dependencies appear before it)
// restricted to the closure set, tie-broken by priority then name.
func topoSort(g *Graph, closure []string, priority PriorityLookup) []string {
	visited := make(map[string]bool)
	var order []string

	sorted := append([]string(nil), closure...)
	sort.Slice(sorted, func(i, j int) bool {
		pi, pj := priority(sorted[i]), priority(sorted[j])
		if pi != pj {
			return pi < pj
		}
		return sorted[i] < sorted[j]
	})

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		deps := append([]string(nil), g.Dependencies(name)...)
		sort.Slice(deps, func(i, j int) bool {
			pi, pj := priority(deps[i]), priority(deps[j])
			if pi != pj {
				return pi < pj
			}
			return deps[i] < deps[j]
		})
		for _, dep := range deps {
			visit(dep)
		}
		order = append(order, name)
	}

	for _, name := range sorted {
		visit(name)
	}
	return order
}
