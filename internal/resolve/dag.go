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

// Package resolve builds the extension dependency graph and produces a
// deterministic install/removal order from it.
//
// The graph itself is an arena of integer indices rather than a web of
// pointers: every extension name is assigned a stable index into a flat
// table, and every edge is a (from, to) pair of indices. This keeps the
// resolver's hot path (DFS cycle detection, topological sort) in integer
// space, with names only reattached at the API boundary.
package resolve

// Graph is the arena-indexed dependency graph.
type Graph struct {
	names []string
	index map[string]int
	// edges[i] holds the indices of i's direct dependencies.
	edges [][]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// node returns the index for name, allocating one if it is new.
func (g *Graph) node(name string) int {
	if idx, ok := g.index[name]; ok {
		return idx
	}
	idx := len(g.names)
	g.names = append(g.names, name)
	g.edges = append(g.edges, nil)
	g.index[name] = idx
	return idx
}

// Has reports whether name has been added to the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// AddEdge records that `from` depends on `to`. Both are added as nodes if
// new.
func (g *Graph) AddEdge(from, to string) {
	f := g.node(from)
	t := g.node(to)
	g.edges[f] = append(g.edges[f], t)
}

// AddNode ensures name exists in the graph even if it has no dependencies.
func (g *Graph) AddNode(name string) {
	g.node(name)
}

// Dependencies returns the direct dependency names of name.
func (g *Graph) Dependencies(name string) []string {
	idx, ok := g.index[name]
	if !ok {
		return nil
	}
	deps := make([]string, len(g.edges[idx]))
	for i, d := range g.edges[idx] {
		deps[i] = g.names[d]
	}
	return deps
}

// Names returns every node name currently in the graph, in insertion order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// cycleError carries the back-edge chain discovered during DFS, names
// reattached at the point of failure.
type cycleError struct {
	chain []string
}

func (e *cycleError) Error() string {
	s := ""
	for i, n := range e.chain {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	return "dependency cycle: " + s
}

// detectCycle runs a DFS over the graph restricted to `within` (by index)
// and returns the back-edge chain if a cycle exists, or nil.
func (g *Graph) detectCycle(within map[int]bool) []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make([]int, len(g.names))
	var path []int

	var visit func(i int) []int
	visit = func(i int) []int {
		state[i] = inStack
		path = append(path, i)

		for _, dep := range g.edges[i] {
			if within != nil && !within[dep] {
				continue
			}
			switch state[dep] {
			case inStack:
				// Found the back-edge: build the chain from its first
				// occurrence in path to here, then close the loop.
				chain := []int{}
				start := -1
				for pi, p := range path {
					if p == dep {
						start = pi
						break
					}
				}
				if start == -1 {
					start = 0
				}
				chain = append(chain, path[start:]...)
				chain = append(chain, dep)
				return chain
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}

		state[i] = done
		path = path[:len(path)-1]
		return nil
	}

	for i := range g.names {
		if within != nil && !within[i] {
			continue
		}
		if state[i] == unvisited {
			if c := visit(i); c != nil {
				names := make([]string, len(c))
				for j, idx := range c {
					names[j] = g.names[idx]
				}
				return names
			}
		}
	}
	return nil
}
