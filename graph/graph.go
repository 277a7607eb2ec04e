// Package graph implements the precedence graph the dispatcher builds from
// declared system constraints: a signed-weight adjacency matrix, cycle
// detection over its positive-weight subgraph, transitive reduction, and a
// deterministic topological order.
package graph

import (
	"fmt"
	"strings"
)

// CycleError reports every elementary cycle found during Seal, shortest
// first, each rendered as its node names joined by em dashes.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString("graph: precedence cycle detected: ")
	for i, c := range e.Cycles {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(strings.Join(c, "—"))
	}
	return b.String()
}

// ErrNotSealed is returned by operations that require a sealed graph.
var ErrNotSealed = fmt.Errorf("graph: not sealed")

// ErrAlreadySealed is returned by mutating operations called after Seal.
var ErrAlreadySealed = fmt.Errorf("graph: already sealed")

// Graph is an n-node signed-weight adjacency matrix. Positive weights are
// precedence constraints ("A before B"); negative weights are denials.
type Graph struct {
	names  []string
	edges  [][]int
	sealed bool
	order  []int // topological order, by node index; valid only once sealed
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a new node with the given diagnostic name and returns its
// index. Only valid before Seal.
func (g *Graph) AddNode(name string) int {
	if g.sealed {
		panic("graph: AddNode after seal")
	}
	id := len(g.names)
	g.names = append(g.names, name)
	for i := range g.edges {
		g.edges[i] = append(g.edges[i], 0)
	}
	row := make([]int, id+1)
	g.edges = append(g.edges, row)
	return id
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.names) }

// Name returns node i's diagnostic name.
func (g *Graph) Name(i int) string { return g.names[i] }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// insert applies the edge-insertion rules of §4.1 for a signed weight w on
// edge a->b: weaker than whatever is already known in either direction is
// a no-op, otherwise the new weight wins its direction and, if strictly
// stronger than the opposing edge, clears it.
func (g *Graph) insert(a, b, w int) {
	if a == b {
		return
	}
	fwd := g.edges[a][b]
	rev := g.edges[b][a]
	if abs(w) < abs(fwd) || abs(w) < abs(rev) {
		return
	}
	g.edges[a][b] = w
	if abs(w) > abs(rev) {
		g.edges[b][a] = 0
	}
}

// Add records a "must precede" constraint a -> b with positive weight w.
func (g *Graph) Add(a, b int, w int) {
	if g.sealed {
		panic("graph: Add after seal")
	}
	if w <= 0 {
		panic("graph: Add requires a positive weight")
	}
	g.insert(a, b, w)
}

// Deny records a "must not precede" constraint a -> b with positive
// magnitude w, stored internally as -w.
func (g *Graph) Deny(a, b int, w int) {
	if g.sealed {
		panic("graph: Deny after seal")
	}
	if w <= 0 {
		panic("graph: Deny requires a positive weight")
	}
	g.insert(a, b, -w)
}

// Weight returns the raw signed weight of edge a->b (0 if none).
func (g *Graph) Weight(a, b int) int { return g.edges[a][b] }

// Seal detects cycles on the positive subgraph, simplifies the graph
// (zeroing denials, then transitively reducing), and computes a
// deterministic topological order. It is irreversible: further mutation
// panics.
func (g *Graph) Seal() error {
	if g.sealed {
		return ErrAlreadySealed
	}

	if cycles := findElementaryCycles(g.positiveAdjacency()); len(cycles) > 0 {
		named := make([][]string, len(cycles))
		for i, c := range cycles {
			names := make([]string, len(c))
			for j, v := range c {
				names[j] = g.names[v]
			}
			named[i] = names
		}
		return &CycleError{Cycles: named}
	}

	n := len(g.names)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if g.edges[i][j] < 0 {
				g.edges[i][j] = 0
			}
		}
	}

	paths := g.reachabilityMatrix()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if g.edges[i][j] <= 0 {
				continue
			}
			for k := 0; k < n; k++ {
				if k == i || k == j {
					continue
				}
				if paths[i][k] && paths[k][j] {
					g.edges[i][j] = 0
					break
				}
			}
		}
	}

	order, err := kahnOrder(g.positiveAdjacency())
	if err != nil {
		return err
	}
	g.order = order
	g.sealed = true
	return nil
}

// Order returns the sealed topological order (node indices).
func (g *Graph) Order() ([]int, error) {
	if !g.sealed {
		return nil, ErrNotSealed
	}
	return g.order, nil
}

// positiveAdjacency returns an adjacency-list view of edges with weight > 0.
func (g *Graph) positiveAdjacency() [][]int {
	n := len(g.names)
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if g.edges[i][j] > 0 {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return adj
}

// reachabilityMatrix computes the Floyd-Warshall-style transitive closure
// of the positive-weight edges.
func (g *Graph) reachabilityMatrix() [][]bool {
	n := len(g.names)
	reach := make([][]bool, n)
	for i := range reach {
		reach[i] = make([]bool, n)
		for j, w := range g.edges[i] {
			if w > 0 {
				reach[i][j] = true
			}
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if !reach[i][k] {
				continue
			}
			for j := 0; j < n; j++ {
				if reach[k][j] {
					reach[i][j] = true
				}
			}
		}
	}
	return reach
}

// kahnOrder runs Kahn's algorithm over adj, emitting the least-indexed
// zero-in-degree node at each step for a deterministic tie-break.
func kahnOrder(adj [][]int) ([]int, error) {
	n := len(adj)
	indeg := make([]int, n)
	for _, succs := range adj {
		for _, j := range succs {
			indeg[j]++
		}
	}

	order := make([]int, 0, n)
	remaining := indeg
	done := make([]bool, n)

	for len(order) < n {
		progressed := false
		for i := 0; i < n; i++ {
			if done[i] || remaining[i] != 0 {
				continue
			}
			order = append(order, i)
			done[i] = true
			for _, j := range adj[i] {
				remaining[j]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("graph: topological sort stalled with %d nodes unordered (internal invariant violated)", n-len(order))
		}
	}
	return order, nil
}

// InduceSubgraph returns a new graph over the given node indices, preserving
// every edge (including denial signs) whose endpoints are both in nodes. If
// the parent is sealed, the induced graph starts pre-sealed with its own
// cycle check and topological order recomputed from the preserved edges.
func (g *Graph) InduceSubgraph(nodes []int) (*Graph, error) {
	sub := New()
	index := make(map[int]int, len(nodes))
	for _, v := range nodes {
		index[v] = sub.AddNode(g.names[v])
	}
	for _, a := range nodes {
		for _, b := range nodes {
			if a == b {
				continue
			}
			if w := g.edges[a][b]; w != 0 {
				sub.edges[index[a]][index[b]] = w
			}
		}
	}
	if g.sealed {
		if err := sub.Seal(); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
