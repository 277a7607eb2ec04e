package graph

// findElementaryCycles enumerates every elementary cycle in adj (an
// adjacency list over node indices 0..len(adj)), shortest first. It
// implements Johnson's algorithm: an outer loop over a shrinking vertex
// range restricted to one strongly connected component at a time, and an
// inner "circuit" search with a blocked set and per-node B-lists to avoid
// re-exploring dead ends. Both the circuit search and the B-list unblock
// step are iterative with an explicit stack, since a naive recursive
// formulation risks stack overflow on large graphs.
func findElementaryCycles(adj [][]int) [][]int {
	n := len(adj)
	var cycles [][]int

	blocked := make([]bool, n)
	bList := make([][]int, n)

	for s := 0; s < n; {
		sub := inducedFrom(adj, s)
		comp, least, ok := leastNonTrivialSCC(sub, s)
		if !ok {
			break
		}
		s = least

		inComp := make(map[int]bool, len(comp))
		for _, v := range comp {
			inComp[v] = true
			blocked[v] = false
			bList[v] = nil
		}
		compAdj := make([][]int, n)
		for _, v := range comp {
			for _, w := range adj[v] {
				if inComp[w] {
					compAdj[v] = append(compAdj[v], w)
				}
			}
		}

		found := runCircuit(compAdj, s, blocked, bList, &cycles)
		_ = found
		s++
	}

	sortCyclesByLength(cycles)
	return cycles
}

type circuitFrame struct {
	v    int
	i    int
	f    bool
	succ []int
}

// runCircuit performs circuit(s, s) over compAdj using an explicit stack.
func runCircuit(compAdj [][]int, s int, blocked []bool, bList [][]int, cycles *[][]int) bool {
	var stack []*circuitFrame
	var path []int

	push := func(v int) {
		blocked[v] = true
		path = append(path, v)
		stack = append(stack, &circuitFrame{v: v, succ: compAdj[v]})
	}
	push(s)

	var overallFound bool

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.i < len(top.succ) {
			w := top.succ[top.i]
			top.i++
			if w == s {
				cycle := make([]int, len(path))
				copy(cycle, path)
				*cycles = append(*cycles, cycle)
				top.f = true
			} else if !blocked[w] {
				push(w)
			}
			continue
		}

		// exhausted v's successors
		if top.f {
			unblock(top.v, blocked, bList)
		} else {
			for _, w := range top.succ {
				addToBList(bList, w, top.v)
			}
		}
		finished := top.f
		stack = stack[:len(stack)-1]
		path = path[:len(path)-1]
		if len(stack) > 0 {
			if finished {
				stack[len(stack)-1].f = true
			}
		} else {
			overallFound = finished
		}
	}
	return overallFound
}

// unblock clears v's blocked flag and recursively (iteratively) unblocks
// every node in v's B-list.
func unblock(v int, blocked []bool, bList [][]int) {
	stack := []int{v}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !blocked[u] {
			continue
		}
		blocked[u] = false
		for _, w := range bList[u] {
			stack = append(stack, w)
		}
		bList[u] = nil
	}
}

func addToBList(bList [][]int, v, w int) {
	for _, x := range bList[v] {
		if x == w {
			return
		}
	}
	bList[v] = append(bList[v], w)
}

// inducedFrom restricts adj to vertices >= from, dropping edges that leave
// the range.
func inducedFrom(adj [][]int, from int) [][]int {
	n := len(adj)
	sub := make([][]int, n)
	for v := from; v < n; v++ {
		for _, w := range adj[v] {
			if w >= from {
				sub[v] = append(sub[v], w)
			}
		}
	}
	return sub
}

// leastNonTrivialSCC finds, among the strongly connected components of sub
// restricted to vertices >= from, the one with the least minimum vertex id
// among those with at least one internal edge (size > 1, since self-loops
// are forbidden). Returns ok=false once no such component remains.
func leastNonTrivialSCC(sub [][]int, from int) (component []int, least int, ok bool) {
	n := len(sub)
	comps := kosarajuSCC(sub, from, n)

	bestLeast := -1
	var bestComp []int
	for _, comp := range comps {
		if len(comp) < 2 {
			continue
		}
		m := comp[0]
		for _, v := range comp {
			if v < m {
				m = v
			}
		}
		if bestLeast == -1 || m < bestLeast {
			bestLeast = m
			bestComp = comp
		}
	}
	if bestLeast == -1 {
		return nil, 0, false
	}
	return bestComp, bestLeast, true
}

// kosarajuSCC computes strongly connected components of sub over vertices
// [from, n), iteratively (explicit stacks, no recursion).
func kosarajuSCC(sub [][]int, from, n int) [][]int {
	visited := make([]bool, n)
	order := make([]int, 0, n-from)

	for v := from; v < n; v++ {
		if visited[v] {
			continue
		}
		visited[v] = true
		type iterFrame struct {
			v int
			i int
		}
		stack := []iterFrame{{v: v}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.i < len(sub[top.v]) {
				w := sub[top.v][top.i]
				top.i++
				if !visited[w] {
					visited[w] = true
					stack = append(stack, iterFrame{v: w})
				}
				continue
			}
			order = append(order, top.v)
			stack = stack[:len(stack)-1]
		}
	}

	rev := make([][]int, n)
	for v := from; v < n; v++ {
		for _, w := range sub[v] {
			rev[w] = append(rev[w], v)
		}
	}

	assigned := make([]bool, n)
	var comps [][]int
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if assigned[root] {
			continue
		}
		var comp []int
		stack := []int{root}
		assigned[root] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, v)
			for _, w := range rev[v] {
				if !assigned[w] {
					assigned[w] = true
					stack = append(stack, w)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

func sortCyclesByLength(cycles [][]int) {
	for i := 1; i < len(cycles); i++ {
		for j := i; j > 0 && len(cycles[j-1]) > len(cycles[j]); j-- {
			cycles[j-1], cycles[j] = cycles[j], cycles[j-1]
		}
	}
}
