// Package gradient builds direction-aware colour graphs over palette entries
// and extracts successive, diverging gradient rows from them.
//
// Complexity:
//
//   - Build:        O(N·K) for N entries with K box neighbours each
//   - TopoSort:     O(V + E)
//   - ShortestPath: O(V + E) per row
package gradient

import (
	"errors"
	"fmt"
	"math"

	"github.com/jmylchreest/swatchpath/internal/cluster"
)

var (
	// ErrCycle is returned by TopoSort when the graph has a directed cycle.
	ErrCycle = errors.New("gradient: graph has a cycle")

	// ErrNodeNotFound is returned when an edge refers to a missing node.
	ErrNodeNotFound = errors.New("gradient: node not found")
)

// DFS visitation states.
const (
	white = iota
	gray
	black
)

// Edge is a weighted directed edge. Weight changes while rows are extracted.
type Edge struct {
	To     *Node
	Weight float64
}

// Node is a graph vertex keyed by its entry id.
type Node struct {
	ID    int
	Entry *cluster.Entry
	Edges []*Edge
}

// EdgeTo returns the edge from n to the node with the given id.
func (n *Node) EdgeTo(id int) *Edge {
	for _, e := range n.Edges {
		if e.To.ID == id {
			return e
		}
	}
	return nil
}

// RemoveEdge deletes the edge from n to the node with the given id.
func (n *Node) RemoveEdge(id int) bool {
	for i, e := range n.Edges {
		if e.To.ID == id {
			n.Edges = append(n.Edges[:i], n.Edges[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	if n.Entry != nil {
		return n.Entry.Label()
	}
	return fmt.Sprintf("node %d", n.ID)
}

// Graph is a directed graph whose nodes keep insertion order.
type Graph struct {
	nodes map[int]*Node
	order []*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[int]*Node)}
}

// AddNode adds a node with the given id, or returns the existing one.
func (g *Graph) AddNode(id int, entry *cluster.Entry) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Entry: entry}
	g.nodes[id] = n
	g.order = append(g.order, n)
	return n
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.order
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, n := range g.order {
		total += len(n.Edges)
	}
	return total
}

// AddEdge adds or reweights the edge from -> to.
func (g *Graph) AddEdge(from, to int, weight float64) error {
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("gradient: invalid edge weight %v for %d -> %d", weight, from, to)
	}
	if e := src.EdgeTo(to); e != nil {
		e.Weight = weight
		return nil
	}
	src.Edges = append(src.Edges, &Edge{To: dst, Weight: weight})
	return nil
}

// RemoveEdge deletes the edge from -> to if present.
func (g *Graph) RemoveEdge(from, to int) bool {
	n, ok := g.nodes[from]
	if !ok {
		return false
	}
	return n.RemoveEdge(to)
}

type frame struct {
	node *Node
	next int
}

// FindCycle returns the nodes of one directed cycle, in edge order, or nil if
// the graph is acyclic. The traversal uses an explicit stack.
func (g *Graph) FindCycle() []*Node {
	state := make(map[*Node]int, len(g.order))
	for _, root := range g.order {
		if state[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		state[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.node.Edges) {
				state[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			to := top.node.Edges[top.next].To
			top.next++

			switch state[to] {
			case white:
				state[to] = gray
				stack = append(stack, frame{node: to})
			case gray:
				// Back edge: the cycle is the stack suffix starting at to.
				var cycle []*Node
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i].node)
					if stack[i].node == to {
						break
					}
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
		}
	}
	return nil
}

// TopoSort returns every node such that each edge u -> v has u before v.
// It returns ErrCycle if the graph is not a DAG.
func (g *Graph) TopoSort() ([]*Node, error) {
	state := make(map[*Node]int, len(g.order))
	post := make([]*Node, 0, len(g.order))

	for _, root := range g.order {
		if state[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		state[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.node.Edges) {
				state[top.node] = black
				post = append(post, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			to := top.node.Edges[top.next].To
			top.next++

			switch state[to] {
			case white:
				state[to] = gray
				stack = append(stack, frame{node: to})
			case gray:
				return nil, fmt.Errorf("%w: back edge %v -> %v", ErrCycle, top.node, to)
			}
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, nil
}
