package gradient

import "math"

// WeightFunc returns the effective weight of an edge for one shortest-path
// computation. It must not return a negative value.
type WeightFunc func(from, to *Node, weight float64) float64

// ShortestPath returns the intermediate nodes of the cheapest source -> dest
// path, excluding both endpoints. order must be a topological order of the
// graph containing source and dest. weight may be nil.
//
// Every node is relaxed once in order, so a predecessor is always final
// before its successors are visited.
func ShortestPath(order []*Node, source, dest *Node, weight WeightFunc) ([]*Node, bool) {
	if source == nil || dest == nil || source == dest {
		return nil, false
	}

	cost := make(map[*Node]float64, len(order))
	parent := make(map[*Node]*Node, len(order))
	cost[source] = 0

	for _, n := range order {
		c, reached := cost[n]
		if !reached {
			continue
		}
		for _, e := range n.Edges {
			w := e.Weight
			if weight != nil {
				w = weight(n, e.To, w)
			}
			next := c + w
			if prev, ok := cost[e.To]; !ok || next < prev {
				cost[e.To] = next
				parent[e.To] = n
			}
		}
	}

	if _, ok := parent[dest]; !ok {
		return nil, false
	}

	var path []*Node
	for cur := parent[dest]; cur != source; cur = parent[cur] {
		if cur == nil {
			return nil, false
		}
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// PathCost sums the stored weights along source, path..., dest. It returns
// +Inf if an edge is missing.
func PathCost(source *Node, path []*Node, dest *Node) float64 {
	nodes := make([]*Node, 0, len(path)+2)
	nodes = append(nodes, source)
	nodes = append(nodes, path...)
	nodes = append(nodes, dest)

	total := 0.0
	for i := 0; i+1 < len(nodes); i++ {
		e := nodes[i].EdgeTo(nodes[i+1].ID)
		if e == nil {
			return math.Inf(1)
		}
		total += e.Weight
	}
	return total
}
