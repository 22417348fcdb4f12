package graph

import "fmt"

// Extract returns the ego network of nodeID: every node within depth hops
// along outgoing edges, every node within depth hops along incoming edges,
// the origin itself, and all edges of g between those nodes.
func Extract(g *Graph, nodeID string, depth int) (*Graph, error) {
	if g == nil || !g.HasNode(nodeID) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if depth < 0 {
		depth = 0
	}

	keep := map[string]bool{nodeID: true}
	for id := range reach(nodeID, depth, g.Successors) {
		keep[id] = true
	}
	for id := range reach(nodeID, depth, g.Predecessors) {
		keep[id] = true
	}

	nodes := make([]Node, 0, len(keep))
	for _, n := range g.Nodes {
		if keep[n.ID] {
			nodes = append(nodes, n)
		}
	}
	edges := make([]Edge, 0)
	for _, e := range g.Edges {
		if keep[e.Source] && keep[e.Target] {
			edges = append(edges, e)
		}
	}
	return New(nodes, edges), nil
}

func reach(origin string, depth int, next func(string) []string) map[string]bool {
	seen := map[string]bool{origin: true}
	frontier := []string{origin}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var upcoming []string
		for _, id := range frontier {
			for _, n := range next(id) {
				if !seen[n] {
					seen[n] = true
					upcoming = append(upcoming, n)
				}
			}
		}
		frontier = upcoming
	}
	return seen
}
