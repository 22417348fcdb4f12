// Package graph materializes stored companies, individuals and their links
// as a directed multigraph and extracts ego networks from it.
package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gobusters/ectolinq"
)

var ErrNodeNotFound = errors.New("node not found")

type NodeType string

const (
	NodeEntity     NodeType = "entity"
	NodeIndividual NodeType = "individual"
)

type EdgeKind string

const (
	EdgeDirector    EdgeKind = "director"
	EdgeShareholder EdgeKind = "shareholder"
)

const (
	entityPrefix     = "e-"
	individualPrefix = "i-"
)

type Node struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Type   NodeType `json:"type"`
	Status string   `json:"status,omitempty"`
}

// Edge points from a director or shareholder to the company. Weight is the
// share fraction and is only set on shareholder edges.
type Edge struct {
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Relationship EdgeKind `json:"relationship"`
	Weight       *float64 `json:"weight,omitempty"`
}

// Graph is an immutable snapshot. It is safe for concurrent readers.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	index map[string]int
	out   map[string][]int
	in    map[string][]int
}

// New indexes nodes and keeps only the edges whose endpoints are both known.
// The first node with a given id wins.
func New(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
		index: make(map[string]int, len(nodes)),
		out:   map[string][]int{},
		in:    map[string][]int{},
	}
	for _, n := range nodes {
		if _, ok := g.index[n.ID]; ok {
			continue
		}
		g.index[n.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range edges {
		if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
			continue
		}
		i := len(g.Edges)
		g.Edges = append(g.Edges, e)
		g.out[e.Source] = append(g.out[e.Source], i)
		g.in[e.Target] = append(g.in[e.Target], i)
	}
	return g
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Successors returns the targets of id's outgoing edges, once each.
func (g *Graph) Successors(id string) []string {
	return g.neighbours(g.out[id], func(e Edge) string { return e.Target })
}

// Predecessors returns the sources of id's incoming edges, once each.
func (g *Graph) Predecessors(id string) []string {
	return g.neighbours(g.in[id], func(e Edge) string { return e.Source })
}

func (g *Graph) neighbours(edges []int, end func(Edge) string) []string {
	return ectolinq.Distinct(ectolinq.Map(edges, func(i int) string {
		return end(g.Edges[i])
	}))
}

func EntityNodeID(id int64) string {
	return entityPrefix + strconv.FormatInt(id, 10)
}

func IndividualNodeID(id int64) string {
	return individualPrefix + strconv.FormatInt(id, 10)
}

// ParseNodeID splits a node id into its type and store id.
func ParseNodeID(nodeID string) (NodeType, int64, error) {
	var (
		kind NodeType
		raw  string
	)
	switch {
	case strings.HasPrefix(nodeID, entityPrefix):
		kind, raw = NodeEntity, strings.TrimPrefix(nodeID, entityPrefix)
	case strings.HasPrefix(nodeID, individualPrefix):
		kind, raw = NodeIndividual, strings.TrimPrefix(nodeID, individualPrefix)
	default:
		return "", 0, fmt.Errorf("invalid node id %q", nodeID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid node id %q", nodeID)
	}
	return kind, id, nil
}
