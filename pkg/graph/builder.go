package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

// Source is the read side of the store the graph is built from. Director and
// shareholder listings return current links only.
type Source interface {
	ListNodes(ctx context.Context) ([]models.Company, error)
	ListIndividuals(ctx context.Context) ([]models.Individual, error)
	ListDirectors(ctx context.Context) ([]models.DirectorRelationship, error)
	ListShareholders(ctx context.Context) ([]models.ShareholderRelationship, error)
}

type CompanyLister interface {
	ListNodes(ctx context.Context) ([]models.Company, error)
}

type IndividualLister interface {
	List(ctx context.Context) ([]models.Individual, error)
}

type RelationshipLister interface {
	ListDirectors(ctx context.Context) ([]models.DirectorRelationship, error)
	ListShareholders(ctx context.Context) ([]models.ShareholderRelationship, error)
}

type storeSource struct {
	CompanyLister
	RelationshipLister
	individuals IndividualLister
}

func (s storeSource) ListIndividuals(ctx context.Context) ([]models.Individual, error) {
	return s.individuals.List(ctx)
}

// NewSource combines the company, individual and relationship stores.
func NewSource(companies CompanyLister, individuals IndividualLister, relationships RelationshipLister) Source {
	return storeSource{
		CompanyLister:      companies,
		RelationshipLister: relationships,
		individuals:        individuals,
	}
}

type Builder struct {
	source Source
	logger ectologger.Logger
}

func NewBuilder(source Source, logger ectologger.Logger) *Builder {
	return &Builder{
		source: source,
		logger: logger,
	}
}

// Build reads the whole store into a new graph.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Builder.Build")
	defer span.End()

	start := time.Now()

	companies, err := b.source.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	individuals, err := b.source.ListIndividuals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list individuals: %w", err)
	}
	directors, err := b.source.ListDirectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directors: %w", err)
	}
	shareholders, err := b.source.ListShareholders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shareholders: %w", err)
	}

	nodes := make([]Node, 0, len(companies)+len(individuals))
	for _, c := range companies {
		node := Node{ID: EntityNodeID(c.ID), Label: c.Name, Type: NodeEntity}
		if c.Status != nil {
			node.Status = *c.Status
		}
		nodes = append(nodes, node)
	}
	for _, i := range individuals {
		nodes = append(nodes, Node{ID: IndividualNodeID(i.ID), Label: i.Name, Type: NodeIndividual})
	}

	edges := make([]Edge, 0, len(directors)+len(shareholders))
	for _, d := range directors {
		source, ok := partyNodeID(d.Relationship)
		if !ok {
			continue
		}
		edges = append(edges, Edge{
			Source:       source,
			Target:       EntityNodeID(d.CompanyID),
			Relationship: EdgeDirector,
		})
	}

	held := make(map[int64]int64)
	for _, s := range shareholders {
		held[s.CompanyID] += s.NumberOfShares
	}
	for _, s := range shareholders {
		source, ok := partyNodeID(s.Relationship)
		if !ok {
			continue
		}
		weight := ShareFraction(s.NumberOfShares, held[s.CompanyID])
		edges = append(edges, Edge{
			Source:       source,
			Target:       EntityNodeID(s.CompanyID),
			Relationship: EdgeShareholder,
			Weight:       &weight,
		})
	}

	g := New(nodes, edges)
	elapsed := time.Since(start)
	metrics.RecordGraphBuild(len(g.Nodes), len(g.Edges), elapsed.Seconds())

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"nodes":         len(g.Nodes),
		"edges":         len(g.Edges),
		"dropped_edges": len(edges) - len(g.Edges),
		"duration_ms":   elapsed.Milliseconds(),
	}).Info("Built graph")
	return g, nil
}

// ShareFraction is shares/total, or 1 when the total is not positive.
func ShareFraction(shares, total int64) float64 {
	if total <= 0 {
		return 1
	}
	return float64(shares) / float64(total)
}

func partyNodeID(rel models.Relationship) (string, bool) {
	switch kind, id := rel.Counterparty(); kind {
	case models.PartyIndividual:
		return IndividualNodeID(id), true
	case models.PartyEntity:
		return EntityNodeID(id), true
	}
	return "", false
}
