package graph

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/memstore"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func ids(g *Graph) []string {
	out := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func chain() *Graph {
	return New(
		[]Node{{ID: "e-1", Label: "A"}, {ID: "e-2", Label: "B"}, {ID: "e-3", Label: "C"}},
		[]Edge{
			{Source: "e-1", Target: "e-2", Relationship: EdgeDirector},
			{Source: "e-2", Target: "e-3", Relationship: EdgeDirector},
		},
	)
}

func TestNew_DropsDanglingEdges(t *testing.T) {
	g := New(
		[]Node{{ID: "e-1"}, {ID: "i-1"}},
		[]Edge{
			{Source: "i-1", Target: "e-1", Relationship: EdgeDirector},
			{Source: "i-9", Target: "e-1", Relationship: EdgeDirector},
			{Source: "i-1", Target: "e-9", Relationship: EdgeDirector},
		},
	)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "i-1", g.Edges[0].Source)
}

func TestNew_KeepsParallelEdges(t *testing.T) {
	weight := 1.0
	g := New(
		[]Node{{ID: "e-1"}, {ID: "i-1"}},
		[]Edge{
			{Source: "i-1", Target: "e-1", Relationship: EdgeDirector},
			{Source: "i-1", Target: "e-1", Relationship: EdgeShareholder, Weight: &weight},
		},
	)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, []string{"e-1"}, g.Successors("i-1"))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		node  string
		depth int
		want  []string
		edges int
	}{
		{name: "middle node reaches both sides", node: "e-2", depth: 1, want: []string{"e-1", "e-2", "e-3"}, edges: 2},
		{name: "head node only reaches forward", node: "e-1", depth: 1, want: []string{"e-1", "e-2"}, edges: 1},
		{name: "tail node only reaches backward", node: "e-3", depth: 1, want: []string{"e-2", "e-3"}, edges: 1},
		{name: "depth two from head", node: "e-1", depth: 2, want: []string{"e-1", "e-2", "e-3"}, edges: 2},
		{name: "depth zero is the origin", node: "e-2", depth: 0, want: []string{"e-2"}, edges: 0},
		{name: "negative depth is clamped", node: "e-2", depth: -3, want: []string{"e-2"}, edges: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := Extract(chain(), tt.node, tt.depth)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(sub))
			assert.Len(t, sub.Edges, tt.edges)
		})
	}
}

func TestExtract_InducedSubgraphKeepsEdgesBetweenNeighbours(t *testing.T) {
	// A -> B, A -> C, B -> C: from A at depth 1 the edge B -> C is kept.
	g := New(
		[]Node{{ID: "e-1"}, {ID: "e-2"}, {ID: "e-3"}},
		[]Edge{
			{Source: "e-1", Target: "e-2", Relationship: EdgeDirector},
			{Source: "e-1", Target: "e-3", Relationship: EdgeDirector},
			{Source: "e-2", Target: "e-3", Relationship: EdgeDirector},
		},
	)
	sub, err := Extract(g, "e-1", 1)
	require.NoError(t, err)
	assert.Len(t, sub.Edges, 3)
}

func TestExtract_NotFound(t *testing.T) {
	_, err := Extract(chain(), "e-42", 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = Extract(nil, "e-1", 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestParseNodeID(t *testing.T) {
	kind, id, err := ParseNodeID("e-12")
	require.NoError(t, err)
	assert.Equal(t, NodeEntity, kind)
	assert.Equal(t, int64(12), id)

	kind, id, err = ParseNodeID(IndividualNodeID(7))
	require.NoError(t, err)
	assert.Equal(t, NodeIndividual, kind)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "x-1", "e-", "e-abc", "i-0"} {
		_, _, err := ParseNodeID(bad)
		assert.Error(t, err, bad)
	}
}

func TestShareFraction(t *testing.T) {
	assert.InDelta(t, 0.25, ShareFraction(25, 100), 1e-9)
	assert.Equal(t, 1.0, ShareFraction(25, 0))
	assert.Equal(t, 1.0, ShareFraction(0, 0))
}

func seed(t *testing.T, store *memstore.Store) (acme, holdco, jane int64) {
	t.Helper()
	ctx := context.Background()
	var err error

	status := "Registered"
	acme, _, err = store.Companies().Upsert(ctx, &models.CompanyRecord{
		CompanyName:    "Acme Ltd",
		CompanyNumber:  "1",
		GeneralDetails: &models.GeneralDetails{EntityStatus: status},
	})
	require.NoError(t, err)
	holdco, err = store.Companies().InsertPlaceholder(ctx, "Holdco Ltd", models.EntityHints{})
	require.NoError(t, err)
	jane, err = store.Individuals().Insert(ctx, "Jane Doe")
	require.NoError(t, err)

	rels := store.Relationships()
	require.NoError(t, rels.InsertDirector(ctx, &models.DirectorRelationship{
		Relationship: models.NewRelationship(acme, models.PartyIndividual, jane, models.Party{}, false),
	}))
	require.NoError(t, rels.InsertShareholder(ctx, &models.ShareholderRelationship{
		Relationship:   models.NewRelationship(acme, models.PartyIndividual, jane, models.Party{}, false),
		NumberOfShares: 30,
	}))
	require.NoError(t, rels.InsertShareholder(ctx, &models.ShareholderRelationship{
		Relationship:   models.NewRelationship(acme, models.PartyEntity, holdco, models.Party{}, false),
		NumberOfShares: 70,
	}))
	require.NoError(t, rels.InsertShareholder(ctx, &models.ShareholderRelationship{
		Relationship: models.NewRelationship(holdco, models.PartyIndividual, jane, models.Party{}, false),
	}))
	require.NoError(t, rels.InsertDirector(ctx, &models.DirectorRelationship{
		Relationship: models.NewRelationship(holdco, models.PartyIndividual, jane, models.Party{}, true),
	}))
	return acme, holdco, jane
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	acme, holdco, jane := seed(t, store)

	b := NewBuilder(NewSource(store.Companies(), store.Individuals(), store.Relationships()), testLogger())
	g, err := b.Build(ctx)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	node, ok := g.Node(EntityNodeID(acme))
	require.True(t, ok)
	assert.Equal(t, "Acme Ltd", node.Label)
	assert.Equal(t, NodeEntity, node.Type)
	assert.Equal(t, "Registered", node.Status)

	node, ok = g.Node(IndividualNodeID(jane))
	require.True(t, ok)
	assert.Equal(t, NodeIndividual, node.Type)

	// former director link is not part of the graph
	require.Len(t, g.Edges, 4)

	sum := 0.0
	var acmeShareholderEdges int
	for _, e := range g.Edges {
		switch {
		case e.Relationship == EdgeDirector:
			assert.Nil(t, e.Weight)
			assert.Equal(t, IndividualNodeID(jane), e.Source)
			assert.Equal(t, EntityNodeID(acme), e.Target)
		case e.Target == EntityNodeID(acme):
			require.NotNil(t, e.Weight)
			sum += *e.Weight
			acmeShareholderEdges++
			if e.Source == EntityNodeID(holdco) {
				assert.InDelta(t, 0.7, *e.Weight, 1e-9)
			}
		case e.Target == EntityNodeID(holdco):
			require.NotNil(t, e.Weight)
			assert.Equal(t, 1.0, *e.Weight)
		}
	}
	assert.Equal(t, 2, acmeShareholderEdges)
	assert.InDelta(t, 1.0, sum, 1e-9)

	// director and shareholder edges between jane and acme are both retained
	var parallel int
	for _, e := range g.Edges {
		if e.Source == IndividualNodeID(jane) && e.Target == EntityNodeID(acme) {
			parallel++
		}
	}
	assert.Equal(t, 2, parallel)
}
