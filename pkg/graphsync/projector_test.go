package graphsync

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/memstore"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func TestProjector_Plan(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	acme, _, err := store.Companies().Upsert(ctx, &models.CompanyRecord{CompanyName: "Acme Ltd", CompanyNumber: "123"})
	require.NoError(t, err)
	holdco, err := store.Companies().InsertPlaceholder(ctx, "Holdco Ltd", models.EntityHints{})
	require.NoError(t, err)
	jane, err := store.Individuals().Insert(ctx, "Jane Doe")
	require.NoError(t, err)

	p := &Projector{
		companies:   store.Companies(),
		individuals: store.Individuals(),
		logger:      ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
	}

	result := &models.ApplyResult{
		CompanyID:     acme,
		CompanyName:   "Acme Ltd",
		CompanyNumber: "123",
		Record:        &models.CompanyRecord{GeneralDetails: &models.GeneralDetails{EntityStatus: "Registered"}},
		Relationships: &models.RelationshipSet{
			Directors: []models.DirectorRelationship{
				{Relationship: models.NewRelationship(acme, models.PartyIndividual, jane, models.Party{AppointedDate: "2020-01-01"}, false)},
			},
			Shareholders: []models.ShareholderRelationship{
				{Relationship: models.NewRelationship(acme, models.PartyIndividual, jane, models.Party{}, false), NumberOfShares: 10},
				{Relationship: models.NewRelationship(acme, models.PartyEntity, holdco, models.Party{}, false), NumberOfShares: 90},
			},
		},
	}

	statements, err := p.plan(ctx, result)
	require.NoError(t, err)
	// company upsert, edge delete, then one batch per (type, label) present
	require.Len(t, statements, 5)

	props := statements[0].params["props"].(map[string]any)
	assert.Equal(t, "Registered", props["status"])

	assert.Contains(t, statements[2].cypher, "MERGE (p:Individual")
	assert.Contains(t, statements[2].cypher, "[r:DIRECTOR]")
	links := statements[2].params["links"].([]map[string]any)
	require.Len(t, links, 1)
	assert.Equal(t, "Jane Doe", links[0]["party_name"])
	assert.Equal(t, "2020-01-01", links[0]["appointed_date"])

	assert.Contains(t, statements[4].cypher, "MERGE (p:Company")
	assert.Contains(t, statements[4].cypher, "[r:SHAREHOLDER]")
	links = statements[4].params["links"].([]map[string]any)
	require.Len(t, links, 1)
	assert.Equal(t, "Holdco Ltd", links[0]["party_name"])
	assert.Equal(t, int64(90), links[0]["number_of_shares"])
}

func TestProjector_PlanFailsOnUnknownParty(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := &Projector{
		companies:   store.Companies(),
		individuals: store.Individuals(),
		logger:      ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
	}

	_, err := p.plan(ctx, &models.ApplyResult{
		CompanyID: 1,
		Relationships: &models.RelationshipSet{
			Directors: []models.DirectorRelationship{
				{Relationship: models.NewRelationship(1, models.PartyIndividual, 42, models.Party{}, false)},
			},
		},
	})
	assert.Error(t, err)
}
