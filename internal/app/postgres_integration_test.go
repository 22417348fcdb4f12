//go:build integration

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/testutil"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graph"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/ingest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func acmeRecord(status string) *models.CompanyRecord {
	return &models.CompanyRecord{
		CompanyName:    "Acme Ltd",
		CompanyNumber:  "123",
		GeneralDetails: &models.GeneralDetails{EntityStatus: status, RegistrationDate: "2019-05-01"},
		Directors:      &models.Parties{Current: []models.Party{{Name: "Jane Doe"}}},
		Shareholders: &models.Shareholders{Current: []models.Party{
			{Name: "Jane Doe"},
			{EntityName: "Holdco Ltd", EntityNumber: "456"},
		}},
		Shares: []models.ShareAllocation{
			{IndividualName: "Jane Doe", NumberOfShares: 40},
			{EntityName: "Holdco Ltd", NumberOfShares: 60},
		},
	}
}

func TestPostgres_AcmeScenario(t *testing.T) {
	ctx := context.Background()
	pg := testutil.NewPostgres(t)
	logger := testutil.NewLogger()
	stores := PostgresStores(pg.DB, logger)
	services := NewServices(testConfig(), stores, Extras{}, logger)

	first, err := services.Processor.ApplyIfChanged(ctx, acmeRecord(models.StatusRegistered))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, first.Outcome)
	assert.True(t, first.Created)

	again, err := services.Processor.ApplyIfChanged(ctx, acmeRecord(models.StatusRegistered))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, again.Outcome)

	changed, err := services.Processor.ApplyIfChanged(ctx, acmeRecord("Removed"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, changed.Outcome)
	assert.False(t, changed.Created)
	assert.Equal(t, first.CompanyID, changed.CompanyID)

	changes, err := services.Explorer.Changes(ctx, first.CompanyID, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "Removed", changes[0].NewPayload.Data.Status())
	assert.Equal(t, models.StatusRegistered, changes[0].OldPayload.Data.Status())
	assert.Nil(t, changes[1].OldPayload.Data)

	stats, err := services.Explorer.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{Companies: 2, Individuals: 1, Directors: 1, Shareholders: 2}, stats)

	g, err := services.Explorer.BuildGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	sum := 0.0
	for _, e := range g.Edges {
		if e.Relationship == graph.EdgeShareholder {
			require.NotNil(t, e.Weight)
			sum += *e.Weight
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	ego, err := services.Explorer.Extract(ctx, graph.EntityNodeID(first.CompanyID), 1)
	require.NoError(t, err)
	assert.Len(t, ego.Nodes, 3)

	_, err = services.Explorer.Extract(ctx, "e-99999", 1)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestPostgres_AmbiguousPartyRollsBack(t *testing.T) {
	ctx := context.Background()
	pg := testutil.NewPostgres(t)
	logger := testutil.NewLogger()
	services := NewServices(testConfig(), PostgresStores(pg.DB, logger), Extras{}, logger)

	record := acmeRecord(models.StatusRegistered)
	record.Directors.Current = append(record.Directors.Current, models.Party{Address: "Port Vila"})

	_, err := services.Processor.ApplyIfChanged(ctx, record)
	require.ErrorIs(t, err, models.ErrAmbiguousParty)

	stats, err := services.Explorer.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{}, stats)
}

func TestPostgres_IngestSession(t *testing.T) {
	ctx := context.Background()
	pg := testutil.NewPostgres(t)
	logger := testutil.NewLogger()
	stores := PostgresStores(pg.DB, logger)
	services := NewServices(testConfig(), stores, Extras{}, logger)

	summary, err := services.Runner.Run(ctx, ingest.NewSliceSource(
		[]byte(`{"company_name":"Acme Ltd","company_number":"123"}`),
		[]byte(`{"company_name":"No Number Ltd"}`),
	))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.Failed)

	session, err := stores.Sessions.Get(ctx, summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, session.Status)
	assert.Equal(t, 1, session.ItemsProcessed)
	require.NotNil(t, session.EndedAt)

	failed, err := stores.Sessions.ListFailedItems(ctx, summary.SessionID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.UnknownCompanyNumber, failed[0].CompanyNumber)
}
