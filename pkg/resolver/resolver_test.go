package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/memstore"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func newResolver(store *memstore.Store) *NameResolver {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewNameResolver(store.Individuals(), store.Companies(), logger)
}

func TestResolveIndividual_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newResolver(store)

	first, err := r.ResolveIndividual(ctx, "Jane Doe")
	require.NoError(t, err)
	second, err := r.ResolveIndividual(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count, _ := store.Individuals().Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestResolveIndividual_DistinctNames(t *testing.T) {
	ctx := context.Background()
	r := newResolver(memstore.New())

	a, err := r.ResolveIndividual(ctx, "Jane Doe")
	require.NoError(t, err)
	b, err := r.ResolveIndividual(ctx, "JANE DOE")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveEntity_CreatesPlaceholderWithHints(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newResolver(store)

	id, err := r.ResolveEntity(ctx, "Holdco Ltd", models.EntityHints{CompanyNumber: "555", EntityType: "Overseas"})
	require.NoError(t, err)

	company, err := store.Companies().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Holdco Ltd", company.Name)
	require.NotNil(t, company.CompanyNumber)
	assert.Equal(t, "555", *company.CompanyNumber)
	require.NotNil(t, company.EntityType)
	assert.Equal(t, "Overseas", *company.EntityType)
	assert.Nil(t, company.Status)
	assert.Equal(t, int64(0), company.TotalShares)

	again, err := r.ResolveEntity(ctx, "Holdco Ltd", models.EntityHints{CompanyNumber: "999"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	company, _ = store.Companies().Get(ctx, id)
	assert.Equal(t, "555", *company.CompanyNumber)
}

func TestResolveEntity_ReusesScrapedCompany(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newResolver(store)

	id, _, err := store.Companies().Upsert(ctx, &models.CompanyRecord{CompanyName: "Acme Ltd", CompanyNumber: "1"})
	require.NoError(t, err)

	resolved, err := r.ResolveEntity(ctx, "Acme Ltd", models.EntityHints{})
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestResolve_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newResolver(store)
	boom := errors.New("connection reset")

	store.FailOn("individuals.Insert", boom)
	_, err := r.ResolveIndividual(ctx, "Jane Doe")
	assert.ErrorIs(t, err, boom)

	store.FailOn("companies.FindIDByName", boom)
	_, err = r.ResolveEntity(ctx, "Holdco Ltd", models.EntityHints{})
	assert.ErrorIs(t, err, boom)
}
