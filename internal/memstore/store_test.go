package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Individuals().Insert(ctx, "Kept")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := store.Individuals().Insert(ctx, "Discarded"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := store.Individuals().FindIDByName(ctx, "Discarded")
	require.NoError(t, err)
	assert.False(t, found)

	count, err := store.Individuals().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.WithTx(ctx, func(ctx context.Context) error {
		return store.WithTx(ctx, func(ctx context.Context) error {
			_, err := store.Individuals().Insert(ctx, "Inner")
			return err
		})
	})
	require.NoError(t, err)

	_, found, _ := store.Individuals().FindIDByName(ctx, "Inner")
	assert.True(t, found)
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")

	store.FailOn("shareholders.Insert", boom)
	err := store.Relationships().InsertShareholder(ctx, &models.ShareholderRelationship{})
	assert.ErrorIs(t, err, boom)

	store.FailOn("shareholders.Insert", nil)
	assert.NoError(t, store.Relationships().InsertShareholder(ctx, &models.ShareholderRelationship{}))
}

func TestCompanyStore_UpsertAndTouch(t *testing.T) {
	ctx := context.Background()
	companies := New().Companies()

	record := &models.CompanyRecord{CompanyName: "Acme", CompanyNumber: "123"}
	id, created, err := companies.Upsert(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := companies.Upsert(ctx, record)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	touched, err := companies.TouchLastSeen(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), touched)

	_, err = companies.Get(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestChangeStore_PayloadsAreDetached(t *testing.T) {
	ctx := context.Background()
	store := New()

	record := &models.CompanyRecord{
		CompanyName:    "Acme Ltd",
		CompanyNumber:  "123",
		GeneralDetails: &models.GeneralDetails{EntityStatus: "Registered"},
	}
	appended, err := store.Changes().Append(ctx, "123", nil, record)
	require.NoError(t, err)
	assert.Nil(t, appended.OldPayload.Data)

	record.GeneralDetails.EntityStatus = "Struck Off"
	appended.NewPayload.Data.CompanyName = "Renamed Ltd"

	latest, err := store.Changes().Latest(ctx, "123")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Registered", latest.NewPayload.Data.Status())
	assert.Equal(t, "Acme Ltd", latest.NewPayload.Data.CompanyName)

	latest.NewPayload.Data.GeneralDetails.EntityStatus = "Removed"
	changes, err := store.Changes().List(ctx, models.ChangeFilter{CompanyNumber: "123"})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "Registered", changes[0].NewPayload.Data.Status())
}

func TestWithTx_PartialWritesAreInvisibleOutside(t *testing.T) {
	ctx := context.Background()
	store := New()
	relationships := store.Relationships()

	individual := int64(7)
	require.NoError(t, relationships.InsertDirector(ctx, &models.DirectorRelationship{
		Relationship: models.Relationship{CompanyID: 1, IndividualID: &individual},
	}))

	var outside, inside *models.RelationshipSet
	err := store.WithTx(ctx, func(txCtx context.Context) error {
		if err := relationships.DeleteForCompany(txCtx, 1); err != nil {
			return err
		}

		var err error
		if inside, err = relationships.ListForCompany(txCtx, 1); err != nil {
			return err
		}
		outside, err = relationships.ListForCompany(ctx, 1)
		if err != nil {
			return err
		}

		return relationships.InsertDirector(txCtx, &models.DirectorRelationship{
			Relationship: models.Relationship{CompanyID: 1, IndividualID: &individual, Former: true},
		})
	})
	require.NoError(t, err)

	assert.Empty(t, inside.Directors)
	require.Len(t, outside.Directors, 1)
	assert.False(t, outside.Directors[0].Former)

	committed, err := relationships.ListForCompany(ctx, 1)
	require.NoError(t, err)
	require.Len(t, committed.Directors, 1)
	assert.True(t, committed.Directors[0].Former)
}

func TestWithTx_PanicDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := New()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(ctx context.Context) error {
			if _, err := store.Individuals().Insert(ctx, "Discarded"); err != nil {
				return err
			}
			panic("boom")
		})
	})

	_, found, err := store.Individuals().FindIDByName(ctx, "Discarded")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Individuals().Insert(ctx, "After")
	require.NoError(t, err)
}
