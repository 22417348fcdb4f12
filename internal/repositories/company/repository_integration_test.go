//go:build integration

package company

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/testutil"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func record(name, number, status, registered string) *models.CompanyRecord {
	return &models.CompanyRecord{
		CompanyName:    name,
		CompanyNumber:  number,
		GeneralDetails: &models.GeneralDetails{EntityStatus: status, RegistrationDate: registered},
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	pg := testutil.NewPostgres(t)
	repo := NewRepository(pg.DB, testutil.NewLogger())

	t.Run("upsert creates then updates by name", func(t *testing.T) {
		pg.Truncate(t)

		id, created, err := repo.Upsert(ctx, record("Acme Ltd", "123", models.StatusRegistered, "2019-05-01"))
		require.NoError(t, err)
		assert.True(t, created)

		again, created, err := repo.Upsert(ctx, record("Acme Ltd", "123", "Removed", "2019-05-01"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, id, again)

		company, err := repo.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, company.Status)
		assert.Equal(t, "Removed", *company.Status)

		touched, err := repo.TouchLastSeen(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), touched)
	})

	t.Run("placeholder is reused by a later scrape", func(t *testing.T) {
		pg.Truncate(t)

		placeholder, err := repo.InsertPlaceholder(ctx, "Holdco Ltd", models.EntityHints{CompanyNumber: "456"})
		require.NoError(t, err)

		id, found, err := repo.FindIDByName(ctx, "Holdco Ltd")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, placeholder, id)

		scraped, created, err := repo.Upsert(ctx, record("Holdco Ltd", "456", models.StatusRegistered, "2010-01-01"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, placeholder, scraped)

		_, found, err = repo.FindIDByName(ctx, "holdco ltd")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("search recent and random", func(t *testing.T) {
		pg.Truncate(t)

		acme, _, err := repo.Upsert(ctx, record("Acme Ltd", "123", models.StatusRegistered, "2019-05-01"))
		require.NoError(t, err)
		holdco, _, err := repo.Upsert(ctx, record("Holdco Ltd", "456", models.StatusRegistered, "2010-01-01"))
		require.NoError(t, err)
		_, _, err = repo.Upsert(ctx, record("Gone 100% Ltd", "789", "Removed", "2015-01-01"))
		require.NoError(t, err)

		results, err := repo.Search(ctx, "LTD", 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)

		results, err = repo.Search(ctx, "100%", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, models.KindCompany, results[0].Kind)

		newest, err := repo.Recent(ctx, models.RecentNewest, 10)
		require.NoError(t, err)
		require.Len(t, newest, 2)
		assert.Equal(t, acme, newest[0].ID)

		oldest, err := repo.Recent(ctx, models.RecentOldest, 1)
		require.NoError(t, err)
		require.Len(t, oldest, 1)
		assert.Equal(t, holdco, oldest[0].ID)

		_, err = repo.Recent(ctx, "largest", 1)
		assert.Equal(t, 400, httperror.GetStatusCode(err))

		id, err := repo.RandomID(ctx)
		require.NoError(t, err)
		assert.Positive(t, id)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("missing rows are 404", func(t *testing.T) {
		pg.Truncate(t)

		_, err := repo.Get(ctx, 42)
		assert.Equal(t, 404, httperror.GetStatusCode(err))

		_, err = repo.RandomID(ctx)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})
}
