package individual

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/company"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const table = "individuals"

// Repository handles individual persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new individual repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindIDByName looks an individual up by exact name.
func (r *Repository) FindIDByName(ctx context.Context, name string) (int64, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.FindIDByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From(table).Where(sb.Equal("name", name))

	query, args := sb.Build()
	var id int64
	if err := r.db.Querier(ctx).GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to find individual by name")
		return 0, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find individual")
	}
	return id, true, nil
}

// Insert creates an individual with the given name
func (r *Repository) Insert(ctx context.Context, name string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.Insert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols("name", "created_at")
	sb.Values(name, time.Now().UTC())
	sb.Returning("id")

	query, args := sb.Build()
	var id int64
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to insert individual")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create individual")
	}
	return id, nil
}

// Get retrieves an individual by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Individual, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "created_at").From(table).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var individual models.Individual
	if err := r.db.Querier(ctx).GetContext(ctx, &individual, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("individual %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get individual")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get individual")
	}
	return &individual, nil
}

func (r *Repository) Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.Search")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", fmt.Sprintf("'%s' AS kind", models.KindIndividual), "NULL AS status")
	sb.From(table)
	sb.Where(sb.ILike("name", "%"+company.EscapeLike(text)+"%"))
	sb.OrderBy("name").Asc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	results := []models.SearchResult{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search individuals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search individuals")
	}
	return results, nil
}

// List returns every individual ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Individual, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "created_at").From(table).OrderBy("id")

	query, args := sb.Build()
	individuals := []models.Individual{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &individuals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list individuals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list individuals")
	}
	return individuals, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "individual.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)

	query, args := sb.Build()
	var count int64
	if err := r.db.Querier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count individuals")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count individuals")
	}
	return count, nil
}
