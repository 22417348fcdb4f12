package changerecord

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const table = "change_records"

var columns = []string{"id", "company_number", "old_payload", "new_payload", "created_at"}

// Repository is the append-only history of accepted company snapshots.
// There is deliberately no update or delete.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new change record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Latest returns the most recent change of a company, or nil when none exists.
func (r *Repository) Latest(ctx context.Context, companyNumber string) (*models.ChangeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "changerecord.Repository.Latest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...).From(table)
	sb.Where(sb.Equal("company_number", companyNumber))
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var change models.ChangeRecord
	if err := r.db.Querier(ctx).GetContext(ctx, &change, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("company_number", companyNumber).Error("Failed to get latest change")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest change")
	}
	return &change, nil
}

// Append records a new snapshot. old is nil for the first snapshot of a company.
func (r *Repository) Append(ctx context.Context, companyNumber string, old, new *models.CompanyRecord) (*models.ChangeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "changerecord.Repository.Append")
	defer span.End()

	change := &models.ChangeRecord{
		CompanyNumber: companyNumber,
		OldPayload:    database.NewJSONB(old),
		NewPayload:    database.NewJSONB(new),
		CreatedAt:     time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns[1:]...)
	ib.Values(change.CompanyNumber, change.OldPayload, change.NewPayload, change.CreatedAt)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&change.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_number", companyNumber).Error("Failed to append change")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record change")
	}
	return change, nil
}

// List returns changes newest first.
func (r *Repository) List(ctx context.Context, filter models.ChangeFilter) ([]models.ChangeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "changerecord.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...).From(table)
	if filter.CompanyNumber != "" {
		sb.Where(sb.Equal("company_number", filter.CompanyNumber))
	}
	if !filter.Since.IsZero() {
		sb.Where(sb.GreaterEqualThan("created_at", filter.Since))
	}
	if !filter.Until.IsZero() {
		sb.Where(sb.LessThan("created_at", filter.Until))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	changes := []models.ChangeRecord{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &changes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list changes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list changes")
	}
	return changes, nil
}
