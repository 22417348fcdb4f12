package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const table = "companies"

var columns = []string{
	"id", "name", "company_number", "company_type", "entity_type", "status",
	"registration_date", "annual_filing_month", "email_address",
	"office_address", "office_address_start", "postal_address", "postal_address_start",
	"total_shares", "created_at", "updated_at", "last_seen_at",
}

// Repository handles company persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new company repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindIDByName looks a company up by its exact name.
func (r *Repository) FindIDByName(ctx context.Context, name string) (int64, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.FindIDByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From(table).Where(sb.Equal("name", name))

	query, args := sb.Build()
	var id int64
	if err := r.db.Querier(ctx).GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to find company by name")
		return 0, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find company")
	}
	return id, true, nil
}

// InsertPlaceholder creates a minimal company known only from another
// company's director or shareholder list.
func (r *Repository) InsertPlaceholder(ctx context.Context, name string, hints models.EntityHints) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.InsertPlaceholder")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols("name", "company_number", "entity_type", "total_shares", "created_at", "updated_at", "last_seen_at")
	sb.Values(name, nullable(hints.CompanyNumber), nullable(hints.EntityType), 0, now, now, now)
	sb.Returning("id")

	query, args := sb.Build()
	var id int64
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to insert placeholder company")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create company")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "name": name}).Debug("Created placeholder company")
	return id, nil
}

// Upsert writes every attribute of the record to the company with the same
// name, creating it when missing. It reports whether a row was created.
func (r *Repository) Upsert(ctx context.Context, record *models.CompanyRecord) (int64, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Upsert")
	defer span.End()

	id, found, err := r.FindIDByName(ctx, record.CompanyName)
	if err != nil {
		return 0, false, err
	}

	now := time.Now().UTC()
	office, officeStart := record.OfficeAddress()
	postal, postalStart := record.PostalAddress()
	values := map[string]any{
		"company_number":       nullable(record.CompanyNumber),
		"company_type":         nullable(record.CompanyType),
		"entity_type":          nullable(record.EntityType()),
		"status":               nullable(record.Status()),
		"registration_date":    nullable(record.RegistrationDate()),
		"annual_filing_month":  nullable(record.AnnualFilingMonth()),
		"email_address":        nullable(record.EmailAddress()),
		"office_address":       nullable(office),
		"office_address_start": nullable(officeStart),
		"postal_address":       nullable(postal),
		"postal_address_start": nullable(postalStart),
		"total_shares":         record.ShareTotal(),
		"updated_at":           now,
		"last_seen_at":         now,
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"name":           record.CompanyName,
		"company_number": record.CompanyNumber,
	})

	if found {
		ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		ub.Update(table)
		assignments := make([]string, 0, len(values))
		for _, col := range mutableColumns {
			assignments = append(assignments, ub.Assign(col, values[col]))
		}
		ub.Set(assignments...)
		ub.Where(ub.Equal("id", id))

		query, args := ub.Build()
		if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).Error("Failed to update company")
			return 0, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update company")
		}
		log.WithField("id", id).Debug("Updated company")
		return id, false, nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	cols := append([]string{"name", "created_at"}, mutableColumns...)
	vals := []any{record.CompanyName, now}
	for _, col := range mutableColumns {
		vals = append(vals, values[col])
	}
	ib.Cols(cols...)
	ib.Values(vals...)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		log.WithError(err).Error("Failed to insert company")
		return 0, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create company")
	}
	log.WithField("id", id).Info("Created company")
	return id, true, nil
}

var mutableColumns = []string{
	"company_number", "company_type", "entity_type", "status",
	"registration_date", "annual_filing_month", "email_address",
	"office_address", "office_address_start", "postal_address", "postal_address_start",
	"total_shares", "updated_at", "last_seen_at",
}

// TouchLastSeen marks every company with the number as seen now.
func (r *Repository) TouchLastSeen(ctx context.Context, companyNumber string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.TouchLastSeen")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("last_seen_at", time.Now().UTC()))
	ub.Where(ub.Equal("company_number", companyNumber))

	query, args := ub.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_number", companyNumber).Error("Failed to update company last seen")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update company last seen")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// Get retrieves a company by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...).From(table).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var company models.Company
	if err := r.db.Querier(ctx).GetContext(ctx, &company, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("company %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}
	return &company, nil
}

// Search returns companies whose name contains text, case-insensitively.
func (r *Repository) Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Search")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", fmt.Sprintf("'%s' AS kind", models.KindCompany), "status")
	sb.From(table)
	sb.Where(sb.ILike("name", "%"+EscapeLike(text)+"%"))
	sb.OrderBy("name").Asc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	results := []models.SearchResult{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search companies")
	}
	return results, nil
}

// RandomID returns the id of an arbitrary stored company.
func (r *Repository) RandomID(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.RandomID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From(table).OrderBy("random()").Limit(1)

	query, args := sb.Build()
	var id int64
	if err := r.db.Querier(ctx).GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, httperror.NewHTTPError(http.StatusNotFound, "no companies stored")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to pick a random company")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to pick a random company")
	}
	return id, nil
}

// Recent lists registered companies by registration date, or all companies
// by last update.
func (r *Repository) Recent(ctx context.Context, kind models.RecentKind, limit int) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Recent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...).From(table)
	switch kind {
	case models.RecentNewest:
		sb.Where(sb.Equal("status", models.StatusRegistered), sb.IsNotNull("registration_date"))
		sb.OrderBy("registration_date DESC", "id DESC")
	case models.RecentOldest:
		sb.Where(sb.Equal("status", models.StatusRegistered), sb.IsNotNull("registration_date"))
		sb.OrderBy("registration_date ASC", "id ASC")
	case models.RecentUpdated:
		sb.OrderBy("updated_at DESC", "id DESC")
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown listing %q", kind)
	}
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	companies := []models.Company{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Error("Failed to list recent companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}
	return companies, nil
}

// ListNodes returns id, name and status of every company.
func (r *Repository) ListNodes(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListNodes")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "status").From(table).OrderBy("id")

	query, args := sb.Build()
	companies := []models.Company{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}
	return companies, nil
}

// Count returns the number of stored companies.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)

	query, args := sb.Build()
	var count int64
	if err := r.db.Querier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count companies")
	}
	return count, nil
}

// EscapeLike escapes LIKE wildcards so text matches literally.
func EscapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
