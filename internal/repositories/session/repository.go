package session

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

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const (
	sessionsTable    = "ingest_sessions"
	failedItemsTable = "failed_items"
)

var (
	sessionColumns    = []string{"id", "started_at", "ended_at", "items_processed", "status"}
	failedItemColumns = []string{"id", "session_id", "company_number", "message", "created_at"}
)

// Repository stores ingestion session telemetry
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new session repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Start opens a session in progress.
func (r *Repository) Start(ctx context.Context) (*models.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Start")
	defer span.End()

	session := &models.Session{
		StartedAt: time.Now().UTC(),
		Status:    models.SessionInProgress,
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(sessionsTable)
	ib.Cols("started_at", "items_processed", "status")
	ib.Values(session.StartedAt, 0, session.Status)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&session.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to start session")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start session")
	}
	return session, nil
}

// End closes a session with its final status and item count.
func (r *Repository) End(ctx context.Context, id int64, status models.SessionStatus, itemsProcessed int) error {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.End")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(sessionsTable)
	ub.Set(
		ub.Assign("ended_at", time.Now().UTC()),
		ub.Assign("status", status),
		ub.Assign("items_processed", itemsProcessed),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("session_id", id).Error("Failed to end session")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to end session")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %d not found", id))
	}
	return nil
}

// RecordFailedItem attaches a failure to a session.
func (r *Repository) RecordFailedItem(ctx context.Context, sessionID int64, companyNumber, message string) (*models.FailedItem, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.RecordFailedItem")
	defer span.End()

	if companyNumber == "" {
		companyNumber = models.UnknownCompanyNumber
	}
	item := &models.FailedItem{
		SessionID:     sessionID,
		CompanyNumber: companyNumber,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(failedItemsTable)
	ib.Cols(failedItemColumns[1:]...)
	ib.Values(item.SessionID, item.CompanyNumber, item.Message, item.CreatedAt)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&item.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"session_id":     sessionID,
			"company_number": companyNumber,
		}).Error("Failed to record failed item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record failed item")
	}
	return item, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sessionColumns...).From(sessionsTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var session models.Session
	if err := r.db.Querier(ctx).GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get session")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session")
	}
	return &session, nil
}

// List returns the most recent sessions first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sessionColumns...).From(sessionsTable).OrderBy("started_at DESC", "id DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	sessions := []models.Session{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &sessions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sessions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}
	return sessions, nil
}

func (r *Repository) ListFailedItems(ctx context.Context, sessionID int64) ([]models.FailedItem, error) {
	ctx, span := tracing.StartSpan(ctx, "session.Repository.ListFailedItems")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(failedItemColumns...).From(failedItemsTable).Where(sb.Equal("session_id", sessionID)).OrderBy("id")

	query, args := sb.Build()
	items := []models.FailedItem{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("session_id", sessionID).Error("Failed to list failed items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list failed items")
	}
	return items, nil
}
