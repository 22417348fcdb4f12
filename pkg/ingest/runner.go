// Package ingest drives record ingestion: it opens a session, applies records
// one at a time, records failures and closes the session.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/appctx"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

var ErrNoSession = errors.New("ingest session not started")

type Applier interface {
	ApplyIfChanged(ctx context.Context, record *models.CompanyRecord) (*models.ApplyResult, error)
}

type SessionStore interface {
	Start(ctx context.Context) (*models.Session, error)
	End(ctx context.Context, id int64, status models.SessionStatus, itemsProcessed int) error
	RecordFailedItem(ctx context.Context, sessionID int64, companyNumber, message string) (*models.FailedItem, error)
}

type Normalizer interface {
	Normalize(record *models.CompanyRecord) *models.CompanyRecord
}

// Locker serializes work on one key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl, timeout time.Duration, fn func() error) error
}

// Source yields raw JSON records. It returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

type Options struct {
	Locker      Locker
	LockTTL     time.Duration
	LockTimeout time.Duration
}

// Summary counts the outcomes of one session. Processed is the number of
// items stored or confirmed unchanged; failed items are counted apart.
type Summary struct {
	SessionID int64                `json:"session_id"`
	Status    models.SessionStatus `json:"status"`
	Processed int                  `json:"processed"`
	Applied   int                  `json:"applied"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
}

// Runner is single-writer: Process must not be called concurrently.
type Runner struct {
	applier    Applier
	sessions   SessionStore
	normalizer Normalizer
	opts       Options
	logger     ectologger.Logger

	mu      sync.Mutex
	session *models.Session
	summary Summary
}

func NewRunner(applier Applier, sessions SessionStore, normalizer Normalizer, opts Options, logger ectologger.Logger) *Runner {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Second
	}
	return &Runner{
		applier:    applier,
		sessions:   sessions,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
	}
}

// Start opens a new session.
func (r *Runner) Start(ctx context.Context) (*models.Session, error) {
	session, err := r.sessions.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	r.mu.Lock()
	r.session = session
	r.summary = Summary{SessionID: session.ID, Status: models.SessionInProgress}
	r.mu.Unlock()

	r.logger.WithContext(ctx).WithField("session_id", session.ID).Info("Ingest session started")
	return session, nil
}

// ProcessRaw decodes and processes one JSON record. Undecodable input is
// recorded as a failed item.
func (r *Runner) ProcessRaw(ctx context.Context, data []byte) (*models.ApplyResult, error) {
	var record models.CompanyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return r.fail(ctx, "", time.Now(), fmt.Errorf("decode record: %w", err))
	}
	return r.Process(ctx, &record)
}

// Process applies one record. Item failures are recorded against the session
// and reported with the failed outcome; the returned error is only set when
// the failure itself could not be recorded.
func (r *Runner) Process(ctx context.Context, record *models.CompanyRecord) (*models.ApplyResult, error) {
	start := time.Now()

	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return nil, ErrNoSession
	}
	ctx = appctx.SetSessionID(ctx, session.ID)

	if r.normalizer != nil {
		record = r.normalizer.Normalize(record)
	}

	var (
		result *models.ApplyResult
		err    error
	)
	apply := func() error {
		result, err = r.applier.ApplyIfChanged(ctx, record)
		return nil
	}
	if r.opts.Locker != nil && record != nil && record.CompanyNumber != "" {
		if lockErr := r.opts.Locker.WithLock(ctx, "company:"+record.CompanyNumber, r.opts.LockTTL, r.opts.LockTimeout, apply); lockErr != nil {
			err = fmt.Errorf("lock company %s: %w", record.CompanyNumber, lockErr)
		}
	} else {
		_ = apply()
	}

	if err != nil {
		number := ""
		if record != nil {
			number = record.CompanyNumber
		}
		return r.fail(ctx, number, start, err)
	}

	r.mu.Lock()
	r.summary.Processed++
	switch result.Outcome {
	case models.OutcomeApplied:
		r.summary.Applied++
	case models.OutcomeSkipped:
		r.summary.Skipped++
	}
	r.mu.Unlock()

	metrics.RecordItem(string(result.Outcome), time.Since(start).Seconds())
	return result, nil
}

func (r *Runner) fail(ctx context.Context, companyNumber string, start time.Time, cause error) (*models.ApplyResult, error) {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return nil, ErrNoSession
	}
	if companyNumber == "" {
		companyNumber = models.UnknownCompanyNumber
	}

	r.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{
		"session_id":     session.ID,
		"company_number": companyNumber,
	}).Warn("Failed to process record")

	if _, err := r.sessions.RecordFailedItem(ctx, session.ID, companyNumber, cause.Error()); err != nil {
		return nil, fmt.Errorf("record failed item: %w", err)
	}

	r.mu.Lock()
	r.summary.Failed++
	r.mu.Unlock()

	metrics.RecordItem(string(models.OutcomeFailed), time.Since(start).Seconds())
	return &models.ApplyResult{
		Outcome:       models.OutcomeFailed,
		CompanyNumber: companyNumber,
		Error:         cause.Error(),
	}, nil
}

// Finish closes the session with status and returns its summary. A session
// that recorded any failed item ends failed.
func (r *Runner) Finish(ctx context.Context, status models.SessionStatus) (Summary, error) {
	r.mu.Lock()
	session := r.session
	summary := r.summary
	r.session = nil
	r.mu.Unlock()
	if session == nil {
		return Summary{}, ErrNoSession
	}

	if summary.Failed > 0 {
		status = models.SessionFailed
	}
	summary.Status = status
	if err := r.sessions.End(ctx, session.ID, status, summary.Processed); err != nil {
		return summary, fmt.Errorf("end session: %w", err)
	}
	metrics.SessionsTotal.WithLabelValues(string(status)).Inc()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": summary.SessionID,
		"status":     status,
		"processed":  summary.Processed,
		"applied":    summary.Applied,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	}).Info("Ingest session finished")
	return summary, nil
}

// Summary returns the counters of the open session.
func (r *Runner) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Run ingests every record of source in one session. Failed items do not
// stop the run, but the session ends failed when there were any, when the
// source breaks or when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, source Source) (Summary, error) {
	if _, err := r.Start(ctx); err != nil {
		return Summary{}, err
	}

	runErr := r.drain(ctx, source)

	status := models.SessionSuccess
	if runErr != nil {
		status = models.SessionFailed
	}
	// the session is closed even when ctx was cancelled
	summary, err := r.Finish(context.WithoutCancel(ctx), status)
	if runErr != nil {
		return summary, runErr
	}
	return summary, err
}

func (r *Runner) drain(ctx context.Context, source Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		if _, err := r.ProcessRaw(ctx, data); err != nil {
			return err
		}
	}
}
