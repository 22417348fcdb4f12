// Package processor applies registry snapshots to the store. A snapshot whose
// digest matches the last accepted one only refreshes last_seen_at; anything
// else rewrites the company, its relationships and its change history in one
// transaction.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/digest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CompanyStore interface {
	Upsert(ctx context.Context, record *models.CompanyRecord) (int64, bool, error)
	TouchLastSeen(ctx context.Context, companyNumber string) (int64, error)
}

type ChangeStore interface {
	Latest(ctx context.Context, companyNumber string) (*models.ChangeRecord, error)
	Append(ctx context.Context, companyNumber string, old, new *models.CompanyRecord) (*models.ChangeRecord, error)
}

type Replacer interface {
	Replace(ctx context.Context, companyID int64, record *models.CompanyRecord) (*models.RelationshipSet, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Listener is notified after an applied change has been committed.
type Listener interface {
	OnApplied(ctx context.Context, result *models.ApplyResult) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, result *models.ApplyResult) error

func (f ListenerFunc) OnApplied(ctx context.Context, result *models.ApplyResult) error {
	return f(ctx, result)
}

type Processor struct {
	logger    ectologger.Logger
	companies CompanyStore
	changes   ChangeStore
	rebuilder Replacer
	tx        Transactor
	hasher    *digest.Hasher
	listeners []Listener
}

func NewProcessor(
	logger ectologger.Logger,
	companies CompanyStore,
	changes ChangeStore,
	rebuilder Replacer,
	tx Transactor,
	hasher *digest.Hasher,
) *Processor {
	if hasher == nil {
		hasher = digest.NewHasher(nil)
	}
	return &Processor{
		logger:    logger,
		companies: companies,
		changes:   changes,
		rebuilder: rebuilder,
		tx:        tx,
		hasher:    hasher,
	}
}

// AddListener registers l for post-commit notifications.
func (p *Processor) AddListener(l Listener) {
	p.listeners = append(p.listeners, l)
}

// ApplyIfChanged stores record unless it is identical to the last accepted
// snapshot of the same company number.
func (p *Processor) ApplyIfChanged(ctx context.Context, record *models.CompanyRecord) (*models.ApplyResult, error) {
	if err := p.validateRecord(record); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ApplyIfChanged", tracing.CompanyNumber(record.CompanyNumber))
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"company_number": record.CompanyNumber,
		"company_name":   record.CompanyName,
	})

	latest, err := p.changes.Latest(ctx, record.CompanyNumber)
	if err != nil {
		return nil, fmt.Errorf("load latest change: %w", err)
	}

	newDigest, err := p.hasher.Record(record)
	if err != nil {
		return nil, fmt.Errorf("digest record: %w", err)
	}

	var previous *models.CompanyRecord
	if latest != nil {
		previous = latest.NewPayload.GetValue()
		oldDigest, err := p.hasher.Record(previous)
		if err != nil {
			return nil, fmt.Errorf("digest previous record: %w", err)
		}
		if oldDigest == newDigest {
			if _, err := p.companies.TouchLastSeen(ctx, record.CompanyNumber); err != nil {
				return nil, fmt.Errorf("touch last seen: %w", err)
			}
			log.Debug("Record unchanged")
			return &models.ApplyResult{
				Outcome:       models.OutcomeSkipped,
				CompanyNumber: record.CompanyNumber,
				CompanyName:   record.CompanyName,
				Digest:        newDigest,
				Record:        record,
			}, nil
		}
	}

	result := &models.ApplyResult{
		Outcome:       models.OutcomeApplied,
		CompanyNumber: record.CompanyNumber,
		CompanyName:   record.CompanyName,
		Digest:        newDigest,
		Record:        record,
	}

	err = p.tx.WithTx(ctx, func(ctx context.Context) error {
		id, created, err := p.companies.Upsert(ctx, record)
		if err != nil {
			return fmt.Errorf("upsert company: %w", err)
		}
		result.CompanyID = id
		result.Created = created

		set, err := p.rebuilder.Replace(ctx, id, record)
		if err != nil {
			return fmt.Errorf("replace relationships: %w", err)
		}
		result.Relationships = set

		change, err := p.changes.Append(ctx, record.CompanyNumber, previous, record)
		if err != nil {
			return fmt.Errorf("append change: %w", err)
		}
		result.Change = change
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		log.WithError(err).Warn("Failed to apply record")
		return nil, err
	}

	log.WithFields(map[string]any{
		"company_id": result.CompanyID,
		"created":    result.Created,
	}).Info("Applied record")

	p.notify(ctx, result)
	return result, nil
}

func (p *Processor) notify(ctx context.Context, result *models.ApplyResult) {
	for i, l := range p.listeners {
		if err := l.OnApplied(ctx, result); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"listener":       i,
				"company_number": result.CompanyNumber,
			}).Warn("Change listener failed")
		}
	}
}

func (p *Processor) validateRecord(record *models.CompanyRecord) error {
	if record == nil {
		return fmt.Errorf("%w: empty record", models.ErrMissingKey)
	}
	if err := validate.Struct(record); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is required", models.ErrMissingKey, jsonName(verrs[0].Field()))
		}
		return fmt.Errorf("%w: %v", models.ErrMissingKey, err)
	}
	return nil
}

func jsonName(field string) string {
	switch field {
	case "CompanyNumber":
		return "company_number"
	case "CompanyName":
		return "company_name"
	}
	return field
}
