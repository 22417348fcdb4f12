// Package events publishes a company.changed event for every applied change.
package events

import (
	"context"
	"time"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

const CompanyChanged = "company.changed"

// CompanyChangedEvent is the message value on the events topic.
type CompanyChangedEvent struct {
	EventType     string    `json:"event_type"`
	CompanyID     int64     `json:"company_id"`
	CompanyNumber string    `json:"company_number"`
	CompanyName   string    `json:"company_name"`
	Created       bool      `json:"created"`
	ChangeID      int64     `json:"change_id,omitempty"`
	Digest        string    `json:"digest"`
	Directors     int       `json:"directors"`
	Shareholders  int       `json:"shareholders"`
	Timestamp     time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload any) error
}

type Emitter struct {
	publisher Publisher
	now       func() time.Time
}

func NewEmitter(publisher Publisher) *Emitter {
	return &Emitter{
		publisher: publisher,
		now:       time.Now,
	}
}

// OnApplied publishes the change keyed by company number.
func (e *Emitter) OnApplied(ctx context.Context, result *models.ApplyResult) error {
	return e.publisher.Publish(ctx, result.CompanyNumber, CompanyChanged, NewCompanyChangedEvent(result, e.now().UTC()))
}

func NewCompanyChangedEvent(result *models.ApplyResult, at time.Time) CompanyChangedEvent {
	event := CompanyChangedEvent{
		EventType:     CompanyChanged,
		CompanyID:     result.CompanyID,
		CompanyNumber: result.CompanyNumber,
		CompanyName:   result.CompanyName,
		Created:       result.Created,
		Digest:        result.Digest,
		Timestamp:     at,
	}
	if result.Change != nil {
		event.ChangeID = result.Change.ID
	}
	if result.Relationships != nil {
		event.Directors = len(result.Relationships.Directors)
		event.Shareholders = len(result.Relationships.Shareholders)
	}
	return event
}
