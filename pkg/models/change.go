package models

import (
	"time"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
)

// ChangeRecord is one append-only audit entry. OldPayload is nil for the
// first accepted snapshot of a company.
type ChangeRecord struct {
	ID            int64                          `db:"id" json:"id"`
	CompanyNumber string                         `db:"company_number" json:"company_number"`
	OldPayload    database.JSONB[*CompanyRecord] `db:"old_payload" json:"old_payload"`
	NewPayload    database.JSONB[*CompanyRecord] `db:"new_payload" json:"new_payload"`
	CreatedAt     time.Time                      `db:"created_at" json:"created_at"`
}

// ChangeFilter narrows a change history listing. Zero values are unbounded.
type ChangeFilter struct {
	CompanyNumber string
	Since         time.Time
	Until         time.Time
	Limit         int
}

type ApplyOutcome string

const (
	OutcomeSkipped ApplyOutcome = "skipped"
	OutcomeApplied ApplyOutcome = "applied"
	OutcomeFailed  ApplyOutcome = "failed"
)

// ApplyResult describes what ApplyIfChanged did with a record.
type ApplyResult struct {
	Outcome       ApplyOutcome     `json:"outcome"`
	CompanyNumber string           `json:"company_number"`
	CompanyID     int64            `json:"company_id,omitempty"`
	CompanyName   string           `json:"company_name"`
	Created       bool             `json:"created"`
	Digest        string           `json:"digest"`
	Change        *ChangeRecord    `json:"change,omitempty"`
	Relationships *RelationshipSet `json:"relationships,omitempty"`
	Error         string           `json:"error,omitempty"`
	Record        *CompanyRecord   `json:"-"`
}
