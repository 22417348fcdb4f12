package models

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSuccess    SessionStatus = "success"
	SessionFailed     SessionStatus = "failed"
)

// Session is the bookkeeping row of one ingestion run.
type Session struct {
	ID             int64         `db:"id" json:"id"`
	StartedAt      time.Time     `db:"started_at" json:"started_at"`
	EndedAt        *time.Time    `db:"ended_at" json:"ended_at,omitempty"`
	ItemsProcessed int           `db:"items_processed" json:"items_processed"`
	Status         SessionStatus `db:"status" json:"status"`
}

// UnknownCompanyNumber is recorded for failed items that had no number.
const UnknownCompanyNumber = "unknown"

type FailedItem struct {
	ID            int64     `db:"id" json:"id"`
	SessionID     int64     `db:"session_id" json:"session_id"`
	CompanyNumber string    `db:"company_number" json:"company_number"`
	Message       string    `db:"message" json:"message"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
