package app

import (
	"context"
	"fmt"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

// SessionReport is one ingestion session with the records it rejected.
type SessionReport struct {
	models.Session
	FailedItems []models.FailedItem `json:"failed_items"`
}

// SessionReports returns the most recent sessions, newest first.
func SessionReports(ctx context.Context, sessions SessionStore, limit int) ([]SessionReport, error) {
	list, err := sessions.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	reports := make([]SessionReport, 0, len(list))
	for _, session := range list {
		items, err := sessions.ListFailedItems(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("list failed items of session %d: %w", session.ID, err)
		}
		reports = append(reports, SessionReport{Session: session, FailedItems: items})
	}
	return reports, nil
}
