package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

type published struct {
	key, eventType string
	payload        any
}

type recordingPublisher struct {
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, key, eventType string, payload any) error {
	p.messages = append(p.messages, published{key, eventType, payload})
	return nil
}

func TestEmitter_OnApplied(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitter(publisher)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	emitter.now = func() time.Time { return at }

	err := emitter.OnApplied(context.Background(), &models.ApplyResult{
		Outcome:       models.OutcomeApplied,
		CompanyID:     4,
		CompanyNumber: "123",
		CompanyName:   "Acme Ltd",
		Created:       true,
		Digest:        "abc",
		Change:        &models.ChangeRecord{ID: 9},
		Relationships: &models.RelationshipSet{Directors: make([]models.DirectorRelationship, 2)},
	})
	require.NoError(t, err)
	require.Len(t, publisher.messages, 1)

	msg := publisher.messages[0]
	assert.Equal(t, "123", msg.key)
	assert.Equal(t, CompanyChanged, msg.eventType)
	assert.Equal(t, CompanyChangedEvent{
		EventType:     CompanyChanged,
		CompanyID:     4,
		CompanyNumber: "123",
		CompanyName:   "Acme Ltd",
		Created:       true,
		ChangeID:      9,
		Digest:        "abc",
		Directors:     2,
		Shareholders:  0,
		Timestamp:     at,
	}, msg.payload)
}
