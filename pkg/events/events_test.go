package events

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fefejiro/peacepad/pkg/models"
)

func TestNewLifecycleEvent(t *testing.T) {
	settlement := &models.Settlement{
		ID:            "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		ExpenseID:     "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		PartnershipID: "550e8400-e29b-41d4-a716-446655440000",
		PayerID:       "user-1",
		ReceiverID:    "user-2",
		Amount:        decimal.RequireFromString("42.50"),
		Method:        "venmo",
		Status:        models.SettlementStatusPending,
	}

	event, err := NewLifecycleEvent(SettlementInitiated, settlement.PartnershipID, settlement.ID, "settlement", settlement.PayerID, settlement)
	require.NoError(t, err)

	assert.Equal(t, "settlement.initiated", event.EventType)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", event.PartnershipID)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", event.EntityID)
	assert.Equal(t, "settlement", event.EntityType)
	assert.Equal(t, "user-1", event.ActorID)
	assert.False(t, event.Timestamp.IsZero())

	var data map[string]any
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "42.5", data["amount"])
	assert.Equal(t, "venmo", data["method"])
	assert.Equal(t, "pending", data["status"])
}

func TestParseLifecycleEvent(t *testing.T) {
	jsonData := `{
		"event_type": "expense.created",
		"partnership_id": "550e8400-e29b-41d4-a716-446655440000",
		"entity_id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		"entity_type": "expense",
		"actor_id": "user-1",
		"data": {"description": "School supplies", "amount": "120.00"},
		"timestamp": "2025-01-15T10:30:00Z"
	}`

	event, err := ParseLifecycleEvent([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, ExpenseCreated, event.EventType)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", event.PartnershipID)
	assert.Equal(t, "a1b2c3d4-e5f6-7890-abcd-ef1234567890", event.EntityID)
	assert.Equal(t, "expense", event.EntityType)
	assert.Equal(t, "user-1", event.ActorID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "School supplies", data["description"])
}

func TestParseToneJob(t *testing.T) {
	jsonData := `{
		"message_id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		"partnership_id": "550e8400-e29b-41d4-a716-446655440000",
		"author_id": "user-2",
		"content": "Can you pick up the kids on Friday?",
		"enqueued_at": "2025-01-15T10:30:00Z"
	}`

	job, err := ParseToneJob([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, "a1b2c3d4-e5f6-7890-abcd-ef1234567890", job.MessageID)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", job.PartnershipID)
	assert.Equal(t, "user-2", job.AuthorID)
	assert.Equal(t, "Can you pick up the kids on Friday?", job.Content)
}

func TestParseToneJobInvalidJSON(t *testing.T) {
	_, err := ParseToneJob([]byte("not json"))
	assert.Error(t, err)
}
