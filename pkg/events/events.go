package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lifecycle event types published to the events topic
const (
	ExpenseCreated      = "expense.created"
	SettlementInitiated = "settlement.initiated"
	SettlementConfirmed = "settlement.confirmed"
	SettlementDisputed  = "settlement.disputed"
	MessageCreated      = "message.created"
)

// LifecycleEvent is the envelope for every event published to the events topic.
// Data carries the full entity as it was written, so consumers never need to
// read it back from the API.
type LifecycleEvent struct {
	EventType     string          `json:"event_type"`
	PartnershipID string          `json:"partnership_id"`
	EntityID      string          `json:"entity_id"`
	EntityType    string          `json:"entity_type"`
	ActorID       string          `json:"actor_id,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewLifecycleEvent builds a LifecycleEvent with the entity serialized into Data
func NewLifecycleEvent(eventType, partnershipID, entityID, entityType, actorID string, entity any) (*LifecycleEvent, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event data: %w", err)
	}

	return &LifecycleEvent{
		EventType:     eventType,
		PartnershipID: partnershipID,
		EntityID:      entityID,
		EntityType:    entityType,
		ActorID:       actorID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// ToJSON serializes the LifecycleEvent to JSON bytes
func (e *LifecycleEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseLifecycleEvent parses a raw Kafka message into a LifecycleEvent
func ParseLifecycleEvent(data []byte) (*LifecycleEvent, error) {
	var event LifecycleEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ToneJob is the payload published to the tone analysis topic. The tone worker
// consumes these, calls the tone service, and writes the result back onto the
// message row.
type ToneJob struct {
	MessageID     string    `json:"message_id"`
	PartnershipID string    `json:"partnership_id"`
	AuthorID      string    `json:"author_id"`
	Content       string    `json:"content"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// ToJSON serializes the ToneJob to JSON bytes
func (j *ToneJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ParseToneJob parses a raw Kafka message into a ToneJob
func ParseToneJob(data []byte) (*ToneJob, error) {
	var job ToneJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
