package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/fefejiro/peacepad/pkg/kafka"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// Emitter publishes lifecycle events and tone jobs to Kafka. Messages are
// keyed by partnership ID so all events for one partnership stay ordered on
// the same partition.
type Emitter struct {
	producer    *kafka.Producer
	logger      ectologger.Logger
	eventsTopic string
	toneTopic   string
}

// NewEmitter creates a new Emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger, eventsTopic, toneTopic string) *Emitter {
	return &Emitter{
		producer:    producer,
		logger:      logger,
		eventsTopic: eventsTopic,
		toneTopic:   toneTopic,
	}
}

// EmitExpenseCreated publishes an expense.created event
func (e *Emitter) EmitExpenseCreated(ctx context.Context, expense *models.Expense) error {
	event, err := NewLifecycleEvent(ExpenseCreated, expense.PartnershipID, expense.ID, "expense", expense.PaidBy, expense)
	if err != nil {
		return err
	}
	return e.emit(ctx, event)
}

// EmitSettlementInitiated publishes a settlement.initiated event
func (e *Emitter) EmitSettlementInitiated(ctx context.Context, settlement *models.Settlement) error {
	event, err := NewLifecycleEvent(SettlementInitiated, settlement.PartnershipID, settlement.ID, "settlement", settlement.PayerID, settlement)
	if err != nil {
		return err
	}
	return e.emit(ctx, event)
}

// EmitSettlementConfirmed publishes a settlement.confirmed event
func (e *Emitter) EmitSettlementConfirmed(ctx context.Context, settlement *models.Settlement) error {
	event, err := NewLifecycleEvent(SettlementConfirmed, settlement.PartnershipID, settlement.ID, "settlement", settlement.ReceiverID, settlement)
	if err != nil {
		return err
	}
	return e.emit(ctx, event)
}

// EmitSettlementDisputed publishes a settlement.disputed event
func (e *Emitter) EmitSettlementDisputed(ctx context.Context, settlement *models.Settlement) error {
	event, err := NewLifecycleEvent(SettlementDisputed, settlement.PartnershipID, settlement.ID, "settlement", settlement.ReceiverID, settlement)
	if err != nil {
		return err
	}
	return e.emit(ctx, event)
}

// EmitMessageCreated publishes a message.created event
func (e *Emitter) EmitMessageCreated(ctx context.Context, message *models.Message) error {
	event, err := NewLifecycleEvent(MessageCreated, message.PartnershipID, message.ID, "message", message.SenderID, message)
	if err != nil {
		return err
	}
	return e.emit(ctx, event)
}

// EnqueueToneJob publishes a tone analysis job for a message
func (e *Emitter) EnqueueToneJob(ctx context.Context, message *models.Message) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EnqueueToneJob")
	defer span.End()

	job := &ToneJob{
		MessageID:     message.ID,
		PartnershipID: message.PartnershipID,
		AuthorID:      message.SenderID,
		Content:       message.Content,
		EnqueuedAt:    message.CreatedAt,
	}

	data, err := job.ToJSON()
	if err != nil {
		return err
	}

	headers := kafka.MessageHeaders{
		PartnershipID: message.PartnershipID,
	}

	return e.producer.PublishToTopic(ctx, e.toneTopic, message.PartnershipID, headers, data)
}

func (e *Emitter) emit(ctx context.Context, event *LifecycleEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	headers := kafka.MessageHeaders{
		EventType:     event.EventType,
		PartnershipID: event.PartnershipID,
	}

	if err := e.producer.PublishToTopic(ctx, e.eventsTopic, event.PartnershipID, headers, data); err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":     event.EventType,
		"entity_id":      event.EntityID,
		"partnership_id": event.PartnershipID,
	}).Debug("Published lifecycle event")

	return nil
}
