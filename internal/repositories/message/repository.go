package message

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var columns = []string{
	"id", "partnership_id", "sender_id", "content", "tone", "tone_confidence",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles message persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new message repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new message. Tone fields start null and are filled in by
// the tone worker.
func (r *Repository) Create(ctx context.Context, partnershipID string, senderID string, req models.CreateMessageRequest) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Create",
		"partnership_id": partnershipID,
		"sender_id":      senderID,
	})

	id := uuid.New().String()
	now := time.Now().UTC()

	message := &models.Message{
		ID:            id,
		PartnershipID: partnershipID,
		SenderID:      senderID,
		Content:       req.Content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("messages")
	sb.Cols("id", "partnership_id", "sender_id", "content", "created_at", "updated_at")
	sb.Values(message.ID, message.PartnershipID, message.SenderID, message.Content, message.CreatedAt, message.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create message")
	}

	log.WithFields(map[string]any{"id": id}).Info("Created message")
	return message, nil
}

// Get retrieves a message by ID
func (r *Repository) Get(ctx context.Context, partnershipID string, id string) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("messages")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("message %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get message")
	}

	return &message, nil
}

// List retrieves messages for a partnership, newest first
func (r *Repository) List(ctx context.Context, partnershipID string, page, pageSize int) ([]models.Message, int, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	// Count total
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("messages")
	countSb.Where(
		countSb.Equal("partnership_id", partnershipID),
		countSb.IsNull("deleted_at"),
	)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count messages")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count messages")
	}

	// Fetch page
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("messages")
	sb.Where(
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list messages")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	return messages, totalCount, nil
}

// SetTone writes the tone analysis result onto a message
func (r *Repository) SetTone(ctx context.Context, partnershipID string, id string, tone string, confidence float64) error {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.SetTone")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("messages")
	sb.Set(
		sb.Assign("tone", tone),
		sb.Assign("tone_confidence", confidence),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set message tone")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set message tone")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("message %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "tone": tone}).Info("Set message tone")
	return nil
}
