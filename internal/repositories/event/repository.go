package event

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

const dateLayout = "2006-01-02"

var columns = []string{
	"id", "partnership_id", "title", "type", "start_date", "end_date",
	"created_by", "created_at", "updated_at", "deleted_at",
}

// Repository handles calendar event persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new event repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new calendar event
func (r *Repository) Create(ctx context.Context, partnershipID string, createdBy string, req models.CreateEventRequest) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Create",
		"partnership_id": partnershipID,
		"type":           req.Type,
	})

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
	}
	startDate = startDate.UTC()

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		}
		parsed = parsed.UTC()
		if parsed.Before(startDate) {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "end_date is before start_date")
		}
		endDate = &parsed
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	event := &models.Event{
		ID:            id,
		PartnershipID: partnershipID,
		Title:         req.Title,
		Type:          req.Type,
		StartDate:     startDate,
		EndDate:       endDate,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("events")
	sb.Cols("id", "partnership_id", "title", "type", "start_date", "end_date", "created_by", "created_at", "updated_at")
	sb.Values(event.ID, event.PartnershipID, event.Title, event.Type, event.StartDate, event.EndDate, event.CreatedBy, event.CreatedAt, event.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create event")
	}

	log.WithFields(map[string]any{"id": id}).Info("Created event")
	return event, nil
}

// Get retrieves an event by ID
func (r *Repository) Get(ctx context.Context, partnershipID string, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("events")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}

	return &event, nil
}

// GetByID retrieves an event by bare ID, without partnership scoping.
// Callers resolving an event from a URL must check membership against the
// returned PartnershipID before acting on it.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("events")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}

	return &event, nil
}

// List retrieves events for a partnership, optionally bounded to a date window
func (r *Repository) List(ctx context.Context, partnershipID string, from, to *time.Time, page, pageSize int) ([]models.Event, int, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Count total
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("events")
	countWhere := []string{
		countSb.Equal("partnership_id", partnershipID),
		countSb.IsNull("deleted_at"),
	}
	if from != nil {
		countWhere = append(countWhere, countSb.GreaterEqualThan("COALESCE(end_date, start_date)", *from))
	}
	if to != nil {
		countWhere = append(countWhere, countSb.LessEqualThan("start_date", *to))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count events")
	}

	// Fetch page
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("events")
	where := []string{
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	}
	if from != nil {
		where = append(where, sb.GreaterEqualThan("COALESCE(end_date, start_date)", *from))
	}
	if to != nil {
		where = append(where, sb.LessEqualThan("start_date", *to))
	}
	sb.Where(where...)
	sb.OrderBy("start_date ASC", "created_at ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}

	return events, totalCount, nil
}

// ListOverriding retrieves vacation and holiday events overlapping the window.
// These are the candidates for custody override resolution; single-day events
// (null end_date) cover only their start date.
func (r *Repository) ListOverriding(ctx context.Context, partnershipID string, from, to time.Time) ([]models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.ListOverriding")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("events")
	sb.Where(
		sb.Equal("partnership_id", partnershipID),
		sb.In("type", models.EventTypeVacation, models.EventTypeHoliday),
		sb.LessEqualThan("start_date", to),
		sb.GreaterEqualThan("COALESCE(end_date, start_date)", from),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list overriding events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list overriding events")
	}

	return events, nil
}

// Update updates a calendar event
func (r *Repository) Update(ctx context.Context, partnershipID string, id string, req models.UpdateEventRequest) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, partnershipID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Type != nil {
		existing.Type = *req.Type
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		}
		startDate = startDate.UTC()
		existing.StartDate = startDate
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			existing.EndDate = nil
		} else {
			endDate, err := time.Parse(dateLayout, *req.EndDate)
			if err != nil {
				return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			}
			endDate = endDate.UTC()
			existing.EndDate = &endDate
		}
	}
	if existing.EndDate != nil && existing.EndDate.Before(existing.StartDate) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "end_date is before start_date")
	}
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("events")
	sb.Set(
		sb.Assign("title", existing.Title),
		sb.Assign("type", existing.Type),
		sb.Assign("start_date", existing.StartDate),
		sb.Assign("end_date", existing.EndDate),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event")
	}

	return existing, nil
}

// Delete soft deletes a calendar event
func (r *Repository) Delete(ctx context.Context, partnershipID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("events")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete event")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted event")
	return nil
}
