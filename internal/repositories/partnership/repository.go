package partnership

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
	"id", "user1_id", "user2_id", "custody_enabled", "custody_pattern",
	"custody_start_date", "custody_primary_parent", "created_at", "updated_at", "deleted_at",
}

// Repository handles partnership persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new partnership repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new partnership
func (r *Repository) Create(ctx context.Context, req models.CreatePartnershipRequest) (*models.Partnership, error) {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":   "Create",
		"user1_id": req.User1ID,
		"user2_id": req.User2ID,
	})

	if req.CustodyPattern != nil && !models.KnownPattern(*req.CustodyPattern) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown custody pattern %q", *req.CustodyPattern))
	}
	if req.CustodyPrimaryParent != nil && *req.CustodyPrimaryParent != models.ParentUser1 && *req.CustodyPrimaryParent != models.ParentUser2 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "custody_primary_parent must be user1 or user2")
	}

	startDate, err := parseDate(req.CustodyStartDate)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid custody_start_date, expected YYYY-MM-DD")
	}
	if req.CustodyEnabled && (req.CustodyPattern == nil || startDate == nil) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "custody_enabled requires custody_pattern and custody_start_date")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	partnership := &models.Partnership{
		ID:               id,
		User1ID:          req.User1ID,
		User2ID:          req.User2ID,
		CustodyEnabled:   req.CustodyEnabled,
		CustodyPattern:   req.CustodyPattern,
		CustodyStartDate: startDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.CustodyPrimaryParent != nil {
		partnership.CustodyPrimaryParent = *req.CustodyPrimaryParent
	} else {
		partnership.CustodyPrimaryParent = models.ParentUser1
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("partnerships")
	sb.Cols("id", "user1_id", "user2_id", "custody_enabled", "custody_pattern", "custody_start_date", "custody_primary_parent", "created_at", "updated_at")
	sb.Values(partnership.ID, partnership.User1ID, partnership.User2ID, partnership.CustodyEnabled, partnership.CustodyPattern, partnership.CustodyStartDate, partnership.CustodyPrimaryParent, partnership.CreatedAt, partnership.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create partnership")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create partnership")
	}

	log.WithFields(map[string]any{"id": id}).Info("Created partnership")
	return partnership, nil
}

// Get retrieves a partnership by ID without membership scoping. Intended for
// internal callers; request paths should use GetForUser.
func (r *Repository) Get(ctx context.Context, id string) (*models.Partnership, error) {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("partnerships")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var partnership models.Partnership
	if err := r.db.GetContext(ctx, &partnership, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("partnership %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get partnership")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get partnership")
	}

	return &partnership, nil
}

// GetForUser retrieves a partnership by ID, scoped to a member. Non-members
// get a 404 rather than a 403 so partnership IDs stay unguessable.
func (r *Repository) GetForUser(ctx context.Context, id string, userID string) (*models.Partnership, error) {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.GetForUser")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("partnerships")
	sb.Where(
		sb.Equal("id", id),
		sb.Or(sb.Equal("user1_id", userID), sb.Equal("user2_id", userID)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var partnership models.Partnership
	if err := r.db.GetContext(ctx, &partnership, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("partnership %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get partnership")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get partnership")
	}

	return &partnership, nil
}

// ListForUser retrieves all partnerships the user belongs to
func (r *Repository) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]models.Partnership, int, error) {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.ListForUser")
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
	countSb.From("partnerships")
	countSb.Where(
		countSb.Or(countSb.Equal("user1_id", userID), countSb.Equal("user2_id", userID)),
		countSb.IsNull("deleted_at"),
	)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count partnerships")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count partnerships")
	}

	// Fetch page
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("partnerships")
	sb.Where(
		sb.Or(sb.Equal("user1_id", userID), sb.Equal("user2_id", userID)),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var partnerships []models.Partnership
	if err := r.db.SelectContext(ctx, &partnerships, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list partnerships")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list partnerships")
	}

	return partnerships, totalCount, nil
}

// Update updates a partnership's custody configuration
func (r *Repository) Update(ctx context.Context, id string, userID string, req models.UpdatePartnershipRequest) (*models.Partnership, error) {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.Update")
	defer span.End()

	existing, err := r.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.CustodyPattern != nil && !models.KnownPattern(*req.CustodyPattern) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown custody pattern %q", *req.CustodyPattern))
	}
	if req.CustodyPrimaryParent != nil && *req.CustodyPrimaryParent != models.ParentUser1 && *req.CustodyPrimaryParent != models.ParentUser2 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "custody_primary_parent must be user1 or user2")
	}

	patternChanged := false

	if req.CustodyEnabled != nil {
		existing.CustodyEnabled = *req.CustodyEnabled
	}
	if req.CustodyPattern != nil {
		patternChanged = existing.CustodyPattern == nil || *existing.CustodyPattern != *req.CustodyPattern
		existing.CustodyPattern = req.CustodyPattern
	}
	if req.CustodyStartDate != nil {
		startDate, err := parseDate(req.CustodyStartDate)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid custody_start_date, expected YYYY-MM-DD")
		}
		patternChanged = patternChanged || existing.CustodyStartDate == nil || !existing.CustodyStartDate.Equal(*startDate)
		existing.CustodyStartDate = startDate
	}
	if req.CustodyPrimaryParent != nil {
		existing.CustodyPrimaryParent = *req.CustodyPrimaryParent
	}
	if existing.CustodyEnabled && (existing.CustodyPattern == nil || existing.CustodyStartDate == nil) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "custody_enabled requires custody_pattern and custody_start_date")
	}
	existing.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("partnerships")
	sb.Set(
		sb.Assign("custody_enabled", existing.CustodyEnabled),
		sb.Assign("custody_pattern", existing.CustodyPattern),
		sb.Assign("custody_start_date", existing.CustodyStartDate),
		sb.Assign("custody_primary_parent", existing.CustodyPrimaryParent),
		sb.Assign("updated_at", existing.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update partnership")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update partnership")
	}

	if patternChanged {
		// Pattern and anchor changes silently reshape every future computed
		// calendar, which tends to surprise users
		r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Warn("Custody configuration changed; computed calendar will shift")
	}

	return existing, nil
}

// Delete soft deletes a partnership
func (r *Repository) Delete(ctx context.Context, id string, userID string) error {
	ctx, span := tracing.StartSpan(ctx, "partnership.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("partnerships")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Or(sb.Equal("user1_id", userID), sb.Equal("user2_id", userID)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete partnership")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete partnership")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("partnership %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted partnership")
	return nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
