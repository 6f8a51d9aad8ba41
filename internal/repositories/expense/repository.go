package expense

import (
	"context"
	"encoding/json"
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
	"id", "partnership_id", "description", "amount", "category", "paid_by",
	"status", "split_percentages", "created_at", "updated_at", "deleted_at",
}

// Repository handles expense persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new expense repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new expense. Split validation happens upstream where the
// partnership membership is known.
func (r *Repository) Create(ctx context.Context, partnershipID string, req models.CreateExpenseRequest) (*models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Create",
		"partnership_id": partnershipID,
		"paid_by":        req.PaidBy,
	})

	if !req.Amount.IsPositive() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	splits, err := json.Marshal(req.SplitPercentages)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid split_percentages")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	expense := &models.Expense{
		ID:               id,
		PartnershipID:    partnershipID,
		Description:      req.Description,
		Amount:           req.Amount.Round(2),
		Category:         req.Category,
		PaidBy:           req.PaidBy,
		Status:           models.ExpenseStatusPending,
		SplitPercentages: splits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("expenses")
	sb.Cols("id", "partnership_id", "description", "amount", "category", "paid_by", "status", "split_percentages", "created_at", "updated_at")
	sb.Values(expense.ID, expense.PartnershipID, expense.Description, expense.Amount, expense.Category, expense.PaidBy, expense.Status, expense.SplitPercentages, expense.CreatedAt, expense.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create expense")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create expense")
	}

	log.WithFields(map[string]any{"id": id}).Info("Created expense")
	return expense, nil
}

// Get retrieves an expense by ID
func (r *Repository) Get(ctx context.Context, partnershipID string, id string) (*models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("expenses")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("expense %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get expense")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get expense")
	}

	return &expense, nil
}

// GetByID retrieves an expense by bare ID, without partnership scoping.
// Callers resolving an expense from a URL must check membership against the
// returned PartnershipID before acting on it.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("expenses")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("expense %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get expense")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get expense")
	}

	return &expense, nil
}

// List retrieves expenses for a partnership, optionally filtered by status
func (r *Repository) List(ctx context.Context, partnershipID string, status *models.ExpenseStatus, page, pageSize int) ([]models.Expense, int, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.List")
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
	countSb.From("expenses")
	countWhere := []string{
		countSb.Equal("partnership_id", partnershipID),
		countSb.IsNull("deleted_at"),
	}
	if status != nil {
		countWhere = append(countWhere, countSb.Equal("status", *status))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count expenses")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count expenses")
	}

	// Fetch page
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("expenses")
	where := []string{
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	}
	if status != nil {
		where = append(where, sb.Equal("status", *status))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list expenses")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list expenses")
	}

	return expenses, totalCount, nil
}

// UpdateStatus writes a new settlement-derived status onto an expense. Status
// ordering is enforced by the caller; this only persists the value.
func (r *Repository) UpdateStatus(ctx context.Context, partnershipID string, id string, status models.ExpenseStatus) error {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("expenses")
	sb.Set(
		sb.Assign("status", status),
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
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update expense status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update expense status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("expense %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": status}).Info("Updated expense status")
	return nil
}

// Delete soft deletes an expense
func (r *Repository) Delete(ctx context.Context, partnershipID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("expenses")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("partnership_id", partnershipID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete expense")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete expense")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("expense %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted expense")
	return nil
}
