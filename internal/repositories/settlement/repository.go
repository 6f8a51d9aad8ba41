package settlement

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var columns = []string{
	"id", "expense_id", "partnership_id", "payer_id", "receiver_id", "amount",
	"method", "payment_link", "status", "rejected_reason", "initiated_at",
	"confirmed_at", "rejected_at", "created_at", "updated_at", "deleted_at",
}

const returningColumns = `id, expense_id, partnership_id, payer_id, receiver_id, amount,
	method, payment_link, status, rejected_reason, initiated_at,
	confirmed_at, rejected_at, created_at, updated_at, deleted_at`

// Repository handles settlement persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new settlement repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create persists a settlement assembled by the service layer
func (r *Repository) Create(ctx context.Context, settlement *models.Settlement) error {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Create",
		"expense_id":     settlement.ExpenseID,
		"partnership_id": settlement.PartnershipID,
	})

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("settlements")
	sb.Cols("id", "expense_id", "partnership_id", "payer_id", "receiver_id", "amount", "method", "payment_link", "status", "initiated_at", "created_at", "updated_at")
	sb.Values(settlement.ID, settlement.ExpenseID, settlement.PartnershipID, settlement.PayerID, settlement.ReceiverID, settlement.Amount, settlement.Method, settlement.PaymentLink, settlement.Status, settlement.InitiatedAt, settlement.CreatedAt, settlement.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create settlement")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create settlement")
	}

	log.WithFields(map[string]any{"id": settlement.ID}).Info("Created settlement")
	return nil
}

// Get retrieves a settlement by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("settlements")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var settlement models.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("settlement %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get settlement")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get settlement")
	}

	return &settlement, nil
}

// ListByExpense retrieves all settlements recorded against an expense
func (r *Repository) ListByExpense(ctx context.Context, expenseID string) ([]models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.ListByExpense")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("settlements")
	sb.Where(
		sb.Equal("expense_id", expenseID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("initiated_at ASC")

	query, args := sb.Build()
	var settlements []models.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list settlements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list settlements")
	}

	return settlements, nil
}

// ListConfirmedByExpense retrieves confirmed settlements for an expense,
// feeding the promotion decision
func (r *Repository) ListConfirmedByExpense(ctx context.Context, expenseID string) ([]models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.ListConfirmedByExpense")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("settlements")
	sb.Where(
		sb.Equal("expense_id", expenseID),
		sb.Equal("status", models.SettlementStatusConfirmed),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var settlements []models.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list confirmed settlements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list confirmed settlements")
	}

	return settlements, nil
}

// ListConfirmedByPartnership retrieves the full confirmed history for a
// partnership. Balance recomputation always starts from this, never from the
// previous balance.
func (r *Repository) ListConfirmedByPartnership(ctx context.Context, partnershipID string) ([]models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.ListConfirmedByPartnership")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("settlements")
	sb.Where(
		sb.Equal("partnership_id", partnershipID),
		sb.Equal("status", models.SettlementStatusConfirmed),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("confirmed_at ASC")

	query, args := sb.Build()
	var settlements []models.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list confirmed settlements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list confirmed settlements")
	}

	return settlements, nil
}

// Confirm transitions a settlement from pending to confirmed. The conditional
// update is the compare-and-swap against a racing confirm or dispute; zero
// rows means the settlement was already resolved.
func (r *Repository) Confirm(ctx context.Context, id string) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.Confirm")
	defer span.End()

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE settlements
		SET status = 'confirmed', confirmed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING %s`, returningColumns)

	var settlement models.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, id, now); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusConflict, "settlement is already resolved")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to confirm settlement")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to confirm settlement")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Confirmed settlement")
	return &settlement, nil
}

// Dispute transitions a settlement from pending to rejected with the given
// reason. Same compare-and-swap discipline as Confirm.
func (r *Repository) Dispute(ctx context.Context, id string, reason string) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.Repository.Dispute")
	defer span.End()

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE settlements
		SET status = 'rejected', rejected_at = $2, rejected_reason = $3, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING %s`, returningColumns)

	var settlement models.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, id, now, reason); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusConflict, "settlement is already resolved")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to dispute settlement")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to dispute settlement")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Disputed settlement")
	return &settlement, nil
}
