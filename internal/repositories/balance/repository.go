package balance

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/shopspring/decimal"

	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

const balanceTable = "partnership_balances"

var balanceStruct = database.NewStruct(new(models.PartnershipBalance))

// Repository handles derived partnership balance rows
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new balance repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a recomputed balance row for one member. One row exists per
// (partnership_id, user_id); the recomputation always overwrites it whole.
func (r *Repository) Upsert(ctx context.Context, balance models.PartnershipBalance) error {
	ctx, span := tracing.StartSpan(ctx, "balance.Repository.Upsert")
	defer span.End()

	balance.ComputedAt = time.Now().UTC()

	ib := balanceStruct.InsertInto(balanceTable, balance)
	ub := ib.OnConflict("partnership_id", "user_id")
	ub.Set(
		ub.Assign("net_balance", database.Excluded("net_balance")),
		ub.Assign("computed_at", database.Excluded("computed_at")),
	)

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"partnership_id": balance.PartnershipID,
			"user_id":        balance.UserID,
		}).Error("Failed to upsert partnership balance")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert partnership balance")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"partnership_id": balance.PartnershipID,
		"user_id":        balance.UserID,
		"net_balance":    balance.NetBalance.String(),
	}).Info("Upserted partnership balance")
	return nil
}

// Get retrieves the stored balance for a member. A missing row reads as a
// zero balance; the row appears with the first settlement confirmation.
func (r *Repository) Get(ctx context.Context, partnershipID string, userID string) (*models.PartnershipBalance, error) {
	ctx, span := tracing.StartSpan(ctx, "balance.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("partnership_id", "user_id", "net_balance", "computed_at")
	sb.From(balanceTable)
	sb.Where(
		sb.Equal("partnership_id", partnershipID),
		sb.Equal("user_id", userID),
	)

	query, args := sb.Build()
	var balance models.PartnershipBalance
	if err := r.db.GetContext(ctx, &balance, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return &models.PartnershipBalance{
				PartnershipID: partnershipID,
				UserID:        userID,
				NetBalance:    decimal.Zero,
			}, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get partnership balance")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get partnership balance")
	}

	return &balance, nil
}

// List retrieves every stored balance row for a partnership
func (r *Repository) List(ctx context.Context, partnershipID string) ([]models.PartnershipBalance, error) {
	ctx, span := tracing.StartSpan(ctx, "balance.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("partnership_id", "user_id", "net_balance", "computed_at")
	sb.From(balanceTable)
	sb.Where(sb.Equal("partnership_id", partnershipID))

	query, args := sb.Build()
	var balances []models.PartnershipBalance
	if err := r.db.SelectContext(ctx, &balances, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list partnership balances")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list partnership balances")
	}

	return balances, nil
}
