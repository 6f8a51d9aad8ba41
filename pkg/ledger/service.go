package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/fefejiro/peacepad/internal/repositories/balance"
	"github.com/fefejiro/peacepad/internal/repositories/expense"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/internal/repositories/settlement"
	"github.com/fefejiro/peacepad/pkg/events"
	"github.com/fefejiro/peacepad/pkg/metrics"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/redis"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// HTTPError maps rule errors onto transport errors for the route layer.
// Transition violations are conflicts, except the receiver-only rule which
// is a permission problem. Validation failures are bad requests. Anything
// unrecognized passes through untouched.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotReceiver):
		return httperror.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

// Service orchestrates the settlement lifecycle:
// 1. Validate transitions with the pure rules in this package
// 2. Persist them through the repositories
// 3. Recompute balances under a per-partnership lock
//
// Event emission is best effort; a settlement that committed but failed to
// publish is still settled.
type Service struct {
	log          ectologger.Logger
	partnerships *partnership.Repository
	expenses     *expense.Repository
	settlements  *settlement.Repository
	balances     *balance.Repository
	locker       *redis.Locker
	emitter      *events.Emitter
	lockTTL      time.Duration
}

// NewService creates a new settlement service.
func NewService(
	log ectologger.Logger,
	partnerships *partnership.Repository,
	expenses *expense.Repository,
	settlements *settlement.Repository,
	balances *balance.Repository,
	locker *redis.Locker,
	emitter *events.Emitter,
	lockTTL time.Duration,
) *Service {
	return &Service{
		log:          log,
		partnerships: partnerships,
		expenses:     expenses,
		settlements:  settlements,
		balances:     balances,
		locker:       locker,
		emitter:      emitter,
		lockTTL:      lockTTL,
	}
}

// CreateExpense validates the split against the partnership membership and
// persists the expense. The acting user must be a member.
func (s *Service) CreateExpense(ctx context.Context, partnershipID string, userID string, req models.CreateExpenseRequest) (*models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.CreateExpense")
	defer span.End()

	p, err := s.partnerships.GetForUser(ctx, partnershipID, userID)
	if err != nil {
		return nil, err
	}

	if !p.Member(req.PaidBy) {
		return nil, fmt.Errorf("paid_by: %w", ErrNotMember)
	}
	if err := ValidateSplit(*p, req.SplitPercentages); err != nil {
		return nil, err
	}

	exp, err := s.expenses.Create(ctx, partnershipID, req)
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitExpenseCreated(ctx, exp); err != nil {
		s.log.WithError(err).Error("Failed to emit expense created event")
	}

	return exp, nil
}

// Initiate records a payment attempt by userID against an expense. The
// settlement starts pending and has no effect on balances or the expense
// status until the receiver confirms it.
func (s *Service) Initiate(ctx context.Context, expenseID string, userID string, req models.InitiateSettlementRequest) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.Initiate")
	defer span.End()

	exp, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	p, err := s.partnerships.GetForUser(ctx, exp.PartnershipID, userID)
	if err != nil {
		return nil, err
	}

	if err := CanInitiate(*p, userID, req.ReceiverID, req.Amount); err != nil {
		metrics.RecordSettlementTransition("initiate", "rejected")
		return nil, err
	}

	now := time.Now().UTC()
	stl := &models.Settlement{
		ID:            uuid.New().String(),
		ExpenseID:     exp.ID,
		PartnershipID: p.ID,
		PayerID:       userID,
		ReceiverID:    req.ReceiverID,
		Amount:        req.Amount.Round(2),
		Method:        req.Method,
		PaymentLink:   req.PaymentLink,
		Status:        models.SettlementStatusPending,
		InitiatedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.settlements.Create(ctx, stl); err != nil {
		return nil, err
	}
	metrics.RecordSettlementTransition("initiate", "ok")

	if err := s.emitter.EmitSettlementInitiated(ctx, stl); err != nil {
		s.log.WithError(err).Error("Failed to emit settlement initiated event")
	}

	return stl, nil
}

// Confirm marks a pending settlement confirmed. Only the receiver may
// confirm. On success the partnership balances are recomputed from the full
// confirmed history and the expense status is promoted when the confirmed
// total covers it.
func (s *Service) Confirm(ctx context.Context, id string, userID string) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.Confirm")
	defer span.End()

	stl, err := s.settlements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Non-members get the same 404 as a missing settlement.
	if _, err := s.partnerships.GetForUser(ctx, stl.PartnershipID, userID); err != nil {
		return nil, err
	}
	if err := CanConfirm(*stl, userID); err != nil {
		metrics.RecordSettlementTransition("confirm", "rejected")
		return nil, err
	}

	// The repository compare-and-swaps on the pending status, so two
	// concurrent confirms cannot both succeed.
	confirmed, err := s.settlements.Confirm(ctx, id)
	if err != nil {
		metrics.RecordSettlementTransition("confirm", "conflict")
		return nil, err
	}
	metrics.RecordSettlementTransition("confirm", "ok")

	if err := s.applyConfirmed(ctx, confirmed); err != nil {
		// The settlement is committed; surfacing an error here would make
		// the caller retry a transition that already happened.
		s.log.WithError(err).WithFields(map[string]any{
			"settlement_id":  confirmed.ID,
			"partnership_id": confirmed.PartnershipID,
		}).Error("Failed to apply confirmed settlement")
	}

	if err := s.emitter.EmitSettlementConfirmed(ctx, confirmed); err != nil {
		s.log.WithError(err).Error("Failed to emit settlement confirmed event")
	}

	return confirmed, nil
}

// Dispute marks a pending settlement rejected with a reason. Only the
// receiver may dispute. Rejected settlements never touch balances or the
// expense status.
func (s *Service) Dispute(ctx context.Context, id string, userID string, req models.DisputeSettlementRequest) (*models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.Dispute")
	defer span.End()

	stl, err := s.settlements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.partnerships.GetForUser(ctx, stl.PartnershipID, userID); err != nil {
		return nil, err
	}
	if err := CanDispute(*stl, userID, req.Reason); err != nil {
		metrics.RecordSettlementTransition("dispute", "rejected")
		return nil, err
	}

	rejected, err := s.settlements.Dispute(ctx, id, req.Reason)
	if err != nil {
		metrics.RecordSettlementTransition("dispute", "conflict")
		return nil, err
	}
	metrics.RecordSettlementTransition("dispute", "ok")

	if err := s.emitter.EmitSettlementDisputed(ctx, rejected); err != nil {
		s.log.WithError(err).Error("Failed to emit settlement disputed event")
	}

	return rejected, nil
}

// ListByExpense returns every settlement attempt against an expense,
// oldest first. The acting user must be a partnership member.
func (s *Service) ListByExpense(ctx context.Context, expenseID string, userID string) ([]models.Settlement, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.ListByExpense")
	defer span.End()

	exp, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.partnerships.GetForUser(ctx, exp.PartnershipID, userID); err != nil {
		return nil, err
	}
	return s.settlements.ListByExpense(ctx, expenseID)
}

// Balance returns a member's net position in the partnership. The acting
// user must be a member; subjectID selects whose balance to read and
// defaults to the actor when empty. A user with no confirmed settlements
// reads as zero.
func (s *Service) Balance(ctx context.Context, partnershipID string, userID string, subjectID string) (*models.PartnershipBalance, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.Balance")
	defer span.End()

	p, err := s.partnerships.GetForUser(ctx, partnershipID, userID)
	if err != nil {
		return nil, err
	}
	if subjectID == "" {
		subjectID = userID
	}
	if !p.Member(subjectID) {
		return nil, fmt.Errorf("user_id: %w", ErrNotMember)
	}
	return s.balances.Get(ctx, partnershipID, subjectID)
}

// applyConfirmed recomputes both members' balances and the expense status
// after a settlement confirmation. The per-partnership lock serializes
// recomputation so concurrent confirms cannot interleave their writes.
func (s *Service) applyConfirmed(ctx context.Context, stl *models.Settlement) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Service.applyConfirmed")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.BalanceRecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	return s.locker.WithLock(ctx, stl.PartnershipID, s.lockTTL, func() error {
		p, err := s.partnerships.Get(ctx, stl.PartnershipID)
		if err != nil {
			return err
		}

		confirmed, err := s.settlements.ListConfirmedByPartnership(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, userID := range []string{p.User1ID, p.User2ID} {
			err := s.balances.Upsert(ctx, models.PartnershipBalance{
				PartnershipID: p.ID,
				UserID:        userID,
				NetBalance:    NetBalance(userID, confirmed),
			})
			if err != nil {
				return err
			}
		}

		exp, err := s.expenses.Get(ctx, p.ID, stl.ExpenseID)
		if err != nil {
			return err
		}
		forExpense, err := s.settlements.ListConfirmedByExpense(ctx, exp.ID)
		if err != nil {
			return err
		}
		next := NextExpenseStatus(exp.Status, exp.Amount, ConfirmedTotal(forExpense))
		if next != exp.Status {
			if err := s.expenses.UpdateStatus(ctx, p.ID, exp.ID, next); err != nil {
				return err
			}
		}
		return nil
	})
}
