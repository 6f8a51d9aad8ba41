// Package ledger implements the settlement side of shared expenses with a
// clear separation:
// - Rules (this file) are pure: given the records, they decide what is
//   legal and what the numbers are
// - Service loads the records, persists outcomes, and recomputes balances
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/shopspring/decimal"

	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/money"
)

// Root error families. Transition errors map to HTTP 409, validation
// errors to 400; HTTPError applies the mapping at the route boundary.
var (
	ErrInvalidTransition = errors.New("invalid settlement transition")
	ErrValidation        = errors.New("validation failed")
)

// Granular errors, each wrapping its family so errors.Is works against
// the root.
var (
	ErrAlreadyResolved   = fmt.Errorf("%w: settlement is no longer pending", ErrInvalidTransition)
	ErrNotReceiver       = fmt.Errorf("%w: only the receiver may resolve a settlement", ErrInvalidTransition)
	ErrSelfSettlement    = fmt.Errorf("%w: payer and receiver must differ", ErrInvalidTransition)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidTransition)
	ErrNotMember         = fmt.Errorf("%w: user is not a partnership member", ErrValidation)
	ErrUnbalancedSplit   = fmt.Errorf("%w: split percentages must sum to 100", ErrValidation)
	ErrEmptyReason       = fmt.Errorf("%w: dispute reason is required", ErrValidation)
)

// CanInitiate validates a new settlement attempt against an expense.
// Initiation never changes the expense status.
func CanInitiate(p models.Partnership, payerID, receiverID string, amount decimal.Decimal) error {
	if payerID == receiverID {
		return ErrSelfSettlement
	}
	if !p.Member(payerID) || !p.Member(receiverID) {
		return ErrNotMember
	}
	if !money.IsPositive(amount) {
		return ErrNonPositiveAmount
	}
	return nil
}

// CanConfirm validates a confirm transition: the settlement must still be
// pending and the actor must be its receiver.
func CanConfirm(s models.Settlement, actorID string) error {
	if s.Status != models.SettlementStatusPending {
		return ErrAlreadyResolved
	}
	if s.ReceiverID != actorID {
		return ErrNotReceiver
	}
	return nil
}

// CanDispute validates a dispute transition. The reason is required and
// non-empty.
func CanDispute(s models.Settlement, actorID, reason string) error {
	if err := CanConfirm(s, actorID); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}
	return nil
}

// NetBalance computes a user's signed net position from the full
// settlement history of a partnership. Only confirmed settlements count;
// the user gains what they received and loses what they paid, so a
// positive result means the other member owes them. Recomputing from the
// same history always yields the same result.
func NetBalance(userID string, settlements []models.Settlement) decimal.Decimal {
	balance := money.Zero
	for _, s := range onlyConfirmed(settlements) {
		switch userID {
		case s.ReceiverID:
			balance = balance.Add(s.Amount)
		case s.PayerID:
			balance = balance.Sub(s.Amount)
		}
	}
	return balance
}

// ConfirmedTotal sums the confirmed settlement amounts, used to decide
// expense status promotion.
func ConfirmedTotal(settlements []models.Settlement) decimal.Decimal {
	amounts := ectolinq.Map(onlyConfirmed(settlements), func(s models.Settlement) decimal.Decimal {
		return s.Amount
	})
	return money.Sum(amounts...)
}

func onlyConfirmed(settlements []models.Settlement) []models.Settlement {
	return ectolinq.Filter(settlements, func(s models.Settlement) bool {
		return s.Status == models.SettlementStatusConfirmed
	})
}

// NextExpenseStatus promotes an expense based on its cumulative confirmed
// settlement coverage. Status only moves forward: settled once coverage
// reaches the full amount, paid while partially covered, otherwise
// unchanged.
func NextExpenseStatus(current models.ExpenseStatus, amount, confirmedTotal decimal.Decimal) models.ExpenseStatus {
	if current == models.ExpenseStatusSettled {
		return current
	}
	if confirmedTotal.GreaterThanOrEqual(amount) {
		return models.ExpenseStatusSettled
	}
	if confirmedTotal.GreaterThan(decimal.Zero) {
		return models.ExpenseStatusPaid
	}
	return current
}

// ValidateSplit checks an expense's split percentages at creation time:
// every key must be a partnership member and the values must sum to
// exactly 100.
func ValidateSplit(p models.Partnership, splits map[string]int) error {
	if len(splits) == 0 {
		return ErrUnbalancedSplit
	}

	sum := 0
	for userID, pct := range splits {
		if !p.Member(userID) {
			return ErrNotMember
		}
		if pct < 0 {
			return ErrUnbalancedSplit
		}
		sum += pct
	}

	if sum != 100 {
		return ErrUnbalancedSplit
	}
	return nil
}
