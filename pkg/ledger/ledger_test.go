package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/money"
)

var testPartnership = models.Partnership{
	ID:      "partnership-1",
	User1ID: "user-a",
	User2ID: "user-b",
}

func amount(s string) decimal.Decimal {
	return money.MustParse(s)
}

func makeSettlement(payer, receiver string, amt string, status models.SettlementStatus) models.Settlement {
	return models.Settlement{
		ID:            "settlement-1",
		ExpenseID:     "expense-1",
		PartnershipID: testPartnership.ID,
		PayerID:       payer,
		ReceiverID:    receiver,
		Amount:        amount(amt),
		Status:        status,
		InitiatedAt:   time.Now().UTC(),
	}
}

func TestCanInitiate(t *testing.T) {
	tests := []struct {
		name     string
		payer    string
		receiver string
		amount   string
		wantErr  error
	}{
		{"valid", "user-a", "user-b", "50.00", nil},
		{"payer is receiver", "user-a", "user-a", "50.00", ErrSelfSettlement},
		{"payer not a member", "stranger", "user-b", "50.00", ErrNotMember},
		{"receiver not a member", "user-a", "stranger", "50.00", ErrNotMember},
		{"zero amount", "user-a", "user-b", "0.00", ErrNonPositiveAmount},
		{"negative amount", "user-a", "user-b", "-10.00", ErrNonPositiveAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanInitiate(testPartnership, tt.payer, tt.receiver, amount(tt.amount))
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfirmIsReceiverOnly(t *testing.T) {
	s := makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusPending)

	assert.NoError(t, CanConfirm(s, "user-b"))

	err := CanConfirm(s, "user-a")
	assert.ErrorIs(t, err, ErrNotReceiver)
	assert.ErrorIs(t, err, ErrInvalidTransition, "receiver check is a transition failure")
}

func TestConfirmIsSingleUse(t *testing.T) {
	confirmed := makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusConfirmed)
	rejected := makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusRejected)

	assert.ErrorIs(t, CanConfirm(confirmed, "user-b"), ErrAlreadyResolved)
	assert.ErrorIs(t, CanConfirm(rejected, "user-b"), ErrAlreadyResolved)
	assert.ErrorIs(t, CanDispute(confirmed, "user-b", "late"), ErrAlreadyResolved)
}

func TestDisputeRequiresReason(t *testing.T) {
	s := makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusPending)

	assert.NoError(t, CanDispute(s, "user-b", "amount does not match the receipt"))
	assert.ErrorIs(t, CanDispute(s, "user-b", ""), ErrEmptyReason)
	assert.ErrorIs(t, CanDispute(s, "user-b", "   "), ErrEmptyReason)
	assert.ErrorIs(t, CanDispute(s, "user-a", "reason"), ErrNotReceiver)
}

func TestNetBalanceSignConvention(t *testing.T) {
	// A paid B 50, confirmed: B is owed nothing further by A for it, so B's
	// net position gains 50 and A's loses 50. The pair sums to zero.
	history := []models.Settlement{
		makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusConfirmed),
	}

	balanceA := NetBalance("user-a", history)
	balanceB := NetBalance("user-b", history)

	assert.True(t, balanceB.Equal(amount("50.00")), "receiver gains")
	assert.True(t, balanceA.Equal(amount("-50.00")), "payer loses")
	assert.True(t, balanceA.Add(balanceB).IsZero(), "pair sums to zero")
}

func TestNetBalanceIgnoresUnresolvedSettlements(t *testing.T) {
	history := []models.Settlement{
		makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusConfirmed),
		makeSettlement("user-a", "user-b", "25.00", models.SettlementStatusPending),
		makeSettlement("user-a", "user-b", "10.00", models.SettlementStatusRejected),
	}

	assert.True(t, NetBalance("user-b", history).Equal(amount("50.00")))
	assert.True(t, NetBalance("user-a", history).Equal(amount("-50.00")))
}

func TestNetBalanceIsIdempotent(t *testing.T) {
	history := []models.Settlement{
		makeSettlement("user-a", "user-b", "33.33", models.SettlementStatusConfirmed),
		makeSettlement("user-b", "user-a", "12.50", models.SettlementStatusConfirmed),
	}

	first := NetBalance("user-a", history)
	second := NetBalance("user-a", history)
	assert.True(t, first.Equal(second))
	assert.True(t, first.Equal(amount("-20.83")))
}

func TestNetBalanceIsExactOverManySettlements(t *testing.T) {
	// A thousand ten-cent settlements must sum to exactly 100.00, the
	// accumulation that drifts under float arithmetic.
	history := make([]models.Settlement, 1000)
	for i := range history {
		history[i] = makeSettlement("user-a", "user-b", "0.10", models.SettlementStatusConfirmed)
	}

	assert.True(t, NetBalance("user-b", history).Equal(amount("100.00")))
}

func TestExpensePromotion(t *testing.T) {
	total := amount("100.00")

	// Nothing confirmed yet: stays pending.
	assert.Equal(t, models.ExpenseStatusPending,
		NextExpenseStatus(models.ExpenseStatusPending, total, amount("0.00")))

	// Half covered: paid, not settled.
	assert.Equal(t, models.ExpenseStatusPaid,
		NextExpenseStatus(models.ExpenseStatusPending, total, amount("50.00")))

	// Fully covered: settled.
	assert.Equal(t, models.ExpenseStatusSettled,
		NextExpenseStatus(models.ExpenseStatusPaid, total, amount("100.00")))

	// Over-covered still settles.
	assert.Equal(t, models.ExpenseStatusSettled,
		NextExpenseStatus(models.ExpenseStatusPending, total, amount("120.00")))

	// Settled never reverts.
	assert.Equal(t, models.ExpenseStatusSettled,
		NextExpenseStatus(models.ExpenseStatusSettled, total, amount("0.00")))
}

func TestConfirmedTotal(t *testing.T) {
	history := []models.Settlement{
		makeSettlement("user-a", "user-b", "50.00", models.SettlementStatusConfirmed),
		makeSettlement("user-a", "user-b", "30.00", models.SettlementStatusConfirmed),
		makeSettlement("user-a", "user-b", "99.00", models.SettlementStatusPending),
	}

	assert.True(t, ConfirmedTotal(history).Equal(amount("80.00")))
	assert.True(t, ConfirmedTotal(nil).IsZero())
}

func TestValidateSplit(t *testing.T) {
	tests := []struct {
		name    string
		splits  map[string]int
		wantErr error
	}{
		{"even split", map[string]int{"user-a": 50, "user-b": 50}, nil},
		{"uneven split", map[string]int{"user-a": 70, "user-b": 30}, nil},
		{"one-sided split", map[string]int{"user-a": 100}, nil},
		{"short of 100", map[string]int{"user-a": 60, "user-b": 30}, ErrUnbalancedSplit},
		{"over 100", map[string]int{"user-a": 60, "user-b": 50}, ErrUnbalancedSplit},
		{"negative share", map[string]int{"user-a": 150, "user-b": -50}, ErrUnbalancedSplit},
		{"empty", map[string]int{}, ErrUnbalancedSplit},
		{"non-member", map[string]int{"user-a": 50, "stranger": 50}, ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSplit(testPartnership, tt.splits)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}
