package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the settlement lifecycle state of an expense.
type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "pending" // created, nothing confirmed yet
	ExpenseStatusPaid    ExpenseStatus = "paid"    // partially covered by confirmed settlements
	ExpenseStatusSettled ExpenseStatus = "settled" // confirmed settlements cover the full amount
)

// Expense is a shared cost split between the two partnership members.
// SplitPercentages maps member user IDs to integer percentages; the two
// members' values sum to 100, enforced at creation.
type Expense struct {
	ID               string          `json:"id" db:"id"`
	PartnershipID    string          `json:"partnership_id" db:"partnership_id"`
	Description      string          `json:"description" db:"description"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Category         *string         `json:"category,omitempty" db:"category"`
	PaidBy           string          `json:"paid_by" db:"paid_by"`
	Status           ExpenseStatus   `json:"status" db:"status"`
	SplitPercentages json.RawMessage `json:"split_percentages" db:"split_percentages"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Splits parses the stored split percentages.
func (e *Expense) Splits() (map[string]int, error) {
	splits := map[string]int{}
	if len(e.SplitPercentages) == 0 {
		return splits, nil
	}
	if err := json.Unmarshal(e.SplitPercentages, &splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// CreateExpenseRequest is the request to create an expense
type CreateExpenseRequest struct {
	Description      string          `json:"description" validate:"required"`
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	Category         *string         `json:"category,omitempty"`
	PaidBy           string          `json:"paid_by" validate:"required"`
	SplitPercentages map[string]int  `json:"split_percentages" validate:"required"`
}

// ExpenseListResponse is the response for listing expenses
type ExpenseListResponse struct {
	Items      []Expense `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
