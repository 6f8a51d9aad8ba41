package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the state of a settlement attempt.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	SettlementStatusRejected  SettlementStatus = "rejected"
)

// Settlement is one attempt by the payer to pay the receiver against an
// expense. Confirmed and rejected are terminal; at most one of ConfirmedAt
// and RejectedAt is ever set.
type Settlement struct {
	ID             string           `json:"id" db:"id"`
	ExpenseID      string           `json:"expense_id" db:"expense_id"`
	PartnershipID  string           `json:"partnership_id" db:"partnership_id"`
	PayerID        string           `json:"payer_id" db:"payer_id"`
	ReceiverID     string           `json:"receiver_id" db:"receiver_id"`
	Amount         decimal.Decimal  `json:"amount" db:"amount"`
	Method         string           `json:"method" db:"method"`
	PaymentLink    *string          `json:"payment_link,omitempty" db:"payment_link"`
	Status         SettlementStatus `json:"status" db:"status"`
	RejectedReason *string          `json:"rejected_reason,omitempty" db:"rejected_reason"`
	InitiatedAt    time.Time        `json:"initiated_at" db:"initiated_at"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
	RejectedAt     *time.Time       `json:"rejected_at,omitempty" db:"rejected_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
}

// InitiateSettlementRequest is the request to record a payment attempt
// against an expense.
type InitiateSettlementRequest struct {
	ReceiverID  string          `json:"receiver_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Method      string          `json:"method" validate:"required"`
	PaymentLink *string         `json:"payment_link,omitempty"`
}

// DisputeSettlementRequest carries the required dispute reason.
type DisputeSettlementRequest struct {
	Reason string `json:"reason" validate:"required"`
}
