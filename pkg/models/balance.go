package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartnershipBalance is the derived net position of one member within a
// partnership. Positive means the other member owes this user. Rows are
// written only by the settlement confirmation flow, recomputed from the
// full confirmed-settlement history.
type PartnershipBalance struct {
	PartnershipID string          `json:"partnership_id" db:"partnership_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	NetBalance    decimal.Decimal `json:"net_balance" db:"net_balance"`
	ComputedAt    time.Time       `json:"computed_at" db:"computed_at"`
}
