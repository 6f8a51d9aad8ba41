package models

import (
	"time"
)

// ParentLabel identifies one of the two partnership members in custody terms.
// The labels are pattern-relative reference points, not permanent roles.
type ParentLabel string

const (
	ParentUser1 ParentLabel = "user1"
	ParentUser2 ParentLabel = "user2"

	// ParentNone means no custody assignment for the day. Callers render it
	// as "unassigned"; it is a valid outcome, not a failure.
	ParentNone ParentLabel = ""
)

// CustodyPattern names the recurring custody rule for a partnership.
type CustodyPattern string

const (
	PatternWeekOnOff         CustodyPattern = "week_on_off"        // alternating full weeks
	PatternEveryOtherWeekend CustodyPattern = "every_other_weekend" // primary has weekdays, weekends alternate
	PatternTwoTwoThree       CustodyPattern = "two_two_three"       // 2-2-3 rotating split
)

// KnownPattern reports whether p is one of the supported custody patterns.
func KnownPattern(p CustodyPattern) bool {
	switch p {
	case PatternWeekOnOff, PatternEveryOtherWeekend, PatternTwoTwoThree:
		return true
	}
	return false
}

// Partnership is a custody-sharing agreement between exactly two parties.
type Partnership struct {
	ID                   string          `json:"id" db:"id"`
	User1ID              string          `json:"user1_id" db:"user1_id"`
	User2ID              string          `json:"user2_id" db:"user2_id"`
	CustodyEnabled       bool            `json:"custody_enabled" db:"custody_enabled"`
	CustodyPattern       *CustodyPattern `json:"custody_pattern,omitempty" db:"custody_pattern"`
	CustodyStartDate     *time.Time      `json:"custody_start_date,omitempty" db:"custody_start_date"`
	CustodyPrimaryParent ParentLabel     `json:"custody_primary_parent" db:"custody_primary_parent"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Member reports whether userID is one of the two partnership members.
func (p *Partnership) Member(userID string) bool {
	return userID == p.User1ID || userID == p.User2ID
}

// LabelFor maps a member's user ID to its parent label. Returns ParentNone
// for IDs outside the partnership.
func (p *Partnership) LabelFor(userID string) ParentLabel {
	switch userID {
	case p.User1ID:
		return ParentUser1
	case p.User2ID:
		return ParentUser2
	}
	return ParentNone
}

// UserFor maps a parent label back to the member's user ID.
func (p *Partnership) UserFor(label ParentLabel) string {
	switch label {
	case ParentUser1:
		return p.User1ID
	case ParentUser2:
		return p.User2ID
	}
	return ""
}

// PrimaryParent returns the pattern's reference parent, defaulting to user1
// when unset.
func (p *Partnership) PrimaryParent() ParentLabel {
	if p.CustodyPrimaryParent == ParentUser2 {
		return ParentUser2
	}
	return ParentUser1
}

// CreatePartnershipRequest is the request to create a partnership
type CreatePartnershipRequest struct {
	User1ID              string          `json:"user1_id" validate:"required"`
	User2ID              string          `json:"user2_id" validate:"required,nefield=User1ID"`
	CustodyEnabled       bool            `json:"custody_enabled"`
	CustodyPattern       *CustodyPattern `json:"custody_pattern,omitempty"`
	CustodyStartDate     *string         `json:"custody_start_date,omitempty"` // YYYY-MM-DD
	CustodyPrimaryParent *ParentLabel    `json:"custody_primary_parent,omitempty"`
}

// UpdatePartnershipRequest is the request to update custody configuration
type UpdatePartnershipRequest struct {
	CustodyEnabled       *bool           `json:"custody_enabled,omitempty"`
	CustodyPattern       *CustodyPattern `json:"custody_pattern,omitempty"`
	CustodyStartDate     *string         `json:"custody_start_date,omitempty"` // YYYY-MM-DD
	CustodyPrimaryParent *ParentLabel    `json:"custody_primary_parent,omitempty"`
}

// CustodyDay is one day of the computed custody calendar. Parent is null
// when no assignment exists for the day.
type CustodyDay struct {
	Date   string       `json:"date"`
	Parent *ParentLabel `json:"parent"`
}

// PartnershipListResponse is the response for listing partnerships
type PartnershipListResponse struct {
	Items      []Partnership `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}
