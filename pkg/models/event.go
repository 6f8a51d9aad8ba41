package models

import (
	"time"
)

// Event types that participate in custody override logic. Any other type is
// calendar-display-only.
const (
	EventTypeVacation = "vacation"
	EventTypeHoliday  = "holiday"
)

// Event is a calendar entry. Vacation and holiday events assert custody for
// their creator over the covered date range.
type Event struct {
	ID            string     `json:"id" db:"id"`
	PartnershipID string     `json:"partnership_id" db:"partnership_id"`
	Title         string     `json:"title" db:"title"`
	Type          string     `json:"type" db:"type"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedBy     string     `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// OverridesCustody reports whether this event participates in custody
// override logic.
func (e *Event) OverridesCustody() bool {
	return e.Type == EventTypeVacation || e.Type == EventTypeHoliday
}

// CreateEventRequest is the request to create a calendar event
type CreateEventRequest struct {
	Title     string  `json:"title" validate:"required"`
	Type      string  `json:"type" validate:"required"`
	StartDate string  `json:"start_date" validate:"required"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`             // YYYY-MM-DD, single-day when absent
}

// UpdateEventRequest is the request to update a calendar event
type UpdateEventRequest struct {
	Title     *string `json:"title,omitempty"`
	Type      *string `json:"type,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// EventListResponse is the response for listing calendar events
type EventListResponse struct {
	Items      []Event `json:"items"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}
