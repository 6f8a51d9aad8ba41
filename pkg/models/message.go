package models

import (
	"time"
)

// Message is a chat message between partnership members. Tone fields are
// filled in asynchronously by the tone analysis processor and stay null
// until analysis completes.
type Message struct {
	ID             string     `json:"id" db:"id"`
	PartnershipID  string     `json:"partnership_id" db:"partnership_id"`
	SenderID       string     `json:"sender_id" db:"sender_id"`
	Content        string     `json:"content" db:"content"`
	Tone           *string    `json:"tone,omitempty" db:"tone"`
	ToneConfidence *float64   `json:"tone_confidence,omitempty" db:"tone_confidence"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateMessageRequest is the request to send a message
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// MessageListResponse is the response for listing messages
type MessageListResponse struct {
	Items      []Message `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
