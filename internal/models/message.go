package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable direct message between two users.
// Sender is always the authenticated caller, never taken from the request body.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender"`
	ReceiverID uuid.UUID `json:"receiver"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}
