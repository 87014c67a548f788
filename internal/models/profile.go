package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the extended public metadata attached one-to-one to a user.
// Username and email are denormalized from the users row for responses.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `json:"username"`
	Email     string `json:"email"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar"`
}
