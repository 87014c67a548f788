package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never returned in JSON
}
