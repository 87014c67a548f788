package services

import (
	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/models"
)

// GetUserByUsername looks a user up by normalized username. sql.ErrNoRows if absent.
func GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	err := database.PostgresDB.QueryRow(`
		SELECT id, created_at, username, email, password_hash
		FROM users WHERE LOWER(username) = $1
	`, username).Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserExists reports whether a user with the given id exists.
func UserExists(userID uuid.UUID) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	return exists, err
}
