package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/services"
	"github.com/meetpoint-app/meetpoint-backend/pkg/utils"
)

// RegisterRequest carries the registration payload. Location and bio are
// optional and seed the profile created alongside the user.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by both register and login.
type TokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Register handles POST /register/. Creates the user, their profile (with the
// supplied location/bio, defaulting to empty strings), and their token in one
// transaction, then returns 201 {token, username}.
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"body": "Invalid request body"},
		})
		return
	}

	errs := map[string]string{}
	if err := utils.ValidateUsername(req.Username); err != nil {
		errs["username"] = err.Error()
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		errs["password"] = err.Error()
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	username := utils.NormalizeUsername(req.Username)

	// Check if username already exists
	var existing string
	err := database.PostgresDB.QueryRow(
		"SELECT username FROM users WHERE LOWER(username) = $1", username,
	).Scan(&existing)
	if err == nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"username": "Username is already taken"},
		})
		return
	} else if err != sql.ErrNoRows {
		writeDatabaseError(w)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to hash password",
		})
		return
	}

	tx, err := database.PostgresDB.Begin()
	if err != nil {
		writeDatabaseError(w)
		return
	}
	defer tx.Rollback()

	userID := uuid.New()
	_, err = tx.Exec(`
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, userID, username, req.Email, hashedPassword)
	if err != nil {
		// Unique-constraint race with a concurrent registration
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"errors": map[string]string{"username": "Username is already taken"},
			})
			return
		}
		writeDatabaseError(w)
		return
	}

	_, err = tx.Exec(`
		INSERT INTO profiles (id, user_id, location, bio, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW(), NOW())
	`, userID, req.Location, req.Bio)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	token, err := services.IssueToken(tx, userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	if err = tx.Commit(); err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{Token: token, Username: username})
}

// Login handles POST /login/. Returns the user's existing token (or issues
// one if this is the first login). Unknown usernames and wrong passwords are
// deliberately indistinguishable to avoid username enumeration.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"body": "Invalid request body"},
		})
		return
	}

	user, err := services.GetUserByUsername(utils.NormalizeUsername(req.Username))
	if err != nil {
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "INVALID_CREDENTIALS"})
		} else {
			writeDatabaseError(w)
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "INVALID_CREDENTIALS"})
		return
	}

	token, err := services.IssueToken(database.PostgresDB, user.ID)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, Username: user.Username})
}

// Me handles GET /me/. Returns the caller's profile, creating an empty one on
// first touch. Repeat calls return the same profile id.
func Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	profile, err := services.GetOrCreateProfile(userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
