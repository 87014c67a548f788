package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/services"
)

// UpdateProfileRequest uses pointers so PATCH-style partial updates leave
// omitted fields untouched.
type UpdateProfileRequest struct {
	Location *string `json:"location"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

type CreateProfileRequest struct {
	Location string `json:"location,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// ListProfiles handles GET /profiles/. Public. The optional ?search= query
// filters by case-insensitive substring match on username or location.
func ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := services.SearchProfiles(r.URL.Query().Get("search"))
	if err != nil {
		writeDatabaseError(w)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfile handles GET /profiles/{id}/. Public.
func GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Profile not found")
		return
	}

	profile, err := services.GetProfileByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w, "Profile not found")
		} else {
			writeDatabaseError(w)
		}
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// CreateProfile handles POST /profiles/. Creates the caller's own profile;
// the one-to-one constraint makes creating anyone else's meaningless.
func CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	res, err := database.PostgresDB.Exec(`
		INSERT INTO profiles (id, user_id, location, bio, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, req.Location, req.Bio)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Profile already exists",
		})
		return
	}

	profile, err := services.GetProfileByUserID(userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// UpdateProfile handles PUT/PATCH /profiles/{id}/. Requires authentication.
// Any authenticated user may update any profile; this mirrors the upstream
// permission model and is pinned by a test rather than silently tightened.
func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthenticated(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Profile not found")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	res, err := database.PostgresDB.Exec(`
		UPDATE profiles SET
			location = COALESCE($2, location),
			bio = COALESCE($3, bio),
			avatar_url = COALESCE($4, avatar_url),
			updated_at = NOW()
		WHERE id = $1
	`, id, req.Location, req.Bio, req.Avatar)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeNotFound(w, "Profile not found")
		return
	}

	profile, err := services.GetProfileByID(id)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DeleteProfile handles DELETE /profiles/{id}/. Requires authentication. The
// owning user remains; the next profile-touching call recreates it empty.
func DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthenticated(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Profile not found")
		return
	}

	res, err := database.PostgresDB.Exec(`DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeNotFound(w, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile deleted",
	})
}
