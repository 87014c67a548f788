package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/services"
)

// extractBearerToken pulls the opaque token out of an Authorization header.
// Accepts "Bearer <token>" and "Token <token>" schemes.
func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "bearer" && scheme != "token" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth validates the bearer token and returns the authenticated user's
// ID. Returns (uuid.Nil, false) when the request carries no valid token.
func requireAuth(r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return uuid.Nil, false
	}
	userID, ok, err := services.ResolveToken(token)
	if err != nil || !ok {
		return uuid.Nil, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"success": false,
		"message": "Authentication required",
	})
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func writeDatabaseError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"message": "Database error",
	})
}
