package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/models"
	"github.com/meetpoint-app/meetpoint-backend/internal/services"
)

// SendMessageRequest carries the message payload. A client-supplied sender
// field is deliberately absent from the struct: the sender is always the
// authenticated caller, so spoofed values in the body are dropped on decode.
type SendMessageRequest struct {
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
}

type UpdateMessageRequest struct {
	Text string `json:"text"`
}

// conversationScope restricts every single-message operation to rows where
// the caller is sender or receiver. Ids outside that scope behave as if they
// do not exist (404, never 403).
const conversationScope = `(sender_id = $2 OR receiver_id = $2)`

// SendMessage handles POST /messages/.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Message text is required",
		})
		return
	}

	receiverID, err := uuid.Parse(req.Receiver)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid receiver",
		})
		return
	}

	exists, err := services.UserExists(receiverID)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	if !exists {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Receiver does not exist",
		})
		return
	}

	var msg models.Message
	err = database.PostgresDB.QueryRow(`
		INSERT INTO messages (id, sender_id, receiver_id, text, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW())
		RETURNING id, sender_id, receiver_id, text, created_at
	`, userID, receiverID, req.Text).Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Timestamp)
	if err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /messages/. Returns every message where the caller
// is sender or receiver, oldest first. No pagination.
func ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT id, sender_id, receiver_id, text, created_at
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Timestamp); err != nil {
			writeDatabaseError(w)
			return
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		writeDatabaseError(w)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// GetMessage handles GET /messages/{id}/.
func GetMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Message not found")
		return
	}

	var msg models.Message
	err = database.PostgresDB.QueryRow(`
		SELECT id, sender_id, receiver_id, text, created_at
		FROM messages
		WHERE id = $1 AND `+conversationScope, id, userID,
	).Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w, "Message not found")
		} else {
			writeDatabaseError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// UpdateMessage handles PUT/PATCH /messages/{id}/. Only the text is mutable;
// sender, receiver, and timestamp are fixed at creation.
func UpdateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Message not found")
		return
	}

	var req UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Message text is required",
		})
		return
	}

	var msg models.Message
	err = database.PostgresDB.QueryRow(`
		UPDATE messages SET text = $3
		WHERE id = $1 AND `+conversationScope+`
		RETURNING id, sender_id, receiver_id, text, created_at
	`, id, userID, req.Text).Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w, "Message not found")
		} else {
			writeDatabaseError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /messages/{id}/.
func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Message not found")
		return
	}

	res, err := database.PostgresDB.Exec(`
		DELETE FROM messages WHERE id = $1 AND `+conversationScope, id, userID)
	if err != nil {
		writeDatabaseError(w)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeNotFound(w, "Message not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Message deleted",
	})
}
