package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
)

// TokenKeyPrefix is the Redis key prefix for token -> user lookups.
const TokenKeyPrefix = "authtoken:"

const redisOpTimeout = 3 * time.Second

// Querier is the subset of *sql.DB / *sql.Tx the token service needs, so
// registration can issue a token inside its transaction.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// GenerateToken returns a new opaque bearer token (32 random bytes, base64url).
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// IssueToken returns the user's token, creating one on first call.
// Tokens are never rotated and never expire: a second login gets the same
// token back. The UNIQUE(user_id) constraint plus re-read makes concurrent
// first logins safe without locking.
func IssueToken(q Querier, userID uuid.UUID) (string, error) {
	var token string
	err := q.QueryRow(`SELECT token FROM auth_tokens WHERE user_id = $1`, userID).Scan(&token)
	if err == nil {
		return token, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	token, err = GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = q.Exec(`
		INSERT INTO auth_tokens (id, user_id, token, created_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, token)
	if err != nil {
		return "", err
	}

	// Re-read: a concurrent login may have won the insert. The cache is not
	// written here because the caller may still be inside an uncommitted
	// transaction; ResolveToken populates it on first lookup instead.
	if err := q.QueryRow(`SELECT token FROM auth_tokens WHERE user_id = $1`, userID).Scan(&token); err != nil {
		return "", err
	}

	return token, nil
}

// ResolveToken maps a bearer token to the owning user ID. Returns ok=false
// for empty, unknown, or malformed tokens. Redis is consulted first as a
// read-through cache; PostgreSQL is authoritative.
func ResolveToken(token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}

	if database.RedisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		userIDStr, err := database.RedisClient.Get(ctx, TokenKeyPrefix+token).Result()
		cancel()
		if err == nil {
			if userID, parseErr := uuid.Parse(userIDStr); parseErr == nil {
				return userID, true, nil
			}
		}
	}

	var userID uuid.UUID
	err := database.PostgresDB.QueryRow(`SELECT user_id FROM auth_tokens WHERE token = $1`, token).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}

	cacheToken(token, userID)
	return userID, true, nil
}

// cacheToken stores the token -> user mapping in Redis without expiration
// (tokens never expire). Cache failures only cost the next lookup a DB round
// trip, so they are logged and swallowed.
func cacheToken(token string, userID uuid.UUID) {
	if database.RedisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := database.RedisClient.Set(ctx, TokenKeyPrefix+token, userID.String(), 0).Err(); err != nil {
		log.Printf("token cache write failed: %v", err)
	}
}
