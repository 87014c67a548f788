package handlers_test

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetpoint-app/meetpoint-backend/internal/handlers"
	"github.com/meetpoint-app/meetpoint-backend/pkg/utils"
)

func expectNoUser(mock sqlmock.Sqlmock, username string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM users WHERE LOWER(username) = $1")).
		WithArgs(username).
		WillReturnError(sql.ErrNoRows)
}

func TestRegister_Success(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	expectNoUser(mock, "alice")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "alice", "a@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WithArgs(sqlmock.AnyArg(), "London", "hi").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_tokens")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("fresh-token"))
	mock.ExpectCommit()

	rec := doJSON(t, r, http.MethodPost, "/register/", "", map[string]string{
		"username": "Alice",
		"password": "p4ssw0rd!",
		"email":    "a@example.com",
		"location": "London",
		"bio":      "hi",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handlers.TokenResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "fresh-token", resp.Token)
	assert.Equal(t, "alice", resp.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateUsername(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM users WHERE LOWER(username) = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("alice"))

	rec := doJSON(t, r, http.MethodPost, "/register/", "", map[string]string{
		"username": "alice",
		"password": "p4ssw0rd!",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Errors, "username")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A concurrent registration can win the users INSERT between the duplicate
// check and the insert; the unique violation still reads as "taken".
func TestRegister_InsertRace_DuplicateUsername(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	expectNoUser(mock, "alice")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	rec := doJSON(t, r, http.MethodPost, "/register/", "", map[string]string{
		"username": "alice",
		"password": "p4ssw0rd!",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Errors, "username")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_InsertFailure_IsServerError(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	expectNoUser(mock, "alice")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	rec := doJSON(t, r, http.MethodPost, "/register/", "", map[string]string{
		"username": "alice",
		"password": "p4ssw0rd!",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_ValidationErrors(t *testing.T) {
	setupMockDB(t)
	r := newRouter()

	// Bad username and short password: rejected before any DB access
	rec := doJSON(t, r, http.MethodPost, "/register/", "", map[string]string{
		"username": "_x",
		"password": "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Errors, "username")
	assert.Contains(t, resp.Errors, "password")
}

func TestLogin_Success_ReusesToken(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	userID := uuid.New()
	hash, err := utils.HashPassword("p4ssw0rd!")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, username, email, password_hash")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "username", "email", "password_hash"}).
			AddRow(userID.String(), time.Now(), "alice", "a@example.com", hash))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("reused-token"))

	rec := doJSON(t, r, http.MethodPost, "/login/", "", map[string]string{
		"username": "alice",
		"password": "p4ssw0rd!",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handlers.TokenResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "reused-token", resp.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	hash, err := utils.HashPassword("p4ssw0rd!")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, username, email, password_hash")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "username", "email", "password_hash"}).
			AddRow(uuid.New().String(), time.Now(), "alice", "", hash))

	rec := doJSON(t, r, http.MethodPost, "/login/", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_CREDENTIALS", resp["error"])
}

func TestLogin_UnknownUser_SameError(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, username, email, password_hash")).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	rec := doJSON(t, r, http.MethodPost, "/login/", "", map[string]string{
		"username": "nobody",
		"password": "whatever123",
	})

	// Unknown user and wrong password must be indistinguishable
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_CREDENTIALS", resp["error"])
}

func TestMe_Unauthenticated(t *testing.T) {
	setupMockDB(t)
	r := newRouter()

	rec := doJSON(t, r, http.MethodGet, "/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func expectResolveToken(mock sqlmock.Sqlmock, token string, userID uuid.UUID) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM auth_tokens WHERE token = $1")).
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(userID.String()))
}

func TestMe_GetOrCreate_Idempotent(t *testing.T) {
	mock := setupMockDB(t)
	r := newRouter()

	userID := uuid.New()
	profileID := uuid.New()
	now := time.Now()
	profileRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "created_at", "updated_at", "location", "bio", "avatar_url", "username", "email"}).
			AddRow(profileID.String(), userID.String(), now, now, "", "", "", "alice", "")
	}

	// First call: no profile yet, insert, then re-read
	expectResolveToken(mock, "tok", userID)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.user_id = $1")).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.user_id = $1")).
		WithArgs(userID).
		WillReturnRows(profileRow())

	rec1 := doJSON(t, r, http.MethodGet, "/me/", "tok", nil)
	require.Equal(t, http.StatusOK, rec1.Code, rec1.Body.String())

	// Second call: profile exists, returned as-is
	expectResolveToken(mock, "tok", userID)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.user_id = $1")).
		WithArgs(userID).
		WillReturnRows(profileRow())

	rec2 := doJSON(t, r, http.MethodGet, "/me/", "tok", nil)
	require.Equal(t, http.StatusOK, rec2.Code)

	var p1, p2 struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec1, &p1)
	decodeBody(t, rec2, &p2)
	assert.Equal(t, profileID.String(), p1.ID)
	assert.Equal(t, p1.ID, p2.ID, "repeat /me/ calls must return the same profile id")
	assert.NoError(t, mock.ExpectationsWereMet())
}
