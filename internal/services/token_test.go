package services

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.PostgresDB
	database.PostgresDB = db
	t.Cleanup(func() {
		database.PostgresDB = prev
		db.Close()
	})
	return mock
}

func TestGenerateToken_Unique(t *testing.T) {
	t1, err := GenerateToken()
	require.NoError(t, err)
	t2, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEmpty(t, t1)
	assert.NotEqual(t, t1, t2)
}

func TestIssueToken_ReusesExisting(t *testing.T) {
	mock := setupMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("existing-token"))

	token, err := IssueToken(database.PostgresDB, userID)
	require.NoError(t, err)
	assert.Equal(t, "existing-token", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueToken_CreatesOnFirstCall(t *testing.T) {
	mock := setupMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_tokens")).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Re-read after the insert: a concurrent login may have won
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM auth_tokens WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("winner-token"))

	token, err := IssueToken(database.PostgresDB, userID)
	require.NoError(t, err)
	assert.Equal(t, "winner-token", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveToken_Empty(t *testing.T) {
	_, ok, err := ResolveToken("")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveToken_Known(t *testing.T) {
	mock := setupMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM auth_tokens WHERE token = $1")).
		WithArgs("tok-abc").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(userID.String()))

	got, ok, err := ResolveToken("tok-abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveToken_Unknown(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM auth_tokens WHERE token = $1")).
		WithArgs("bogus").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := ResolveToken("bogus")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
