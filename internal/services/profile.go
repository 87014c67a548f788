package services

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/meetpoint-app/meetpoint-backend/internal/database"
	"github.com/meetpoint-app/meetpoint-backend/internal/models"
)

const profileSelect = `
	SELECT p.id, p.user_id, p.created_at, p.updated_at, p.location, p.bio, p.avatar_url, u.username, u.email
	FROM profiles p
	JOIN users u ON u.id = p.user_id
`

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.Location, &p.Bio, &p.AvatarURL, &p.Username, &p.Email)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByID returns a profile by its own id. sql.ErrNoRows if absent.
func GetProfileByID(id uuid.UUID) (*models.Profile, error) {
	return scanProfile(database.PostgresDB.QueryRow(profileSelect+`WHERE p.id = $1`, id))
}

// GetProfileByUserID returns the profile owned by the given user. sql.ErrNoRows if absent.
func GetProfileByUserID(userID uuid.UUID) (*models.Profile, error) {
	return scanProfile(database.PostgresDB.QueryRow(profileSelect+`WHERE p.user_id = $1`, userID))
}

// GetOrCreateProfile returns the user's profile, creating an empty one on
// first touch. Attempt read, on miss insert with ON CONFLICT DO NOTHING,
// then re-read: the unique constraint resolves the duplicate-create race
// without locking, and repeat calls always return the same profile id.
func GetOrCreateProfile(userID uuid.UUID) (*models.Profile, error) {
	profile, err := GetProfileByUserID(userID)
	if err == nil {
		return profile, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	_, err = database.PostgresDB.Exec(`
		INSERT INTO profiles (id, user_id, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, err
	}

	return GetProfileByUserID(userID)
}

// likeEscaper neutralizes LIKE metacharacters so the search term matches as
// a literal substring. Backslash is the default ILIKE escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProfiles returns all profiles, optionally filtered by a
// case-insensitive substring match against username or location.
func SearchProfiles(query string) ([]models.Profile, error) {
	var rows *sql.Rows
	var err error

	if query == "" {
		rows, err = database.PostgresDB.Query(profileSelect + `ORDER BY p.created_at ASC`)
	} else {
		rows, err = database.PostgresDB.Query(profileSelect+`
			WHERE u.username ILIKE '%' || $1 || '%' OR p.location ILIKE '%' || $1 || '%'
			ORDER BY p.created_at ASC
		`, likeEscaper.Replace(query))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.Location, &p.Bio, &p.AvatarURL, &p.Username, &p.Email); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
