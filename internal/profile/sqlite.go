package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/agentoven/advisor-desk/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	profile_data TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_updated ON users(updated_at);
`

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps profiles in a single SQLite file, one row per user with
// the structured document stored as JSON.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	locks *keyedMutex
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init profile schema: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite profile store ready")
	return &SQLiteStore{db: db, path: path, locks: newKeyedMutex()}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, profile_data, created_at, updated_at FROM users WHERE user_id = ?`,
		userID)

	var (
		p                models.Profile
		data             string
		created, updated string
	)
	if err := row.Scan(&p.UserID, &p.Name, &data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(userID)
		}
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.ProfileSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, updated_at FROM users ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []models.ProfileSummary{}
	for rows.Next() {
		var (
			ps      models.ProfileSummary
			updated string
		)
		if err := rows.Scan(&ps.UserID, &ps.Name, &updated); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		ps.UpdatedAt = parseTime(updated)
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(p.UserID)
	defer unlock()

	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	now := time.Now().UTC().Format(timeLayout)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, name, profile_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			profile_data = excluded.profile_data,
			updated_at = excluded.updated_at`,
		p.UserID, p.Name, string(data), now, now)
	if err != nil {
		return nil, fmt.Errorf("save profile %s: %w", p.UserID, err)
	}

	log.Debug().Str("user_id", p.UserID).Msg("Profile saved")
	return s.Get(ctx, p.UserID)
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(userID)
	}
	log.Debug().Str("user_id", userID).Msg("Profile deleted")
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseTime also accepts zone-less ISO timestamps, which older databases
// were written with.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
