package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/advisor-desk/pkg/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	profile_data JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_updated ON users (updated_at);
`

// PostgresStore keeps profiles in a shared PostgreSQL database, for
// deployments that run more than one advisor-desk instance.
type PostgresStore struct {
	pool  *pgxpool.Pool
	locks *keyedMutex
}

// NewPostgresStore connects to connURL and creates the users table if needed.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("Postgres profile store ready")
	return &PostgresStore{pool: pool, locks: newKeyedMutex()}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var (
		p    models.Profile
		data []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, name, profile_data, created_at, updated_at FROM users WHERE user_id = $1`,
		userID).Scan(&p.UserID, &p.Name, &data, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(userID)
		}
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if err := json.Unmarshal(data, &p.Data); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.ProfileSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, name, updated_at FROM users ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []models.ProfileSummary{}
	for rows.Next() {
		var ps models.ProfileSummary
		if err := rows.Scan(&ps.UserID, &ps.Name, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		ps.UpdatedAt = ps.UpdatedAt.UTC()
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(p.UserID)
	defer unlock()

	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	// TIMESTAMPTZ stores microseconds.
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (user_id, name, profile_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			profile_data = EXCLUDED.profile_data,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Name, string(data), now)
	if err != nil {
		return nil, fmt.Errorf("save profile %s: %w", p.UserID, err)
	}

	log.Debug().Str("user_id", p.UserID).Msg("Profile saved")
	return s.Get(ctx, p.UserID)
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(userID)
	}
	log.Debug().Str("user_id", userID).Msg("Profile deleted")
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
