package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	token   TEXT NOT NULL CHECK (token <> ''),
	profile TEXT NOT NULL
)`

// Store keeps the session in a single-row SQLite table so it survives
// process restarts.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	sqlDB, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps reads ordered after writes from this process.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Save(ctx context.Context, token string, profile models.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return repository.ErrEmptyToken
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO session (id, token, profile) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET token = excluded.token, profile = excluded.profile`,
		token, string(raw))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, token string, profile models.UserProfile) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("encode profile: %w", err)
	}

	res, err := s.sqlDB.ExecContext(ctx, `UPDATE session SET profile = ? WHERE id = 1 AND token = ?`, string(raw), token)
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Load(ctx context.Context) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}

	var token, raw string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT token, profile FROM session WHERE id = 1`).Scan(&token, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return models.Session{}, fmt.Errorf("decode profile: %w", err)
	}
	return models.Session{Token: token, Profile: &profile}, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

var _ repository.CredentialStore = (*Store)(nil)
