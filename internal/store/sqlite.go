package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"shopping-assistant-api/internal/models"
)

// SQLiteStore keeps one row per buyer with the profile serialized as JSON.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database and initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; sqlite locks the whole file anyway.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS buyer_profiles (
			user_id TEXT PRIMARY KEY,
			profile_json TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx,
		`SELECT profile_json FROM buyer_profiles WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("query profile", err)
	}

	return decodeProfile([]byte(raw))
}

func (s *SQLiteStore) Put(ctx context.Context, profile *models.BuyerProfile) error {
	raw, err := json.Marshal(normalize(profile))
	if err != nil {
		return persistenceError("encode", err)
	}

	query := `INSERT INTO buyer_profiles (user_id, profile_json, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		profile_json = excluded.profile_json,
		updated_at = excluded.updated_at`

	_, err = s.conn.ExecContext(ctx, query,
		profile.UserID,
		string(raw),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistenceError("upsert profile", err)
	}

	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.BuyerProfile, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT profile_json FROM buyer_profiles ORDER BY user_id`)
	if err != nil {
		return nil, persistenceError("query profiles", err)
	}
	defer rows.Close()

	var profiles []*models.BuyerProfile
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, persistenceError("scan profile", err)
		}
		p, err := decodeProfile([]byte(raw))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate profiles", err)
	}

	return profiles, nil
}

func decodeProfile(raw []byte) (*models.BuyerProfile, error) {
	var p models.BuyerProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, persistenceError("decode", err)
	}
	return normalize(&p), nil
}
