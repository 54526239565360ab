package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"diet-coach/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        user_id TEXT PRIMARY KEY,
        profile TEXT NOT NULL,
        stage TEXT NOT NULL,
        onboard_idx INTEGER NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS weight_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        weight REAL NOT NULL,
        FOREIGN KEY (user_id) REFERENCES sessions(user_id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_weight_entries_user_id ON weight_entries(user_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Load returns the stored session for userID, or a fresh session when none
// exists or the stored profile cannot be decoded.
func (s *SQLiteStorage) Load(ctx context.Context, userID string) (*models.Session, error) {
	query := `
        SELECT profile, stage, onboard_idx
        FROM sessions
        WHERE user_id = ?
    `

	var profileJSON, stage string
	var idx int
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&profileJSON, &stage, &idx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSession(), nil
	}
	if err != nil {
		return nil, unavailable("failed to query session", err)
	}

	sess := models.NewSession()
	if err := json.Unmarshal([]byte(profileJSON), &sess.Profile); err != nil {
		return discardCorrupt(userID, err), nil
	}
	sess.Stage = models.Stage(stage)
	sess.OnboardIdx = idx

	history, err := s.loadHistory(ctx, userID)
	if errors.Is(err, errCorrupt) {
		return discardCorrupt(userID, err), nil
	}
	if err != nil {
		return nil, err
	}
	sess.History = history
	sess.Normalize()

	return sess, nil
}

func (s *SQLiteStorage) loadHistory(ctx context.Context, userID string) ([]models.WeightEntry, error) {
	query := `
        SELECT timestamp, weight
        FROM weight_entries
        WHERE user_id = ?
        ORDER BY id
    `

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, unavailable("failed to query weight entries", err)
	}
	defer rows.Close()

	history := []models.WeightEntry{}
	for rows.Next() {
		var timestampStr string
		var entry models.WeightEntry
		if err := rows.Scan(&timestampStr, &entry.Weight); err != nil {
			return nil, unavailable("failed to scan weight entry", err)
		}
		if entry.Timestamp, err = models.ParseTimestamp(timestampStr); err != nil {
			return nil, errCorrupt
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to read weight entries", err)
	}

	return history, nil
}

// Save replaces the user's session row and weight entries in one transaction.
func (s *SQLiteStorage) Save(ctx context.Context, userID string, sess *models.Session) error {
	profileJSON, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to start transaction", err)
	}
	defer tx.Rollback()

	sessionQuery := `
        INSERT INTO sessions (user_id, profile, stage, onboard_idx, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            profile = excluded.profile,
            stage = excluded.stage,
            onboard_idx = excluded.onboard_idx,
            updated_at = excluded.updated_at
    `
	_, err = tx.ExecContext(ctx, sessionQuery,
		userID, string(profileJSON), string(sess.Stage), sess.OnboardIdx, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return unavailable("failed to upsert session", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM weight_entries WHERE user_id = ?`, userID); err != nil {
		return unavailable("failed to clear weight entries", err)
	}

	entryQuery := `
        INSERT INTO weight_entries (user_id, timestamp, weight)
        VALUES (?, ?, ?)
    `
	for _, entry := range sess.History {
		_, err = tx.ExecContext(ctx, entryQuery,
			userID, entry.Timestamp.Format(time.RFC3339Nano), entry.Weight)
		if err != nil {
			return unavailable("failed to insert weight entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("failed to commit session", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("failed to ping database", err)
	}
	return nil
}
