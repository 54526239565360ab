// Package storage persists per-user sessions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diet-coach/internal/logger"
	"diet-coach/internal/models"
)

// Store is implemented by every session backend.
type Store interface {
	Load(ctx context.Context, userID string) (*models.Session, error)
	Save(ctx context.Context, userID string, sess *models.Session) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the SQLite database file or the directory for the file backend.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

var (
	// ErrInvalidUserID is returned for user IDs that cannot be used as a storage key.
	ErrInvalidUserID = errors.New("invalid user id")

	errCorrupt = errors.New("corrupt session record")
)

// Open creates the backend named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		return NewSQLiteStorage(cfg.Path)
	case DriverFile:
		return NewFileStorage(cfg.Path)
	case DriverRedis:
		return NewRedisStorage(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, models.ErrPersistenceUnavailable, err)
}

// decodeSession parses a serialized session. Undecodable records yield a fresh
// session rather than an error.
func decodeSession(userID string, data []byte) *models.Session {
	sess := models.NewSession()
	if err := json.Unmarshal(data, sess); err != nil {
		return discardCorrupt(userID, err)
	}
	sess.Normalize()
	return sess
}

func discardCorrupt(userID string, err error) *models.Session {
	logger.Warn("discarding corrupt session record", zap.String("user_id", userID), zap.Error(err))
	return models.NewSession()
}
