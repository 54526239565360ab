package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"diet-coach/internal/models"
)

// FileStorage keeps one JSON document per user:
//
//	<dir>/
//	  └── <user-id>.json
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// validateUserID rejects IDs that would escape the data directory.
func validateUserID(userID string) error {
	if userID == "" || strings.ContainsAny(userID, `/\`) || strings.Contains(userID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return nil
}

func (f *FileStorage) path(userID string) string {
	return filepath.Join(f.dir, userID+".json")
}

func (f *FileStorage) Load(ctx context.Context, userID string) (*models.Session, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(userID)) // #nosec G304 - user id validated above
	if os.IsNotExist(err) {
		return models.NewSession(), nil
	}
	if err != nil {
		return nil, unavailable("read session file", err)
	}
	return decodeSession(userID, data), nil
}

// Save writes the session to a temp file and renames it into place.
func (f *FileStorage) Save(ctx context.Context, userID string, sess *models.Session) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, userID+".*.tmp")
	if err != nil {
		return unavailable("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return unavailable("write session file", err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("close session file", err)
	}
	if err := os.Rename(tmp.Name(), f.path(userID)); err != nil {
		return unavailable("rename session file", err)
	}
	return nil
}

func (f *FileStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return unavailable("stat data directory", err)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}
