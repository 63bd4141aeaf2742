package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shopping-assistant-api/internal/models"
)

// FileStore persists all profiles in one JSON document keyed by user id.
// Every Put reads the whole document, replaces one key and rewrites the
// document through a temp file + rename, so readers never see a torn file.
// Writers within the process are serialized by mu.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore opens the document at path, creating an empty one if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}

	fs := &FileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := fs.write(map[string]*models.BuyerProfile{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, persistenceError("stat", err)
	}

	return fs, nil
}

func (fs *FileStore) Get(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := fs.read()
	if err != nil {
		return nil, err
	}

	p, ok := data[userID]
	if !ok || p == nil {
		return nil, ErrNotFound
	}
	return normalize(p), nil
}

func (fs *FileStore) Put(ctx context.Context, profile *models.BuyerProfile) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.read()
	if err != nil {
		return err
	}

	data[profile.UserID] = normalize(profile)
	return fs.write(data)
}

func (fs *FileStore) List(ctx context.Context) ([]*models.BuyerProfile, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := fs.read()
	if err != nil {
		return nil, err
	}

	result := make([]*models.BuyerProfile, 0, len(data))
	for _, p := range data {
		if p != nil {
			result = append(result, normalize(p))
		}
	}
	sortByUserID(result)
	return result, nil
}

func (fs *FileStore) Close() error {
	return nil
}

// read loads the whole document. A missing file reads as empty.
func (fs *FileStore) read() (map[string]*models.BuyerProfile, error) {
	raw, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*models.BuyerProfile{}, nil
	}
	if err != nil {
		return nil, persistenceError("read", err)
	}

	data := map[string]*models.BuyerProfile{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, persistenceError("decode", err)
	}
	return data, nil
}

func (fs *FileStore) write(data map[string]*models.BuyerProfile) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return persistenceError("encode", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return persistenceError("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return persistenceError("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return persistenceError("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return persistenceError("close", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return persistenceError("rename", err)
	}
	return nil
}
