// Package store persists buyer profiles behind a uniform get/put contract.
//
// Every backing guarantees read-your-writes on the same instance: a Put
// followed by a Get for the same user id returns an equivalent profile.
// Profiles are copied on the way in and out, so callers never share state
// with the store.
package store

import (
	"context"
	"errors"
	"fmt"

	"shopping-assistant-api/internal/models"
)

var (
	// ErrNotFound is returned by Get when no profile exists for the user id.
	ErrNotFound = errors.New("store: profile not found")
	// ErrPersistence wraps failures of the underlying backing.
	ErrPersistence = errors.New("store: persistence failure")
)

// ProfileStore is the persistence contract for buyer profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.BuyerProfile, error)
	Put(ctx context.Context, profile *models.BuyerProfile) error
	List(ctx context.Context) ([]*models.BuyerProfile, error)
	Close() error
}

// Backing types accepted by Open.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// Options selects and configures a backing.
type Options struct {
	Type          string
	FilePath      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the backing named by opts.Type.
func Open(ctx context.Context, opts Options) (ProfileStore, error) {
	switch opts.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeFile:
		return NewFileStore(opts.FilePath)
	case TypeSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case TypeRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage type %q", opts.Type)
	}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

func normalize(p *models.BuyerProfile) *models.BuyerProfile {
	c := p.Clone()
	if c.History == nil {
		c.History = []models.HistoryRecord{}
	}
	return c
}
