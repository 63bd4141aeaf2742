package store

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"shopping-assistant-api/internal/cache"
	"shopping-assistant-api/internal/models"
)

// CachedStore puts a read-through cache in front of another store.
// Writes go to the backing first; the cache entry is refreshed afterwards,
// so a failed Put never leaves a cached value the backing does not have.
type CachedStore struct {
	backing ProfileStore
	cache   cache.Cache
	ttl     time.Duration
	enabled func() bool
}

func NewCachedStore(backing ProfileStore, c cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backing: backing,
		cache:   c,
		ttl:     ttl,
		enabled: func() bool { return true },
	}
}

// WithToggle makes the cache switchable at runtime. While enabled reports
// false, reads go straight to the backing and writes only drop the cached
// entry, so nothing stale is served once the cache is switched back on.
func (s *CachedStore) WithToggle(enabled func() bool) *CachedStore {
	s.enabled = enabled
	return s
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

func (s *CachedStore) Get(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	if !s.enabled() {
		return s.backing.Get(ctx, userID)
	}

	var p models.BuyerProfile
	err := cache.GetJSON(ctx, s.cache, cacheKey(userID), &p)
	if err == nil {
		return normalize(&p), nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		log.Printf("profile cache read failed for %s: %v", userID, err)
	}

	profile, err := s.backing.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, profile)
	return profile, nil
}

func (s *CachedStore) Put(ctx context.Context, profile *models.BuyerProfile) error {
	if err := s.backing.Put(ctx, profile); err != nil {
		// Drop the entry so the next read goes to the backing.
		_ = s.cache.Delete(ctx, cacheKey(profile.UserID))
		return err
	}
	if !s.enabled() {
		_ = s.cache.Delete(ctx, cacheKey(profile.UserID))
		return nil
	}
	s.refresh(ctx, profile)
	return nil
}

func (s *CachedStore) List(ctx context.Context) ([]*models.BuyerProfile, error) {
	return s.backing.List(ctx)
}

// Close closes the backing and, when it holds a connection, the cache.
func (s *CachedStore) Close() error {
	err := s.backing.Close()
	if closer, ok := s.cache.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *CachedStore) refresh(ctx context.Context, profile *models.BuyerProfile) {
	if err := cache.SetJSON(ctx, s.cache, cacheKey(profile.UserID), normalize(profile), s.ttl); err != nil {
		log.Printf("profile cache write failed for %s: %v", profile.UserID, err)
		_ = s.cache.Delete(ctx, cacheKey(profile.UserID))
	}
}
