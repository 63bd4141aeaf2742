package store

import (
	"context"
	"sort"
	"sync"

	"shopping-assistant-api/internal/models"
)

// MemoryStore keeps profiles in a map. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.BuyerProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.BuyerProfile),
	}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, profile *models.BuyerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.UserID] = normalize(profile)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*models.BuyerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.BuyerProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p.Clone())
	}
	sortByUserID(result)
	return result, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func sortByUserID(profiles []*models.BuyerProfile) {
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].UserID < profiles[j].UserID
	})
}
