package features

import (
	"sort"
	"sync"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false // Default to disabled if flag doesn't exist
	}

	return flag.Enabled
}

// Set enables or disables a registered flag. It reports false and changes
// nothing when the flag is unknown.
func (m *Manager) Set(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}
	flag.Enabled = enabled
	return true
}

// Get returns a copy of one flag.
func (m *Manager) Get(name string) (FeatureFlag, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return FeatureFlag{}, false
	}
	return *flag, true
}

// List returns a copy of all flags sorted by name.
func (m *Manager) List() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Predefined feature flag names
const (
	// FeatureProfileCache puts the read-through cache in front of the profile store
	FeatureProfileCache = "profile_cache"
	// FeatureEventHooks enables event-driven hooks
	FeatureEventHooks = "event_hooks"
	// FeatureLLMAdvisor routes analysis through the chat completion collaborator
	FeatureLLMAdvisor = "llm_advisor"
	// FeatureRankSearch ranks category search results when a user id is given
	FeatureRankSearch = "rank_search"
)

// Defaults registers the predefined flags with the given initial states.
func Defaults(profileCache, eventHooks, llmAdvisor bool) *Manager {
	m := NewManager()
	m.Register(FeatureProfileCache, profileCache, "Read-through cache in front of the profile store")
	m.Register(FeatureEventHooks, eventHooks, "Publish profile and purchase events to subscribers")
	m.Register(FeatureLLMAdvisor, llmAdvisor, "Use the chat completion API for buyer analysis")
	m.Register(FeatureRankSearch, true, "Rank search results by the buyer's preferences")
	return m
}
