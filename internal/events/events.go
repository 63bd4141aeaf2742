package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"shopping-assistant-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventProfileStored is emitted when a buyer profile is created or replaced
	EventProfileStored EventType = "profile.stored"
	// EventPurchaseCompleted is emitted after a purchase updated both the log and the history
	EventPurchaseCompleted EventType = "purchase.completed"
	// EventPurchaseFailed is emitted for every failed purchase attempt
	EventPurchaseFailed EventType = "purchase.failed"
	// EventRecommendationGenerated is emitted when a buyer analysis finishes
	EventRecommendationGenerated EventType = "recommendation.generated"
)

// Event represents an event in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// ProfileStoredData contains data for profile stored events.
type ProfileStoredData struct {
	UserID       string
	HistoryCount int
}

// PurchaseData contains data for purchase events.
type PurchaseData struct {
	UserID    string
	ProductID int
	Result    models.PurchaseResult
}

// RecommendationData contains data for recommendation events.
type RecommendationData struct {
	UserID         string
	Recommendation models.Recommendation
	Fallback       bool
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	wg       sync.WaitGroup
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish hands the event to every subscribed handler on its own goroutine.
// Handlers get a context detached from the caller's cancellation.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	if !m.enabled || len(handlers) == 0 {
		m.mu.RUnlock()
		return
	}
	// Counted under the lock so Shutdown cannot start waiting in between.
	m.wg.Add(len(handlers))
	m.mu.RUnlock()

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	hctx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(hctx, event); err != nil {
				log.Printf("event handler for %s (%s) failed: %v", event.Type, event.ID, err)
			}
		}(handler)
	}
}

// PublishProfileStored publishes a profile stored event.
func (m *Manager) PublishProfileStored(ctx context.Context, profile *models.BuyerProfile) {
	m.Publish(ctx, EventProfileStored, ProfileStoredData{
		UserID:       profile.UserID,
		HistoryCount: len(profile.History),
	})
}

// PublishPurchase publishes a completed or failed purchase event depending on the result.
func (m *Manager) PublishPurchase(ctx context.Context, userID string, productID int, result models.PurchaseResult) {
	eventType := EventPurchaseCompleted
	if !result.Success {
		eventType = EventPurchaseFailed
	}
	m.Publish(ctx, eventType, PurchaseData{
		UserID:    userID,
		ProductID: productID,
		Result:    result,
	})
}

// PublishRecommendation publishes a recommendation generated event.
func (m *Manager) PublishRecommendation(ctx context.Context, userID string, rec models.Recommendation, fallback bool) {
	m.Publish(ctx, EventRecommendationGenerated, RecommendationData{
		UserID:         userID,
		Recommendation: rec,
		Fallback:       fallback,
	})
}

// Wait blocks until every handler started so far has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown stops accepting events and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
