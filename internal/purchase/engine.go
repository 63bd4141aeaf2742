// Package purchase simulates purchases: each successful purchase appends a
// transaction to the log and a record to the buyer's persisted history.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"shopping-assistant-api/internal/models"
	"shopping-assistant-api/internal/store"
	"shopping-assistant-api/internal/validation"
)

// ProductLookup resolves catalog products by id.
type ProductLookup interface {
	ByID(id int) (models.Product, bool)
}

// Engine executes purchases. Purchases for the same buyer are serialized so
// the read-modify-write of the history cannot lose updates.
type Engine struct {
	products ProductLookup
	profiles store.ProfileStore
	log      *Log
	now      func() time.Time
	locks    userLocks
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLog makes the engine append to an existing log.
func WithLog(l *Log) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(products ProductLookup, profiles store.ProfileStore, opts ...Option) *Engine {
	e := &Engine{
		products: products,
		profiles: profiles,
		log:      NewLog(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    userLocks{locks: make(map[string]*userLock)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Log returns the engine's transaction log.
func (e *Engine) Log() *Log {
	return e.log
}

// Purchase buys productID for userID. It never returns an error: failures
// are reported through the result's Kind. A transaction id is only set once
// the transaction has been logged.
func (e *Engine) Purchase(ctx context.Context, userID string, productID int) models.PurchaseResult {
	if err := validation.ValidatePurchase(models.PurchaseRequest{UserID: userID, ProductID: productID}); err != nil {
		return failure(models.FailureValidation, err.Error(), nil)
	}

	product, ok := e.products.ByID(productID)
	if !ok {
		return failure(models.FailureProductNotFound, "Product not found", nil)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	profile, err := e.profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return failure(models.FailureBuyerNotFound, "Buyer profile not found", nil)
	}
	if err != nil {
		log.Printf("purchase: failed to load buyer %s: %v", userID, err)
		return failure(models.FailurePersistence, "Failed to load buyer profile", nil)
	}

	now := e.now()
	txn := models.Transaction{
		TransactionID: TransactionID(now, userID, productID),
		UserID:        userID,
		ProductID:     product.ID,
		Product:       product.Name,
		Category:      product.Category,
		Price:         product.Price,
		Brand:         product.Brand,
		Timestamp:     now,
		Status:        models.TransactionStatusCompleted,
	}
	e.log.Append(txn)

	profile.Append(models.NewHistoryRecord(product.Category, product.Price, map[string]any{
		"product": product.Name,
		"date":    now.Format(time.RFC3339),
	}))

	// The transaction stays logged when this fails; the result reports the gap.
	if err := e.profiles.Put(ctx, profile); err != nil {
		log.Printf("purchase: transaction %s logged but history update for %s failed: %v", txn.TransactionID, userID, err)
		return failure(models.FailurePartial, "Failed to update buyer history", &txn)
	}

	id := txn.TransactionID
	return models.PurchaseResult{
		Success:       true,
		Message:       fmt.Sprintf("Successfully purchased %s for $%s", product.Name, strconv.FormatFloat(product.Price, 'f', -1, 64)),
		TransactionID: &id,
		Transaction:   &txn,
	}
}

// ReplaceProfile stores a full profile under the same per-buyer lock that
// purchases take, so an overwrite never interleaves with a purchase.
func (e *Engine) ReplaceProfile(ctx context.Context, profile *models.BuyerProfile) error {
	unlock := e.locks.lock(profile.UserID)
	defer unlock()

	return e.profiles.Put(ctx, profile)
}

// TransactionsFor returns the user's transactions, oldest first.
func (e *Engine) TransactionsFor(userID string) []models.Transaction {
	return e.log.ForUser(userID)
}

// Transactions returns every logged transaction, oldest first.
func (e *Engine) Transactions() []models.Transaction {
	return e.log.All()
}

// TransactionByID looks up a single transaction.
func (e *Engine) TransactionByID(id string) (models.Transaction, bool) {
	return e.log.ByID(id)
}

// TransactionID builds the composite id TXN_<date>_<time>_<user>_<product>.
// Two purchases of the same product by the same buyer within one second
// produce the same id.
func TransactionID(at time.Time, userID string, productID int) string {
	return fmt.Sprintf("TXN_%s_%s_%d", at.Format("20060102_150405"), userID, productID)
}

func failure(kind models.FailureKind, message string, txn *models.Transaction) models.PurchaseResult {
	result := models.PurchaseResult{
		Success: false,
		Message: message,
		Kind:    kind,
	}
	if txn != nil {
		id := txn.TransactionID
		result.TransactionID = &id
	}
	return result
}

type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
