package purchase

import (
	"sync"

	"shopping-assistant-api/internal/models"
)

// Log is the append-only, in-process transaction log.
// Entries are never modified or removed once appended.
type Log struct {
	mu      sync.RWMutex
	entries []models.Transaction
	byID    map[string]int
}

func NewLog() *Log {
	return &Log{byID: make(map[string]int)}
}

// Append adds a transaction to the end of the log.
func (l *Log) Append(txn models.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// On an id collision the first entry stays the one returned by ByID.
	if _, exists := l.byID[txn.TransactionID]; !exists {
		l.byID[txn.TransactionID] = len(l.entries)
	}
	l.entries = append(l.entries, txn)
}

// ForUser returns the user's transactions, oldest first.
func (l *Log) ForUser(userID string) []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := []models.Transaction{}
	for _, txn := range l.entries {
		if txn.UserID == userID {
			result = append(result, txn)
		}
	}
	return result
}

// All returns a copy of the whole log, oldest first.
func (l *Log) All() []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]models.Transaction{}, l.entries...)
}

// ByID looks up one transaction.
func (l *Log) ByID(id string) (models.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.byID[id]
	if !ok {
		return models.Transaction{}, false
	}
	return l.entries[i], true
}

// Len returns the number of logged transactions.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}
