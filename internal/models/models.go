package models

import "time"

// Product represents a catalog item. Products are loaded once at startup and never mutated.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"` // matched case-insensitively
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"` // 0.0 - 5.0
	Brand    string  `json:"brand"`
}

// TransactionStatusCompleted is the only status a logged transaction can have.
const TransactionStatusCompleted = "completed"

// Transaction represents one simulated purchase.
// Product fields are a snapshot taken at purchase time, not a live reference.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	ProductID     int       `json:"product_id"`
	Product       string    `json:"product"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	Brand         string    `json:"brand"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

// PriceRange summarizes the prices found in a buyer's history.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// DefaultPriceRange is used when a history carries no priced records.
var DefaultPriceRange = PriceRange{Min: 0, Max: 1000, Avg: 100}

// FailureKind classifies a failed purchase.
type FailureKind string

const (
	FailureProductNotFound FailureKind = "product_not_found"
	FailureBuyerNotFound   FailureKind = "buyer_not_found"
	FailureValidation      FailureKind = "validation_error"
	FailurePersistence     FailureKind = "persistence_failure"
	FailurePartial         FailureKind = "partial_failure" // transaction logged, history not updated
)

// PurchaseResult is the outcome of a purchase attempt.
// TransactionID is nil unless the transaction was logged.
type PurchaseResult struct {
	Success       bool         `json:"success"`
	Message       string       `json:"message"`
	Kind          FailureKind  `json:"kind,omitempty"`
	TransactionID *string      `json:"transaction_id"`
	Transaction   *Transaction `json:"transaction,omitempty"`
}

// Analysis describes a buyer's shopping behaviour.
type Analysis struct {
	Patterns            string   `json:"patterns"`
	PreferredCategories []string `json:"preferred_categories"`
	PriceSensitivity    string   `json:"price_sensitivity"`
	FrequencyAnalysis   string   `json:"frequency_analysis"`
}

// Recommendation suggests a category the buyer has not shopped in yet.
type Recommendation struct {
	RecommendedCategory string     `json:"recommended_category"`
	Reasoning           string     `json:"reasoning"`
	SuggestedPriceRange PriceRange `json:"suggested_price_range"`
}
