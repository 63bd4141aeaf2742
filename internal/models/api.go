package models

// BuyerProfileView is a profile together with its derived statistics.
type BuyerProfileView struct {
	UserID     string          `json:"user_id"`
	History    []HistoryRecord `json:"history"`
	Categories []string        `json:"categories"`
	PriceRange PriceRange      `json:"price_range"`
}

// NewBuyerProfileView derives the view of a profile.
func NewBuyerProfileView(p *BuyerProfile) BuyerProfileView {
	history := p.History
	if history == nil {
		history = []HistoryRecord{}
	}
	return BuyerProfileView{
		UserID:     p.UserID,
		History:    history,
		Categories: p.Categories(),
		PriceRange: p.PriceStats(),
	}
}

// StoreProfileResponse is returned after a profile is stored.
type StoreProfileResponse struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	HistoryCount int    `json:"history_count"`
}

// ListProfilesResponse lists every stored buyer keyed by user id.
type ListProfilesResponse struct {
	TotalBuyers int                      `json:"total_buyers"`
	Buyers      map[string]*BuyerProfile `json:"buyers"`
}

// SearchResponse is the response for a category search.
type SearchResponse struct {
	Category   string    `json:"category"`
	TotalFound int       `json:"total_found"`
	Ranked     bool      `json:"ranked"`
	Products   []Product `json:"products"`
}

// AnalysisResponse bundles the analysis of a buyer with ranked suggestions.
type AnalysisResponse struct {
	UserID              string         `json:"user_id"`
	Analysis            Analysis       `json:"analysis"`
	Recommendation      Recommendation `json:"recommendation"`
	Justification       string         `json:"justification"`
	RecommendedProducts []Product      `json:"recommended_products"`
	CurrentCategories   []string       `json:"current_categories"`
	PriceRange          PriceRange     `json:"price_range"`
	Fallback            bool           `json:"fallback"` // true when any part came from the deterministic fallback
}

// PurchaseRequest is the request body for a simulated purchase.
type PurchaseRequest struct {
	UserID    string `json:"user_id"`
	ProductID int    `json:"product_id"`
}

// TransactionsResponse lists logged transactions, oldest first.
type TransactionsResponse struct {
	UserID            string        `json:"user_id,omitempty"`
	TotalTransactions int           `json:"total_transactions"`
	Transactions      []Transaction `json:"transactions"`
}

// CategoriesResponse lists every catalog category.
type CategoriesResponse struct {
	Categories      []string `json:"categories"`
	TotalCategories int      `json:"total_categories"`
}

// FeatureToggleRequest is the request body for switching a feature flag.
type FeatureToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
