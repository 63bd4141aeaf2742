package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
)

// HistoryRecord is a single entry in a buyer's purchase history.
// Category and Price are the fields the ranking depends on; everything else
// (product, date, ...) is carried in Extra and passed through untouched.
type HistoryRecord struct {
	Category string
	Price    *float64 // nil when the record carries no numeric price
	Extra    map[string]any
}

// NewHistoryRecord builds a priced history record.
func NewHistoryRecord(category string, price float64, extra map[string]any) HistoryRecord {
	return HistoryRecord{
		Category: category,
		Price:    &price,
		Extra:    maps.Clone(extra),
	}
}

// Product returns the product name stored with the record, if any.
func (r HistoryRecord) Product() string {
	s, _ := r.Extra["product"].(string)
	return s
}

// MarshalJSON flattens the record back into a single JSON object. The
// output is the normalized form: a price parsed from a numeric string is
// written as a number, and an empty category is omitted.
func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.Category != "" {
		out["category"] = r.Category
	}
	if r.Price != nil {
		out["price"] = *r.Price
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object. A price that is not a number (or a
// numeric string) is kept in Extra and ignored by the price statistics.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("history record must be an object: %w", err)
	}

	*r = HistoryRecord{}
	if c, ok := raw["category"].(string); ok {
		r.Category = c
		delete(raw, "category")
	}
	if p, ok := parsePrice(raw["price"]); ok {
		r.Price = &p
		delete(raw, "price")
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case string:
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (r HistoryRecord) clone() HistoryRecord {
	c := HistoryRecord{Category: r.Category, Extra: maps.Clone(r.Extra)}
	if r.Price != nil {
		p := *r.Price
		c.Price = &p
	}
	return c
}

// BuyerProfile holds a buyer and their purchase history in purchase order.
type BuyerProfile struct {
	UserID  string          `json:"user_id"`
	History []HistoryRecord `json:"history"`
}

// NewBuyerProfile creates a profile with the given history.
func NewBuyerProfile(userID string, history ...HistoryRecord) *BuyerProfile {
	p := &BuyerProfile{UserID: userID, History: make([]HistoryRecord, 0, len(history))}
	for _, r := range history {
		p.History = append(p.History, r.clone())
	}
	return p
}

// Append adds a record to the end of the history.
func (p *BuyerProfile) Append(record HistoryRecord) {
	p.History = append(p.History, record)
}

// Categories returns the distinct categories found in the history, sorted.
func (p *BuyerProfile) Categories() []string {
	seen := make(map[string]struct{})
	categories := []string{}
	for _, r := range p.History {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}
	sort.Strings(categories)
	return categories
}

// HasCategory reports whether the buyer has bought anything in category.
func (p *BuyerProfile) HasCategory(category string) bool {
	for _, r := range p.History {
		if r.Category == category {
			return true
		}
	}
	return false
}

// PriceStats computes min, max and average over the priced records.
// Records without a price are skipped; DefaultPriceRange is returned when none are priced.
func (p *BuyerProfile) PriceStats() PriceRange {
	var (
		count int
		sum   float64
		pr    PriceRange
	)
	for _, r := range p.History {
		if r.Price == nil {
			continue
		}
		price := *r.Price
		if count == 0 || price < pr.Min {
			pr.Min = price
		}
		if count == 0 || price > pr.Max {
			pr.Max = price
		}
		sum += price
		count++
	}
	if count == 0 {
		return DefaultPriceRange
	}
	pr.Avg = sum / float64(count)
	return pr
}

// Clone returns a deep copy of the profile.
func (p *BuyerProfile) Clone() *BuyerProfile {
	if p == nil {
		return nil
	}
	return NewBuyerProfile(p.UserID, p.History...)
}
