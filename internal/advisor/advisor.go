// Package advisor produces the natural-language side of a recommendation:
// a behaviour analysis, a suggested new category and a short justification.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopping-assistant-api/internal/models"
)

// ErrCollaborator is wrapped by every failure of an external advisor.
var ErrCollaborator = errors.New("advisor: collaborator failed")

// Advisor is the recommendation collaborator.
type Advisor interface {
	Analyze(ctx context.Context, profile *models.BuyerProfile) (models.Analysis, error)
	RecommendCategory(ctx context.Context, profile *models.BuyerProfile, analysis models.Analysis) (models.Recommendation, error)
	Justify(ctx context.Context, profile *models.BuyerProfile, rec models.Recommendation) (string, error)
}

// DefaultCategory is recommended when the buyer already shops in every category.
const DefaultCategory = "books"

// Fallback is the deterministic advisor used when no external advisor is
// configured or when it fails. It never returns an error.
type Fallback struct {
	categories []string
}

// NewFallback creates a fallback that picks from categories in the given order.
func NewFallback(categories []string) *Fallback {
	return &Fallback{categories: append([]string(nil), categories...)}
}

func (f *Fallback) Analyze(_ context.Context, profile *models.BuyerProfile) (models.Analysis, error) {
	return models.Analysis{
		Patterns:            fmt.Sprintf("Based on %d purchases, user shows consistent buying behavior", len(profile.History)),
		PreferredCategories: profile.Categories(),
		PriceSensitivity:    "moderate",
		FrequencyAnalysis:   "regular purchaser",
	}, nil
}

// RecommendCategory picks the first category the buyer has not bought from.
func (f *Fallback) RecommendCategory(_ context.Context, profile *models.BuyerProfile, _ models.Analysis) (models.Recommendation, error) {
	recommended := DefaultCategory
	for _, c := range f.categories {
		if !profile.HasCategory(c) {
			recommended = c
			break
		}
	}

	current := profile.Categories()
	reasoning := fmt.Sprintf("Based on your purchase history, %s would be a great new category to explore", recommended)
	if len(current) > 0 {
		reasoning = fmt.Sprintf("Based on your purchase history in %s, %s would complement your lifestyle and expand your interests",
			strings.Join(current, ", "), recommended)
	}

	return models.Recommendation{
		RecommendedCategory: recommended,
		Reasoning:           reasoning,
		SuggestedPriceRange: profile.PriceStats(),
	}, nil
}

func (f *Fallback) Justify(_ context.Context, _ *models.BuyerProfile, rec models.Recommendation) (string, error) {
	category := rec.RecommendedCategory
	if category == "" {
		category = "this category"
	}
	return fmt.Sprintf("Based on your shopping history, %s seems like a great fit for your preferences and budget! It complements your existing purchases perfectly.", category), nil
}
