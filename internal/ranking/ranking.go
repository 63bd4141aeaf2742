// Package ranking orders catalog products by how well they fit a buyer's
// price profile and by their rating.
package ranking

import (
	"math"
	"sort"

	"shopping-assistant-api/internal/models"
)

const (
	priceWeight  = 0.6
	ratingWeight = 0.4
	maxRating    = 5.0
)

// Score returns the combined preference score of a product for the given
// target price. Higher is better.
func Score(product models.Product, targetPrice float64) float64 {
	return priceWeight*priceScore(product.Price, targetPrice) + ratingWeight*(product.Rating/maxRating)
}

// priceScore is 1 for an exact match and decays with the relative distance
// from the target. A zero target only rewards an exact match.
func priceScore(price, target float64) float64 {
	diff := math.Abs(price - target)
	if target == 0 {
		if diff == 0 {
			return 1
		}
		return 0
	}
	return 1 / (1 + diff/target)
}

// Rank returns the products reordered by descending score against the
// profile's average price. Ties keep their input order. Neither the input
// slice nor the profile is modified.
func Rank(products []models.Product, profile *models.BuyerProfile) []models.Product {
	ranked := make([]models.Product, len(products))
	copy(ranked, products)
	if len(ranked) < 2 {
		return ranked
	}

	target := models.DefaultPriceRange.Avg
	if profile != nil {
		target = profile.PriceStats().Avg
	}

	scores := make([]float64, len(ranked))
	for i, p := range ranked {
		scores[i] = Score(p, target)
	}

	sort.Stable(byScore{products: ranked, scores: scores})
	return ranked
}

type byScore struct {
	products []models.Product
	scores   []float64
}

func (s byScore) Len() int           { return len(s.products) }
func (s byScore) Less(i, j int) bool { return s.scores[i] > s.scores[j] }
func (s byScore) Swap(i, j int) {
	s.products[i], s.products[j] = s.products[j], s.products[i]
	s.scores[i], s.scores[j] = s.scores[j], s.scores[i]
}
