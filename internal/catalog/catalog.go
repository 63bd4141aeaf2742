package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"shopping-assistant-api/internal/models"
)

var ErrInvalidProduct = errors.New("catalog: invalid product")

// Index is a read-only view over the product dataset.
// It is safe for concurrent use since nothing mutates it after New.
type Index struct {
	products []models.Product
	byID     map[int]int
}

// New builds an index, keeping the products in the order given.
func New(products []models.Product) (*Index, error) {
	idx := &Index{
		products: make([]models.Product, 0, len(products)),
		byID:     make(map[int]int, len(products)),
	}

	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, fmt.Errorf("product at index %d: %w", i, err)
		}
		if _, dup := idx.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidProduct, p.ID)
		}
		idx.byID[p.ID] = len(idx.products)
		idx.products = append(idx.products, p)
	}

	return idx, nil
}

// LoadFile reads a JSON array of products.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return New(products)
}

func validateProduct(p models.Product) error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: id must be positive", ErrInvalidProduct)
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case p.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidProduct)
	}
	return nil
}

// ByCategory returns up to limit products of the category in dataset order.
func (idx *Index) ByCategory(category string, limit int) []models.Product {
	result := []models.Product{}
	if limit <= 0 {
		return result
	}

	for _, p := range idx.products {
		if !strings.EqualFold(p.Category, category) {
			continue
		}
		result = append(result, p)
		if len(result) == limit {
			break
		}
	}

	return result
}

// ByID looks up a single product.
func (idx *Index) ByID(id int) (models.Product, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return idx.products[i], true
}

// AllCategories returns the distinct categories, sorted.
func (idx *Index) AllCategories() []string {
	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range idx.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}

// CategoriesInOrder returns the distinct categories in order of first appearance.
func (idx *Index) CategoriesInOrder() []string {
	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range idx.products {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			categories = append(categories, p.Category)
		}
	}
	return categories
}

// All returns a copy of every product.
func (idx *Index) All() []models.Product {
	return append([]models.Product(nil), idx.products...)
}

// Len returns the number of products.
func (idx *Index) Len() int {
	return len(idx.products)
}
