package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"shopping-assistant-api/internal/models"
)

var (
	userIDRegex   = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,128}$`)
	categoryRegex = regexp.MustCompile(`^[A-Za-z0-9_ -]{1,64}$`)
)

const maxHistoryRecords = 10000

// MaxSearchResults is the largest result count a search may ask for.
const MaxSearchResults = 50

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateProfile checks a profile before it is stored.
func ValidateProfile(profile *models.BuyerProfile) error {
	if profile == nil {
		return &ValidationError{
			Field:   "user_id",
			Message: "is required",
		}
	}

	if err := ValidateUserID(profile.UserID); err != nil {
		return err
	}

	if len(profile.History) > maxHistoryRecords {
		return &ValidationError{
			Field:   "history",
			Message: fmt.Sprintf("cannot contain more than %d records", maxHistoryRecords),
		}
	}

	for i, record := range profile.History {
		if err := validateHistoryRecord(record); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("history[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

// validateHistoryRecord requires a category. A missing price is allowed;
// such records are skipped by the price statistics.
func validateHistoryRecord(record models.HistoryRecord) error {
	if strings.TrimSpace(record.Category) == "" {
		return &ValidationError{
			Field:   "category",
			Message: "is required",
		}
	}

	if record.Price == nil {
		return nil
	}

	price := *record.Price
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &ValidationError{
			Field:   "price",
			Message: "must be a finite number",
		}
	}

	if price < 0 {
		return &ValidationError{
			Field:   "price",
			Message: "must be non-negative",
		}
	}

	return nil
}

// ValidatePurchase checks the identifying fields of a purchase request.
func ValidatePurchase(req models.PurchaseRequest) error {
	if err := ValidateUserID(req.UserID); err != nil {
		return err
	}

	if req.ProductID <= 0 {
		return &ValidationError{
			Field:   "product_id",
			Message: "must be a positive integer",
		}
	}

	return nil
}

func ValidateUserID(userID string) error {
	if userID == "" {
		return &ValidationError{
			Field:   "user_id",
			Message: "is required",
		}
	}

	// Checked as given: callers sanitize before validating, never after.
	if !userIDRegex.MatchString(userID) {
		return &ValidationError{
			Field:   "user_id",
			Message: "must be 1-128 characters of letters, digits, '_', '-', '.', '@'",
		}
	}

	return nil
}

func ValidateCategory(category string) error {
	if category == "" {
		return &ValidationError{
			Field:   "category",
			Message: "is required",
		}
	}

	if !categoryRegex.MatchString(category) {
		return &ValidationError{
			Field:   "category",
			Message: "contains invalid characters",
		}
	}

	return nil
}

func ValidateLimit(limit, max int) error {
	if limit <= 0 {
		return &ValidationError{
			Field:   "max_results",
			Message: "must be positive",
		}
	}

	if limit > max {
		return &ValidationError{
			Field:   "max_results",
			Message: fmt.Sprintf("cannot exceed %d", max),
		}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
