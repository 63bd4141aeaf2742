package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopping-assistant-api/internal/advisor"
	"shopping-assistant-api/internal/catalog"
	"shopping-assistant-api/internal/events"
	"shopping-assistant-api/internal/features"
	"shopping-assistant-api/internal/models"
	"shopping-assistant-api/internal/purchase"
	"shopping-assistant-api/internal/store"
	"shopping-assistant-api/internal/validation"
)

func setupTestService(t *testing.T, deps Deps) (*Service, store.ProfileStore) {
	t.Helper()

	products := catalog.Default()
	profiles := store.NewMemoryStore()
	ctx := context.Background()

	seed := models.NewBuyerProfile("A123",
		models.NewHistoryRecord("electronics", 120, map[string]any{"product": "Wireless Headphones"}),
		models.NewHistoryRecord("sportswear", 80, map[string]any{"product": "Running Shoes"}),
	)
	if err := profiles.Put(ctx, seed); err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}

	deps.Catalog = products
	deps.Profiles = profiles
	if deps.Engine == nil {
		deps.Engine = purchase.NewEngine(products, profiles, purchase.WithClock(func() time.Time {
			return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		}))
	}

	return NewService(deps), profiles
}

// stubAdvisor answers with fixed values or fails every step when err is set.
type stubAdvisor struct {
	err error
	rec models.Recommendation
}

func (s stubAdvisor) Analyze(ctx context.Context, profile *models.BuyerProfile) (models.Analysis, error) {
	if s.err != nil {
		return models.Analysis{}, s.err
	}
	return models.Analysis{Patterns: "stub patterns", PriceSensitivity: "low"}, nil
}

func (s stubAdvisor) RecommendCategory(ctx context.Context, profile *models.BuyerProfile, analysis models.Analysis) (models.Recommendation, error) {
	if s.err != nil {
		return models.Recommendation{}, s.err
	}
	return s.rec, nil
}

func (s stubAdvisor) Justify(ctx context.Context, profile *models.BuyerProfile, rec models.Recommendation) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "stub justification", nil
}

func TestGetProfile(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	view, err := svc.GetProfile(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}

	if len(view.History) != 2 {
		t.Errorf("Expected 2 history records, got %d", len(view.History))
	}
	if view.PriceRange != (models.PriceRange{Min: 80, Max: 120, Avg: 100}) {
		t.Errorf("Unexpected price range: %+v", view.PriceRange)
	}

	_, err = svc.GetProfile(context.Background(), "nobody")
	if !errors.Is(err, ErrBuyerNotFound) {
		t.Errorf("Expected ErrBuyerNotFound, got %v", err)
	}
}

func TestPutProfile(t *testing.T) {
	var (
		mu     sync.Mutex
		stored []events.ProfileStoredData
	)
	em := events.NewManager(true)
	em.Subscribe(events.EventProfileStored, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		stored = append(stored, e.Data.(events.ProfileStoredData))
		return nil
	})

	svc, profiles := setupTestService(t, Deps{
		Events:   em,
		Features: features.Defaults(false, true, false),
	})

	profile := &models.BuyerProfile{UserID: "B456"}
	if err := svc.PutProfile(context.Background(), profile); err != nil {
		t.Fatalf("Failed to store profile: %v", err)
	}
	em.Wait()

	got, err := profiles.Get(context.Background(), "B456")
	if err != nil {
		t.Fatalf("Stored profile not found: %v", err)
	}
	if got.History == nil || len(got.History) != 0 {
		t.Errorf("Expected empty non-nil history, got %v", got.History)
	}

	if len(stored) != 1 || stored[0].UserID != "B456" {
		t.Errorf("Expected one profile.stored event for B456, got %v", stored)
	}
}

func TestPutProfile_Invalid(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	tests := []struct {
		name    string
		profile *models.BuyerProfile
	}{
		{"missing user id", &models.BuyerProfile{UserID: ""}},
		{"record without category", models.NewBuyerProfile("X1", models.HistoryRecord{Extra: map[string]any{"product": "thing"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.PutProfile(context.Background(), tt.profile)
			var verr *validation.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}

	if _, err := svc.GetProfile(context.Background(), "X1"); !errors.Is(err, ErrBuyerNotFound) {
		t.Errorf("Expected rejected profile not to be stored, got %v", err)
	}
}

func TestListProfiles(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})
	if err := svc.PutProfile(context.Background(), models.NewBuyerProfile("B456")); err != nil {
		t.Fatalf("Failed to store profile: %v", err)
	}

	resp, err := svc.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	if resp.TotalBuyers != 2 {
		t.Errorf("Expected 2 buyers, got %d", resp.TotalBuyers)
	}
	if _, ok := resp.Buyers["A123"]; !ok {
		t.Error("Expected A123 in buyer list")
	}
}

func TestSearchCategory_DefaultLimitAboveCap(t *testing.T) {
	svc, _ := setupTestService(t, Deps{MaxSearchResults: 60})

	resp, err := svc.SearchCategory(context.Background(), "electronics", 0, "")
	if err != nil {
		t.Fatalf("Search without max_results failed: %v", err)
	}
	if resp.TotalFound != 5 {
		t.Errorf("Expected all 5 electronics products, got %d", resp.TotalFound)
	}

	analysis, err := svc.Analyze(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.RecommendedProducts) == 0 {
		t.Error("Expected recommended products with the clamped limit")
	}
}

func TestSearchCategory(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})
	ctx := context.Background()

	resp, err := svc.SearchCategory(ctx, "Electronics", 0, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.TotalFound != 3 || resp.Ranked {
		t.Errorf("Expected 3 unranked products, got %d (ranked=%t)", resp.TotalFound, resp.Ranked)
	}
	if resp.Products[0].ID != 1 {
		t.Errorf("Expected catalog order, got first id %d", resp.Products[0].ID)
	}

	resp, err = svc.SearchCategory(ctx, "electronics", 5, "A123")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !resp.Ranked {
		t.Error("Expected results ranked for a known buyer")
	}
	// Headphones at 120 sit closest to the buyer's average of 100.
	if resp.Products[0].ID != 1 {
		t.Errorf("Expected product 1 first, got %d", resp.Products[0].ID)
	}

	resp, err = svc.SearchCategory(ctx, "electronics", 3, "nobody")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Ranked {
		t.Error("Expected unknown buyer to leave results unranked")
	}

	resp, err = svc.SearchCategory(ctx, "garden", 3, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.TotalFound != 0 || resp.Products == nil {
		t.Errorf("Expected empty non-nil result, got %v", resp.Products)
	}

	if _, err := svc.SearchCategory(ctx, "electronics", 51, ""); err == nil {
		t.Error("Expected error for limit above cap")
	}
	if _, err := svc.SearchCategory(ctx, "bad/category", 3, ""); err == nil {
		t.Error("Expected error for invalid category")
	}
}

func TestAnalyze_FallbackWithoutAdvisor(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	resp, err := svc.Analyze(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !resp.Fallback {
		t.Error("Expected fallback to be reported")
	}
	if resp.Recommendation.RecommendedCategory != "home_decor" {
		t.Errorf("Expected home_decor, got %s", resp.Recommendation.RecommendedCategory)
	}
	if len(resp.RecommendedProducts) != 3 {
		t.Fatalf("Expected 3 recommended products, got %d", len(resp.RecommendedProducts))
	}
	for _, p := range resp.RecommendedProducts {
		if p.Category != "home_decor" {
			t.Errorf("Expected home_decor product, got %s", p.Category)
		}
	}
	if resp.PriceRange.Avg != 100 {
		t.Errorf("Expected average price 100, got %v", resp.PriceRange.Avg)
	}
}

func TestAnalyze_UsesAdvisor(t *testing.T) {
	svc, _ := setupTestService(t, Deps{
		Advisor: stubAdvisor{rec: models.Recommendation{RecommendedCategory: "kitchen", Reasoning: "stub"}},
	})

	resp, err := svc.Analyze(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Fallback {
		t.Error("Expected no fallback when the advisor succeeds")
	}
	if resp.Analysis.Patterns != "stub patterns" || resp.Justification != "stub justification" {
		t.Errorf("Expected advisor output, got %+v", resp)
	}
	if resp.RecommendedProducts[0].Category != "kitchen" {
		t.Errorf("Expected kitchen products, got %s", resp.RecommendedProducts[0].Category)
	}
}

func TestAnalyze_AdvisorFailureFallsBack(t *testing.T) {
	svc, _ := setupTestService(t, Deps{
		Advisor: stubAdvisor{err: advisor.ErrCollaborator},
	})

	resp, err := svc.Analyze(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Analyze must not fail when the advisor does: %v", err)
	}
	if !resp.Fallback || resp.Recommendation.RecommendedCategory != "home_decor" {
		t.Errorf("Expected fallback recommendation, got %+v", resp.Recommendation)
	}
}

func TestAnalyze_AdvisorFlagDisabled(t *testing.T) {
	svc, _ := setupTestService(t, Deps{
		Advisor:  stubAdvisor{rec: models.Recommendation{RecommendedCategory: "kitchen"}},
		Features: features.Defaults(false, false, false),
	})

	resp, err := svc.Analyze(context.Background(), "A123")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !resp.Fallback {
		t.Error("Expected fallback when the llm_advisor flag is off")
	}
}

func TestAnalyze_UnknownBuyer(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	if _, err := svc.Analyze(context.Background(), "nobody"); !errors.Is(err, ErrBuyerNotFound) {
		t.Errorf("Expected ErrBuyerNotFound, got %v", err)
	}
}

func TestPurchaseAndTransactions(t *testing.T) {
	em := events.NewManager(true)
	var (
		mu      sync.Mutex
		results []models.PurchaseResult
	)
	record := func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, e.Data.(events.PurchaseData).Result)
		return nil
	}
	em.Subscribe(events.EventPurchaseCompleted, record)
	em.Subscribe(events.EventPurchaseFailed, record)

	svc, profiles := setupTestService(t, Deps{
		Events:   em,
		Features: features.Defaults(false, true, false),
	})
	ctx := context.Background()

	result := svc.Purchase(ctx, "A123", 6)
	if !result.Success {
		t.Fatalf("Expected purchase to succeed: %s", result.Message)
	}
	if failed := svc.Purchase(ctx, "nobody", 6); failed.Kind != models.FailureBuyerNotFound {
		t.Errorf("Expected buyer_not_found, got %s", failed.Kind)
	}
	em.Wait()

	if len(results) != 2 {
		t.Errorf("Expected 2 purchase events, got %d", len(results))
	}

	profile, _ := profiles.Get(ctx, "A123")
	if len(profile.History) != 3 {
		t.Errorf("Expected 3 history records, got %d", len(profile.History))
	}

	txns := svc.Transactions("A123")
	if txns.TotalTransactions != 1 || txns.Transactions[0].TransactionID != *result.TransactionID {
		t.Errorf("Unexpected transactions: %+v", txns)
	}
	if all := svc.Transactions(""); all.TotalTransactions != 1 {
		t.Errorf("Expected 1 transaction overall, got %d", all.TotalTransactions)
	}
	if none := svc.Transactions("nobody"); none.TotalTransactions != 0 || none.Transactions == nil {
		t.Errorf("Expected empty non-nil list, got %+v", none)
	}

	txn, err := svc.TransactionByID(*result.TransactionID)
	if err != nil {
		t.Fatalf("Transaction lookup failed: %v", err)
	}
	if txn.Product != "Running Shoes" {
		t.Errorf("Expected Running Shoes, got %s", txn.Product)
	}
	if _, err := svc.TransactionByID("TXN_missing"); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestCategoriesAndFeatures(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	cats := svc.Categories()
	if cats.TotalCategories != 6 || cats.Categories[0] != "books" {
		t.Errorf("Unexpected categories: %+v", cats)
	}

	if flags := svc.Features(); len(flags) != 4 {
		t.Errorf("Expected 4 feature flags, got %d", len(flags))
	}
}

func TestSetFeature(t *testing.T) {
	svc, _ := setupTestService(t, Deps{})

	flag, err := svc.SetFeature(features.FeatureEventHooks, true)
	if err != nil {
		t.Fatalf("SetFeature failed: %v", err)
	}
	if flag.Name != features.FeatureEventHooks || !flag.Enabled {
		t.Errorf("Expected event_hooks enabled, got %+v", flag)
	}

	if _, err := svc.SetFeature("nope", true); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("Expected ErrFeatureNotFound, got %v", err)
	}
}
