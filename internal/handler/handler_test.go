package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"shopping-assistant-api/internal/catalog"
	"shopping-assistant-api/internal/models"
	"shopping-assistant-api/internal/service"
	"shopping-assistant-api/internal/store"
)

func setupTestHandler(t *testing.T) *chi.Mux {
	t.Helper()

	profiles, err := store.NewFileStore(filepath.Join(t.TempDir(), "buyer_history.json"))
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	svc := service.NewService(service.Deps{
		Catalog:  catalog.Default(),
		Profiles: profiles,
	})
	h := NewHandlerWithOptions(svc, NewHandlerOptions{MaxBodySize: 4096})

	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func do(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

const a123Body = `{"user_id":"A123","history":[
	{"product":"Wireless Headphones","category":"electronics","price":120,"date":"2024-01-15"},
	{"product":"Running Shoes","category":"sportswear","price":80,"date":"2024-02-03"}
]}`

func storeA123(t *testing.T, r http.Handler) {
	t.Helper()
	rr := do(r, "POST", "/buyer", a123Body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	r := setupTestHandler(t)

	rr := do(r, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestIndex(t *testing.T) {
	r := setupTestHandler(t)

	rr := do(r, "GET", "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "POST /purchase") {
		t.Errorf("Expected endpoint listing, got %s", rr.Body.String())
	}
}

func TestStoreAndGetProfile(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	rr := do(r, "GET", "/buyer/A123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var view models.BuyerProfileView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if view.PriceRange.Avg != 100 {
		t.Errorf("Expected average 100, got %v", view.PriceRange.Avg)
	}
	if len(view.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %v", view.Categories)
	}
	if view.History[0].Extra["date"] != "2024-01-15" {
		t.Errorf("Expected extra fields to be kept, got %v", view.History[0].Extra)
	}
}

func TestStoreProfile_BadRequests(t *testing.T) {
	r := setupTestHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", `{"user_id":`, http.StatusBadRequest},
		{"missing user id", `{"history":[]}`, http.StatusBadRequest},
		{"negative price", `{"user_id":"A1","history":[{"category":"books","price":-1}]}`, http.StatusBadRequest},
		{"record without category", `{"user_id":"A1","history":[{"product":"thing","price":10}]}`, http.StatusBadRequest},
		{"too large", `{"user_id":"A1","pad":"` + strings.Repeat("x", 5000) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(r, "POST", "/buyer", tt.body)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	r := setupTestHandler(t)

	rr := do(r, "GET", "/buyer/nobody", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "Buyer not found" {
		t.Errorf("Expected 'Buyer not found', got %q", resp.Error)
	}
}

func TestListProfiles(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	rr := do(r, "GET", "/buyers", "")
	var resp models.ListProfilesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalBuyers != 1 {
		t.Errorf("Expected 1 buyer, got %d", resp.TotalBuyers)
	}
}

func TestSearch(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	rr := do(r, "GET", "/search/sportswear?max_results=5&user_id=A123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalFound != 5 || !resp.Ranked {
		t.Errorf("Expected 5 ranked products, got %d (ranked=%t)", resp.TotalFound, resp.Ranked)
	}
	if resp.Products[0].ID != 6 {
		t.Errorf("Expected Running Shoes first, got %d", resp.Products[0].ID)
	}

	if rr := do(r, "GET", "/search/sportswear?max_results=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-integer max_results, got %d", rr.Code)
	}
	if rr := do(r, "GET", "/search/sportswear?max_results=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative max_results, got %d", rr.Code)
	}
}

func TestAnalyze(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	rr := do(r, "POST", "/analyze/A123", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.AnalysisResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Recommendation.RecommendedCategory != "home_decor" {
		t.Errorf("Expected home_decor, got %s", resp.Recommendation.RecommendedCategory)
	}

	if rr := do(r, "POST", "/analyze/nobody", ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestPurchase(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	rr := do(r, "POST", "/purchase", `{"user_id":"A123","product_id":6}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var result models.PurchaseResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Success || result.TransactionID == nil {
		t.Fatalf("Expected success with transaction id, got %+v", result)
	}

	rr = do(r, "GET", "/transactions/A123", "")
	var txns models.TransactionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&txns); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if txns.TotalTransactions != 1 {
		t.Errorf("Expected 1 transaction, got %d", txns.TotalTransactions)
	}

	rr = do(r, "GET", "/transaction/"+*result.TransactionID, "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr := do(r, "GET", "/transaction/TXN_missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	rr = do(r, "GET", "/buyer/A123", "")
	var view models.BuyerProfileView
	json.NewDecoder(rr.Body).Decode(&view)
	if len(view.History) != 3 {
		t.Errorf("Expected 3 history records after purchase, got %d", len(view.History))
	}
}

func TestPurchase_Failures(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown buyer", `{"user_id":"nobody","product_id":6}`, http.StatusNotFound},
		{"unknown product", `{"user_id":"A123","product_id":999}`, http.StatusNotFound},
		{"missing product", `{"user_id":"A123"}`, http.StatusBadRequest},
		{"wrong type", `{"user_id":"A123","product_id":"six"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(r, "POST", "/purchase", tt.body)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}

	rr := do(r, "GET", "/transactions", "")
	var txns models.TransactionsResponse
	json.NewDecoder(rr.Body).Decode(&txns)
	if txns.TotalTransactions != 0 {
		t.Errorf("Expected no transactions after failures, got %d", txns.TotalTransactions)
	}
}

func TestCategoriesAndFeatures(t *testing.T) {
	r := setupTestHandler(t)

	rr := do(r, "GET", "/categories", "")
	var cats models.CategoriesResponse
	if err := json.NewDecoder(rr.Body).Decode(&cats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if cats.TotalCategories != 6 {
		t.Errorf("Expected 6 categories, got %d", cats.TotalCategories)
	}

	rr = do(r, "GET", "/features", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "rank_search") {
		t.Errorf("Expected feature list, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSetFeature(t *testing.T) {
	r := setupTestHandler(t)

	rr := do(r, "PUT", "/features/rank_search", `{"enabled":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"enabled":false`) {
		t.Errorf("Expected flag disabled in response, got %s", rr.Body.String())
	}

	do(r, "POST", "/buyer", a123Body)
	rr = do(r, "GET", "/search/electronics?user_id=A123", "")
	var resp models.SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Ranked {
		t.Error("Expected unranked search with rank_search disabled")
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown flag", "/features/nope", `{"enabled":true}`, http.StatusNotFound},
		{"missing enabled", "/features/rank_search", `{}`, http.StatusBadRequest},
		{"empty body", "/features/rank_search", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(r, "PUT", tt.path, tt.body)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestConcurrentPurchasesOverHTTP(t *testing.T) {
	r := setupTestHandler(t)
	storeA123(t, r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	done := make(chan int, 10)
	for i := 0; i < 10; i++ {
		go func() {
			req, _ := http.NewRequestWithContext(context.Background(), "POST", srv.URL+"/purchase",
				strings.NewReader(`{"user_id":"A123","product_id":17}`))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				done <- 0
				return
			}
			resp.Body.Close()
			done <- resp.StatusCode
		}()
	}
	for i := 0; i < 10; i++ {
		if status := <-done; status != http.StatusCreated {
			t.Errorf("Expected status 201, got %d", status)
		}
	}

	rr := do(r, "GET", "/buyer/A123", "")
	var view models.BuyerProfileView
	json.NewDecoder(rr.Body).Decode(&view)
	if len(view.History) != 12 {
		t.Errorf("Expected 12 history records, got %d", len(view.History))
	}
}

func TestCostlyMiddlewareWrapsOnlyCostlyRoutes(t *testing.T) {
	profiles := store.NewMemoryStore()
	svc := service.NewService(service.Deps{Catalog: catalog.Default(), Profiles: profiles})

	var hits []string
	h := NewHandlerWithOptions(svc, NewHandlerOptions{
		CostlyMiddleware: []func(http.Handler) http.Handler{
			func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					hits = append(hits, r.URL.Path)
					next.ServeHTTP(w, r)
				})
			},
		},
	})
	r := chi.NewRouter()
	h.Routes(r)

	do(r, "GET", "/categories", "")
	do(r, "POST", "/purchase", `{"user_id":"A123","product_id":6}`)
	do(r, "POST", "/analyze/A123", "")
	do(r, "GET", "/search/books", "")

	if len(hits) != 2 || hits[0] != "/purchase" || hits[1] != "/analyze/A123" {
		t.Errorf("Expected only purchase and analyze to pass the costly middleware, got %v", hits)
	}
}
