package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"shopping-assistant-api/internal/advisor"
	"shopping-assistant-api/internal/catalog"
	"shopping-assistant-api/internal/events"
	"shopping-assistant-api/internal/features"
	"shopping-assistant-api/internal/models"
	"shopping-assistant-api/internal/purchase"
	"shopping-assistant-api/internal/ranking"
	"shopping-assistant-api/internal/store"
	"shopping-assistant-api/internal/validation"
)

var (
	ErrBuyerNotFound       = errors.New("buyer not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrFeatureNotFound     = errors.New("feature flag not found")
)

const (
	defaultMaxSearchResults = 3
)

// Deps holds the components a Service is built from.
type Deps struct {
	Catalog  *catalog.Index
	Profiles store.ProfileStore
	Engine   *purchase.Engine
	Advisor  advisor.Advisor // external collaborator, optional
	Events   *events.Manager
	Features *features.Manager

	MaxSearchResults int
}

// Service provides business logic for the shopping assistant API.
type Service struct {
	catalog          *catalog.Index
	profiles         store.ProfileStore
	engine           *purchase.Engine
	advisor          advisor.Advisor
	fallback         *advisor.Fallback
	events           *events.Manager
	features         *features.Manager
	maxSearchResults int
	tracer           trace.Tracer
}

// NewService creates a new service instance. Missing optional components
// get their defaults: an engine over Catalog and Profiles, disabled events
// and the default feature flags.
func NewService(deps Deps) *Service {
	s := &Service{
		catalog:          deps.Catalog,
		profiles:         deps.Profiles,
		engine:           deps.Engine,
		advisor:          deps.Advisor,
		fallback:         advisor.NewFallback(deps.Catalog.CategoriesInOrder()),
		events:           deps.Events,
		features:         deps.Features,
		maxSearchResults: deps.MaxSearchResults,
		tracer:           otel.Tracer("shopping-assistant-api"),
	}
	if s.engine == nil {
		s.engine = purchase.NewEngine(deps.Catalog, deps.Profiles)
	}
	if s.events == nil {
		s.events = events.NewManager(false)
	}
	if s.features == nil {
		s.features = features.Defaults(false, false, deps.Advisor != nil)
	}
	if s.maxSearchResults <= 0 {
		s.maxSearchResults = defaultMaxSearchResults
	}
	if s.maxSearchResults > validation.MaxSearchResults {
		s.maxSearchResults = validation.MaxSearchResults
	}
	return s
}

// GetProfile returns a stored profile with its derived statistics.
func (s *Service) GetProfile(ctx context.Context, userID string) (models.BuyerProfileView, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return models.BuyerProfileView{}, err
	}
	return models.NewBuyerProfileView(profile), nil
}

// PutProfile validates and stores a profile, replacing any existing one.
func (s *Service) PutProfile(ctx context.Context, profile *models.BuyerProfile) error {
	if err := validation.ValidateProfile(profile); err != nil {
		return err
	}
	if profile.History == nil {
		profile.History = []models.HistoryRecord{}
	}

	if err := s.engine.ReplaceProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to store buyer profile: %w", err)
	}

	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishProfileStored(ctx, profile)
	}
	return nil
}

// ListProfiles returns every stored profile keyed by user id.
func (s *Service) ListProfiles(ctx context.Context) (models.ListProfilesResponse, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return models.ListProfilesResponse{}, fmt.Errorf("failed to list buyer profiles: %w", err)
	}

	buyers := make(map[string]*models.BuyerProfile, len(profiles))
	for _, p := range profiles {
		buyers[p.UserID] = p
	}
	return models.ListProfilesResponse{
		TotalBuyers: len(buyers),
		Buyers:      buyers,
	}, nil
}

// SearchCategory returns up to limit products of a category. When userID
// names a stored buyer the products are ranked by that buyer's preferences;
// an unknown userID leaves them in catalog order.
func (s *Service) SearchCategory(ctx context.Context, category string, limit int, userID string) (models.SearchResponse, error) {
	if err := validation.ValidateCategory(category); err != nil {
		return models.SearchResponse{}, err
	}
	if limit == 0 {
		limit = s.maxSearchResults
	}
	if err := validation.ValidateLimit(limit, validation.MaxSearchResults); err != nil {
		return models.SearchResponse{}, err
	}

	products := s.catalog.ByCategory(category, limit)
	ranked := false

	if userID != "" && s.features.IsEnabled(features.FeatureRankSearch) {
		profile, err := s.profiles.Get(ctx, userID)
		switch {
		case err == nil:
			products = s.Rank(products, profile)
			ranked = true
		case !errors.Is(err, store.ErrNotFound):
			return models.SearchResponse{}, fmt.Errorf("failed to load buyer profile: %w", err)
		}
	}

	return models.SearchResponse{
		Category:   category,
		TotalFound: len(products),
		Ranked:     ranked,
		Products:   products,
	}, nil
}

// Rank orders products by the profile's preferences.
func (s *Service) Rank(products []models.Product, profile *models.BuyerProfile) []models.Product {
	return ranking.Rank(products, profile)
}

// Analyze asks the advisor about a buyer and ranks the products of the
// recommended category. Every advisor step that fails is replaced by the
// deterministic fallback, so Analyze only fails when the buyer cannot be loaded.
func (s *Service) Analyze(ctx context.Context, userID string) (models.AnalysisResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return models.AnalysisResponse{}, err
	}

	primary := s.primaryAdvisor()
	usedFallback := primary == nil

	analysis, _ := s.fallback.Analyze(ctx, profile)
	if primary != nil {
		if a, aerr := primary.Analyze(ctx, profile); aerr != nil {
			log.Printf("advisor analysis for %s failed, using fallback: %v", userID, aerr)
			usedFallback = true
		} else {
			analysis = a
		}
	}

	rec, _ := s.fallback.RecommendCategory(ctx, profile, analysis)
	if primary != nil {
		if r, rerr := primary.RecommendCategory(ctx, profile, analysis); rerr != nil {
			log.Printf("advisor recommendation for %s failed, using fallback: %v", userID, rerr)
			usedFallback = true
		} else {
			rec = r
		}
	}

	justification, _ := s.fallback.Justify(ctx, profile, rec)
	if primary != nil {
		if j, jerr := primary.Justify(ctx, profile, rec); jerr != nil {
			log.Printf("advisor justification for %s failed, using fallback: %v", userID, jerr)
			usedFallback = true
		} else {
			justification = j
		}
	}

	products := s.Rank(s.catalog.ByCategory(rec.RecommendedCategory, s.maxSearchResults), profile)
	span.SetAttributes(
		attribute.String("recommended_category", rec.RecommendedCategory),
		attribute.Bool("fallback", usedFallback),
	)

	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishRecommendation(ctx, userID, rec, usedFallback)
	}

	return models.AnalysisResponse{
		UserID:              userID,
		Analysis:            analysis,
		Recommendation:      rec,
		Justification:       justification,
		RecommendedProducts: products,
		CurrentCategories:   profile.Categories(),
		PriceRange:          profile.PriceStats(),
		Fallback:            usedFallback,
	}, nil
}

// Purchase simulates buying productID for userID.
func (s *Service) Purchase(ctx context.Context, userID string, productID int) models.PurchaseResult {
	ctx, span := s.tracer.Start(ctx, "service.purchase")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("product_id", productID),
	)

	result := s.engine.Purchase(ctx, userID, productID)

	span.SetAttributes(attribute.Bool("success", result.Success))
	if !result.Success {
		span.SetAttributes(attribute.String("failure_kind", string(result.Kind)))
	}

	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishPurchase(ctx, userID, productID, result)
	}
	return result
}

// Transactions returns the user's transactions, or every transaction when userID is empty.
func (s *Service) Transactions(userID string) models.TransactionsResponse {
	var txns []models.Transaction
	if userID == "" {
		txns = s.engine.Transactions()
	} else {
		txns = s.engine.TransactionsFor(userID)
	}
	return models.TransactionsResponse{
		UserID:            userID,
		TotalTransactions: len(txns),
		Transactions:      txns,
	}
}

// TransactionByID returns one logged transaction.
func (s *Service) TransactionByID(id string) (models.Transaction, error) {
	txn, ok := s.engine.TransactionByID(id)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return txn, nil
}

// Categories returns every catalog category, sorted.
func (s *Service) Categories() models.CategoriesResponse {
	categories := s.catalog.AllCategories()
	return models.CategoriesResponse{
		Categories:      categories,
		TotalCategories: len(categories),
	}
}

// Features returns the current feature flags.
func (s *Service) Features() []features.FeatureFlag {
	return s.features.List()
}

// SetFeature switches a feature flag at runtime and returns its new state.
func (s *Service) SetFeature(name string, enabled bool) (features.FeatureFlag, error) {
	if !s.features.Set(name, enabled) {
		return features.FeatureFlag{}, fmt.Errorf("%w: %s", ErrFeatureNotFound, name)
	}
	log.Printf("feature flag %s set to %t", name, enabled)

	flag, _ := s.features.Get(name)
	return flag, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*models.BuyerProfile, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBuyerNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer profile: %w", err)
	}
	return profile, nil
}

func (s *Service) primaryAdvisor() advisor.Advisor {
	if s.advisor == nil || !s.features.IsEnabled(features.FeatureLLMAdvisor) {
		return nil
	}
	return s.advisor
}
