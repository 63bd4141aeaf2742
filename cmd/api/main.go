package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"shopping-assistant-api/internal/advisor"
	"shopping-assistant-api/internal/cache"
	"shopping-assistant-api/internal/catalog"
	"shopping-assistant-api/internal/config"
	"shopping-assistant-api/internal/events"
	"shopping-assistant-api/internal/features"
	"shopping-assistant-api/internal/handler"
	"shopping-assistant-api/internal/middleware"
	"shopping-assistant-api/internal/purchase"
	"shopping-assistant-api/internal/service"
	"shopping-assistant-api/internal/store"
	"shopping-assistant-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize catalog
	products := catalog.Default()
	if cfg.Catalog.Path != "" {
		products, err = catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	flags := features.Defaults(cfg.Cache.Enabled, cfg.Events.Enabled, cfg.LLM.Enabled)

	// Initialize profile store
	profiles, err := openProfileStore(ctx, cfg, flags)
	if err != nil {
		log.Fatalf("Failed to initialize profile store: %v", err)
	}
	defer profiles.Close()

	eventManager := events.NewManager(cfg.Events.Enabled)
	subscribeAuditLog(eventManager)

	var chat advisor.Advisor
	if cfg.LLM.Enabled {
		chat = advisor.NewChatAdvisor(advisor.ChatConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	}

	// Initialize service
	svc := service.NewService(service.Deps{
		Catalog:          products,
		Profiles:         profiles,
		Engine:           purchase.NewEngine(products, profiles),
		Advisor:          chat,
		Events:           eventManager,
		Features:         flags,
		MaxSearchResults: cfg.Catalog.MaxSearchResults,
	})

	// Initialize handlers
	handlerOpts := handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.CostlyRate > 0 {
		costlyLimiter := middleware.NewRateLimiter(cfg.RateLimit.CostlyRate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer costlyLimiter.Stop()
		handlerOpts.CostlyMiddleware = append(handlerOpts.CostlyMiddleware, middleware.RateLimitMiddleware(costlyLimiter))
	}
	h := handler.NewHandlerWithOptions(svc, handlerOpts)

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware(cfg.Tracing.ServiceName))

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h.Routes(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	tlsEnabled := cfg.Server.CertFile != ""
	protocol := "HTTP"
	if tlsEnabled {
		protocol = "HTTPS"
	}
	log.Printf("Starting %s server on %s", protocol, addr)
	log.Printf("Storage: %s (cache enabled: %t)", cfg.Storage.Type, cfg.Cache.Enabled)
	log.Printf("Catalog: %d products in %s", products.Len(), strings.Join(products.AllCategories(), ", "))
	log.Printf("Advisor: chat completion enabled: %t", cfg.LLM.Enabled)
	if cfg.RateLimit.Enabled {
		log.Printf("Rate limit: %d requests per %d seconds (%d for purchase/analyze)", cfg.RateLimit.Rate, cfg.RateLimit.Window, cfg.RateLimit.CostlyRate)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
		eventManager.Shutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
		close(idle)
	}()

	if tlsEnabled {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}

	<-idle
}

// openProfileStore opens the configured backing and, when caching is
// enabled, wraps it in a read-through cache switched by the profile_cache flag.
func openProfileStore(ctx context.Context, cfg *config.Config, flags *features.Manager) (store.ProfileStore, error) {
	backing, err := store.Open(ctx, store.Options{
		Type:          cfg.Storage.Type,
		FilePath:      cfg.Storage.FilePath,
		SQLitePath:    cfg.Storage.SQLitePath,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return backing, nil
	}

	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "shopping-assistant")
		if err != nil {
			backing.Close()
			return nil, err
		}
		c = rc
	default:
		c = cache.NewInMemoryCache()
	}

	cached := store.NewCachedStore(backing, c, cfg.CacheTTL()).WithToggle(func() bool {
		return flags.IsEnabled(features.FeatureProfileCache)
	})
	return cached, nil
}

// subscribeAuditLog logs purchase outcomes and profile writes.
func subscribeAuditLog(m *events.Manager) {
	m.Subscribe(events.EventPurchaseCompleted, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.PurchaseData)
		log.Printf("audit: purchase completed user=%s product=%d txn=%s", data.UserID, data.ProductID, *data.Result.TransactionID)
		return nil
	})
	m.Subscribe(events.EventPurchaseFailed, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.PurchaseData)
		log.Printf("audit: purchase failed user=%s product=%d kind=%s", data.UserID, data.ProductID, data.Result.Kind)
		return nil
	})
	m.Subscribe(events.EventProfileStored, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.ProfileStoredData)
		log.Printf("audit: profile stored user=%s records=%d", data.UserID, data.HistoryCount)
		return nil
	})
}
