package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"shopping-assistant-api/internal/models"
	"shopping-assistant-api/internal/service"
	"shopping-assistant-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
	costly      []func(http.Handler) http.Handler
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	// CostlyMiddleware wraps only the routes that write history or call
	// the chat completion API.
	CostlyMiddleware []func(http.Handler) http.Handler
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
		costly:      opts.CostlyMiddleware,
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/health", h.Health)

	r.Post("/buyer", h.StoreProfile)
	r.Get("/buyer/{user_id}", h.GetProfile)
	r.Get("/buyers", h.ListProfiles)

	costly := r.With(h.costly...)
	costly.Post("/analyze/{user_id}", h.Analyze)
	costly.Post("/purchase", h.Purchase)

	r.Get("/search/{category}", h.Search)
	r.Get("/transactions", h.Transactions)
	r.Get("/transactions/{user_id}", h.Transactions)
	r.Get("/transaction/{transaction_id}", h.GetTransaction)

	r.Get("/categories", h.Categories)
	r.Get("/features", h.Features)
	r.Put("/features/{name}", h.SetFeature)
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Shopping Assistant API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"POST /buyer":                       "Add/update buyer profile",
			"GET /buyer/{user_id}":              "Get buyer profile",
			"GET /buyers":                       "List buyer profiles",
			"POST /analyze/{user_id}":           "Analyze buyer and get recommendations",
			"GET /search/{category}":            "Search products by category",
			"POST /purchase":                    "Simulate a purchase",
			"GET /transactions/{user_id}":       "Get transaction history",
			"GET /transaction/{transaction_id}": "Get a single transaction",
			"GET /categories":                   "Get all product categories",
			"GET /features":                     "Get feature flags",
			"PUT /features/{name}":              "Enable or disable a feature flag",
		},
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// StoreProfile handles POST /buyer
func (h *Handler) StoreProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.BuyerProfile
	if !h.decodeBody(w, r, &profile) {
		return
	}

	profile.UserID = validation.SanitizeString(profile.UserID)

	if err := h.service.PutProfile(r.Context(), &profile); err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, models.StoreProfileResponse{
		Message:      "Buyer profile stored successfully",
		UserID:       profile.UserID,
		HistoryCount: len(profile.History),
	})
}

// GetProfile handles GET /buyer/{user_id}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))

	view, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// ListProfiles handles GET /buyers
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Analyze handles POST /analyze/{user_id}
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))

	resp, err := h.service.Analyze(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Search handles GET /search/{category}?max_results=&user_id=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	category := validation.SanitizeString(chi.URLParam(r, "category"))
	userID := validation.SanitizeString(r.URL.Query().Get("user_id"))

	limit := 0
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		parsed, err := strconv.Atoi(validation.SanitizeString(raw))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'max_results' parameter, must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := h.service.SearchCategory(r.Context(), category, limit, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Purchase handles POST /purchase
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req models.PurchaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.UserID = validation.SanitizeString(req.UserID)
	if err := validation.ValidatePurchase(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.Purchase(r.Context(), req.UserID, req.ProductID)
	h.respondJSON(w, purchaseStatus(result), result)
}

func purchaseStatus(result models.PurchaseResult) int {
	if result.Success {
		return http.StatusCreated
	}
	switch result.Kind {
	case models.FailureProductNotFound, models.FailureBuyerNotFound:
		return http.StatusNotFound
	case models.FailureValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Transactions handles GET /transactions and GET /transactions/{user_id}
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))
	h.respondJSON(w, http.StatusOK, h.service.Transactions(userID))
}

// GetTransaction handles GET /transaction/{transaction_id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := validation.SanitizeString(chi.URLParam(r, "transaction_id"))

	txn, err := h.service.TransactionByID(id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, txn)
}

// Categories handles GET /categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Categories())
}

// Features handles GET /features
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Features())
}

// SetFeature handles PUT /features/{name}
func (h *Handler) SetFeature(w http.ResponseWriter, r *http.Request) {
	var req models.FeatureToggleRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		h.respondError(w, http.StatusBadRequest, "'enabled' is required")
		return
	}

	flag, err := h.service.SetFeature(validation.SanitizeString(chi.URLParam(r, "name")), *req.Enabled)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, flag)
}

// decodeBody decodes a size-limited JSON body into dest. It writes the
// error response itself and reports whether decoding succeeded.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusBadRequest, "request body is required")
		case errors.As(err, &tooLarge):
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		}
		return false
	}
	return true
}

// respondServiceError maps service errors to status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBuyerNotFound):
		h.respondError(w, http.StatusNotFound, "Buyer not found")
	case errors.Is(err, service.ErrTransactionNotFound):
		h.respondError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, service.ErrFeatureNotFound):
		h.respondError(w, http.StatusNotFound, "Feature flag not found")
	default:
		log.Printf("request failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
