package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jordancooper-dev/keygate/config"
	"github.com/jordancooper-dev/keygate/internal/app"
	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/repository"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleLiveness reports that the process is up
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness reports whether the service can reach its database
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "connected",
		},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.app.Health(ctx); err != nil {
		status["status"] = "degraded"
		status["services"].(map[string]string)["database"] = "disconnected"
		h.jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	h.jsonResponse(w, http.StatusOK, status)
}

// CreateKeyRequest is the body for issuing a new API key
type CreateKeyRequest struct {
	Name      string     `json:"name"`
	ClientID  string     `json:"client_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleCreateKey issues a new API key. The plaintext secret appears in this
// response only and is never retrievable afterwards.
func (h *Handler) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	issued, err := h.app.CreateKey(r.Context(), req.Name, req.ClientID, req.ExpiresAt)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusCreated, issued)
}

// HandleListKeys returns a page of API key records
func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.parsePageParams(r)

	keys, total, err := h.app.ListKeys(r.Context(), skip, limit)
	if err != nil {
		h.appError(w, err)
		return
	}

	if keys == nil {
		keys = []models.APIKey{}
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

// HandleGetKey returns a single API key record by ID
func (h *Handler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	key, err := h.app.GetKey(r.Context(), id)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, key)
}

// HandleRevokeKey deactivates an API key. Revoking an already-revoked key
// succeeds; only a missing key is an error.
func (h *Handler) HandleRevokeKey(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	revoked, err := h.app.RevokeKey(r.Context(), id)
	if err != nil {
		h.appError(w, err)
		return
	}
	if !revoked {
		h.jsonError(w, "API key not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateItemRequest is the body for creating an item
type CreateItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// HandleCreateItem creates an item
func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	item, err := h.app.CreateItem(r.Context(), req.Name, req.Description)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusCreated, item)
}

// HandleListItems returns a page of items
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.parsePageParams(r)

	items, total, err := h.app.ListItems(r.Context(), skip, limit)
	if err != nil {
		h.appError(w, err)
		return
	}

	if items == nil {
		items = []models.Item{}
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"skip":  skip,
		"limit": limit,
	})
}

// HandleGetItem returns a single item by ID
func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.app.GetItem(r.Context(), id)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, item)
}

// HandleUpdateItem applies a partial update to an item
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	var update models.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	item, err := h.app.UpdateItem(r.Context(), id, update)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, item)
}

// HandleDeleteItem deletes an item
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseIDParam(w, r)
	if !ok {
		return
	}

	deleted, err := h.app.DeleteItem(r.Context(), id)
	if err != nil {
		h.appError(w, err)
		return
	}
	if !deleted {
		h.jsonError(w, "Item not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.jsonError(w, "Invalid ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parsePageParams(r *http.Request) (skip, limit int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= maxPageLimit {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("skip"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			skip = v
		}
	}
	return skip, limit
}

// appError maps application errors to HTTP status codes
func (h *Handler) appError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		h.jsonResponse(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, repository.ErrNotFound):
		h.jsonError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrConflict):
		h.jsonError(w, "A key with this name already exists for the client", http.StatusConflict)
	default:
		h.jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
