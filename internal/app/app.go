// Package app wires the key store, item store, secret codec, and
// validation protocol behind one facade. Input validation happens here
// so both the HTTP surface and the CLI get identical semantics.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordancooper-dev/keygate/config"
	"github.com/jordancooper-dev/keygate/internal/secrets"
	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/observability"
)

// Input limits shared by the HTTP surface and the CLI
const (
	maxNameLength        = 255
	maxClientIDLength    = 255
	maxDescriptionLength = 5000
)

// Store defines the repository operations needed by App
type Store interface {
	Close()
	Health(ctx context.Context) error

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	SearchAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, skip, limit int) ([]models.APIKey, int64, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) (bool, error)

	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, skip, limit int) ([]models.Item, int64, error)
	UpdateItem(ctx context.Context, id uuid.UUID, update models.ItemUpdate) (*models.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) (bool, error)
}

// KeyValidator defines the validation protocol operation
type KeyValidator interface {
	Validate(ctx context.Context, presented string) (*models.APIKey, error)
}

// ValidationError reports malformed input with field-level detail.
// Unlike authentication failures it carries no security sensitivity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// App holds application dependencies using interfaces for testability
type App struct {
	cfg       *config.Config
	store     Store
	codec     *secrets.Codec
	validator KeyValidator
}

// New creates a new App
func New(cfg *config.Config, store Store, codec *secrets.Codec, validator KeyValidator) *App {
	return &App{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		validator: validator,
	}
}

// Health reports whether the backing store is reachable
func (a *App) Health(ctx context.Context) error {
	return a.store.Health(ctx)
}

// ValidateKey runs the validation protocol against a presented secret
func (a *App) ValidateKey(ctx context.Context, presented string) (*models.APIKey, error) {
	return a.validator.Validate(ctx, presented)
}

// CreateKey issues a new API key. The returned IssuedKey carries the
// plaintext secret; this is the only time it is ever disclosed.
func (a *App) CreateKey(ctx context.Context, name, clientID string, expiresAt *time.Time) (*models.IssuedKey, error) {
	name = strings.TrimSpace(name)
	clientID = strings.TrimSpace(clientID)

	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(name) > maxNameLength {
		return nil, &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
	}
	if clientID == "" {
		return nil, &ValidationError{Field: "client_id", Message: "must not be empty"}
	}
	if len(clientID) > maxClientIDLength {
		return nil, &ValidationError{Field: "client_id", Message: fmt.Sprintf("must be at most %d characters", maxClientIDLength)}
	}

	plaintext, err := a.codec.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	hash, err := a.codec.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash key: %w", err)
	}

	record := &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		ClientID:  clientID,
		KeyHash:   hash,
		KeyPrefix: secrets.Prefix(plaintext),
		ExpiresAt: expiresAt,
	}

	if err := a.store.CreateAPIKey(ctx, record); err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordKeyIssued()
	observability.Info("created api key",
		"key_id", record.ID.String(),
		"key_prefix", record.KeyPrefix,
		"client_id", clientID,
		"name", name,
		"expires_at", expiresAt,
	)

	return &models.IssuedKey{
		ID:        record.ID,
		Name:      record.Name,
		ClientID:  record.ClientID,
		KeyPrefix: record.KeyPrefix,
		Key:       plaintext,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	}, nil
}

// GetKey returns a key record by ID
func (a *App) GetKey(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	return a.store.GetAPIKeyByID(ctx, id)
}

// ResolveKey locates a key by lookup prefix first, then by ID. This is
// the operator-facing lookup used by the CLI.
func (a *App) ResolveKey(ctx context.Context, prefixOrID string) (*models.APIKey, error) {
	if key, err := a.store.SearchAPIKeyByPrefix(ctx, prefixOrID); err == nil {
		return key, nil
	}
	id, err := uuid.Parse(prefixOrID)
	if err != nil {
		return nil, fmt.Errorf("no api key matches %q", prefixOrID)
	}
	return a.store.GetAPIKeyByID(ctx, id)
}

// ListKeys returns a page of keys plus the total count
func (a *App) ListKeys(ctx context.Context, skip, limit int) ([]models.APIKey, int64, error) {
	return a.store.ListAPIKeys(ctx, skip, limit)
}

// RevokeKey soft-revokes a key. Revoke targets by id only, so revoking
// an already-revoked key reports success again; a missing id reports
// false.
func (a *App) RevokeKey(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.store.RevokeAPIKey(ctx, id)
}

// CreateItem creates a new item
func (a *App) CreateItem(ctx context.Context, name string, description *string) (*models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(name) > maxNameLength {
		return nil, &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
	}
	if description != nil && len(*description) > maxDescriptionLength {
		return nil, &ValidationError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", maxDescriptionLength)}
	}

	item := &models.Item{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	if err := a.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item by ID
func (a *App) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return a.store.GetItem(ctx, id)
}

// ListItems returns a page of items plus the total count
func (a *App) ListItems(ctx context.Context, skip, limit int) ([]models.Item, int64, error) {
	return a.store.ListItems(ctx, skip, limit)
}

// UpdateItem applies a partial update restricted to name and description
func (a *App) UpdateItem(ctx context.Context, id uuid.UUID, update models.ItemUpdate) (*models.Item, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, &ValidationError{Field: "name", Message: "must not be empty"}
		}
		if len(trimmed) > maxNameLength {
			return nil, &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
		}
		update.Name = &trimmed
	}
	if update.Description != nil && len(*update.Description) > maxDescriptionLength {
		return nil, &ValidationError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", maxDescriptionLength)}
	}

	return a.store.UpdateItem(ctx, id, update)
}

// DeleteItem removes an item, reporting whether it existed
func (a *App) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.store.DeleteItem(ctx, id)
}

// Close releases the backing store
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
