package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jordancooper-dev/keygate/config"
	"github.com/jordancooper-dev/keygate/internal/secrets"
	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/repository"
)

// fakeStore is an in-memory Store for unit tests
type fakeStore struct {
	keys  map[uuid.UUID]*models.APIKey
	items map[uuid.UUID]*models.Item

	createKeyErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keys:  make(map[uuid.UUID]*models.APIKey),
		items: make(map[uuid.UUID]*models.Item),
	}
}

func (f *fakeStore) Close()                           {}
func (f *fakeStore) Health(ctx context.Context) error { return nil }

func (f *fakeStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if f.createKeyErr != nil {
		return f.createKeyErr
	}
	for _, existing := range f.keys {
		if existing.ClientID == key.ClientID && existing.Name == key.Name {
			return repository.ErrConflict
		}
	}
	key.IsActive = true
	key.CreatedAt = time.Now().UTC()
	f.keys[key.ID] = key
	return nil
}

func (f *fakeStore) GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	if key, ok := f.keys[id]; ok {
		return key, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) SearchAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	if len(prefix) < repository.MinPrefixSearchLength {
		return nil, repository.ErrNotFound
	}
	for _, key := range f.keys {
		if strings.HasPrefix(key.KeyPrefix, prefix) {
			return key, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListAPIKeys(ctx context.Context, skip, limit int) ([]models.APIKey, int64, error) {
	var keys []models.APIKey
	for _, key := range f.keys {
		keys = append(keys, *key)
	}
	return keys, int64(len(f.keys)), nil
}

func (f *fakeStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) (bool, error) {
	key, ok := f.keys[id]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	key.IsActive = false
	key.RevokedAt = &now
	return true, nil
}

func (f *fakeStore) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListItems(ctx context.Context, skip, limit int) ([]models.Item, int64, error) {
	var items []models.Item
	for _, item := range f.items {
		items = append(items, *item)
	}
	return items, int64(len(f.items)), nil
}

func (f *fakeStore) UpdateItem(ctx context.Context, id uuid.UUID, update models.ItemUpdate) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = update.Description
	}
	item.UpdatedAt = time.Now().UTC()
	return item, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.items[id]; !ok {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

func testApp(store Store) *App {
	cfg := config.NewTestConfig()
	codec := secrets.NewCodec(cfg.APIKey.BcryptCost)
	return New(cfg, store, codec, nil)
}

func TestApp_CreateKey(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	issued, err := a.CreateKey(ctx, "  ci pipeline  ", "acme", nil)
	if err != nil {
		t.Fatalf("CreateKey() failed: %v", err)
	}

	if issued.Name != "ci pipeline" {
		t.Errorf("expected name trimmed to %q, got %q", "ci pipeline", issued.Name)
	}
	if !strings.HasPrefix(issued.Key, secrets.Tag) {
		t.Errorf("expected plaintext to start with %q", secrets.Tag)
	}
	if issued.KeyPrefix != secrets.Prefix(issued.Key) {
		t.Error("stored prefix does not match the plaintext prefix")
	}

	record, ok := store.keys[issued.ID]
	if !ok {
		t.Fatal("key was not persisted")
	}
	if record.KeyHash == issued.Key {
		t.Error("plaintext must not be persisted")
	}

	codec := secrets.NewCodec(config.BcryptCostMin)
	if !codec.Verify(issued.Key, record.KeyHash) {
		t.Error("persisted hash does not verify against the issued plaintext")
	}
}

func TestApp_CreateKey_Validation(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	tests := []struct {
		name      string
		keyName   string
		clientID  string
		wantField string
	}{
		{"empty name", "", "acme", "name"},
		{"whitespace name", "   ", "acme", "name"},
		{"name too long", strings.Repeat("x", 256), "acme", "name"},
		{"empty client id", "key", "", "client_id"},
		{"client id too long", "key", strings.Repeat("x", 256), "client_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.CreateKey(ctx, tt.keyName, tt.clientID, nil)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestApp_CreateKey_DuplicateNameConflicts(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	if _, err := a.CreateKey(ctx, "deploy", "acme", nil); err != nil {
		t.Fatalf("first CreateKey() failed: %v", err)
	}

	_, err := a.CreateKey(ctx, "deploy", "acme", nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same name under a different client is fine
	if _, err := a.CreateKey(ctx, "deploy", "globex", nil); err != nil {
		t.Fatalf("CreateKey() for other client failed: %v", err)
	}
}

func TestApp_ResolveKey(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	issued, err := a.CreateKey(ctx, "deploy", "acme", nil)
	if err != nil {
		t.Fatalf("CreateKey() failed: %v", err)
	}

	byPrefix, err := a.ResolveKey(ctx, issued.KeyPrefix)
	if err != nil {
		t.Fatalf("ResolveKey() by prefix failed: %v", err)
	}
	if byPrefix.ID != issued.ID {
		t.Error("prefix lookup resolved the wrong key")
	}

	byID, err := a.ResolveKey(ctx, issued.ID.String())
	if err != nil {
		t.Fatalf("ResolveKey() by id failed: %v", err)
	}
	if byID.ID != issued.ID {
		t.Error("id lookup resolved the wrong key")
	}

	if _, err := a.ResolveKey(ctx, "nope"); err == nil {
		t.Error("expected error for an unknown reference")
	}
}

func TestApp_CreateItem_Validation(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	if _, err := a.CreateItem(ctx, "   ", nil); err == nil {
		t.Error("expected error for whitespace-only name")
	}

	long := strings.Repeat("d", maxDescriptionLength+1)
	if _, err := a.CreateItem(ctx, "widget", &long); err == nil {
		t.Error("expected error for oversized description")
	}

	item, err := a.CreateItem(ctx, "  Widget  ", nil)
	if err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}
	if item.Name != "Widget" {
		t.Errorf("expected trimmed name, got %q", item.Name)
	}
}

func TestApp_UpdateItem_PartialFields(t *testing.T) {
	store := newFakeStore()
	a := testApp(store)
	ctx := context.Background()

	desc := "A thing"
	item, err := a.CreateItem(ctx, "Widget", &desc)
	if err != nil {
		t.Fatalf("CreateItem() failed: %v", err)
	}

	newName := "Widget2"
	updated, err := a.UpdateItem(ctx, item.ID, models.ItemUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateItem() failed: %v", err)
	}

	if updated.Name != "Widget2" {
		t.Errorf("expected name updated, got %q", updated.Name)
	}
	if updated.Description == nil || *updated.Description != "A thing" {
		t.Error("expected description to be untouched")
	}

	empty := "   "
	if _, err := a.UpdateItem(ctx, item.ID, models.ItemUpdate{Name: &empty}); err == nil {
		t.Error("expected error for whitespace-only name")
	}
}
