package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/observability"
)

// MinPrefixSearchLength is the minimum prefix length accepted by
// SearchAPIKeyByPrefix, preventing overly broad scans.
const MinPrefixSearchLength = 4

const apiKeyColumns = `id, name, client_id, key_hash, key_prefix, is_active, expires_at, created_at, last_used_at, revoked_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(
		&k.ID,
		&k.Name,
		&k.ClientID,
		&k.KeyHash,
		&k.KeyPrefix,
		&k.IsActive,
		&k.ExpiresAt,
		&k.CreatedAt,
		&k.LastUsedAt,
		&k.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey persists a new API key record and fills in the
// server-assigned created_at. Uniqueness violations (duplicate
// client_id+name, hash or prefix collision) surface as ErrConflict.
func (r *Repository) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "api_keys")

	err := r.db.QueryRow(ctx, `
		INSERT INTO api_keys (id, name, client_id, key_hash, key_prefix, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW())
		RETURNING created_at
	`, key.ID, key.Name, key.ClientID, key.KeyHash, key.KeyPrefix, key.ExpiresAt).Scan(&key.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "api_keys")
		if IsUniqueViolation(err) {
			return fmt.Errorf("api key %q for client %q: %w", key.Name, key.ClientID, ErrConflict)
		}
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	key.IsActive = true
	return nil
}

// GetAPIKeyForValidation locates the unique active record for a lookup
// prefix, taking an exclusive row lock that skips rows already locked
// by concurrent validations. A row locked elsewhere is reported as
// ErrNotFound: validation fails closed instead of queueing.
//
// Must be called on a Repository bound to a transaction (see BeginTx);
// the lock is held until the transaction commits or rolls back.
func (r *Repository) GetAPIKeyForValidation(ctx context.Context, prefix string) (*models.APIKey, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select_for_update", "api_keys")

	key, err := scanAPIKey(r.db.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE is_active = TRUE AND key_prefix = $1
		FOR UPDATE SKIP LOCKED
	`, prefix))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBError("select_for_update", "api_keys")
		return nil, fmt.Errorf("failed to query api key for validation: %w", err)
	}

	return key, nil
}

// TouchAPIKeyLastUsed records a successful validation. It is expected
// to run inside the same transaction that holds the validation lock so
// concurrent touches cannot lose updates.
func (r *Repository) TouchAPIKeyLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "api_keys")

	_, err := r.db.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2 WHERE id = $1
	`, id, usedAt)
	if err != nil {
		metrics.RecordDBError("update", "api_keys")
		return fmt.Errorf("failed to update last_used_at: %w", err)
	}
	return nil
}

// GetAPIKeyByID returns an API key by its ID
func (r *Repository) GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "api_keys")

	key, err := scanAPIKey(r.db.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBError("select", "api_keys")
		return nil, fmt.Errorf("failed to query api key: %w", err)
	}

	return key, nil
}

// SearchAPIKeyByPrefix returns the key whose stored prefix starts with
// the given fragment. Fragments shorter than MinPrefixSearchLength are
// rejected as not found to keep the scan narrow.
func (r *Repository) SearchAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	if len(prefix) < MinPrefixSearchLength {
		observability.Warn("api key prefix search rejected: too short",
			"prefix_length", len(prefix),
			"min_required", MinPrefixSearchLength,
		)
		return nil, ErrNotFound
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "api_keys")

	key, err := scanAPIKey(r.db.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE key_prefix LIKE $1 || '%'
	`, prefix))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBError("select", "api_keys")
		return nil, fmt.Errorf("failed to search api key by prefix: %w", err)
	}

	return key, nil
}

// ListAPIKeys returns a page of keys ordered by creation time
// descending, plus the total record count. The count runs as its own
// query so it is independent of the page bounds.
func (r *Repository) ListAPIKeys(ctx context.Context, skip, limit int) ([]models.APIKey, int64, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "api_keys")

	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(id) FROM api_keys`).Scan(&total); err != nil {
		metrics.RecordDBError("select", "api_keys")
		return nil, 0, fmt.Errorf("failed to count api keys: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		metrics.RecordDBError("select", "api_keys")
		return nil, 0, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, *key)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, total, nil
}

// RevokeAPIKey marks a key inactive and stamps revoked_at in one
// conditional update. The update targets by id only, so revoking an
// already-revoked key reports success again; only a missing id reports
// false.
func (r *Repository) RevokeAPIKey(ctx context.Context, id uuid.UUID) (bool, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "api_keys")

	tag, err := r.db.Exec(ctx, `
		UPDATE api_keys
		SET is_active = FALSE, revoked_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		metrics.RecordDBError("update", "api_keys")
		return false, fmt.Errorf("failed to revoke api key: %w", err)
	}

	revoked := tag.RowsAffected() > 0
	if revoked {
		observability.Info("revoked api key", "key_id", id.String())
		metrics.RecordKeyRevoked()
	}
	return revoked, nil
}
