package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/observability"
)

const itemColumns = `id, name, description, created_at, updated_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var it models.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem persists a new item and fills in the server-assigned
// timestamps.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "items")

	err := r.db.QueryRow(ctx, `
		INSERT INTO items (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`, item.ID, item.Name, item.Description).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "items")
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem returns an item by its ID
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "items")

	item, err := scanItem(r.db.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBError("select", "items")
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	return item, nil
}

// ListItems returns a page of items ordered by creation time descending
// plus the total count from an independent count query.
func (r *Repository) ListItems(ctx context.Context, skip, limit int) ([]models.Item, int64, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "items")

	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(id) FROM items`).Scan(&total); err != nil {
		metrics.RecordDBError("select", "items")
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		metrics.RecordDBError("select", "items")
		return nil, 0, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating items: %w", err)
	}

	return items, total, nil
}

// UpdateItem applies a partial update and returns the updated record.
// Only name and description are reachable; nil fields keep their stored
// value. updated_at is refreshed on every call.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, update models.ItemUpdate) (*models.Item, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "items")

	item, err := scanItem(r.db.QueryRow(ctx, `
		UPDATE items
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING `+itemColumns+`
	`, id, update.Name, update.Description))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBError("update", "items")
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return item, nil
}

// DeleteItem removes an item. It reports whether a matching record
// existed.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "items")

	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		metrics.RecordDBError("delete", "items")
		return false, fmt.Errorf("failed to delete item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
