// Package exports provides a PostgreSQL-backed repository for export records.
package exports

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

// PostgresRepository implements export storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an export record. Exactly one row must be affected.
func (r *PostgresRepository) Create(ctx context.Context, export *models.Export) error {
	query := `
		INSERT INTO exports (id, user_id, storage_key, entry_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	res, err := r.db.ExecContext(ctx, query,
		export.ID, export.UserID, export.StorageKey, export.EntryCount, export.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", dbx.StoreError(err))
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// ListByUser returns the user's most recent exports, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Export, error) {
	query := `
		SELECT id, user_id, storage_key, entry_count, created_at
		FROM exports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select exports: %w", dbx.StoreError(err))
	}
	defer rows.Close()

	result := []models.Export{}
	for rows.Next() {
		var item models.Export
		if err := rows.Scan(&item.ID, &item.UserID, &item.StorageKey, &item.EntryCount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", dbx.StoreError(err))
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exports: %w", dbx.StoreError(err))
	}
	return result, nil
}
