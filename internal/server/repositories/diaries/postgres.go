// Package diaries provides a PostgreSQL-backed repository for diary entries.
package diaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

const diaryColumns = `id, user_id, title, content, entry_date, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiary(s scanner) (*models.Diary, error) {
	d := &models.Diary{}
	if err := s.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &d.EntryDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.EntryDate = models.DateOnly(d.EntryDate)
	return d, nil
}

// Create inserts diary. The caller assigns every field.
func (r *PostgresRepository) Create(ctx context.Context, diary *models.Diary) (*models.Diary, error) {
	query := `
		INSERT INTO diaries (id, user_id, title, content, entry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		diary.ID, diary.UserID, diary.Title, diary.Content, diary.EntryDate, diary.CreatedAt, diary.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	return diary, nil
}

// FindByIDAndUser returns the entry only when it exists and belongs to userID.
func (r *PostgresRepository) FindByIDAndUser(ctx context.Context, id, userID string) (*models.Diary, error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE id = $1 AND user_id = $2`

	d, err := scanDiary(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	return d, nil
}

// Update applies changes in a single statement scoped by (id, user_id).
// A nil changes.EntryDate keeps the stored date.
func (r *PostgresRepository) Update(ctx context.Context, id, userID string, changes models.DiaryChanges, updatedAt time.Time) (*models.Diary, error) {
	query := `
		UPDATE diaries
		SET title = $3, content = $4, entry_date = COALESCE($5, entry_date), updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING ` + diaryColumns

	var entryDate any
	if changes.EntryDate != nil {
		entryDate = models.DateOnly(*changes.EntryDate)
	}

	d, err := scanDiary(r.db.QueryRowContext(ctx, query, id, userID, changes.Title, changes.Content, entryDate, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	return d, nil
}

// Delete removes the entry. Exactly one row must match (id, user_id).
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM diaries WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", dbx.StoreError(err))
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListByUser returns one window of the user's entries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Diary, error) {
	query := `
		SELECT ` + diaryColumns + `
		FROM diaries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryList(ctx, query, userID, limit, offset)
}

// SearchByUser is ListByUser restricted to entries whose title or content
// contains keyword, case-insensitively.
func (r *PostgresRepository) SearchByUser(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Diary, error) {
	query := `
		SELECT ` + diaryColumns + `
		FROM diaries
		WHERE user_id = $1 AND (title ILIKE $2 ESCAPE '\' OR content ILIKE $2 ESCAPE '\')
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryList(ctx, query, userID, LikePattern(keyword), limit, offset)
}

// CountByUser counts all of the user's entries.
func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM diaries WHERE user_id = $1`
	return r.count(ctx, query, userID)
}

// CountSearch counts the entries SearchByUser would page through.
func (r *PostgresRepository) CountSearch(ctx context.Context, userID, keyword string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM diaries
		WHERE user_id = $1 AND (title ILIKE $2 ESCAPE '\' OR content ILIKE $2 ESCAPE '\')
	`
	return r.count(ctx, query, userID, LikePattern(keyword))
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", dbx.StoreError(err))
	}
	return n, nil
}

func (r *PostgresRepository) queryList(ctx context.Context, query string, args ...any) ([]models.Diary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select diaries: %w", dbx.StoreError(err))
	}
	defer rows.Close()

	result := []models.Diary{}
	for rows.Next() {
		d, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diary: %w", dbx.StoreError(err))
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diaries: %w", dbx.StoreError(err))
	}
	return result, nil
}
