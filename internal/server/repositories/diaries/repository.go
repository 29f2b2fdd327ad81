package diaries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

// Repository persists diary entries. Every single-row operation is scoped by
// (id, user_id); a row owned by someone else is reported exactly like a
// missing one, as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, diary *models.Diary) (*models.Diary, error)
	FindByIDAndUser(ctx context.Context, id, userID string) (*models.Diary, error)
	Update(ctx context.Context, id, userID string, changes models.DiaryChanges, updatedAt time.Time) (*models.Diary, error)
	Delete(ctx context.Context, id, userID string) error

	// ListByUser and SearchByUser order by created_at DESC, id DESC.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Diary, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	SearchByUser(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Diary, error)
	CountSearch(ctx context.Context, userID, keyword string) (int64, error)
}
