package exports

import (
	"context"

	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

// Repository keeps the metadata of diary exports. The exported documents
// themselves live in object storage under StorageKey.
type Repository interface {
	Create(ctx context.Context, export *models.Export) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Export, error)
}
