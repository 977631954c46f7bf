package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	// GetByID is scoped by tenant: a file owned by another tenant is
	// indistinguishable from an absent one.
	GetByID(ctx context.Context, id, tenantIdentity string) (*models.File, error)
	ListActive(ctx context.Context, tenantIdentity string) ([]*models.File, error)
	// MarkActive records the observed size and content type and moves the row
	// to active (also used by replace completion, where the row already is).
	MarkActive(ctx context.Context, id string, sizeBytes int64, mimeType string) error
	MarkDeleted(ctx context.Context, id string) error
}
