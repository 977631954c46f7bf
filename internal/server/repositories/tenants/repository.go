package tenants

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	GetByIdentity(ctx context.Context, identity string) (*models.Tenant, error)
	// ApplyUsageDelta atomically adjusts used_bytes (clamped at zero) and the
	// operation counters, stamps last_activity_at, and returns the resulting row.
	ApplyUsageDelta(ctx context.Context, identity string, deltaBytes, uploads, downloads int64) (*models.Tenant, error)
}
