package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements tenant storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `identity, shard, quota_gb, used_bytes, uploads_count, downloads_count,
		subscription_until, last_activity_at, created_at`

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.Identity, &t.Shard, &t.QuotaGB, &t.UsedBytes, &t.UploadsCount,
		&t.DownloadsCount, &t.SubscriptionUntil, &t.LastActivityAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByIdentity(ctx context.Context, identity string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE identity = $1`

	return scanTenant(r.db.QueryRowContext(ctx, query, identity))
}

// ApplyUsageDelta clamps used_bytes at zero in SQL. The caller is expected to
// know the prior value when it needs to distinguish a clamp from a normal
// decrement.
func (r *PostgresRepository) ApplyUsageDelta(ctx context.Context, identity string, deltaBytes, uploads, downloads int64) (*models.Tenant, error) {
	query := `UPDATE tenants SET
			used_bytes = GREATEST(used_bytes + $2, 0),
			uploads_count = uploads_count + $3,
			downloads_count = downloads_count + $4,
			last_activity_at = now()
		 WHERE identity = $1
		 RETURNING ` + tenantColumns

	return scanTenant(r.db.QueryRowContext(ctx, query, identity, deltaBytes, uploads, downloads))
}
