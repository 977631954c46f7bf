package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, tenant_identity, storage_key, size_bytes, mime_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.TenantIdentity, file.StorageKey, file.SizeBytes, file.MimeType, file.Status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, tenantIdentity string) (*models.File, error) {
	query := `SELECT id, tenant_identity, storage_key, size_bytes, mime_type, status, created_at, deleted_at
		 FROM files WHERE id = $1 AND tenant_identity = $2`

	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id, tenantIdentity).Scan(
		&f.ID, &f.TenantIdentity, &f.StorageKey, &f.SizeBytes, &f.MimeType,
		&f.Status, &f.CreatedAt, &f.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, tenantIdentity string) ([]*models.File, error) {
	query := `SELECT id, tenant_identity, storage_key, size_bytes, mime_type, status, created_at, deleted_at
		 FROM files WHERE tenant_identity = $1 AND status = 'active'
		 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, tenantIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.TenantIdentity, &f.StorageKey, &f.SizeBytes,
			&f.MimeType, &f.Status, &f.CreatedAt, &f.DeletedAt); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkActive(ctx context.Context, id string, sizeBytes int64, mimeType string) error {
	query := `UPDATE files SET status = 'active', size_bytes = $2, mime_type = $3 WHERE id = $1`

	return r.execOne(ctx, query, id, sizeBytes, mimeType)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string) error {
	query := `UPDATE files SET status = 'deleted', deleted_at = now() WHERE id = $1`

	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
