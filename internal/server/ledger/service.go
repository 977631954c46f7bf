// Package ledger owns the file lifecycle state machine and the per-tenant
// accounting that goes with it.
//
// Files move pending → active → deleted, never skipping or reversing a
// state. used_bytes is only ever adjusted inside the same transaction as the
// file-state change, so a concurrent reader can never observe one without
// the other.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/identity"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/sigv4"
	"github.com/dmitrijs2005/filevault/internal/token"
	"github.com/google/uuid"
)

const probeURLTTL = time.Minute

// Options carries the construction-time configuration of the ledger.
type Options struct {
	// Secret signs session tokens.
	Secret []byte
	// TokenTTL bounds a session token's lifetime.
	TokenTTL time.Duration
	// MaxUploadBytes is the global per-upload ceiling.
	MaxUploadBytes int64
	// UploadURLTTL / DownloadURLTTL are presigned URL validity windows.
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
	// Buckets maps shard identifiers to bucket configurations. Resolved once
	// per request; a tenant pointing at a missing shard is a server fault.
	Buckets map[string]models.BucketConfig
}

// Service is the account ledger. Decision logic is synchronous and pure up to
// the repository and probe calls; physical object deletion is the one
// fire-and-forget path.
type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	probe  ObjectProbe
	logger logging.Logger
	opts   Options

	now func() time.Time
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, probe ObjectProbe, logger logging.Logger, opts Options) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		probe:  probe,
		logger: logger.With("module", "ledger"),
		opts:   opts,
		now:    time.Now,
	}
}

// UploadGrant is returned from upload/replace admission. The headers are part
// of the URL's signature: the client must send them verbatim or the object
// store rejects the PUT.
type UploadGrant struct {
	FileID  string            `json:"file_id"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// AuthResult is returned from Authenticate.
type AuthResult struct {
	Token string       `json:"token"`
	Usage models.Usage `json:"usage"`
}

func usageOf(t *models.Tenant) models.Usage {
	return models.Usage{
		UsedBytes:      t.UsedBytes,
		QuotaBytes:     t.QuotaBytes(),
		UploadsCount:   t.UploadsCount,
		DownloadsCount: t.DownloadsCount,
	}
}

// resolveTenant maps an identity to its tenant record. An unknown identity is
// an authentication failure, indistinguishable from a bad token.
func (s *Service) resolveTenant(ctx context.Context, id string) (*models.Tenant, error) {
	t, err := s.repos.Tenants(s.db).GetByIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.KindAuthentication, "authentication failed")
		}
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	return t, nil
}

// resolveBucket maps a tenant's shard to its bucket configuration.
func (s *Service) resolveBucket(t *models.Tenant) (models.BucketConfig, error) {
	b, ok := s.opts.Buckets[t.Shard]
	if !ok {
		return models.BucketConfig{}, common.NewError(common.KindConfiguration,
			"storage unavailable")
	}
	return b, nil
}

// Authenticate verifies the identity exists and mints a session token.
// Login stays available after subscription expiry; only writes are gated.
func (s *Service) Authenticate(ctx context.Context, rawIdentity string) (*AuthResult, error) {
	id, err := identity.Parse(rawIdentity)
	if err != nil {
		return nil, common.NewError(common.KindValidation, "identity must be 16 digits")
	}

	t, err := s.resolveTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tok, err := token.Sign(token.Payload{
		Identity:  t.Identity,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.opts.TokenTTL).Unix(),
	}, s.opts.Secret)
	if err != nil {
		return nil, fmt.Errorf("token sign: %w", err)
	}

	return &AuthResult{Token: tok, Usage: usageOf(t)}, nil
}

// admit runs the admission preconditions in order, first failure wins.
// reclaimable is the recorded size an overwrite will free (zero for new
// uploads).
func (s *Service) admit(t *models.Tenant, sizeBytes, reclaimable int64) error {
	if sizeBytes <= 0 {
		return common.NewError(common.KindValidation, "size must be a positive number of bytes")
	}
	if sizeBytes > s.opts.MaxUploadBytes {
		return common.NewError(common.KindPolicy,
			fmt.Sprintf("file exceeds the per-upload ceiling of %d bytes", s.opts.MaxUploadBytes))
	}
	if !t.SubscriptionUntil.After(s.now()) {
		return common.NewError(common.KindPolicy, "subscription expired")
	}
	if t.UsedBytes-reclaimable+sizeBytes > t.QuotaBytes() {
		return common.NewError(common.KindPolicy,
			fmt.Sprintf("quota of %d bytes exceeded", t.QuotaBytes()))
	}
	return nil
}

// storageKey derives the stable object key for a new file.
func (s *Service) storageKey(tenantID, fileID string) string {
	now := s.now().UTC()
	return fmt.Sprintf("%s/%d/%d/%s", identity.StoragePrefix(tenantID), now.Year(), int(now.Month()), fileID)
}

// signedPutGrant mints a PUT URL whose signature covers the content headers.
func (s *Service) signedPutGrant(b models.BucketConfig, fileID, key, mimeType string, sizeBytes int64) (*UploadGrant, error) {
	headers := map[string]string{
		"content-type":   mimeType,
		"content-length": fmt.Sprintf("%d", sizeBytes),
	}
	url, err := sigv4.Presign("PUT", b.SignerBucket(), key, s.opts.UploadURLTTL, headers, s.now())
	if err != nil {
		return nil, common.WrapError(common.KindConfiguration, "storage unavailable", err)
	}
	return &UploadGrant{FileID: fileID, URL: url, Method: "PUT", Headers: headers}, nil
}

// RequestUpload admits an upload intent and returns a pending file plus a
// presigned PUT URL. No counters move here: the declared size is advisory and
// only used for the pre-flight quota check.
func (s *Service) RequestUpload(ctx context.Context, tenantID, mimeType string, sizeBytes int64) (*UploadGrant, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.admit(t, sizeBytes, 0); err != nil {
		return nil, err
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	key := s.storageKey(t.Identity, fileID)

	file := &models.File{
		ID:             fileID,
		TenantIdentity: t.Identity,
		StorageKey:     key,
		SizeBytes:      sizeBytes,
		MimeType:       mimeType,
		Status:         models.FileStatusPending,
	}
	if err := s.repos.Files(s.db).Create(ctx, file); err != nil {
		return nil, fmt.Errorf("create file row: %w", err)
	}

	return s.signedPutGrant(b, fileID, key, mimeType, sizeBytes)
}

// headObject probes the real object behind the file's key.
func (s *Service) headObject(ctx context.Context, b models.BucketConfig, key string) (ObjectStat, error) {
	url, err := sigv4.Presign("HEAD", b.SignerBucket(), key, probeURLTTL, nil, s.now())
	if err != nil {
		return ObjectStat{}, common.WrapError(common.KindConfiguration, "storage unavailable", err)
	}

	stat, err := s.probe.Head(ctx, url)
	if err != nil {
		return ObjectStat{}, common.WrapError(common.KindUpstreamVerification,
			"object not verifiable yet, retry after the upload finishes", err)
	}
	return stat, nil
}

// CompleteUpload verifies the uploaded object and atomically activates the
// file and charges the tenant. The observed size, not the declared one,
// becomes the size of record. Safe to retry: completing an already-active
// file returns the current usage unchanged.
func (s *Service) CompleteUpload(ctx context.Context, tenantID, fileID string) (*models.Usage, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	f, err := s.getVisibleFile(ctx, fileID, t.Identity)
	if err != nil {
		return nil, err
	}
	if f.Status == models.FileStatusActive {
		u := usageOf(t)
		return &u, nil
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return nil, err
	}

	stat, err := s.headObject(ctx, b, f.StorageKey)
	if err != nil {
		return nil, err
	}

	mimeType := stat.ContentType
	if mimeType == "" {
		mimeType = f.MimeType
	}

	var usage models.Usage
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Files(tx).MarkActive(ctx, f.ID, stat.SizeBytes, mimeType); err != nil {
			return err
		}
		updated, err := s.repos.Tenants(tx).ApplyUsageDelta(ctx, t.Identity, stat.SizeBytes, 1, 0)
		if err != nil {
			return err
		}
		usage = usageOf(updated)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("completing upload: %w", err)
	}

	return &usage, nil
}

// RequestReplace admits an overwrite of an existing active file. The file
// keeps its identifier and storage key; the PUT targets the same object.
func (s *Service) RequestReplace(ctx context.Context, tenantID, fileID, mimeType string, sizeBytes int64) (*UploadGrant, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	f, err := s.getActiveFile(ctx, fileID, t.Identity)
	if err != nil {
		return nil, err
	}

	// The bytes currently recorded for the file come back on completion, so
	// the quota pre-flight charges only the net growth.
	if err := s.admit(t, sizeBytes, f.SizeBytes); err != nil {
		return nil, err
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return nil, err
	}

	return s.signedPutGrant(b, f.ID, f.StorageKey, mimeType, sizeBytes)
}

// CompleteReplace verifies the overwritten object and applies the signed size
// delta. A shrinking replace is legitimate; used_bytes is clamped at zero,
// and a clamp that actually fires is logged as an accounting-drift signal.
func (s *Service) CompleteReplace(ctx context.Context, tenantID, fileID string) (*models.Usage, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	f, err := s.getActiveFile(ctx, fileID, t.Identity)
	if err != nil {
		return nil, err
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return nil, err
	}

	stat, err := s.headObject(ctx, b, f.StorageKey)
	if err != nil {
		return nil, err
	}

	mimeType := stat.ContentType
	if mimeType == "" {
		mimeType = f.MimeType
	}

	delta := stat.SizeBytes - f.SizeBytes
	if t.UsedBytes+delta < 0 {
		s.logger.Warn(ctx, "usage clamp on replace, accounting drift",
			"tenant", t.Identity, "file", f.ID, "used_bytes", t.UsedBytes, "delta", delta)
	}

	var usage models.Usage
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Files(tx).MarkActive(ctx, f.ID, stat.SizeBytes, mimeType); err != nil {
			return err
		}
		updated, err := s.repos.Tenants(tx).ApplyUsageDelta(ctx, t.Identity, delta, 1, 0)
		if err != nil {
			return err
		}
		usage = usageOf(updated)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("completing replace: %w", err)
	}

	return &usage, nil
}

// ListFiles returns the tenant's active files. Available after subscription
// expiry.
func (s *Service) ListFiles(ctx context.Context, tenantID string) ([]*models.File, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Files(s.db).ListActive(ctx, t.Identity)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return list, nil
}

// RequestDownload mints a GET URL and counts the download. Downloads never
// check quota or subscription expiry.
func (s *Service) RequestDownload(ctx context.Context, tenantID, fileID string) (string, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}

	f, err := s.getActiveFile(ctx, fileID, t.Identity)
	if err != nil {
		return "", err
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return "", err
	}

	url, err := sigv4.Presign("GET", b.SignerBucket(), f.StorageKey, s.opts.DownloadURLTTL, nil, s.now())
	if err != nil {
		return "", common.WrapError(common.KindConfiguration, "storage unavailable", err)
	}

	if _, err := s.repos.Tenants(s.db).ApplyUsageDelta(ctx, t.Identity, 0, 0, 1); err != nil {
		return "", fmt.Errorf("counting download: %w", err)
	}

	return url, nil
}

// DeleteFile atomically marks the file deleted and releases its bytes, then
// dispatches physical removal in the background. A successful response means
// the tenant no longer sees or pays for the file, independent of whether the
// bytes are physically reclaimed yet.
func (s *Service) DeleteFile(ctx context.Context, tenantID, fileID string) (*models.Usage, error) {
	t, err := s.resolveTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	f, err := s.getActiveFile(ctx, fileID, t.Identity)
	if err != nil {
		return nil, err
	}

	b, err := s.resolveBucket(t)
	if err != nil {
		return nil, err
	}

	if t.UsedBytes-f.SizeBytes < 0 {
		s.logger.Warn(ctx, "usage clamp on delete, accounting drift",
			"tenant", t.Identity, "file", f.ID, "used_bytes", t.UsedBytes, "size_bytes", f.SizeBytes)
	}

	var usage models.Usage
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Files(tx).MarkDeleted(ctx, f.ID); err != nil {
			return err
		}
		updated, err := s.repos.Tenants(tx).ApplyUsageDelta(ctx, t.Identity, -f.SizeBytes, 0, 0)
		if err != nil {
			return err
		}
		usage = usageOf(updated)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting file: %w", err)
	}

	s.purgeAsync(b, f)

	return &usage, nil
}

// purgeAsync removes the backing object best-effort, after the metadata
// transition has committed. Failures are logged, never surfaced.
func (s *Service) purgeAsync(b models.BucketConfig, f *models.File) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		url, err := sigv4.Presign("DELETE", b.SignerBucket(), f.StorageKey, probeURLTTL, nil, s.now())
		if err != nil {
			s.logger.Error(ctx, "presigning purge URL failed", "file", f.ID, "error", err.Error())
			return
		}
		if err := s.probe.Delete(ctx, url); err != nil {
			s.logger.Error(ctx, "object purge failed, bytes not reclaimed", "file", f.ID, "key", f.StorageKey, "error", err.Error())
		}
	}()
}

// getVisibleFile returns the tenant's file unless it is deleted. Absent,
// deleted and foreign files all collapse into NotFound.
func (s *Service) getVisibleFile(ctx context.Context, fileID, tenantID string) (*models.File, error) {
	f, err := s.repos.Files(s.db).GetByID(ctx, fileID, tenantID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.KindNotFound, "file not found")
		}
		return nil, fmt.Errorf("file lookup: %w", err)
	}
	if f.Status == models.FileStatusDeleted {
		return nil, common.NewError(common.KindNotFound, "file not found")
	}
	return f, nil
}

// getActiveFile additionally hides pending files.
func (s *Service) getActiveFile(ctx context.Context, fileID, tenantID string) (*models.File, error) {
	f, err := s.getVisibleFile(ctx, fileID, tenantID)
	if err != nil {
		return nil, err
	}
	if f.Status != models.FileStatusActive {
		return nil, common.NewError(common.KindNotFound, "file not found")
	}
	return f, nil
}
