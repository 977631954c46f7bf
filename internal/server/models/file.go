package models

import "time"

// FileStatus is the three-state file lifecycle. Transitions never skip or
// reverse a state: pending → active → deleted.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusActive  FileStatus = "active"
	FileStatusDeleted FileStatus = "deleted"
)

// File is one logical object owned by a tenant. StorageKey is derived once at
// admission and never changes, including across replace operations, which
// overwrite the same key in the object store.
type File struct {
	// ID is an opaque unique token (uuid).
	ID string
	// TenantIdentity is the owning tenant.
	TenantIdentity string
	// StorageKey has the form _<identity>/<year>/<month>/<file-id>.
	StorageKey string
	// SizeBytes is the declared size while pending, the observed size once active.
	SizeBytes int64
	// MimeType is the declared content type.
	MimeType  string
	Status    FileStatus
	CreatedAt time.Time
	// DeletedAt is set on deletion; such rows are excluded from quota and listings.
	DeletedAt *time.Time
}
