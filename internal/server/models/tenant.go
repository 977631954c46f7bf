// Package models defines server-side data models persisted in the database.
package models

import "time"

// Tenant is one client account. used_bytes is a running total maintained by
// the ledger's transitions, never recomputed from file rows during normal
// operation.
type Tenant struct {
	// Identity is the canonical 16-digit tenant identity (unique key).
	Identity string
	// Shard selects which bucket configuration applies to this tenant.
	Shard string
	// QuotaGB is the quota ceiling in whole gigabytes (2^30 bytes each).
	QuotaGB int64
	// UsedBytes is the current total of active file sizes.
	UsedBytes int64
	// UploadsCount / DownloadsCount are lifetime operation counters.
	UploadsCount   int64
	DownloadsCount int64
	// SubscriptionUntil gates new writes; reads stay available after expiry.
	SubscriptionUntil time.Time
	LastActivityAt    time.Time
	CreatedAt         time.Time
}

// QuotaBytes converts the quota ceiling into bytes.
func (t *Tenant) QuotaBytes() int64 {
	return t.QuotaGB << 30
}

// Usage is the accounting snapshot returned from every mutating operation.
type Usage struct {
	UsedBytes      int64 `json:"used_bytes"`
	QuotaBytes     int64 `json:"quota_bytes"`
	UploadsCount   int64 `json:"uploads_count"`
	DownloadsCount int64 `json:"downloads_count"`
}
