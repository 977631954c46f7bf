package models

import "github.com/dmitrijs2005/filevault/internal/sigv4"

// BucketConfig describes one storage shard. A tenant's shard identifier must
// resolve to exactly one of these; anything else is a server-side
// misconfiguration, never a client fault.
type BucketConfig struct {
	Shard     string `json:"shard"`
	Bucket    string `json:"bucket"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// SignerBucket adapts the configuration for the sigv4 package.
func (b BucketConfig) SignerBucket() sigv4.Bucket {
	return sigv4.Bucket{
		Name:      b.Bucket,
		Endpoint:  b.Endpoint,
		Region:    b.Region,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
	}
}
