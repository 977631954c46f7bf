package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files; its fields are copied into the runtime Config afterwards. Only the
// fields present in the file override the defaults.
type JsonConfig struct {
	EndpointAddr   *string               `json:"endpoint_addr"`
	DatabaseDSN    *string               `json:"database_dsn"`
	SecretKey      *string               `json:"secret_key"`
	TokenTTL       *timex.Duration       `json:"token_ttl"`
	MaxUploadBytes *int64                `json:"max_upload_bytes"`
	UploadURLTTL   *timex.Duration       `json:"upload_url_ttl"`
	DownloadURLTTL *timex.Duration       `json:"download_url_ttl"`
	Buckets        []models.BucketConfig `json:"buckets"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags; if neither
// is set, no JSON file is loaded. An unreadable or invalid file panics:
// starting with half a configuration is worse than not starting.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != nil {
		config.EndpointAddr = *c.EndpointAddr
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.TokenTTL != nil {
		config.TokenTTL = time.Duration(c.TokenTTL.Duration)
	}
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.UploadURLTTL != nil {
		config.UploadURLTTL = time.Duration(c.UploadURLTTL.Duration)
	}
	if c.DownloadURLTTL != nil {
		config.DownloadURLTTL = time.Duration(c.DownloadURLTTL.Duration)
	}
	if c.Buckets != nil {
		config.Buckets = c.Buckets
	}
}
