package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   token HMAC secret key
//	-t int      session token validity, minutes
//	-m int      per-upload size ceiling, megabytes
//	-u int      upload URL validity, minutes
//	-w int      download URL validity, minutes
//
// The bucket shard table has no flag form; it only comes from the JSON file.
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-m", "-u", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "token validity (in minutes)")
	maxUploadMB := fs.Int64("m", config.MaxUploadBytes>>20, "per-upload ceiling (in megabytes)")
	uploadTTL := fs.Int("u", int(config.UploadURLTTL.Minutes()), "upload URL validity (in minutes)")
	downloadTTL := fs.Int("w", int(config.DownloadURLTTL.Minutes()), "download URL validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
	config.MaxUploadBytes = *maxUploadMB << 20
	config.UploadURLTTL = time.Duration(*uploadTTL) * time.Minute
	config.DownloadURLTTL = time.Duration(*downloadTTL) * time.Minute
}
