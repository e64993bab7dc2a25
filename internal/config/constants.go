package config

import (
	"errors"
	"io/fs"
	"time"
)

const (
	// Server configuration defaults
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second

	// Station defaults
	DefaultBackendTimeout     = 30 * time.Second
	DefaultSessionTTL         = 30 * time.Minute
	DefaultScanDedupeCooldown = 2 * time.Second
	DefaultImportConcurrency  = 4
	DefaultProfilesFile       = "config/profiles.yaml"
)

// isNotExist reports a missing config file. SetConfigFile makes viper stat the
// file itself, so it surfaces as a PathError rather than ConfigFileNotFoundError.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
