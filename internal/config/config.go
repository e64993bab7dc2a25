// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// DefaultEnvFile is where Load looks for the station's settings.
const DefaultEnvFile = "config/.env"

// Config holds the application's configuration, loaded from .env and the environment.
type Config struct {
	APIHost            string `validate:"required"`
	Port               int    `validate:"required,min=1,max=65535"`
	APIToken           string `validate:"required"`
	BackendURL         string `validate:"required,url"`
	GraphQLPath        string `validate:"required,startswith=/"`
	BackendToken       string
	BackendTimeout     time.Duration `validate:"gt=0"`
	FacilityCode       string        `validate:"required"`
	EmployeeID         string        `validate:"required"`
	ProfilesFile       string
	JournalDriver      string        `validate:"omitempty,oneof=sqlite mysql"`
	JournalDSN         string        `validate:"required_with=JournalDriver"`
	SessionTTL         time.Duration `validate:"gt=0"`
	ScanDedupeCooldown time.Duration `validate:"gte=0"`
	ImportConcurrency  int           `validate:"min=1,max=64"`
}

// Load loads and validates the configuration from DefaultEnvFile.
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom loads and validates the configuration from an env file. A missing file
// is not an error; values then come from the environment and defaults.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetDefault("API_HOST", "127.0.0.1")
	v.SetDefault("PORT", 5000)
	v.SetDefault("GRAPHQL_PATH", "/graphql")
	v.SetDefault("BACKEND_TIMEOUT", DefaultBackendTimeout)
	v.SetDefault("PROFILES_FILE", DefaultProfilesFile)
	v.SetDefault("SESSION_TTL", DefaultSessionTTL)
	v.SetDefault("SCAN_DEDUPE_COOLDOWN", DefaultScanDedupeCooldown)
	v.SetDefault("IMPORT_CONCURRENCY", DefaultImportConcurrency)

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	appConfig := &Config{
		APIHost:            v.GetString("API_HOST"),
		Port:               v.GetInt("PORT"),
		APIToken:           v.GetString("API_TOKEN"),
		BackendURL:         v.GetString("BACKEND_URL"),
		GraphQLPath:        v.GetString("GRAPHQL_PATH"),
		BackendToken:       v.GetString("BACKEND_TOKEN"),
		BackendTimeout:     v.GetDuration("BACKEND_TIMEOUT"),
		FacilityCode:       v.GetString("FACILITY_CODE"),
		EmployeeID:         v.GetString("EMPLOYEE_ID"),
		ProfilesFile:       v.GetString("PROFILES_FILE"),
		JournalDriver:      v.GetString("JOURNAL_DRIVER"),
		JournalDSN:         v.GetString("JOURNAL_DSN"),
		SessionTTL:         v.GetDuration("SESSION_TTL"),
		ScanDedupeCooldown: v.GetDuration("SCAN_DEDUPE_COOLDOWN"),
		ImportConcurrency:  v.GetInt("IMPORT_CONCURRENCY"),
	}

	if err := validate.Struct(appConfig); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return appConfig, nil
}
