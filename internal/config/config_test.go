package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", `API_TOKEN=station-token
BACKEND_URL=https://backend.example.org
FACILITY_CODE=1FS
EMPLOYEE_ID=emp-1
SESSION_TTL=10m
JOURNAL_DRIVER=sqlite
JOURNAL_DSN=file::memory:
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "station-token", cfg.APIToken)
	assert.Equal(t, "/graphql", cfg.GraphQLPath)
	assert.Equal(t, DefaultBackendTimeout, cfg.BackendTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, DefaultScanDedupeCooldown, cfg.ScanDedupeCooldown)
	assert.Equal(t, DefaultImportConcurrency, cfg.ImportConcurrency)
	assert.Equal(t, "sqlite", cfg.JournalDriver)
}

func TestLoadFrom_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("BACKEND_URL", "http://localhost:8080")
	t.Setenv("FACILITY_CODE", "1FS")
	t.Setenv("EMPLOYEE_ID", "emp-2")
	t.Setenv("PORT", "7000")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.APIToken)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing backend", "API_TOKEN=t\nFACILITY_CODE=1FS\nEMPLOYEE_ID=e\n"},
		{"bad journal driver", "API_TOKEN=t\nBACKEND_URL=http://b\nFACILITY_CODE=1FS\nEMPLOYEE_ID=e\nJOURNAL_DRIVER=oracle\nJOURNAL_DSN=x\n"},
		{"journal without dsn", "API_TOKEN=t\nBACKEND_URL=http://b\nFACILITY_CODE=1FS\nEMPLOYEE_ID=e\nJOURNAL_DRIVER=sqlite\n"},
		{"graphql path", "API_TOKEN=t\nBACKEND_URL=http://b\nFACILITY_CODE=1FS\nEMPLOYEE_ID=e\nGRAPHQL_PATH=graphql\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), ".env", tt.content)
			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}
