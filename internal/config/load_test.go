package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
ledger:
  spreadsheetId: sheet-123
  tab: Accounts
  range: A:H
checkpoint:
  dir: /var/lib/geoprov
accounts:
  tenantId: company-1
  agencyToken: agency-token
telephony:
  accountSid: AC123
  authToken: secret
  lookupLimit: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"GEOPROV_SPREADSHEET_ID", "GEOPROV_LEDGER_TAB", "GEOPROV_LEDGER_RANGE",
		"GEOPROV_LEDGER_NAME_HEADER", "GEOPROV_LEDGER_LOCATION_HEADER", "GOOGLE_APPLICATION_CREDENTIALS",
		"GEOPROV_CHECKPOINT_BACKEND", "GEOPROV_CHECKPOINT_DIR", "GEOPROV_SEAL_KEY",
		"GEOPROV_CHECKPOINT_S3_BUCKET", "GEOPROV_TENANT_ID", "GEOPROV_AGENCY_TOKEN",
		"GEOPROV_OAUTH_CLIENT_ID", "GEOPROV_OAUTH_CLIENT_SECRET", "GEOPROV_OAUTH_REFRESH_TOKEN",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN",
	} {
		t.Setenv(v, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", cfg.Ledger.SpreadsheetID)
	assert.Equal(t, "Accounts!A:H", cfg.Ledger.A1Range())
	assert.Equal(t, DefaultAccountNameHeader, cfg.Ledger.AccountNameHeader)
	assert.Equal(t, DefaultLocationIDHeader, cfg.Ledger.LocationIDHeader)
	assert.Equal(t, BackendFile, cfg.Checkpoint.Backend)
	assert.Equal(t, "/var/lib/geoprov", cfg.Checkpoint.Dir)
	assert.Equal(t, DefaultAccountsBaseURL, cfg.Accounts.BaseURL)
	assert.Equal(t, 5, cfg.Telephony.LookupLimit)
	assert.Equal(t, float64(DefaultRequestsPerSecond), cfg.Telephony.RequestsPerSecond)
	require.NotNil(t, cfg.Timeouts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sampleConfig)
	t.Setenv("GEOPROV_SPREADSHEET_ID", "sheet-from-env")
	t.Setenv("GEOPROV_TENANT_ID", "company-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-from-env", cfg.Ledger.SpreadsheetID)
	assert.Equal(t, "company-env", cfg.Accounts.TenantID)
	assert.Equal(t, "Accounts", cfg.Ledger.Tab)
}

func TestLoad_MissingSpreadsheetIsConfigurationError(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
ledger:
  tab: Accounts
accounts:
  agencyToken: x
telephony:
  accountSid: AC1
  authToken: y
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSpreadsheetID)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "ledger: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GEOPROV_SPREADSHEET_ID", "sheet")
	t.Setenv("GEOPROV_LEDGER_TAB", "Accounts")
	t.Setenv("GEOPROV_AGENCY_TOKEN", "agency")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "auth")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sheet", cfg.Ledger.SpreadsheetID)
	assert.Equal(t, DefaultCheckpointDir, cfg.Checkpoint.Dir)
}

func TestFindConfigFile_WalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFilename), []byte(sampleConfig), 0600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	path, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFilename, filepath.Base(path))
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables and keeps existing ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GEOPROV_DOTENV_NEW=from-file\nGEOPROV_DOTENV_KEEP=from-file\n"), 0600))
		t.Setenv("GEOPROV_DOTENV_KEEP", "from-env")
		t.Setenv("GEOPROV_DOTENV_NEW", "")
		require.NoError(t, os.Unsetenv("GEOPROV_DOTENV_NEW"))

		require.NoError(t, LoadDotEnv(path))
		t.Cleanup(func() { _ = os.Unsetenv("GEOPROV_DOTENV_NEW") })

		assert.Equal(t, "from-file", os.Getenv("GEOPROV_DOTENV_NEW"))
		assert.Equal(t, "from-env", os.Getenv("GEOPROV_DOTENV_KEEP"))
	})
}
