package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by FindConfigFile when no file exists.
var ErrConfigNotFound = errors.New("config file not found")

// Load reads the configuration from path (or a discovered geoprov.yaml when
// path is empty), applies defaults and environment overrides, and validates
// the result. A missing discovered file is not an error: the environment
// alone may carry the full configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		found, err := FindConfigFile()
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		path = found
	}

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	cfg.Timeouts = LoadTimeouts()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile parses a YAML configuration file without defaults or validation.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// FindConfigFile looks for geoprov.yaml in the working directory and its parents.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, DefaultConfigFilename)
}

// DefaultDotEnvFilename is the dotenv file read by LoadDotEnv when no path
// is given.
const DefaultDotEnvFilename = ".env"

// LoadDotEnv loads variables from a dotenv file into the process
// environment. Variables already set are kept. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvFilename
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with non-empty environment variables.
func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Ledger.SpreadsheetID, "GEOPROV_SPREADSHEET_ID")
	setFromEnv(&cfg.Ledger.Tab, "GEOPROV_LEDGER_TAB")
	setFromEnv(&cfg.Ledger.Range, "GEOPROV_LEDGER_RANGE")
	setFromEnv(&cfg.Ledger.AccountNameHeader, "GEOPROV_LEDGER_NAME_HEADER")
	setFromEnv(&cfg.Ledger.LocationIDHeader, "GEOPROV_LEDGER_LOCATION_HEADER")
	setFromEnv(&cfg.Ledger.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setFromEnv(&cfg.Checkpoint.Backend, "GEOPROV_CHECKPOINT_BACKEND")
	setFromEnv(&cfg.Checkpoint.Dir, "GEOPROV_CHECKPOINT_DIR")
	setFromEnv(&cfg.Checkpoint.SealKey, "GEOPROV_SEAL_KEY")
	setFromEnv(&cfg.Checkpoint.S3.Endpoint, "GEOPROV_CHECKPOINT_S3_ENDPOINT")
	setFromEnv(&cfg.Checkpoint.S3.Region, "GEOPROV_CHECKPOINT_S3_REGION")
	setFromEnv(&cfg.Checkpoint.S3.Bucket, "GEOPROV_CHECKPOINT_S3_BUCKET")
	setFromEnv(&cfg.Checkpoint.S3.Prefix, "GEOPROV_CHECKPOINT_S3_PREFIX")
	setFromEnv(&cfg.Checkpoint.S3.AccessKey, "GEOPROV_CHECKPOINT_S3_ACCESS_KEY")
	setFromEnv(&cfg.Checkpoint.S3.SecretKey, "GEOPROV_CHECKPOINT_S3_SECRET_KEY")

	setFromEnv(&cfg.Accounts.BaseURL, "GEOPROV_ACCOUNTS_BASE_URL")
	setFromEnv(&cfg.Accounts.TenantID, "GEOPROV_TENANT_ID")
	setFromEnv(&cfg.Accounts.AgencyToken, "GEOPROV_AGENCY_TOKEN")
	setFromEnv(&cfg.Accounts.OAuth.ClientID, "GEOPROV_OAUTH_CLIENT_ID")
	setFromEnv(&cfg.Accounts.OAuth.ClientSecret, "GEOPROV_OAUTH_CLIENT_SECRET")
	setFromEnv(&cfg.Accounts.OAuth.RefreshToken, "GEOPROV_OAUTH_REFRESH_TOKEN")
	setFromEnv(&cfg.Accounts.OAuth.TokenURL, "GEOPROV_OAUTH_TOKEN_URL")

	setFromEnv(&cfg.Telephony.BaseURL, "GEOPROV_TELEPHONY_BASE_URL")
	setFromEnv(&cfg.Telephony.AccountSID, "TWILIO_ACCOUNT_SID")
	setFromEnv(&cfg.Telephony.AuthToken, "TWILIO_AUTH_TOKEN")
}

func setFromEnv(dst *string, envVar string) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	defaultString(&cfg.Ledger.Range, DefaultLedgerRange)
	defaultString(&cfg.Ledger.AccountNameHeader, DefaultAccountNameHeader)
	defaultString(&cfg.Ledger.LocationIDHeader, DefaultLocationIDHeader)

	defaultString(&cfg.Checkpoint.Backend, BackendFile)
	defaultString(&cfg.Checkpoint.Dir, DefaultCheckpointDir)
	defaultString(&cfg.Checkpoint.S3.Region, DefaultS3Region)

	defaultString(&cfg.Accounts.BaseURL, DefaultAccountsBaseURL)
	defaultString(&cfg.Accounts.APIVersion, DefaultAccountsVersion)
	defaultString(&cfg.Accounts.OAuth.TokenURL, DefaultOAuthTokenURL)
	if cfg.Accounts.RequestsPerSecond <= 0 {
		cfg.Accounts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	defaultString(&cfg.Telephony.BaseURL, DefaultTelephonyBaseURL)
	if cfg.Telephony.LookupLimit <= 0 {
		cfg.Telephony.LookupLimit = DefaultLookupLimit
	}
	if cfg.Telephony.RequestsPerSecond <= 0 {
		cfg.Telephony.RequestsPerSecond = DefaultRequestsPerSecond
	}
}

func defaultString(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
