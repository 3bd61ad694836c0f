package config

// Config is the complete runtime configuration.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Accounts   AccountsConfig   `yaml:"accounts"`
	Telephony  TelephonyConfig  `yaml:"telephony"`

	// Timeouts is populated from the environment, never from the file.
	Timeouts *Timeouts `yaml:"-"`
}

// LedgerConfig addresses the spreadsheet acting as the account ledger.
type LedgerConfig struct {
	SpreadsheetID     string `yaml:"spreadsheetId"`
	Tab               string `yaml:"tab"`
	Range             string `yaml:"range"`
	AccountNameHeader string `yaml:"accountNameHeader"`
	LocationIDHeader  string `yaml:"locationIdHeader"`
	// CredentialsFile is a Google service account key. Falls back to
	// application default credentials when empty.
	CredentialsFile string `yaml:"credentialsFile"`
}

// A1Range returns the tab-qualified range, e.g. "Accounts!A:Z".
func (l LedgerConfig) A1Range() string {
	return l.Tab + "!" + l.Range
}

// Checkpoint backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// CheckpointConfig selects where checkpoint records are stored.
type CheckpointConfig struct {
	Backend string   `yaml:"backend"`
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
	// SealKey encrypts token snapshots at rest (32 bytes, hex or base64).
	SealKey string `yaml:"sealKey"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// AccountsConfig configures the account-management platform gateway.
type AccountsConfig struct {
	BaseURL    string `yaml:"baseUrl"`
	APIVersion string `yaml:"apiVersion"`
	// TenantID is the agency (company) identifier required for scoped tokens.
	TenantID          string      `yaml:"tenantId"`
	AgencyToken       string      `yaml:"agencyToken"`
	OAuth             OAuthConfig `yaml:"oauth"`
	RequestsPerSecond float64     `yaml:"requestsPerSecond"`
}

// OAuthConfig enables refreshing the agency token instead of a static one.
type OAuthConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RefreshToken string `yaml:"refreshToken"`
	TokenURL     string `yaml:"tokenUrl"`
}

// Enabled reports whether refresh-token credentials are configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RefreshToken != ""
}

// TelephonyConfig configures the telephony provider gateway.
type TelephonyConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	AccountSID        string  `yaml:"accountSid"`
	AuthToken         string  `yaml:"authToken"`
	LookupLimit       int     `yaml:"lookupLimit"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}
