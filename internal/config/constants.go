package config

// Defaults applied when neither the file nor the environment set a value.
const (
	DefaultConfigFilename    = "geoprov.yaml"
	DefaultLedgerRange       = "A:Z"
	DefaultAccountNameHeader = "Account Name"
	DefaultLocationIDHeader  = "Location ID"
	DefaultCheckpointDir     = ".geoprov/checkpoints"
	DefaultS3Region          = "us-east-1"
	DefaultAccountsBaseURL   = "https://services.leadconnectorhq.com"
	DefaultAccountsVersion   = "2021-07-28"
	DefaultOAuthTokenURL     = "https://services.leadconnectorhq.com/oauth/token"
	DefaultTelephonyBaseURL  = "https://api.twilio.com"
	DefaultLookupLimit       = 20
	DefaultRequestsPerSecond = 5
)
