package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/geoprov/internal/util/seal"
)

// Configuration errors. All of them are fatal at startup.
var (
	ErrMissingSpreadsheetID     = errors.New("ledger spreadsheet id is required (GEOPROV_SPREADSHEET_ID)")
	ErrMissingLedgerTab         = errors.New("ledger tab is required (GEOPROV_LEDGER_TAB)")
	ErrMissingLedgerHeader      = errors.New("ledger account-name and location-id headers must be set")
	ErrMissingAgencyCredential  = errors.New("agency token or oauth refresh credentials are required")
	ErrMissingTelephonyAuth     = errors.New("telephony account sid and auth token are required")
	ErrInvalidCheckpointBackend = errors.New("checkpoint backend must be \"file\" or \"s3\"")
	ErrMissingCheckpointBucket  = errors.New("s3 checkpoint backend requires a bucket")
)

// Validate checks the configuration for missing required settings.
func (c *Config) Validate() error {
	if c.Ledger.SpreadsheetID == "" {
		return ErrMissingSpreadsheetID
	}
	if c.Ledger.Tab == "" {
		return ErrMissingLedgerTab
	}
	if strings.TrimSpace(c.Ledger.AccountNameHeader) == "" || strings.TrimSpace(c.Ledger.LocationIDHeader) == "" {
		return ErrMissingLedgerHeader
	}
	if c.Ledger.AccountNameHeader == c.Ledger.LocationIDHeader {
		return fmt.Errorf("%w: headers must differ, both are %q", ErrMissingLedgerHeader, c.Ledger.AccountNameHeader)
	}

	if err := c.validateCheckpoint(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}

	if c.Accounts.AgencyToken == "" && !c.Accounts.OAuth.Enabled() {
		return ErrMissingAgencyCredential
	}
	if c.Telephony.AccountSID == "" || c.Telephony.AuthToken == "" {
		return ErrMissingTelephonyAuth
	}

	return nil
}

func (c *Config) validateCheckpoint() error {
	switch c.Checkpoint.Backend {
	case BackendFile:
		if c.Checkpoint.Dir == "" {
			return fmt.Errorf("checkpoint dir is required for the file backend")
		}
	case BackendS3:
		if c.Checkpoint.S3.Bucket == "" {
			return ErrMissingCheckpointBucket
		}
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidCheckpointBackend, c.Checkpoint.Backend)
	}

	if c.Checkpoint.SealKey != "" {
		if _, err := seal.ParseKey(c.Checkpoint.SealKey); err != nil {
			return err
		}
	}
	return nil
}
