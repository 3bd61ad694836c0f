// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/geoprov/internal/candidates"
	"github.com/imamik/geoprov/internal/checkpoint"
	"github.com/imamik/geoprov/internal/config"
	"github.com/imamik/geoprov/internal/credentials"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/logging"
	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/s3"
	"github.com/imamik/geoprov/internal/platform/sheets"
	"github.com/imamik/geoprov/internal/platform/telephony"
	"github.com/imamik/geoprov/internal/provisioning"
	"github.com/imamik/geoprov/internal/util/async"
	"github.com/imamik/geoprov/internal/util/seal"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadDotEnv loads .env into the process environment.
	loadDotEnv = config.LoadDotEnv

	// loadConfig loads and validates the configuration file.
	loadConfig = config.Load

	// loadCandidates loads and validates a candidate document.
	loadCandidates = candidates.Load

	// newLogger builds the process logger.
	newLogger = logging.New

	// newLedgerStore connects to the spreadsheet behind the ledger.
	newLedgerStore = func(ctx context.Context, cfg config.LedgerConfig) (ledger.Store, error) {
		return sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.Tab, cfg.Range, sheets.CredentialOptions(cfg.CredentialsFile)...)
	}

	// newCheckpointBackend selects the file or S3 checkpoint backend.
	newCheckpointBackend = func(ctx context.Context, cfg config.CheckpointConfig) (checkpoint.Backend, error) {
		if cfg.Backend != config.BackendS3 {
			return checkpoint.NewFileBackend(cfg.Dir), nil
		}
		client, err := s3.NewClient(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
		if err != nil {
			return nil, err
		}
		return checkpoint.NewS3Backend(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}

	// newAgency builds the agency credential.
	newAgency = credentials.FromConfig

	// newAccounts creates the account-management gateway.
	newAccounts = func(cfg config.AccountsConfig, auth accounts.Authorizer, timeouts *config.Timeouts) provisioning.AccountGateway {
		return accounts.NewClient(auth,
			accounts.WithBaseURL(cfg.BaseURL),
			accounts.WithVersion(cfg.APIVersion),
			accounts.WithTimeout(timeouts.Request),
			accounts.WithRateLimit(cfg.RequestsPerSecond),
		)
	}

	// newTelephony creates the telephony gateway.
	newTelephony = func(cfg config.TelephonyConfig, timeouts *config.Timeouts) provisioning.TelephonyGateway {
		return telephony.NewClient(cfg.AccountSID, cfg.AuthToken,
			telephony.WithBaseURL(cfg.BaseURL),
			telephony.WithTimeout(timeouts.Request),
			telephony.WithRateLimit(cfg.RequestsPerSecond),
		)
	}

	// isTerminal reports whether stdout is attached to a terminal.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// confirm asks a yes/no question.
	confirm = func(ctx context.Context, title, description string) (bool, error) {
		var ok bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Value(&ok),
			),
		).RunWithContext(ctx)
		return ok, err
	}

	// output receives rendered summaries and reports.
	output io.Writer = os.Stdout

	// now returns the current time.
	now = time.Now
)

// loadSettings loads .env, the configuration and the candidate document.
func loadSettings(configPath, candidatesPath string) (*config.Config, *candidates.Document, error) {
	if err := loadDotEnv(""); err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	doc, err := loadCandidates(candidatesPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, doc, nil
}

// openLedger connects to the spreadsheet and builds the ledger index. The
// client outlives the load timeout: it serves the write-backs of the run.
func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Index, error) {
	store, err := newLedgerStore(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.LedgerLoad)
	defer cancel()

	index, err := ledger.Load(loadCtx, store, ledger.Layout{
		Range:             cfg.Ledger.Range,
		AccountNameHeader: cfg.Ledger.AccountNameHeader,
		LocationIDHeader:  cfg.Ledger.LocationIDHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger %s: %w", cfg.Ledger.A1Range(), err)
	}
	return index, nil
}

// openCheckpoints builds the checkpoint store, sealing tokens when a key is
// configured.
func openCheckpoints(ctx context.Context, cfg *config.Config, log logr.Logger) (*checkpoint.Store, error) {
	backend, err := newCheckpointBackend(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint backend: %w", err)
	}

	opts := []checkpoint.Option{checkpoint.WithLogger(log.WithName("checkpoint"))}
	if cfg.Checkpoint.SealKey != "" {
		sealer, err := seal.ParseKey(cfg.Checkpoint.SealKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, checkpoint.WithSealer(sealer))
	}
	return checkpoint.NewStore(backend, opts...), nil
}

// prepareRun loads the ledger and verifies the checkpoint backend
// concurrently. Both are fatal when they fail.
func prepareRun(ctx context.Context, cfg *config.Config, log logr.Logger) (*ledger.Index, *checkpoint.Store, error) {
	store, err := openCheckpoints(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var index *ledger.Index
	err = async.Parallel(ctx,
		async.Step{Name: "ledger", Run: func(ctx context.Context) error {
			var err error
			index, err = openLedger(ctx, cfg)
			return err
		}},
		async.Step{Name: "checkpoints", Run: store.Check},
	)
	if err != nil {
		return nil, nil, err
	}
	return index, store, nil
}
