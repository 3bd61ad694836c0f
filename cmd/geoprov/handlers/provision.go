package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/geoprov/internal/logging"
	"github.com/imamik/geoprov/internal/provisioning"
	"github.com/imamik/geoprov/internal/util/naming"
)

// ErrAborted is returned when the operator declines the confirmation prompt.
var ErrAborted = errors.New("provisioning aborted")

// ProvisionOptions holds the flags of the provision command.
type ProvisionOptions struct {
	CandidatesPath string
	ConfigPath     string
	DryRun         bool
	NoResume       bool
	Yes            bool
	MetricsFile    string
	LogFormat      string
	Debug          bool
}

// Provision creates the sub-accounts of a candidate document.
//
// The workflow:
//  1. Loads .env, the configuration and the candidate document
//  2. Loads the ledger index and opens the checkpoint store
//  3. Builds the agency credential and the platform gateways
//  4. Asks for confirmation on a terminal unless --yes is set
//  5. Runs the orchestrator and prints the run summary
//  6. Writes the metrics textfile when --metrics-file is set
//
// Configuration errors are returned before anything is created. Candidate
// failures are reported in the summary and do not produce an error.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	cfg, doc, err := loadSettings(opts.ConfigPath, opts.CandidatesPath)
	if err != nil {
		return err
	}

	log, flush, err := newLogger(logging.Options{Debug: opts.Debug, Format: opts.LogFormat})
	if err != nil {
		return err
	}
	defer flush()

	index, store, err := prepareRun(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.V(1).Info("ledger loaded", "range", cfg.Ledger.A1Range(), "rows", index.Len())

	agency := newAgency(ctx, cfg.Accounts, cfg.Timeouts, log.WithName("credentials"))
	if cfg.Accounts.TenantID == "" {
		log.Info("no tenant id configured, scoped tokens will not be requested")
	}

	if !opts.Yes && isTerminal() {
		ok, err := confirm(ctx,
			fmt.Sprintf("Provision %d candidates for %s?", len(doc.Items), regionLabel(doc.RegionKey, doc.RegionName)),
			confirmDescription(opts, store.Location(naming.CheckpointGroup(doc.RegionKey))),
		)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return ErrAborted
		}
	}

	metrics := provisioning.NewMetrics()
	orch := provisioning.New(provisioning.Deps{
		Accounts:    newAccounts(cfg.Accounts, agency, cfg.Timeouts),
		Telephony:   newTelephony(cfg.Telephony, cfg.Timeouts),
		Ledger:      index,
		Checkpoints: store,
		Agency:      agency,
		Observer:    provisioning.NewLogObserver(log.WithName("provision")),
		Metrics:     metrics,
	}, provisioning.Options{
		DryRun:      opts.DryRun,
		Resume:      !opts.NoResume,
		LookupLimit: cfg.Telephony.LookupLimit,
	})

	summary, runErr := orch.Run(ctx, provisioning.NewRunContext(now()), doc)
	fmt.Fprint(output, renderRunSummary(summary))

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error(err, "failed to write metrics", "path", opts.MetricsFile)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

func confirmDescription(opts ProvisionOptions, checkpointLocation string) string {
	desc := fmt.Sprintf("Checkpoints: %s", checkpointLocation)
	if opts.DryRun {
		desc += "\nDry run: accounts are created, telephony accounts stay open and no tokens are requested."
	}
	if opts.NoResume {
		desc += "\nCheckpoints from earlier runs are ignored."
	}
	return desc
}

func regionLabel(key, name string) string {
	if name == "" || name == key {
		return key
	}
	return fmt.Sprintf("%s (%s)", name, key)
}
