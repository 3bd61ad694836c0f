package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/geoprov/cmd/geoprov/handlers"
	"github.com/imamik/geoprov/internal/logging"
)

// Provision returns the command that provisions the candidates of a document.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: auto-detect geoprov.yaml)
//	--dry-run: Create accounts but skip the telephony close and token request
//	--no-resume: Ignore checkpoint records (the ledger still guards)
//	--yes, -y: Skip the confirmation prompt
//	--metrics-file: Write run metrics in Prometheus text format
//	--log-format: auto, console or json
//	--debug: Enable verbose logging
func Provision() *cobra.Command {
	opts := handlers.ProvisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision <candidates>",
		Short: "Create sub-accounts for a candidate list",
		Long: `Create one sub-account per candidate geography.

Candidates already recorded in the ledger, or in the checkpoint of an earlier
run, are skipped. Every created account is written back to the ledger, its
telephony sub-account is closed and a scoped access token is fetched.

Failures are isolated per candidate and reported in the run summary; they do
not change the exit code. Configuration errors abort the run.

Examples:
  # Provision using geoprov.yaml in the current directory
  geoprov provision florida.yaml

  # Rehearse without closing telephony accounts or requesting tokens
  geoprov provision florida.yaml --dry-run

  # Non-interactive run with JSON logs and a metrics textfile
  geoprov provision florida.yaml -y --log-format json --metrics-file /var/lib/node_exporter/geoprov.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CandidatesPath = args[0]
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: geoprov.yaml)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Skip the telephony close and the token request")
	cmd.Flags().BoolVar(&opts.NoResume, "no-resume", false, "Ignore checkpoint records from earlier runs")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this file")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", logging.FormatAuto, "Log format: auto, console or json")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable verbose logging")

	return cmd
}
