package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/geoprov/cmd/geoprov/handlers"
)

// Status returns the read-only reconciliation report command.
func Status() *cobra.Command {
	opts := handlers.StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status <candidates>",
		Short: "Report ledger and checkpoint state per candidate",
		Long: `Compare a candidate list against the ledger and the checkpoint record.

Nothing is created or modified. Each candidate is reported as one of:
  provisioned       ledger row with a location id and a token snapshot
  token-missing     ledger row with a location id but no token snapshot
  created-unsynced  checkpoint entry without a ledger location id
  pending           not created yet

Examples:
  geoprov status florida.yaml
  geoprov status florida.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CandidatesPath = args[0]
			return handlers.Status(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: geoprov.yaml)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}
