package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/civic-triage/internal/bootstrap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return bootstrap.Serve(cmd.Context(), cfg, log, Version)
		},
	}
}
