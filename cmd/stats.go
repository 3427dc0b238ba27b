package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/civic-triage/internal/bootstrap"
	"github.com/jonesrussell/civic-triage/internal/digest"
	"github.com/jonesrussell/civic-triage/internal/domain"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print submission statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, store, err := bootstrap.SetupDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			stats, err := store.SubmissionStats(ctx)
			if err != nil {
				return fmt.Errorf("submission stats: %w", err)
			}
			open, err := store.CountOpenByAgency(ctx)
			if err != nil {
				return fmt.Errorf("open submissions: %w", err)
			}

			renderStats(cmd, stats, open)
			return nil
		},
	}
}

func renderStats(cmd *cobra.Command, stats *domain.Stats, open []domain.OpenCount) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total submissions: %d\n", stats.TotalSubmissions)

	byStatus := table.NewWriter()
	byStatus.SetOutputMirror(out)
	byStatus.SetStyle(table.StyleLight)
	byStatus.AppendHeader(table.Row{"Status", "Count"})
	for _, s := range domain.Statuses {
		byStatus.AppendRow(table.Row{s, stats.SubmissionsByStatus[s]})
	}
	byStatus.Render()

	byCategory := table.NewWriter()
	byCategory.SetOutputMirror(out)
	byCategory.SetStyle(table.StyleLight)
	byCategory.AppendHeader(table.Row{"Category", "Count"})
	for _, c := range stats.SubmissionsByCategory {
		byCategory.AppendRow(table.Row{c.CategoryName, c.Count})
	}
	byCategory.Render()

	digestPayload := digest.Build(open, time.Now())
	byAgency := table.NewWriter()
	byAgency.SetOutputMirror(out)
	byAgency.SetStyle(table.StyleLight)
	byAgency.AppendHeader(table.Row{"Agency", "Received", "In Progress"})
	for _, a := range digestPayload.Agencies {
		byAgency.AppendRow(table.Row{a.AgencyName, a.Received, a.InProgress})
	}
	byAgency.Render()
}
