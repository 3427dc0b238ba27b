package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/auth"
	"github.com/jonesrussell/civic-triage/internal/bootstrap"
)

func newCreateAdminCommand(opts *rootOptions) *cobra.Command {
	var (
		username string
		password string
		agencyID int64
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an agency administrator",
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

			var agency *int64
			if agencyID > 0 {
				if _, findErr := store.FindAgencyByID(ctx, agencyID); findErr != nil {
					return fmt.Errorf("agency %d: %w", agencyID, findErr)
				}
				agency = &agencyID
			}

			user, err := auth.CreateAdmin(ctx, store, username, password, agency)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			log.Info("Admin created",
				infralogger.Int64("user_id", user.ID),
				infralogger.String("username", user.Username),
				infralogger.OptionalInt64("agency_id", user.AgencyID),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	cmd.Flags().Int64Var(&agencyID, "agency", 0, "agency ID the admin manages")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
