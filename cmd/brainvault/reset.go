package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eliseohh/brainvaultbot/internal/config"
	"github.com/eliseohh/brainvaultbot/internal/store"
)

func newResetCmd() *cobra.Command {
	var (
		dbPath string
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe every user's notes and recreate an empty vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every note; pass --yes to confirm")
			}
			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dbPath = cfg.DBPath
			}

			db, err := store.NewDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Nuke(); err != nil {
				return err
			}
			if err := db.InitSchemaContext(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "vault %s reset\n", dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "vault database (default $BRAINVAULT_DB)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
