package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/eliseohh/brainvaultbot/internal/config"
	"github.com/eliseohh/brainvaultbot/internal/store"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

type exportOptions struct {
	userID int64
	format string
	out    string
	dbPath string
}

func newExportCmd() *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's notes straight from the vault database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("user") {
				return errors.New("--user is required")
			}
			data, err := runExport(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if opts.out == "" || opts.out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := writeFileAtomic(opts.out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", opts.out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.userID, "user", 0, "Telegram user id to export")
	cmd.Flags().StringVar(&opts.format, "format", vault.FormatText, "text or yaml")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "vault database (default $BRAINVAULT_DB)")
	return cmd
}

func runExport(ctx context.Context, opts exportOptions) ([]byte, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, errors.Wrap(err, "vault database")
	}

	db, err := store.NewDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.InitSchemaContext(ctx); err != nil {
		return nil, err
	}

	vlt, err := vault.Open(ctx, db, cfg.Location, nil)
	if err != nil {
		return nil, err
	}
	return vlt.Export(ctx, opts.userID, opts.format)
}

// writeFileAtomic writes to a temp file next to filename and renames it in
// place, so a crash never leaves a half-written export.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), "brainvault-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
