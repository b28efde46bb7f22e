package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/flow.report/internal/db"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run database schema",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "run database path (overrides db.path)")

	// withDB opens the database without migrating it and hands over the
	// embedded migrations.
	withDB := func(cmd *cobra.Command, fn func(*db.DB, fs.FS) error) error {
		s, err := root.loadSettings(func(v *viper.Viper) error {
			return v.BindPFlag("db.path", cmd.Flag("db"))
		})
		if err != nil {
			return err
		}
		if s.DB.Path == "" {
			return errors.New("no database: set --db or db.path")
		}
		migrations, err := db.MigrationsFS()
		if err != nil {
			return err
		}
		store, err := db.OpenDB(s.DB.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(store, migrations)
	}

	printVersion := func(cmd *cobra.Command, store *db.DB, migrations fs.FS) error {
		v, dirty, err := store.MigrateVersion(migrations)
		if err != nil {
			return err
		}
		latest, err := db.LatestVersion(migrations)
		if err != nil {
			return err
		}
		cmd.Printf("version %d of %d (dirty: %v)\n", v, latest, dirty)
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(store *db.DB, migrations fs.FS) error {
					if err := store.MigrateUp(migrations); err != nil {
						return err
					}
					return printVersion(cmd, store, migrations)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(store *db.DB, migrations fs.FS) error {
					if err := store.MigrateDown(migrations); err != nil {
						return err
					}
					return printVersion(cmd, store, migrations)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(store *db.DB, migrations fs.FS) error {
					if err := printVersion(cmd, store, migrations); err != nil {
						return fmt.Errorf("read schema version: %w", err)
					}
					return nil
				})
			},
		},
	)
	return cmd
}
