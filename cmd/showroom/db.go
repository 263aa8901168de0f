package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Showroom database",
		Long:  "Migrates the message, presence and lead tables and seeds the offline presence record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config for site %q from %s\n", cfg.Site, configPath)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedPresence(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Presence record ready")

	fmt.Fprintln(out, "\nShowroom database initialized successfully.")
	return nil
}
