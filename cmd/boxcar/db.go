package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Boxcar database",
		Long:  "Migrates all pipeline tables and seeds media types from the configured type map.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config from %s\n", configPath)

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.MySQL.Host, cfg.MySQL.Port)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedTypes(gormDB, cfg.TypeMap, time.Now().Unix()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded media types for %d mapped chats\n", len(cfg.TypeMap))
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Boxcar tables",
		Long:  "Drops all pipeline tables (messages, posts, files, media types), then re-migrates and re-seeds them. Destroys all ingested data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if !skipConfirm && !confirmReset(cmd, cfg.MySQL.Database) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}

	if err := db.DropAll(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped %d tables in %s\n", len(db.AllModels()), cfg.MySQL.Database)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedTypes(gormDB, cfg.TypeMap, time.Now().Unix()); err != nil {
		return err
	}
	fmt.Fprintln(out, "Tables re-migrated and seeded.")
	return nil
}

func confirmReset(cmd *cobra.Command, database string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "This drops every Boxcar table in %q. Continue? [y/N] ", database)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
