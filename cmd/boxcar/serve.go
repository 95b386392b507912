package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zulandar/boxcar/internal/cache"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/db"
	"github.com/zulandar/boxcar/internal/fetch"
	"github.com/zulandar/boxcar/internal/migrator"
	"github.com/zulandar/boxcar/internal/notify"
	"github.com/zulandar/boxcar/internal/reconciler"
	"github.com/zulandar/boxcar/internal/runner"
	"github.com/zulandar/boxcar/internal/scheduler"
	"github.com/zulandar/boxcar/internal/store"
	"github.com/zulandar/boxcar/internal/telegram"
	"github.com/zulandar/boxcar/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion pipeline",
		Long:  "Starts the webhook server and the three pipeline stages (download scheduler, fetch reconciler, migration grouper) on their configured intervals. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Each instance gets a run id; the snowflake node bits derive from it
	// so concurrent instances never mint colliding message ids.
	runID := uuid.New()
	node := int64(binary.BigEndian.Uint16(runID[0:2]))
	fmt.Fprintf(out, "Boxcar run %s (id node %d)\n", runID, node&0x3FF)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedTypes(gormDB, cfg.TypeMap, time.Now().Unix()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.MySQL.Host, cfg.MySQL.Port)

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to redis at %s\n", cfg.Redis.Addr)

	for _, dir := range []string{cfg.ArtifactPath(), cfg.MediaStorePath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	st := store.New(gormDB, store.NewSnowflake(node))
	lock := cache.NewIngestLock(rdb)
	counter := cache.NewGroupCounter(rdb)
	api := telegram.New(cfg.BotToken, cfg.API.Host, cfg.API.Port, cfg.API.StatisticsPort)
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}

	sched := scheduler.New(st, lock, api, &fetch.CurlLauncher{}, cfg.Download, cfg.ArtifactPath())
	rec := reconciler.New(st, lock, cfg.Download, cfg.ArtifactPath(), cfg.MediaStorePath(), cfg.MediaOwner)
	mig := migrator.New(st, counter, notifier, cfg.Migrate)

	stages := runner.New()
	if err := stages.Add("scheduler", cfg.Download.Interval(), sched); err != nil {
		return err
	}
	if err := stages.Add("reconciler", cfg.Download.Interval(), rec); err != nil {
		return err
	}
	if err := stages.Add("migrator", cfg.Migrate.Interval(), mig); err != nil {
		return err
	}
	stages.Start(ctx)
	defer stages.Stop()

	if cfg.API.WebhookURL != "" {
		if err := api.SetWebhook(ctx, cfg.API.WebhookURL); err != nil {
			return err
		}
		fmt.Fprintf(out, "Webhook registered at %s\n", cfg.API.WebhookURL)
	}

	fmt.Fprintf(out, "Pipeline running, stages every %s/%s\n",
		cfg.Download.Interval(), cfg.Migrate.Interval())

	return webhook.Start(ctx, webhook.StartOpts{
		Store:   st,
		Counter: counter,
		BotID:   cfg.BotID(),
		TypeMap: cfg.TypeMap,
		Port:    cfg.HTTP.Port,
		Out:     out,
	})
}
