package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/telegram"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Bot API webhook registration",
	}

	cmd.AddCommand(newWebhookSetCmd())
	cmd.AddCommand(newWebhookDeleteCmd())
	return cmd
}

func newWebhookSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Register the configured webhook URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.API.WebhookURL == "" {
				return fmt.Errorf("api.webhook_url is not configured")
			}
			api := telegram.New(cfg.BotToken, cfg.API.Host, cfg.API.Port, cfg.API.StatisticsPort)
			if err := api.SetWebhook(cmd.Context(), cfg.API.WebhookURL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", cfg.API.WebhookURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	return cmd
}

func newWebhookDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			api := telegram.New(cfg.BotToken, cfg.API.Host, cfg.API.Port, cfg.API.StatisticsPort)
			if err := api.DeleteWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	return cmd
}
