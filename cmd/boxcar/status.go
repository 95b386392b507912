package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/db"
	"github.com/zulandar/boxcar/internal/models"
	"github.com/zulandar/boxcar/internal/store"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline progress",
		Long:  "Displays message counts per pipeline state plus migrated post and file totals.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "boxcar.yaml", "path to Boxcar config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}
	st := store.New(gormDB, store.NewSnowflake(0))

	counts, err := st.StatusCounts()
	if err != nil {
		return err
	}
	posts, err := st.CountPosts()
	if err != nil {
		return err
	}
	files, err := st.CountFiles()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Messages:")
	for _, status := range []int{
		models.StatusWaiting,
		models.StatusDownloading,
		models.StatusMoved,
		models.StatusPosted,
		models.StatusSkipped,
	} {
		fmt.Fprintf(out, "  %-12s %d\n", models.StatusName(status), counts[status])
	}
	fmt.Fprintf(out, "Posts: %d\n", posts)
	fmt.Fprintf(out, "Files: %d\n", files)
	return nil
}
