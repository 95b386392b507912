package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boxcar dev") {
		t.Errorf("expected output to contain 'boxcar dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boxcar 1.0.0") {
		t.Errorf("expected output to contain 'boxcar 1.0.0', got: %s", out)
	}
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{"version", "serve", "db", "status", "webhook"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestDBCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var dbCmd *cobra.Command
	for _, sub := range root.Commands() {
		if sub.Name() == "db" {
			dbCmd = sub
			break
		}
	}
	if dbCmd == nil {
		t.Fatal("db command not registered")
	}
	for _, name := range []string{"init", "reset"} {
		found := false
		for _, sub := range dbCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("db subcommand %q not registered", name)
		}
	}
}

func TestDBResetCmd_AbortsWithoutConfirmation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "boxcar.yaml")
	yaml := "bot_token: \"1:a\"\nmysql:\n  database: boxcar\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"db", "reset", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("reset without confirmation should abort cleanly: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("output = %q, want abort notice", buf.String())
	}
}

func TestServeCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--config", "/nonexistent/boxcar.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestStatusCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--config", "/nonexistent/boxcar.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
