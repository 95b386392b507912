// Package fetch dispatches payload downloads to external curl processes
// and reads back the result artifacts they drop.
package fetch

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// Launcher starts an asynchronous fetch whose JSON result lands at
// outputPath. Implementations must not block on the transfer.
type Launcher interface {
	Dispatch(ctx context.Context, url, outputPath string, timeout time.Duration) error
}

// CurlLauncher implements Launcher with one curl subprocess per fetch.
// curl owns the transfer and the output file; the pipeline only ever sees
// the artifact it leaves behind.
type CurlLauncher struct {
	// Binary is the curl executable; defaults to "curl".
	Binary string
}

// Dispatch spawns curl and returns once the process has started. The exit
// status is reaped and logged in the background; a failed transfer shows
// up as an empty or missing artifact, which the reconciler handles.
func (l *CurlLauncher) Dispatch(ctx context.Context, url, outputPath string, timeout time.Duration) error {
	binary := l.Binary
	if binary == "" {
		binary = "curl"
	}

	args := []string{
		"-s",
		"-o", outputPath,
		"--max-time", strconv.Itoa(int(timeout.Seconds())),
		url,
	}

	cmd := exec.CommandContext(ctx, binary, args...)

	// Use a process group so cancellation kills the entire tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("fetch: start curl: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("fetch: curl for %s exited: %v", outputPath, err)
		}
	}()

	return nil
}
