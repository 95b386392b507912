package migrator

// End-to-end pipeline coverage: scheduler, reconciler, and migrator wired
// over one sqlite store, with fetches served by an in-process launcher.

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/fetch"
	"github.com/zulandar/boxcar/internal/models"
	"github.com/zulandar/boxcar/internal/reconciler"
	"github.com/zulandar/boxcar/internal/scheduler"
)

type pipeLock struct{}

func (pipeLock) Acquire(ctx context.Context, ttl time.Duration) error { return nil }
func (pipeLock) Held(ctx context.Context) (bool, error)               { return false, nil }

type pipeUpstream struct{}

func (pipeUpstream) Healthy(ctx context.Context) bool { return true }

func (pipeUpstream) FileInfoURL(fileID string) string {
	return "http://api.test/getFile?file_id=" + url.QueryEscape(fileID)
}

// pipeLauncher stands in for the curl subprocess: it resolves the fetch
// synchronously, dropping the JSON artifact the reconciler consumes.
type pipeLauncher struct {
	// sources maps file ids to payloads staged on disk.
	sources map[string]string
}

func (l *pipeLauncher) Dispatch(ctx context.Context, fetchURL, outputPath string, timeout time.Duration) error {
	u, err := url.Parse(fetchURL)
	if err != nil {
		return err
	}
	fileID := u.Query().Get("file_id")

	env := map[string]any{
		"ok": true,
		"result": map[string]any{
			"file_id":   fileID,
			"file_path": l.sources[fileID],
		},
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

func stagePayload(t *testing.T, dir, name, content string) string {
	t.Helper()
	typed := filepath.Join(dir, "videos")
	if err := os.MkdirAll(typed, 0755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(typed, name)
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPipeline_GroupFlowsToPost(t *testing.T) {
	st := testStore(t)
	counter := newFakeCounter()
	counter.counts[77] = 2

	artifactDir := t.TempDir()
	mediaDir := t.TempDir()
	srcDir := t.TempDir()

	// Two media messages and one plain group member, as the webhook would
	// have ingested them. Only the media pair was counted at ingest.
	ingest := []*models.Message{
		{ID: 1, MediaGroupID: 77, FileID: "AQA1", FileUniqueID: "U1", Ext: "mp4", Caption: "Hello"},
		{ID: 2, MediaGroupID: 77, FileID: "AQA2", FileUniqueID: "U2", Ext: "mp4"},
		{ID: 3, MediaGroupID: 77, Text: ""},
	}
	for _, msg := range ingest {
		if err := st.InsertMessage(msg); err != nil {
			t.Fatal(err)
		}
	}

	launcher := &pipeLauncher{sources: map[string]string{
		"AQA1": stagePayload(t, srcDir, "file_1", "payload-one"),
		"AQA2": stagePayload(t, srcDir, "file_2", "payload-two"),
	}}

	dlCfg := config.DownloadConfig{MaxConcurrent: 10, TimeoutSeconds: 3600, CooldownSeconds: 2}
	sched := scheduler.New(st, pipeLock{}, pipeUpstream{}, launcher, dlCfg, artifactDir)
	rec := reconciler.New(st, pipeLock{}, dlCfg, artifactDir, mediaDir, "")
	mig := New(st, counter, nil, strictConfig())

	ctx := context.Background()

	// Scheduler: dispatches both media fetches, promotes the media-less
	// member straight to MOVED.
	if err := sched.Run(ctx); err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	if got := statusOf(t, st, 3); got != models.StatusMoved {
		t.Fatalf("media-less member status = %d, want moved", got)
	}
	for _, id := range []int64{1, 2} {
		if got := statusOf(t, st, id); got != models.StatusDownloading {
			t.Fatalf("message %d status = %d, want downloading", id, got)
		}
	}

	// Reconciler: relocates both payloads into the media store.
	if err := rec.Run(ctx); err != nil {
		t.Fatalf("reconciler: %v", err)
	}
	for _, id := range []int64{1, 2} {
		msg, err := st.GetMessage(id)
		if err != nil {
			t.Fatal(err)
		}
		if msg.FileStatus != models.StatusMoved {
			t.Fatalf("message %d status = %d, want moved", id, msg.FileStatus)
		}
		if _, err := os.Stat(filepath.Join(mediaDir, msg.Path)); err != nil {
			t.Fatalf("message %d payload not in media store: %v", id, err)
		}
	}
	if leftovers, err := fetch.Scan(artifactDir); err != nil || len(leftovers) != 0 {
		t.Fatalf("artifacts remaining = %d (err %v), want none", len(leftovers), err)
	}

	// Migrator: the complete group becomes one post with two files.
	if err := mig.Run(ctx); err != nil {
		t.Fatalf("migrator: %v", err)
	}

	post, err := st.ExistingPost(77)
	if err != nil {
		t.Fatal(err)
	}
	if post == nil {
		t.Fatal("no post written")
	}
	if post.Contents != "Hello" {
		t.Errorf("Contents = %q, want Hello", post.Contents)
	}
	if n, _ := st.CountPosts(); n != 1 {
		t.Errorf("posts = %d, want 1", n)
	}
	if n, _ := st.CountFiles(); n != 2 {
		t.Errorf("files = %d, want 2", n)
	}
	for _, id := range []int64{1, 2, 3} {
		if got := statusOf(t, st, id); got != models.StatusPosted {
			t.Errorf("message %d status = %d, want posted", id, got)
		}
	}
	if counter.has(77) {
		t.Error("counter for group 77 not deleted")
	}
}
