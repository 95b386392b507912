// Package reconciler consumes fetch result artifacts and relocates
// downloaded payloads into the durable media store.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zulandar/boxcar/internal/cache"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/fetch"
	"github.com/zulandar/boxcar/internal/metrics"
	"github.com/zulandar/boxcar/internal/store"
)

// Reconciler turns completed fetch artifacts into MOVED messages. One Run
// processes the artifact backlog; a bad artifact aborts the batch so the
// cooldown takes effect before more fetches land.
type Reconciler struct {
	store       *store.Store
	lock        cache.IngestLock
	cooldown    time.Duration
	artifactDir string
	mediaDir    string
	uid, gid    int

	// now is stubbed in tests to pin the dated path prefix.
	now func() time.Time
}

// New assembles a Reconciler. mediaOwner is resolved once; an unknown
// user disables the ownership fix rather than failing every move.
func New(st *store.Store, lock cache.IngestLock, cfg config.DownloadConfig, artifactDir, mediaDir, mediaOwner string) *Reconciler {
	uid, gid := resolveOwner(mediaOwner)
	return &Reconciler{
		store:       st,
		lock:        lock,
		cooldown:    cfg.Cooldown(),
		artifactDir: artifactDir,
		mediaDir:    mediaDir,
		uid:         uid,
		gid:         gid,
		now:         time.Now,
	}
}

func resolveOwner(name string) (int, int) {
	if name == "" {
		return -1, -1
	}
	u, err := user.Lookup(name)
	if err != nil {
		log.Printf("reconciler: media owner %q not found, skipping chown: %v", name, err)
		return -1, -1
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)
	return uid, gid
}

// Run processes every pending artifact, oldest message first.
func (r *Reconciler) Run(ctx context.Context) error {
	artifacts, err := fetch.Scan(r.artifactDir)
	if err != nil {
		return fmt.Errorf("reconciler: %w", err)
	}

	for _, a := range artifacts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		abort, err := r.reconcile(ctx, a)
		if err != nil {
			log.Printf("reconciler: artifact %d: %v", a.MessageID, err)
			continue
		}
		if abort {
			return nil
		}
	}
	return nil
}

// reconcile handles one artifact. It returns abort=true when the rest of
// the batch should be skipped for this cycle.
func (r *Reconciler) reconcile(ctx context.Context, a fetch.Artifact) (abort bool, err error) {
	res, err := a.Read()
	if err != nil {
		return false, err
	}

	// Empty or unparseable: the upstream is misbehaving. Back off before
	// touching the remaining artifacts.
	if res == nil {
		if err := a.Discard(); err != nil {
			return false, err
		}
		if err := r.store.ResetToWaiting(a.MessageID); err != nil {
			return false, err
		}
		metrics.MessagesReset.Inc()
		if err := r.lock.Acquire(ctx, r.cooldown); err != nil {
			log.Printf("reconciler: acquire ingest lock: %v", err)
		}
		log.Printf("reconciler: empty artifact for message %d, cooling down %s", a.MessageID, r.cooldown)
		return true, nil
	}

	if !res.OK {
		log.Printf("reconciler: fetch for message %d failed upstream: %s", a.MessageID, res.Description)
		if err := a.Discard(); err != nil {
			return false, err
		}
		if err := r.store.ResetToWaiting(a.MessageID); err != nil {
			return false, err
		}
		metrics.MessagesReset.Inc()
		return false, nil
	}

	msg, err := r.store.GetMessage(a.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		// Orphan artifact, nothing to reconcile against.
		return false, a.Discard()
	}
	if err != nil {
		return false, err
	}

	src := res.ResultData.FilePath
	rel := relPath(r.now(), classifyType(src), res.ResultData.FileID, msg.ID, extFor(msg.Ext, src))

	if _, err := os.Stat(src); os.IsNotExist(err) {
		return false, r.resolveMissing(a, msg.FileID, a.MessageID)
	}

	if err := r.move(src, rel); err != nil {
		log.Printf("reconciler: move payload for message %d: %v", msg.ID, err)
		if err := a.Discard(); err != nil {
			return false, err
		}
		if err := r.store.ResetToWaiting(msg.ID); err != nil {
			return false, err
		}
		metrics.MessagesReset.Inc()
		return false, nil
	}

	if err := r.store.MarkMoved(msg.ID, rel); err != nil {
		return false, err
	}
	metrics.MessagesMoved.Inc()
	return false, a.Discard()
}

// resolveMissing handles a payload that never landed on disk: another
// message with the same file_id may already hold the blob, in which case
// its path is propagated. Otherwise the message goes back to WAITING for
// a fresh fetch.
func (r *Reconciler) resolveMissing(a fetch.Artifact, fileID string, messageID int64) error {
	dup, err := r.store.FindDuplicatePath(fileID)
	if err != nil {
		return err
	}
	if dup != "" {
		n, err := r.store.PropagateDuplicatePath(fileID, dup)
		if err != nil {
			return err
		}
		metrics.DedupHits.Inc()
		log.Printf("reconciler: message %d resolved via duplicate payload at %s (%d rows)", messageID, dup, n)
		return a.Discard()
	}
	if err := r.store.ResetToWaiting(messageID); err != nil {
		return err
	}
	metrics.MessagesReset.Inc()
	log.Printf("reconciler: payload for message %d missing with no duplicate, retrying", messageID)
	return a.Discard()
}

// move relocates src into the media store at the given relative path,
// fixing mode and ownership on the result.
func (r *Reconciler) move(src, rel string) error {
	dst := filepath.Join(r.mediaDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		// The fetch service may sit on a different filesystem.
		if err := copyFile(src, dst); err != nil {
			return err
		}
		if err := os.Remove(src); err != nil {
			log.Printf("reconciler: remove source %s: %v", src, err)
		}
	}
	if err := os.Chmod(dst, 0644); err != nil {
		return err
	}
	if r.uid >= 0 {
		if err := os.Chown(dst, r.uid, r.gid); err != nil {
			log.Printf("reconciler: chown %s: %v", dst, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
