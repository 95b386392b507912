// Package migrator turns completed media groups into normalized Post and
// File rows, the terminal stage of the ingestion pipeline.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/zulandar/boxcar/internal/cache"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/metrics"
	"github.com/zulandar/boxcar/internal/models"
	"github.com/zulandar/boxcar/internal/notify"
	"github.com/zulandar/boxcar/internal/store"
)

// TextFilter rewrites post contents before they are stored. Filters run
// in order; an empty result drops the candidate text.
type TextFilter func(string) string

// Migrator drives one migration cycle per Run call.
type Migrator struct {
	store    *store.Store
	counter  cache.GroupCounter
	notifier notify.Notifier
	cfg      config.MigrateConfig
	filters  []TextFilter

	// now is stubbed in tests to pin staleness decisions.
	now func() time.Time
}

// New assembles a Migrator. A nil notifier falls back to the process log.
func New(st *store.Store, counter cache.GroupCounter, notifier notify.Notifier, cfg config.MigrateConfig, filters ...TextFilter) *Migrator {
	if notifier == nil {
		notifier = notify.Log()
	}
	return &Migrator{
		store:    st,
		counter:  counter,
		notifier: notifier,
		cfg:      cfg,
		filters:  filters,
		now:      time.Now,
	}
}

// group is one migration candidate: the MOVED messages sharing a media
// group id, or a single standalone message.
type group struct {
	id         int64
	messages   []models.Message
	standalone bool
}

// Run selects one batch of MOVED messages and migrates every ready group.
// Per-group failures are logged and retried next cycle; the batch keeps
// going.
func (m *Migrator) Run(ctx context.Context) error {
	batch, err := m.store.SelectMoved(m.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	for _, g := range partition(batch) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.migrate(ctx, g); err != nil {
			log.Printf("migrator: group %d: %v", g.id, err)
		}
	}
	return nil
}

// partition splits a batch into per-group candidates, ascending by group
// key. Standalone messages (no media group) migrate as singleton groups
// keyed by their own message id.
func partition(batch []models.Message) []group {
	grouped := make(map[int64]*group)
	var order []int64
	for _, msg := range batch {
		key := msg.MediaGroupID
		standalone := key == 0
		if standalone {
			key = msg.ID
		}
		g, ok := grouped[key]
		if !ok {
			g = &group{id: key, standalone: standalone}
			grouped[key] = g
			order = append(order, key)
		}
		g.messages = append(g.messages, msg)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]group, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	return out
}

// migrate writes one group's Post and File rows and advances its messages
// to the terminal state. Nothing is written for groups that are not ready
// yet; they stay MOVED and are re-evaluated next cycle.
func (m *Migrator) migrate(ctx context.Context, g group) error {
	ids := make([]int64, len(g.messages))
	for i, msg := range g.messages {
		ids[i] = msg.ID
	}

	var media []models.Message
	for _, msg := range g.messages {
		if msg.FileUniqueID != "" {
			media = append(media, msg)
		}
	}

	contents := m.pickContents(g.messages)

	// Readiness comes first: an incomplete group may only hold its empty
	// members so far, and parking those terminally would orphan the media
	// siblings the counter still expects.
	if !g.standalone {
		ready, err := m.groupReady(ctx, g, len(media))
		if err != nil {
			return err
		}
		if !ready {
			return nil
		}
	}

	// Neither text nor media in a group that cannot grow further: noise.
	// Park it terminally instead of re-evaluating it forever.
	if contents == "" && len(media) == 0 {
		if err := m.store.MarkSkipped(ids); err != nil {
			return err
		}
		metrics.GroupsSkipped.Inc()
		log.Printf("migrator: skipped empty group %d (%d messages)", g.id, len(ids))
		return nil
	}

	// A crash after the Post insert but before the status bump leaves a
	// migrated group still in MOVED; resume it instead of re-inserting.
	// Lenient migration also lands here when siblings arrive after the
	// post was written — their payloads still get File rows.
	existing, err := m.store.ExistingPost(g.id)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("migrator: group %d already has post %d, resuming", g.id, existing.ID)
		return m.resume(ctx, g, ids, media, existing.ID)
	}

	post := &models.Post{
		ID:           m.store.NextID(),
		TypeID:       g.messages[0].TypeID,
		Contents:     contents,
		MediaGroupID: g.id,
		Date:         g.messages[0].Date,
		Time:         m.now().Unix(),
	}
	files := m.buildFiles(post.ID, g.id, media)

	err = m.store.CreatePostWithFiles(post, files)
	if errors.Is(err, store.ErrPostExists) {
		log.Printf("migrator: group %d raced an existing post, resuming", g.id)
		raced, err := m.store.ExistingPost(g.id)
		if err != nil {
			return err
		}
		if raced == nil {
			return fmt.Errorf("group %d: post vanished after duplicate-key insert", g.id)
		}
		return m.resume(ctx, g, ids, media, raced.ID)
	}
	if err != nil {
		return err
	}
	metrics.PostsMigrated.Inc()
	metrics.FilesMigrated.Add(float64(len(files)))

	return m.finish(ctx, g, ids)
}

// buildFiles mints File rows for the group's media-bearing messages.
func (m *Migrator) buildFiles(postID, groupID int64, media []models.Message) []models.File {
	now := m.now().Unix()
	files := make([]models.File, 0, len(media))
	for _, msg := range media {
		files = append(files, models.File{
			ID:           m.store.NextID(),
			PostID:       postID,
			Path:         msg.Path,
			FileSize:     msg.FileSize,
			FileName:     msg.FileName,
			Ext:          msg.Ext,
			MimeType:     msg.MimeType,
			MediaGroupID: groupID,
			Time:         now,
		})
	}
	return files
}

// resume completes a group whose Post already exists. Media payloads not
// yet represented on the post get their File rows before the messages are
// advanced; without this, siblings migrated after the post insert would
// reach the terminal state with their payloads unrecorded.
func (m *Migrator) resume(ctx context.Context, g group, ids []int64, media []models.Message, postID int64) error {
	added, err := m.store.AddMissingFiles(postID, m.buildFiles(postID, g.id, media))
	if err != nil {
		return err
	}
	if added > 0 {
		metrics.FilesMigrated.Add(float64(added))
		log.Printf("migrator: attached %d late files to post %d", added, postID)
	}
	return m.finish(ctx, g, ids)
}

// finish clears the group counter and bumps every message to IN_POSTED.
// The Post insert has already happened by the time this runs.
func (m *Migrator) finish(ctx context.Context, g group, ids []int64) error {
	if !g.standalone {
		if err := m.counter.Delete(ctx, g.id); err != nil {
			return err
		}
	}
	return m.store.MarkPosted(ids)
}

// groupReady decides whether a media group may migrate now. In strict
// mode the group waits until the ingest counter matches the media rows
// seen; a configured staleness window lets chronically incomplete groups
// through leniently rather than wedging forever.
func (m *Migrator) groupReady(ctx context.Context, g group, actual int) (bool, error) {
	if m.cfg.Lenient {
		return true, nil
	}
	expected, err := m.counter.Get(ctx, g.id)
	if err != nil {
		return false, err
	}
	if int64(actual) == expected {
		return true, nil
	}

	if m.cfg.StaleAfterSeconds > 0 {
		newest := int64(0)
		for _, msg := range g.messages {
			if msg.Time > newest {
				newest = msg.Time
			}
		}
		if newest > 0 && newest < m.now().Unix()-int64(m.cfg.StaleAfterSeconds) {
			metrics.LenientFallbacks.Inc()
			text := fmt.Sprintf("boxcar: media group %d stale (%d of %d items after %s), migrating leniently",
				g.id, actual, expected, m.cfg.StaleAfter())
			if err := m.notifier.Send(ctx, text); err != nil {
				log.Printf("migrator: %v", err)
			}
			return true, nil
		}
	}

	log.Printf("migrator: group %d incomplete (%d of %d items), waiting", g.id, actual, expected)
	return false, nil
}

// pickContents selects the post body: the first non-empty caption in
// message-id order, else the first non-empty text, run through the
// configured filters.
func (m *Migrator) pickContents(messages []models.Message) string {
	for _, msg := range messages {
		if msg.Caption != "" {
			if out := m.applyFilters(msg.Caption); out != "" {
				return out
			}
		}
	}
	for _, msg := range messages {
		if msg.Text != "" {
			if out := m.applyFilters(msg.Text); out != "" {
				return out
			}
		}
	}
	return ""
}

func (m *Migrator) applyFilters(text string) string {
	for _, f := range m.filters {
		text = f(text)
		if text == "" {
			return ""
		}
	}
	return text
}
