// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DownloadsDispatched counts fetches handed to the launcher.
	DownloadsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_downloads_dispatched_total",
		Help: "Fetches dispatched to the external downloader",
	})

	// DownloadsReclaimed counts timed-out downloads reset to waiting.
	DownloadsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_downloads_reclaimed_total",
		Help: "Stuck downloads reclaimed after the timeout horizon",
	})

	// MessagesPromoted counts media-less messages advanced straight to moved.
	MessagesPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_messages_promoted_total",
		Help: "Messages without media promoted directly to moved",
	})

	// MessagesMoved counts payloads relocated into durable storage.
	MessagesMoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_messages_moved_total",
		Help: "Payloads relocated into the media store",
	})

	// DedupHits counts payloads resolved by pointing at an existing copy.
	DedupHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_dedup_hits_total",
		Help: "Reconciliations resolved via an already-relocated duplicate",
	})

	// MessagesReset counts messages put back to waiting after a failed fetch.
	MessagesReset = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_messages_reset_total",
		Help: "Messages reset to waiting after fetch or move failures",
	})

	// PostsMigrated counts normalized posts written.
	PostsMigrated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_posts_migrated_total",
		Help: "Posts written by the migrator",
	})

	// FilesMigrated counts file rows written alongside posts.
	FilesMigrated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_files_migrated_total",
		Help: "File rows written by the migrator",
	})

	// GroupsSkipped counts groups dropped with neither content nor media.
	GroupsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_groups_skipped_total",
		Help: "Media groups skipped for lacking both content and media",
	})

	// LenientFallbacks counts stale groups migrated without completeness.
	LenientFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boxcar_lenient_fallbacks_total",
		Help: "Incomplete groups migrated after exceeding the stale window",
	})

	// MessagesIngested counts webhook updates accepted, by media presence.
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boxcar_messages_ingested_total",
		Help: "Webhook updates accepted into the message store",
	}, []string{"media"})

	// Downloading tracks the number of in-flight downloads after each
	// scheduler cycle.
	Downloading = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boxcar_downloading",
		Help: "Messages currently in the downloading state",
	})

	// WaitingBacklog tracks the download backlog after each scheduler cycle.
	WaitingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boxcar_waiting_backlog",
		Help: "Messages waiting for a download slot",
	})
)
