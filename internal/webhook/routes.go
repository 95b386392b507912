package webhook

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/boxcar/internal/metrics"
	"github.com/zulandar/boxcar/internal/models"
	"github.com/zulandar/boxcar/internal/telegram"
)

// registerRoutes sets up all webhook routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.POST("/webhook", handleUpdate(opts))
	router.GET("/healthz", handleHealthz())
	router.GET("/api/status", handleStatus(opts))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// handleUpdate ingests one Telegram update. Malformed updates are
// acknowledged with 200 so Telegram stops redelivering them; only store
// failures surface as errors worth a retry.
func handleUpdate(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false})
			return
		}

		in, err := telegram.ParseUpdate(raw)
		if err != nil {
			log.Printf("webhook: %v", err)
			c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": true})
			return
		}

		msg := &models.Message{
			BotID:        opts.BotID,
			UpdateID:     in.UpdateID,
			SenderID:     in.SenderID,
			MediaGroupID: in.MediaGroupID,
			FileID:       in.FileID,
			FileUniqueID: in.FileUniqueID,
			FileSize:     in.FileSize,
			FileName:     in.FileName,
			Ext:          in.Ext,
			MimeType:     in.MimeType,
			Caption:      in.Caption,
			Text:         in.Text,
			Raw:          in.Raw,
			TypeID:       opts.TypeMap[in.ChatID],
			Date:         in.Date,
			Time:         time.Now().Unix(),
		}
		if err := opts.Store.InsertMessage(msg); err != nil {
			log.Printf("webhook: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
			return
		}

		media := "no"
		if in.HasMedia() {
			media = "yes"
			// The counter is what tells the migrator a group is complete;
			// only media-bearing group members count toward it.
			if in.MediaGroupID != 0 {
				if err := opts.Counter.Increment(c.Request.Context(), in.MediaGroupID); err != nil {
					log.Printf("webhook: %v", err)
				}
			}
		}
		metrics.MessagesIngested.WithLabelValues(media).Inc()

		c.JSON(http.StatusOK, gin.H{"ok": true, "id": msg.ID})
	}
}

func handleHealthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// handleStatus reports pipeline progress: message counts per state plus
// migrated post/file totals.
func handleStatus(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := opts.Store.StatusCounts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		posts, err := opts.Store.CountPosts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		files, err := opts.Store.CountFiles()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		messages := make(map[string]int64, len(counts))
		for status, n := range counts {
			messages[models.StatusName(status)] = n
		}
		c.JSON(http.StatusOK, gin.H{
			"messages": messages,
			"posts":    posts,
			"files":    files,
		})
	}
}
