package store

import (
	"fmt"

	"github.com/zulandar/boxcar/internal/models"
	"gorm.io/gorm"
)

// PromoteEmptyFileID advances WAITING messages that carry no media straight
// to MOVED: there are no bytes to fetch, so they are trivially complete.
func (s *Store) PromoteEmptyFileID() (int64, error) {
	result := s.db.Model(&models.Message{}).
		Where("file_id = ? AND file_status = ?", "", models.StatusWaiting).
		Update("file_status", models.StatusMoved)
	if result.Error != nil {
		return 0, fmt.Errorf("store: promote empty file_id: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ReclaimStuck resets DOWNLOADING messages whose attempt started before
// cutoff back to WAITING. A crash between the status flip and the fetch
// dispatch leaves orphans; this is their only recovery path.
func (s *Store) ReclaimStuck(cutoff int64) (int64, error) {
	result := s.db.Model(&models.Message{}).
		Where("file_status = ? AND download_time > 0 AND download_time < ?",
			models.StatusDownloading, cutoff).
		Updates(map[string]interface{}{
			"file_status":   models.StatusWaiting,
			"download_time": 0,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("store: reclaim stuck downloads: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SelectWaiting returns up to limit WAITING messages with a real file_id,
// id ascending (FIFO). maxFileSize of 0 means no size ceiling.
func (s *Store) SelectWaiting(limit int, maxFileSize int64) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := s.db.Where("file_status = ? AND file_id != ?", models.StatusWaiting, "")
	if maxFileSize > 0 {
		q = q.Where("file_size <= ?", maxFileSize)
	}
	var msgs []models.Message
	if err := q.Order("id ASC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("store: select waiting: %w", err)
	}
	return msgs, nil
}

// MarkDownloading flips the given messages to DOWNLOADING, stamps the
// attempt start, and increments the attempt counter, all in one
// transaction so a partial flip never dispatches.
func (s *Store) MarkDownloading(ids []int64, now int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"file_status":   models.StatusDownloading,
				"download_time": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Message{}).
			Where("id IN ?", ids).
			Update("download_times", gorm.Expr("download_times + 1")).Error
	})
	if err != nil {
		return fmt.Errorf("store: mark downloading: %w", err)
	}
	return nil
}

// ResetToWaiting puts messages back in WAITING so the scheduler retries
// them on a later cycle.
func (s *Store) ResetToWaiting(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.Model(&models.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"file_status":   models.StatusWaiting,
			"download_time": 0,
		}).Error; err != nil {
		return fmt.Errorf("store: reset to waiting: %w", err)
	}
	return nil
}

// MarkMoved records the durable path for a relocated payload.
func (s *Store) MarkMoved(id int64, path string) error {
	if err := s.db.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"file_status": models.StatusMoved,
			"path":        path,
		}).Error; err != nil {
		return fmt.Errorf("store: mark moved %d: %w", id, err)
	}
	return nil
}

// FindDuplicatePath looks for an already-relocated payload with the same
// file_id. file_id is not unique across messages: forwarded and grouped
// content references the same blob from several rows.
func (s *Store) FindDuplicatePath(fileID string) (string, error) {
	var msg models.Message
	err := s.db.Where("file_id = ? AND path != ?", fileID, "").
		Order("id ASC").First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: find duplicate path for %s: %w", fileID, err)
	}
	return msg.Path, nil
}

// PropagateDuplicatePath points every pathless message with the given
// file_id at an existing payload and marks them MOVED.
func (s *Store) PropagateDuplicatePath(fileID, path string) (int64, error) {
	result := s.db.Model(&models.Message{}).
		Where("file_id = ? AND path = ?", fileID, "").
		Updates(map[string]interface{}{
			"file_status": models.StatusMoved,
			"path":        path,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("store: propagate duplicate path for %s: %w", fileID, result.Error)
	}
	return result.RowsAffected, nil
}

// SelectMoved returns up to limit MOVED messages, id ascending.
func (s *Store) SelectMoved(limit int) ([]models.Message, error) {
	var msgs []models.Message
	if err := s.db.Where("file_status = ?", models.StatusMoved).
		Order("id ASC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("store: select moved: %w", err)
	}
	return msgs, nil
}

// MarkPosted advances messages to the terminal IN_POSTED state.
func (s *Store) MarkPosted(ids []int64) error {
	return s.bulkStatus(ids, models.StatusPosted)
}

// MarkSkipped advances messages to the terminal SKIPPED state, used for
// groups with neither content nor media.
func (s *Store) MarkSkipped(ids []int64) error {
	return s.bulkStatus(ids, models.StatusSkipped)
}

func (s *Store) bulkStatus(ids []int64, status int) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.Model(&models.Message{}).
		Where("id IN ?", ids).
		Update("file_status", status).Error; err != nil {
		return fmt.Errorf("store: bulk status %d: %w", status, err)
	}
	return nil
}
