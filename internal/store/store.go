// Package store holds every relational predicate the pipeline stages
// consume. Stages never touch gorm directly; keeping the queries here keeps
// each stage a pure produce/process pair over a narrow surface.
package store

import (
	"errors"
	"fmt"

	"github.com/zulandar/boxcar/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the relational operations of the ingestion pipeline.
type Store struct {
	db  *gorm.DB
	ids *Snowflake
}

// New returns a Store over db, minting ids from the given generator.
func New(db *gorm.DB, ids *Snowflake) *Store {
	return &Store{db: db, ids: ids}
}

// NextID mints a fresh snowflake id.
func (s *Store) NextID() int64 {
	return s.ids.Next()
}

// InsertMessage writes a new inbound message. A zero ID is assigned from
// the id generator.
func (s *Store) InsertMessage(msg *models.Message) error {
	if msg.ID == 0 {
		msg.ID = s.ids.Next()
	}
	if err := s.db.Create(msg).Error; err != nil {
		return fmt.Errorf("store: insert message %d: %w", msg.ID, err)
	}
	return nil
}

// GetMessage fetches one message by id.
func (s *Store) GetMessage(id int64) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store: message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get message %d: %w", id, err)
	}
	return &msg, nil
}

// CountByStatus counts messages in the given file status.
func (s *Store) CountByStatus(status int) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Message{}).
		Where("file_status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count status %d: %w", status, err)
	}
	return count, nil
}

// StatusCounts returns message counts keyed by file status.
func (s *Store) StatusCounts() (map[int]int64, error) {
	type row struct {
		FileStatus int
		Count      int64
	}
	var rows []row
	if err := s.db.Model(&models.Message{}).
		Select("file_status, count(*) as count").
		Group("file_status").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: status counts: %w", err)
	}
	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.FileStatus] = r.Count
	}
	return counts, nil
}
