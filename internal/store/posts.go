package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/zulandar/boxcar/internal/models"
	"gorm.io/gorm"
)

// ErrPostExists is returned when a Post for the media group has already
// been written, typically by a cycle that crashed before the status bump.
var ErrPostExists = errors.New("store: post already exists for media group")

// ExistingPost returns the Post for a media group, or nil if none has been
// written yet.
func (s *Store) ExistingPost(mediaGroupID int64) (*models.Post, error) {
	var post models.Post
	err := s.db.Where("media_group_id = ?", mediaGroupID).
		Order("id ASC").First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: existing post for group %d: %w", mediaGroupID, err)
	}
	return &post, nil
}

// CreatePostWithFiles writes one Post and its File rows in a single
// transaction. The unique index on posts.media_group_id is the last line
// of defense against double migration; duplicate-key failures surface as
// ErrPostExists so the caller can resume instead of erroring.
func (s *Store) CreatePostWithFiles(post *models.Post, files []models.File) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		return tx.Create(&files).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("store: group %d: %w", post.MediaGroupID, ErrPostExists)
		}
		return fmt.Errorf("store: create post for group %d: %w", post.MediaGroupID, err)
	}
	return nil
}

// AddMissingFiles inserts the given File rows unless the post already has
// a row for the same payload path. Late-arriving group siblings are
// attached to their post this way after the post itself was written.
func (s *Store) AddMissingFiles(postID int64, files []models.File) (int64, error) {
	var added int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, f := range files {
			var count int64
			if err := tx.Model(&models.File{}).
				Where("post_id = ? AND path = ?", postID, f.Path).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			f.PostID = postID
			if err := tx.Create(&f).Error; err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: add files to post %d: %w", postID, err)
	}
	return added, nil
}

// CountPosts returns the total number of migrated posts.
func (s *Store) CountPosts() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count posts: %w", err)
	}
	return count, nil
}

// CountFiles returns the total number of migrated files.
func (s *Store) CountFiles() (int64, error) {
	var count int64
	if err := s.db.Model(&models.File{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count files: %w", err)
	}
	return count, nil
}

// isDuplicateKey detects unique-constraint violations from both the mysql
// driver (error 1062) and sqlite (used in tests).
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
