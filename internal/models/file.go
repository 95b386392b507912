package models

// File is one physical payload attached to a Post. Rows are written in the
// same transaction as their owning Post and are immutable afterward.
type File struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	PostID       int64  `gorm:"index"`
	Path         string `gorm:"size:255;default:''"`
	FileSize     int64
	FileName     string `gorm:"type:text"`
	Ext          string `gorm:"size:32"`
	MimeType     string `gorm:"size:255"`
	MediaGroupID int64  `gorm:"index"`
	Time         int64
}
