package models

// Message is one inbound unit of content from the Telegram webhook. IDs are
// snowflakes assigned at ingest, never auto-incremented, so rows sort in
// arrival order and survive re-imports without collisions.
type Message struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	BotID        int64  `gorm:"index"`
	UpdateID     int64
	SenderID     int64
	MediaGroupID int64  `gorm:"index"`
	FileID       string `gorm:"size:255;index"`
	FileUniqueID string `gorm:"size:64"`
	FileSize     int64
	FileName     string `gorm:"type:text"`
	Ext          string `gorm:"size:32"`
	MimeType     string `gorm:"size:255"`
	Caption      string `gorm:"type:text"`
	Text         string `gorm:"type:text"`
	Raw          string `gorm:"type:mediumtext"`
	Path         string `gorm:"size:255;default:''"`
	FileStatus   int    `gorm:"default:0;index"`
	DownloadTime int64  `gorm:"default:0"`
	// DownloadTimes counts fetch attempts, including reclaimed timeouts.
	DownloadTimes int   `gorm:"default:0"`
	TypeID        int64 `gorm:"index"`
	Date          int64
	Time          int64
}
