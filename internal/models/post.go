package models

// Post is one migrated media group (or standalone message). Created exactly
// once per media group by the migrator; the publishing pipeline reads it but
// never this package.
type Post struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	TypeID       int64  `gorm:"index"`
	Contents     string `gorm:"type:text"`
	MediaGroupID int64  `gorm:"uniqueIndex"`
	Date         int64
	Time         int64
}
