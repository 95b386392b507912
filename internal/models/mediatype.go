package models

// MediaType is a content category assigned at ingest via the configured
// chat-to-type map.
type MediaType struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Name string `gorm:"size:255;not null;default:''"`
	Time int64
}
