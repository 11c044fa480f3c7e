package models

import "time"

// ContentRemoval records that moderation removed a content item after its
// report group was upheld. The surrounding application owns the content
// store; it consumes these rows to hide or delete the item.
type ContentRemoval struct {
	TargetKind TargetKind `gorm:"primaryKey;size:20"`
	TargetID   string     `gorm:"primaryKey"`
	RemovedAt  time.Time
}
