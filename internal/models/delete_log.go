package models

import (
	"strings"
	"time"
)

// DeleteLog represents a record of a deleted listing
type DeleteLog struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID     string    `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	Title         string    `gorm:"type:text" json:"title"`
	PhotoCount    int       `gorm:"not null;default:0" json:"photo_count"`
	OrphanedPaths string    `gorm:"type:text" json:"orphaned_paths,omitempty"`
	DeletedAt     time.Time `gorm:"not null;autoCreateTime;index" json:"deleted_at"`
	Reason        string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonManual = "manual_deletion"
)

// Orphans returns the blob keys that were left behind by the deletion
func (d *DeleteLog) Orphans() []string {
	if d.OrphanedPaths == "" {
		return nil
	}
	return strings.Split(d.OrphanedPaths, "\n")
}
