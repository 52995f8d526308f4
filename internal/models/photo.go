package models

import "time"

// Photo represents an uploaded image associated with a listing
type Photo struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ListingID string    `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	FileName  string    `gorm:"type:varchar(255)" json:"file_name"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Photo
func (Photo) TableName() string {
	return "listing_photos"
}
