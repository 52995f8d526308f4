package models

import "time"

type Listing struct {
	// Basic info
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Address     string `gorm:"type:text" json:"address,omitempty"`

	// Filter attributes
	Price        float64       `gorm:"type:decimal(12,2);index" json:"price"`
	PropertyType PropertyType  `gorm:"type:varchar(30);index" json:"property_type"`
	Bedrooms     int           `gorm:"type:int;index" json:"bedrooms"`
	Bathrooms    int           `gorm:"type:int" json:"bathrooms"`
	AreaM2       float64       `gorm:"column:area_m2;type:decimal(10,2)" json:"area_m2"`
	Status       ListingStatus `gorm:"type:varchar(30);index" json:"status"`

	UserID string  `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Photos []Photo `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"photos"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// PropertyType is the kind of property a listing offers
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
)

// ListingStatus is the construction/availability status of a listing
type ListingStatus string

const (
	ListingStatusReady             ListingStatus = "ready"
	ListingStatusUnderConstruction ListingStatus = "under_construction"
	ListingStatusLaunch            ListingStatus = "launch"
)

// TableName sets the table name explicitly
func (Listing) TableName() string {
	return "listings"
}

// EffectiveStatus returns the status, falling back to ready when the store left it empty
func (l *Listing) EffectiveStatus() ListingStatus {
	if l.Status == "" {
		return ListingStatusReady
	}
	return l.Status
}
