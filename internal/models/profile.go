package models

import "time"

// Role is the authorization level of a profile
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the identity reported by the auth provider for the current session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile holds the role of an auth user, keyed by the same id
type Profile struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin reports whether the profile carries the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// AuthUser is the credential record owned by the auth provider
type AuthUser struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for AuthUser
func (AuthUser) TableName() string {
	return "auth_users"
}
