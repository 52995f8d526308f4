// Package gateway declares the surfaces of the managed backend the portal consumes:
// authentication, the relational store and the blob store. Every call returns an
// explicit (value, error) pair; failures are *Error values carrying a Kind.
package gateway

import (
	"context"
	"io"

	"listing-portal/internal/models"
)

// SessionEvent names a session transition reported to subscribers.
type SessionEvent string

const (
	SessionSignedIn  SessionEvent = "SIGNED_IN"
	SessionSignedOut SessionEvent = "SIGNED_OUT"
)

// SessionListener is invoked synchronously after every session transition.
type SessionListener func(ctx context.Context, event SessionEvent)

// Auth is the authentication surface bound to one browser session.
type Auth interface {
	// CurrentUser returns nil, nil when there is no session.
	CurrentUser(ctx context.Context) (*models.User, error)
	SignInWithPassword(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	// OnSessionChange registers fn and returns a function that removes it.
	OnSessionChange(fn SessionListener) (unsubscribe func())
}

// Store is the relational surface.
type Store interface {
	// ListListings returns every listing with its photos, in backend order.
	ListListings(ctx context.Context) ([]models.Listing, error)
	InsertListing(ctx context.Context, l *models.Listing) error
	// DeleteListing removes the listing row; photo rows go with it by cascade.
	DeleteListing(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, listingID string) ([]models.Photo, error)
	InsertPhoto(ctx context.Context, p *models.Photo) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Blob is the object storage surface for one bucket.
type Blob interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PublicURL(path string) string
	RemoveMany(ctx context.Context, paths []string) error
	Bucket() string
}

// AuditLog records completed deletions.
type AuditLog interface {
	RecordDeletion(ctx context.Context, entry *models.DeleteLog) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}
