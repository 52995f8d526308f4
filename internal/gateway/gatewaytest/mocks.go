// Package gatewaytest provides testify mocks of the gateway surfaces.
package gatewaytest

import (
	"context"
	"io"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	listings, _ := args.Get(0).([]models.Listing)
	return listings, args.Error(1)
}

func (m *MockStore) InsertListing(ctx context.Context, l *models.Listing) error {
	args := m.Called(ctx, l)
	if args.Error(0) == nil && l.ID == "" {
		l.ID = "listing-1"
	}
	return args.Error(0)
}

func (m *MockStore) DeleteListing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListPhotos(ctx context.Context, listingID string) ([]models.Photo, error) {
	args := m.Called(ctx, listingID)
	photos, _ := args.Get(0).([]models.Photo)
	return photos, args.Error(1)
}

func (m *MockStore) InsertPhoto(ctx context.Context, p *models.Photo) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

type MockBlob struct {
	mock.Mock
	BucketName string
	BaseURL    string
}

func (m *MockBlob) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if r != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return m.Called(ctx, path, size, contentType).Error(0)
}

func (m *MockBlob) PublicURL(path string) string {
	return m.BaseURL + "/" + m.BucketName + "/" + path
}

func (m *MockBlob) RemoveMany(ctx context.Context, paths []string) error {
	return m.Called(ctx, paths).Error(0)
}

func (m *MockBlob) Bucket() string {
	return m.BucketName
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) RecordDeletion(ctx context.Context, entry *models.DeleteLog) error {
	return m.Called(ctx, entry).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	return m.Called(ctx, subject, payload).Error(0)
}

// FakeAuth is a scripted gateway.Auth that fires listeners like the real client
type FakeAuth struct {
	User       *models.User
	UserErr    error
	SignInErr  error
	SignUpErr  error
	SignOutErr error

	SignOutCalls int
	listeners    []gateway.SessionListener
}

var _ gateway.Auth = (*FakeAuth)(nil)

func (f *FakeAuth) CurrentUser(context.Context) (*models.User, error) {
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	return f.User, nil
}

func (f *FakeAuth) SignInWithPassword(ctx context.Context, email, _ string) error {
	if f.SignInErr != nil {
		return f.SignInErr
	}
	f.User = &models.User{ID: "user-" + email, Email: email}
	f.Emit(ctx, gateway.SessionSignedIn)
	return nil
}

func (f *FakeAuth) SignUp(ctx context.Context, email, _ string) error {
	if f.SignUpErr != nil {
		return f.SignUpErr
	}
	f.User = &models.User{ID: "user-" + email, Email: email}
	f.Emit(ctx, gateway.SessionSignedIn)
	return nil
}

func (f *FakeAuth) SignOut(ctx context.Context) error {
	f.SignOutCalls++
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.User = nil
	f.Emit(ctx, gateway.SessionSignedOut)
	return nil
}

func (f *FakeAuth) OnSessionChange(fn gateway.SessionListener) func() {
	f.listeners = append(f.listeners, fn)
	i := len(f.listeners) - 1
	return func() { f.listeners[i] = nil }
}

// Emit calls every registered listener
func (f *FakeAuth) Emit(ctx context.Context, event gateway.SessionEvent) {
	for _, fn := range f.listeners {
		if fn != nil {
			fn(ctx, event)
		}
	}
}

// Listeners returns the number of active subscriptions
func (f *FakeAuth) Listeners() int {
	n := 0
	for _, fn := range f.listeners {
		if fn != nil {
			n++
		}
	}
	return n
}
