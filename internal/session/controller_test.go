package session

import (
	"context"
	"errors"
	"testing"

	"listing-portal/internal/gateway"
	"listing-portal/internal/gateway/gatewaytest"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newController(auth *gatewaytest.FakeAuth, store *gatewaytest.MockStore, page Page) (*Controller, *notify.Collector) {
	n := notify.NewCollector()
	return NewController(auth, store, n, zap.NewNop(), page), n
}

func countLevel(n *notify.Collector, level notify.Level) int {
	count := 0
	for _, notice := range n.Notices() {
		if notice.Level == level {
			count++
		}
	}
	return count
}

func TestRefresh_Anonymous(t *testing.T) {
	store := &gatewaytest.MockStore{}
	c, _ := newController(&gatewaytest.FakeAuth{}, store, PageHome)

	v := c.Refresh(context.Background())
	assert.Equal(t, StateAnonymous, v.State)
	assert.True(t, v.ShowAuthSection)
	assert.True(t, v.ShowLoginForm)
	assert.False(t, v.ShowStatusBanner)
	assert.False(t, v.ShowPublish)
	assert.False(t, v.ShowLogout)
	assert.False(t, v.ShowDelete)
	store.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestRefresh_RegularUser(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "u1").Return(&models.Profile{ID: "u1", Role: models.RoleUser}, nil)
	auth := &gatewaytest.FakeAuth{User: &models.User{ID: "u1", Email: "ana@example.com"}}

	c, n := newController(auth, store, PageHome)
	v := c.Refresh(context.Background())

	assert.Equal(t, StateAuthenticated, v.State)
	assert.False(t, v.IsAdmin())
	assert.False(t, v.ShowAuthSection)
	assert.False(t, v.ShowLoginForm)
	assert.True(t, v.ShowStatusBanner)
	assert.Contains(t, v.StatusText, "ana@example.com")
	assert.True(t, v.ShowLogout)
	assert.False(t, v.ShowPublish)
	assert.False(t, v.ShowDelete)
	assert.False(t, v.PublishDenied)
	assert.Empty(t, n.Notices())
}

func TestRefresh_RegularUserOnPublishPageIsDeniedOnce(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "u1").Return(&models.Profile{ID: "u1", Role: models.RoleUser}, nil)
	auth := &gatewaytest.FakeAuth{User: &models.User{ID: "u1", Email: "ana@example.com"}}

	c, n := newController(auth, store, PagePublish)
	first := c.Refresh(context.Background())
	second := c.Refresh(context.Background())

	assert.True(t, first.PublishDenied)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, countLevel(n, notify.LevelError))
}

func TestRefresh_Admin(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "u1").Return(&models.Profile{ID: "u1", Role: models.RoleAdmin}, nil)
	auth := &gatewaytest.FakeAuth{User: &models.User{ID: "u1", Email: "admin@example.com"}}

	c, n := newController(auth, store, PagePublish)
	v := c.Refresh(context.Background())

	assert.True(t, v.IsAdmin())
	assert.True(t, v.ShowPublish)
	assert.True(t, v.ShowDelete)
	assert.True(t, v.ShowStatusBanner)
	assert.False(t, v.PublishDenied)
	assert.Empty(t, n.Notices())
}

func TestRefresh_RoleFailureForcesSignOut(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "u1").
		Return(nil, gateway.E("get profile", gateway.KindNotFound, errors.New("no rows")))
	auth := &gatewaytest.FakeAuth{User: &models.User{ID: "u1", Email: "ana@example.com"}}

	c, n := newController(auth, store, PageHome)
	v := c.Refresh(context.Background())

	assert.Equal(t, 1, auth.SignOutCalls)
	assert.Nil(t, auth.User)
	assert.Equal(t, StateAnonymous, v.State)
	assert.True(t, v.ShowLoginForm)
	assert.True(t, v.ShowAuthSection)
	assert.False(t, v.ShowStatusBanner)
	assert.Equal(t, StateAnonymous, c.State().State)
	assert.True(t, n.HasLevel(notify.LevelError))
}

func TestRefresh_RoleFailureWithFailingSignOutStillEndsAnonymous(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "u1").Return(nil, errors.New("profiles unavailable"))
	auth := &gatewaytest.FakeAuth{
		User:       &models.User{ID: "u1", Email: "ana@example.com"},
		SignOutErr: errors.New("network down"),
	}

	c, _ := newController(auth, store, PageHome)
	v := c.Refresh(context.Background())

	assert.Equal(t, 1, auth.SignOutCalls)
	assert.Equal(t, StateAnonymous, v.State)
	assert.False(t, v.ShowStatusBanner)
}

func TestRefresh_SessionLookupFailure(t *testing.T) {
	auth := &gatewaytest.FakeAuth{UserErr: errors.New("auth service down")}
	c, n := newController(auth, &gatewaytest.MockStore{}, PageHome)

	v := c.Refresh(context.Background())
	assert.Equal(t, StateAnonymous, v.State)
	assert.True(t, n.HasLevel(notify.LevelError))
}

func TestSessionChangeTriggersRefresh(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, "user-admin@example.com").
		Return(&models.Profile{Role: models.RoleAdmin}, nil)
	auth := &gatewaytest.FakeAuth{}

	c, n := newController(auth, store, PageHome)
	require.Equal(t, StateAnonymous, c.Refresh(context.Background()).State)

	require.NoError(t, c.SignIn(context.Background(), "admin@example.com", "secret123"))
	assert.True(t, c.State().IsAdmin())
	assert.True(t, n.HasLevel(notify.LevelSuccess))

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, StateAnonymous, c.State().State)
	assert.True(t, c.State().ShowLoginForm)
}

func TestSignInAndSignUpFailuresAreNotified(t *testing.T) {
	auth := &gatewaytest.FakeAuth{
		SignInErr: gateway.E("sign in", gateway.KindUnauthorized, gateway.ErrInvalidCredentials),
		SignUpErr: gateway.E("sign up", gateway.KindConflict, gateway.ErrEmailTaken),
	}
	c, n := newController(auth, &gatewaytest.MockStore{}, PageHome)

	assert.Error(t, c.SignIn(context.Background(), "a@example.com", "x"))
	assert.Error(t, c.SignUp(context.Background(), "a@example.com", "x"))

	notices := n.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, "Login failed: invalid login credentials", notices[0].Message)
	assert.Equal(t, "Sign-up failed: user already registered", notices[1].Message)
	assert.Equal(t, StateAnonymous, c.State().State)
}

func TestCloseUnsubscribes(t *testing.T) {
	store := &gatewaytest.MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything).Return(&models.Profile{Role: models.RoleUser}, nil)
	auth := &gatewaytest.FakeAuth{}

	c, _ := newController(auth, store, PageHome)
	require.Equal(t, 1, auth.Listeners())

	c.Close()
	assert.Equal(t, 0, auth.Listeners())

	auth.User = &models.User{ID: "u1", Email: "ana@example.com"}
	auth.Emit(context.Background(), gateway.SessionSignedIn)
	assert.Equal(t, StateAnonymous, c.State().State)
	store.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}
