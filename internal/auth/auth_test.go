package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUsers struct {
	mu       sync.Mutex
	byID     map[string]*models.AuthUser
	profiles map[string]*models.Profile
	failGet  error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.AuthUser{}, profiles: map[string]*models.Profile{}}
}

func (m *memUsers) FindAuthUserByEmail(_ context.Context, email string) (*models.AuthUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gateway.E("find auth user", gateway.KindNotFound, errors.New("record not found"))
}

func (m *memUsers) GetAuthUser(_ context.Context, id string) (*models.AuthUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, gateway.E("get auth user", gateway.KindNotFound, errors.New("record not found"))
}

func (m *memUsers) CreateUserWithProfile(_ context.Context, user *models.AuthUser, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return gateway.E("create user", gateway.KindConflict, errors.New("duplicated key"))
		}
	}
	m.byID[user.ID] = user
	m.profiles[profile.ID] = profile
	return nil
}

func newTestProvider(t *testing.T, users UserStore) *Provider {
	t.Helper()
	p, err := NewProvider(users, Options{SigningKey: "test-key", TTL: time.Hour, MinPasswordLength: 6}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(newMemUsers(), Options{}, zap.NewNop())
	assert.Error(t, err)
}

func TestProvider_RegisterThenAuthenticate(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	ctx := context.Background()

	token, expires, err := p.Register(ctx, "  Ana@Example.com ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expires.After(time.Now()))

	require.Len(t, users.profiles, 1)
	for _, profile := range users.profiles {
		assert.Equal(t, models.RoleUser, profile.Role)
		assert.Equal(t, "ana@example.com", profile.Email)
	}

	token, _, err = p.Authenticate(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	user, err := p.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestProvider_AuthenticateRejectsBadCredentials(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	ctx := context.Background()

	_, _, err := p.Register(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = p.Authenticate(ctx, "ana@example.com", "wrong-password")
	assert.True(t, gateway.IsKind(err, gateway.KindUnauthorized))
	assert.ErrorIs(t, err, gateway.ErrInvalidCredentials)

	_, _, err = p.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.True(t, gateway.IsKind(err, gateway.KindUnauthorized))
}

func TestProvider_RegisterValidation(t *testing.T) {
	p := newTestProvider(t, newMemUsers())
	ctx := context.Background()

	_, _, err := p.Register(ctx, "not-an-email", "secret123")
	assert.True(t, gateway.IsKind(err, gateway.KindInvalid))

	_, _, err = p.Register(ctx, "ana@example.com", "123")
	assert.True(t, gateway.IsKind(err, gateway.KindInvalid))

	_, _, err = p.Register(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	_, _, err = p.Register(ctx, "ana@example.com", "secret456")
	assert.True(t, gateway.IsKind(err, gateway.KindConflict))
	assert.ErrorIs(t, err, gateway.ErrEmailTaken)
}

func TestProvider_ResolveRejectsExpiredToken(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	ctx := context.Background()

	token, _, err := p.Register(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.Resolve(ctx, token)
	assert.True(t, gateway.IsKind(err, gateway.KindUnauthorized))

	_, err = p.Resolve(ctx, "garbage")
	assert.True(t, gateway.IsKind(err, gateway.KindUnauthorized))
}

func TestClient_SessionLifecycleNotifiesListeners(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	ctx := context.Background()
	_, _, err := p.Register(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	store := &MemoryTokenStore{}
	client := NewClient(p, store)

	var events []gateway.SessionEvent
	unsubscribe := client.OnSessionChange(func(_ context.Context, e gateway.SessionEvent) {
		events = append(events, e)
	})

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, client.SignInWithPassword(ctx, "ana@example.com", "secret123"))
	assert.NotEmpty(t, store.Token())

	user, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ana@example.com", user.Email)

	require.NoError(t, client.SignOut(ctx))
	assert.Empty(t, store.Token())
	assert.Equal(t, []gateway.SessionEvent{gateway.SessionSignedIn, gateway.SessionSignedOut}, events)

	unsubscribe()
	require.NoError(t, client.SignInWithPassword(ctx, "ana@example.com", "secret123"))
	assert.Len(t, events, 2)
}

func TestClient_FailedSignInDoesNotNotify(t *testing.T) {
	client := NewClient(newTestProvider(t, newMemUsers()), &MemoryTokenStore{})
	called := false
	client.OnSessionChange(func(context.Context, gateway.SessionEvent) { called = true })

	err := client.SignInWithPassword(context.Background(), "ana@example.com", "secret123")
	assert.Error(t, err)
	assert.False(t, called)
}

func TestClient_CurrentUserDropsStaleToken(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	store := &MemoryTokenStore{}
	store.SetToken("not-a-jwt", time.Now().Add(time.Hour))

	user, err := NewClient(p, store).CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, store.Token())
}

func TestClient_CurrentUserSurfacesStoreFailure(t *testing.T) {
	users := newMemUsers()
	p := newTestProvider(t, users)
	ctx := context.Background()
	token, expires, err := p.Register(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	users.failGet = gateway.E("get auth user", gateway.KindUnavailable, errors.New("connection refused"))
	store := &MemoryTokenStore{}
	store.SetToken(token, expires)

	_, err = NewClient(p, store).CurrentUser(ctx)
	assert.True(t, gateway.IsKind(err, gateway.KindUnavailable))
	assert.Equal(t, token, store.Token())
}
