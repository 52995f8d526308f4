package auth

import (
	"context"
	"sync"
	"time"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"go.uber.org/zap"
)

// TokenStore keeps the session token of one browser
type TokenStore interface {
	Token() string
	SetToken(token string, expires time.Time)
	ClearToken()
}

// Client is the gateway.Auth of a single session
type Client struct {
	provider *Provider
	tokens   TokenStore

	mu        sync.Mutex
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn gateway.SessionListener
}

var _ gateway.Auth = (*Client)(nil)

func NewClient(provider *Provider, tokens TokenStore) *Client {
	return &Client{provider: provider, tokens: tokens}
}

// CurrentUser returns the session user, or nil when there is no valid session.
// A token that no longer validates is dropped.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, nil
	}
	user, err := c.provider.Resolve(ctx, token)
	if err != nil {
		if gateway.IsKind(err, gateway.KindUnauthorized) {
			c.provider.logger.Debug("Dropping stale session token", zap.Error(err))
			c.tokens.ClearToken()
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	token, expires, err := c.provider.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	c.tokens.SetToken(token, expires)
	c.emit(ctx, gateway.SessionSignedIn)
	return nil
}

// SignUp registers the user and starts a session for it
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	token, expires, err := c.provider.Register(ctx, email, password)
	if err != nil {
		return err
	}
	c.tokens.SetToken(token, expires)
	c.emit(ctx, gateway.SessionSignedIn)
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.tokens.ClearToken()
	c.emit(ctx, gateway.SessionSignedOut)
	return nil
}

func (c *Client) OnSessionChange(fn gateway.SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit calls listeners in registration order without holding the lock
func (c *Client) emit(ctx context.Context, event gateway.SessionEvent) {
	c.mu.Lock()
	fns := make([]gateway.SessionListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		fns = append(fns, l.fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, event)
	}
}

// MemoryTokenStore holds a token in memory
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func (s *MemoryTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryTokenStore) SetToken(token string, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expires = token, expires
}

func (s *MemoryTokenStore) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.expires = "", time.Time{}
}
