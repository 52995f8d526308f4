// Package session tracks the signed-in user of one browser and derives which
// parts of the page are visible.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"listing-portal/internal/gateway"
	"listing-portal/internal/metrics"
	"listing-portal/internal/models"
	"listing-portal/internal/notify"

	"go.uber.org/zap"
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Page identifies the page the session is rendered on
type Page string

const (
	PageHome    Page = "home"
	PagePublish Page = "publish"
)

// View is the visibility of session-dependent page sections
type View struct {
	State State
	Email string
	Role  models.Role

	ShowAuthSection  bool
	ShowLoginForm    bool
	ShowStatusBanner bool
	StatusText       string
	ShowPublish      bool
	ShowLogout       bool
	ShowDelete       bool
	// PublishDenied is set for a regular user on the publish page
	PublishDenied bool
}

func (v View) IsAdmin() bool {
	return v.State == StateAuthenticated && v.Role == models.RoleAdmin
}

func anonymousView() View {
	return View{
		State:           StateAnonymous,
		ShowAuthSection: true,
		ShowLoginForm:   true,
	}
}

func authenticatedView(email string, role models.Role, page Page) View {
	v := View{
		State:            StateAuthenticated,
		Email:            email,
		Role:             role,
		ShowStatusBanner: true,
		ShowLogout:       true,
		StatusText:       fmt.Sprintf("Logged in as %s", email),
	}
	if role == models.RoleAdmin {
		v.StatusText += " (admin)"
		v.ShowPublish = true
		v.ShowDelete = true
	} else if page == PagePublish {
		v.PublishDenied = true
	}
	return v
}

// Controller recomputes the View whenever the auth gateway reports a session change
type Controller struct {
	auth     gateway.Auth
	profiles gateway.Store
	notifier notify.Notifier
	logger   *zap.Logger

	mu          sync.Mutex
	page        Page
	view        View
	resetting   atomic.Bool
	unsubscribe func()
}

// NewController subscribes to session changes. Call Refresh for the initial
// state and Close when done.
func NewController(auth gateway.Auth, profiles gateway.Store, n notify.Notifier, log *zap.Logger, page Page) *Controller {
	c := &Controller{
		auth:     auth,
		profiles: profiles,
		notifier: n,
		logger:   log,
		page:     page,
		view:     anonymousView(),
	}
	c.unsubscribe = auth.OnSessionChange(func(ctx context.Context, event gateway.SessionEvent) {
		c.logger.Debug("Session changed", zap.String("event", string(event)))
		c.Refresh(ctx)
	})
	return c
}

// Close stops listening for session changes
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the last computed view
func (c *Controller) State() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Page switches the page the view is computed for
func (c *Controller) Page(page Page) {
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
}

// Refresh detects the session and resolves its role. It can be called any
// number of times; the result only depends on the gateway state.
func (c *Controller) Refresh(ctx context.Context) View {
	return c.refresh(ctx, true)
}

func (c *Controller) refresh(ctx context.Context, allowReset bool) View {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	user, err := c.auth.CurrentUser(ctx)
	if err != nil {
		c.logger.Error("Session lookup failed", zap.Error(err))
		notify.Error(c.notifier, "Could not check your session: %s", gateway.Message(err))
		return c.setView(anonymousView())
	}
	if user == nil {
		return c.setView(anonymousView())
	}

	profile, err := c.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		c.logger.Error("Role lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		if !allowReset || !c.resetting.CompareAndSwap(false, true) {
			return c.setView(anonymousView())
		}
		c.forceSignOut(ctx)
		c.resetting.Store(false)
		return c.refresh(ctx, false)
	}

	return c.setView(authenticatedView(user.Email, profile.Role, page))
}

// forceSignOut ends a session whose role cannot be resolved
func (c *Controller) forceSignOut(ctx context.Context) {
	metrics.SessionResets.Inc()
	notify.Error(c.notifier, "Could not load your user profile. You have been signed out, please sign in again.")
	if err := c.auth.SignOut(ctx); err != nil {
		c.logger.Error("Forced sign-out failed", zap.Error(err))
		notify.Error(c.notifier, "Sign-out failed: %s", gateway.Message(err))
	}
}

func (c *Controller) setView(v View) View {
	c.mu.Lock()
	prevDenied := c.view.PublishDenied
	c.view = v
	c.mu.Unlock()

	if v.PublishDenied && !prevDenied {
		notify.Error(c.notifier, "Access denied: only administrators can publish listings.")
	}
	return v
}

// SignIn delegates to the gateway; the session change triggers a refresh
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	if err := c.auth.SignInWithPassword(ctx, email, password); err != nil {
		c.logger.Info("Sign-in failed", zap.String("email", email), zap.Error(err))
		notify.Error(c.notifier, "Login failed: %s", gateway.Message(err))
		return err
	}
	if c.State().State == StateAuthenticated {
		notify.Success(c.notifier, "Login successful!")
	}
	return nil
}

// SignUp delegates to the gateway; the session change triggers a refresh
func (c *Controller) SignUp(ctx context.Context, email, password string) error {
	if err := c.auth.SignUp(ctx, email, password); err != nil {
		c.logger.Info("Sign-up failed", zap.String("email", email), zap.Error(err))
		notify.Error(c.notifier, "Sign-up failed: %s", gateway.Message(err))
		return err
	}
	if c.State().State == StateAuthenticated {
		notify.Success(c.notifier, "Sign-up complete! You are now signed in.")
	}
	return nil
}

// SignOut ends the session. Both logout buttons end up here.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		c.logger.Error("Sign-out failed", zap.Error(err))
		notify.Error(c.notifier, "Sign-out failed: %s", gateway.Message(err))
		return err
	}
	notify.Info(c.notifier, "You have been signed out.")
	return nil
}
