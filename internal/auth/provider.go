// Package auth is the password-based authentication provider behind gateway.Auth.
// Sessions are HS256 JWTs held by a TokenStore, usually a browser cookie.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "listing-portal"

// UserStore persists credentials and profiles
type UserStore interface {
	FindAuthUserByEmail(ctx context.Context, email string) (*models.AuthUser, error)
	GetAuthUser(ctx context.Context, id string) (*models.AuthUser, error)
	CreateUserWithProfile(ctx context.Context, user *models.AuthUser, profile *models.Profile) error
}

// Provider verifies credentials and issues session tokens
type Provider struct {
	users             UserStore
	signingKey        []byte
	ttl               time.Duration
	minPasswordLength int
	logger            *zap.Logger
	now               func() time.Time
}

// Options configures a Provider
type Options struct {
	SigningKey        string
	TTL               time.Duration
	MinPasswordLength int
}

func NewProvider(users UserStore, opts Options, log *zap.Logger) (*Provider, error) {
	if opts.SigningKey == "" {
		return nil, fmt.Errorf("JWT signing key cannot be empty")
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Provider{
		users:             users,
		signingKey:        []byte(opts.SigningKey),
		ttl:               opts.TTL,
		minPasswordLength: opts.MinPasswordLength,
		logger:            log,
		now:               time.Now,
	}, nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate checks email and password and returns a signed session token
func (p *Provider) Authenticate(ctx context.Context, email, password string) (string, time.Time, error) {
	email = normalizeEmail(email)
	user, err := p.users.FindAuthUserByEmail(ctx, email)
	if err != nil {
		if gateway.IsKind(err, gateway.KindNotFound) {
			return "", time.Time{}, gateway.E("sign in", gateway.KindUnauthorized, gateway.ErrInvalidCredentials)
		}
		return "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		p.logger.Info("Rejected sign-in", zap.String("email", email))
		return "", time.Time{}, gateway.E("sign in", gateway.KindUnauthorized, gateway.ErrInvalidCredentials)
	}

	return p.issue(user)
}

// Register creates a user with the regular role and returns a session token for it
func (p *Provider) Register(ctx context.Context, email, password string) (string, time.Time, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", time.Time{}, gateway.E("sign up", gateway.KindInvalid, fmt.Errorf("invalid email address %q", email))
	}
	if len(password) < p.minPasswordLength {
		return "", time.Time{}, gateway.E("sign up", gateway.KindInvalid,
			fmt.Errorf("password should be at least %d characters", p.minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", time.Time{}, gateway.E("sign up", gateway.KindInternal, err)
	}

	user := &models.AuthUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	profile := &models.Profile{ID: user.ID, Email: email, Role: models.RoleUser}
	if err := p.users.CreateUserWithProfile(ctx, user, profile); err != nil {
		if gateway.IsKind(err, gateway.KindConflict) {
			return "", time.Time{}, gateway.E("sign up", gateway.KindConflict, gateway.ErrEmailTaken)
		}
		return "", time.Time{}, err
	}

	p.logger.Info("Registered user", zap.String("user_id", user.ID))
	return p.issue(user)
}

// Resolve validates a token and returns its user. An invalid or expired token
// is reported as KindUnauthorized.
func (p *Provider) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, gateway.E("resolve session", gateway.KindUnauthorized, err)
	}

	user, err := p.users.GetAuthUser(ctx, claims.Subject)
	if err != nil {
		if gateway.IsKind(err, gateway.KindNotFound) {
			return nil, gateway.E("resolve session", gateway.KindUnauthorized, err)
		}
		return nil, err
	}
	return &models.User{ID: user.ID, Email: user.Email}, nil
}

func (p *Provider) issue(user *models.AuthUser) (string, time.Time, error) {
	now := p.now()
	expires := now.Add(p.ttl)
	claims := &sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return "", time.Time{}, gateway.E("issue token", gateway.KindInternal, err)
	}
	return signed, expires, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
