package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieTokenStore keeps the session token in an HttpOnly cookie
type CookieTokenStore struct {
	c      *gin.Context
	name   string
	secure bool

	token  string
	loaded bool
}

func NewCookieTokenStore(c *gin.Context, name string, secure bool) *CookieTokenStore {
	return &CookieTokenStore{c: c, name: name, secure: secure}
}

// Token returns the token set during this request, or the one the browser sent
func (s *CookieTokenStore) Token() string {
	if !s.loaded {
		s.token, _ = s.c.Cookie(s.name)
		s.loaded = true
	}
	return s.token
}

func (s *CookieTokenStore) SetToken(token string, expires time.Time) {
	s.token, s.loaded = token, true
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.name, token, maxAge, "/", "", s.secure, true)
}

func (s *CookieTokenStore) ClearToken() {
	s.token, s.loaded = "", true
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
}
