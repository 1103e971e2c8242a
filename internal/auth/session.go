package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"track75/internal/store"
)

// CookieName holds the signed session token.
const CookieName = "track75_session"

// ErrNotAuthenticated is returned when a request carries no usable session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Sessions binds identities to requests through a signed cookie.
type Sessions struct {
	key     string
	issuer  string
	ttl     time.Duration
	secure  bool
	revoker Revoker
}

// NewSessions creates a cookie session provider.
func NewSessions(key, issuer string, ttl time.Duration, secure bool, revoker Revoker) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{key: key, issuer: issuer, ttl: ttl, secure: secure, revoker: revoker}
}

// Start issues a token for id and sets the session cookie.
func (s *Sessions) Start(c *gin.Context, id Identity) error {
	tok, err := Issue(id, s.issuer, s.key, s.ttl)
	if err != nil {
		return err
	}
	s.setCookie(c, tok.Value, int(s.ttl.Seconds()))
	return nil
}

// Identify returns the identity of the request's session.
func (s *Sessions) Identify(c *gin.Context) (Identity, error) {
	claims, err := s.claims(c)
	if err != nil {
		return Identity{}, err
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.Revoked(c.Request.Context(), claims.ID)
		if err != nil {
			return Identity{}, store.Unavailable(fmt.Errorf("revocation check: %w", err))
		}
		if revoked {
			return Identity{}, ErrNotAuthenticated
		}
	}
	return claims.Identity(), nil
}

// End revokes the current token, if any, and clears the cookie.
func (s *Sessions) End(c *gin.Context) error {
	defer s.setCookie(c, "", -1)
	claims, err := s.claims(c)
	if err != nil || s.revoker == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(c.Request.Context(), claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *Sessions) claims(c *gin.Context) (Claims, error) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return Claims{}, ErrNotAuthenticated
	}
	claims, err := Parse(raw, s.key, s.issuer)
	if err != nil {
		return Claims{}, ErrNotAuthenticated
	}
	return claims, nil
}

func (s *Sessions) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", s.secure, true)
}
