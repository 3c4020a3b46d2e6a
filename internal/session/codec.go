package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quotedesk.org/internal/ids"
)

// CookieName carries the session credential.
const CookieName = "quotedesk_session"

const (
	issuer     = "quotedesk"
	defaultTTL = 7 * 24 * time.Hour
)

var (
	// ErrNoSession indicates no credential was presented.
	ErrNoSession = errors.New("session: no credential")
	// ErrInvalidToken indicates the credential failed validation.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Codec issues and reads tamper-evident session credentials. The credential
// is an HS256-signed token carrying the identity's email; no server-side
// session table is needed. It does not check that the email still resolves
// to an identity — that is the controller's job.
type Codec struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// Option configures Codec behavior.
type Option func(*Codec)

// WithTTL overrides the credential lifetime. There is no sliding renewal.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSecure marks issued cookies Secure for production-like environments.
func WithSecure(secure bool) Option {
	return func(c *Codec) {
		c.secure = secure
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// New constructs a Codec with the signing secret.
func New(secret string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a credential for the email and returns a cookie ready to set.
func (c *Codec) Issue(email string) (*http.Cookie, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("session: email is required")
	}
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		ID:        ids.New(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Read extracts the email bound to the request's session cookie. ErrNoSession
// when absent, ErrInvalidToken on tamper or expiry.
func (c *Codec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}
	return c.parse(cookie.Value)
}

func (c *Codec) parse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoSession
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	email := strings.TrimSpace(claims.Subject)
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

// Revoke returns a cookie that deletes the credential. Idempotent: it is
// safe to set even when no credential existed.
func (c *Codec) Revoke() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
