package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidToken indicates a token failed signature, format or expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrMissingIdentity indicates a token was requested for an empty identity.
	ErrMissingIdentity = errors.New("identity must be provided")
)

// Session is the verified content of a session token.
type Session struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HMAC-signed session tokens. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a Codec signing with secret. A non-positive ttl falls
// back to DefaultTokenTTL.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if secret == "" {
		panic("auth: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// TTL reports the lifetime of tokens issued by the codec.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token binding email with an expiry one TTL from now.
func (c *Codec) Issue(email string) (string, Session, error) {
	if strings.TrimSpace(email) == "" {
		return "", Session{}, ErrMissingIdentity
	}

	// JWT timestamps have second precision.
	issued := c.now().UTC().Truncate(time.Second)
	session := Session{
		Email:     email,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(c.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, session, nil
}

// Verify checks the token's signature and expiry and returns the session it
// asserts. Every failure wraps ErrInvalidToken.
func (c *Codec) Verify(token string) (Session, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if strings.TrimSpace(parsed.Email) == "" {
		return Session{}, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}

	session := Session{Email: parsed.Email}
	if parsed.IssuedAt != nil {
		session.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		session.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return session, nil
}
