package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "nova_auth"

// CookiePolicy describes the attributes of the session cookie.
type CookiePolicy struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookiePolicy returns the HTTP-only, secure, same-site strict policy
// with the supplied lifetime.
func DefaultCookiePolicy(maxAge time.Duration) CookiePolicy {
	return CookiePolicy{
		Name:     SessionCookieName,
		MaxAge:   maxAge,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (p CookiePolicy) name() string {
	if p.Name == "" {
		return SessionCookieName
	}
	return p.Name
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.SameSite == 0 {
		return http.SameSiteStrictMode
	}
	return p.SameSite
}

// TokenFromRequest returns the session token carried by the request, or "".
func (p CookiePolicy) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(p.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// HasSessionCookie reports whether the request sends the session cookie at
// all, including values net/http refuses to parse.
func (p CookiePolicy) HasSessionCookie(r *http.Request) bool {
	prefix := p.name() + "="
	for _, line := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(line, ";") {
			if strings.HasPrefix(strings.TrimSpace(pair), prefix) {
				return true
			}
		}
	}
	return false
}

// SetSessionCookie writes the session cookie holding token.
func (p CookiePolicy) SetSessionCookie(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		Expires:  time.Now().Add(p.MaxAge).UTC(),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	})
}

// ClearSessionCookie expires the session cookie on the client.
func (p CookiePolicy) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	})
}

type contextKey string

const sessionContextKey contextKey = "session"

// ContextWithSession stores a verified session on ctx.
func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the verified session stored on ctx, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}
