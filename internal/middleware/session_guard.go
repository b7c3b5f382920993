package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/logging"
)

// DefaultLoginPath is where page requests without a valid session are sent.
const DefaultLoginPath = "/login.html"

// AuthenticatedHandler serves a request whose session has already been verified.
type AuthenticatedHandler func(w http.ResponseWriter, r *http.Request, session auth.Session)

// TokenVerifier checks a session token and returns the session it asserts.
type TokenVerifier interface {
	Verify(token string) (auth.Session, error)
}

// SessionGuard admits requests carrying a valid session cookie. A request
// with no cookie is denied; a request whose cookie is malformed or fails
// verification is denied and the cookie is cleared. Admitted requests reach the wrapped handler with
// the verified session, which is also stored on the request context.
type SessionGuard struct {
	Verifier  TokenVerifier
	Cookie    auth.CookiePolicy
	LoginPath string
}

// Page guards browser-facing routes: denied requests are redirected to the
// login page.
func (g SessionGuard) Page(next AuthenticatedHandler) http.Handler {
	return g.protect(next, g.redirectToLogin)
}

// API guards JSON routes: denied requests get 401 with a JSON envelope.
func (g SessionGuard) API(next AuthenticatedHandler) http.Handler {
	return g.protect(next, unauthorized)
}

func (g SessionGuard) protect(next AuthenticatedHandler, deny http.HandlerFunc) http.Handler {
	if g.Verifier == nil {
		panic("middleware: session guard requires a token verifier")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context())

		token := g.Cookie.TokenFromRequest(r)
		if token == "" {
			if g.Cookie.HasSessionCookie(r) {
				logger.Warn("session cookie malformed")
				g.Cookie.ClearSessionCookie(w)
			} else {
				logger.Info("session missing")
			}
			deny(w, r)
			return
		}

		session, err := g.Verifier.Verify(token)
		if err != nil {
			logger.Warn("session rejected", "error", err)
			g.Cookie.ClearSessionCookie(w)
			deny(w, r)
			return
		}

		ctx := auth.ContextWithSession(r.Context(), session)
		ctx = logging.With(ctx, "admin", session.Email)
		next(w, r.WithContext(ctx), session)
	})
}

func (g SessionGuard) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := g.LoginPath
	if target == "" {
		target = DefaultLoginPath
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Unauthorized"})
}
