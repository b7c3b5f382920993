package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novastream/gateway/internal/auth"
)

type guardFixture struct {
	guard   SessionGuard
	codec   *auth.Codec
	now     time.Time
	reached int
	last    auth.Session
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	now := time.Date(2024, time.May, 10, 8, 0, 0, 0, time.UTC)
	codec := auth.NewCodec("guard-secret", 30*24*time.Hour).WithClock(func() time.Time { return now })
	return &guardFixture{
		guard: SessionGuard{Verifier: codec, Cookie: auth.DefaultCookiePolicy(codec.TTL())},
		codec: codec,
		now:   now,
	}
}

func (f *guardFixture) handler(w http.ResponseWriter, r *http.Request, session auth.Session) {
	f.reached++
	f.last = session
	if stored, ok := auth.SessionFromContext(r.Context()); !ok || stored.Email != session.Email {
		panic("session missing from context")
	}
	w.WriteHeader(http.StatusNoContent)
}

func withCookie(req *http.Request, value string) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	return req
}

func clearedCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestSessionGuardAdmitsValidToken(t *testing.T) {
	f := newGuardFixture(t)
	token, _, err := f.codec.Issue("admin@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, h := range map[string]http.Handler{"page": f.guard.Page(f.handler), "api": f.guard.API(f.handler)} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), token))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected handler to run got status %d", name, rec.Code)
		}
		if clearedCookie(rec) {
			t.Fatalf("%s: valid cookie should not be cleared", name)
		}
	}
	if f.reached != 2 || f.last.Email != "admin@example.com" {
		t.Fatalf("expected verified session to reach handler, got %d calls %+v", f.reached, f.last)
	}
}

func TestSessionGuardDenies(t *testing.T) {
	f := newGuardFixture(t)
	expiredCodec := auth.NewCodec("guard-secret", time.Hour).WithClock(func() time.Time { return f.now.Add(-2 * time.Hour) })
	expired, _, err := expiredCodec.Issue("admin@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name        string
		cookie      string
		expectClear bool
	}{
		{name: "no cookie"},
		{name: "malformed cookie", cookie: "garbage", expectClear: true},
		{name: "expired cookie", cookie: expired, expectClear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" page", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				withCookie(req, tt.cookie)
			}
			rec := httptest.NewRecorder()
			f.guard.Page(f.handler).ServeHTTP(rec, req)

			if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login.html" {
				t.Fatalf("expected redirect to login got %d %q", rec.Code, rec.Header().Get("Location"))
			}
			if clearedCookie(rec) != tt.expectClear {
				t.Fatalf("expected cookie cleared=%v", tt.expectClear)
			}
		})

		t.Run(tt.name+" api", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
			if tt.cookie != "" {
				withCookie(req, tt.cookie)
			}
			rec := httptest.NewRecorder()
			f.guard.API(f.handler).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", rec.Code)
			}
			if clearedCookie(rec) != tt.expectClear {
				t.Fatalf("expected cookie cleared=%v", tt.expectClear)
			}
		})
	}

	if f.reached != 0 {
		t.Fatalf("denied requests must not reach the handler, got %d calls", f.reached)
	}
}

func TestSessionGuardClearsUnparseableCookie(t *testing.T) {
	f := newGuardFixture(t)

	for _, guarded := range []http.Handler{f.guard.Page(f.handler), f.guard.API(f.handler)} {
		req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
		req.Header.Set("Cookie", `nova_auth=bad"value`)
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound && rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected denial got %d", rec.Code)
		}
		if !clearedCookie(rec) {
			t.Fatal("expected unparseable cookie to be cleared")
		}
	}
	if f.reached != 0 {
		t.Fatalf("denied requests must not reach the handler, got %d calls", f.reached)
	}
}

func TestSessionGuardCustomLoginPath(t *testing.T) {
	f := newGuardFixture(t)
	f.guard.LoginPath = "/signin"

	rec := httptest.NewRecorder()
	f.guard.Page(f.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/photos.html", nil))
	if rec.Header().Get("Location") != "/signin" {
		t.Fatalf("expected custom login path got %q", rec.Header().Get("Location"))
	}
}
