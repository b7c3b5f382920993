package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/novastream/gateway/internal/auth"
)

func newAuthHandler() AuthHandler {
	return AuthHandler{
		Admin:  testAdmin,
		Tokens: testCodec(),
		Cookie: auth.DefaultCookiePolicy(30 * 24 * time.Hour),
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	handler := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@example.com","password":"hunter2"}`))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != true {
		t.Fatalf("expected success got %v", resp)
	}

	cookie := findCookie(rec, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes %+v", cookie)
	}
	if cookie.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expected 30 day max age got %d", cookie.MaxAge)
	}

	session, err := testCodec().Verify(cookie.Value)
	if err != nil {
		t.Fatalf("cookie token did not verify: %v", err)
	}
	if session.Email != testAdmin.Email {
		t.Fatalf("expected identity %q got %q", testAdmin.Email, session.Email)
	}
}

func TestAuthHandlerLoginRejectsOtherCredentials(t *testing.T) {
	cases := map[string]string{
		"wrong password":      `{"email":"admin@example.com","password":"nope"}`,
		"wrong email":         `{"email":"other@example.com","password":"hunter2"}`,
		"case differs":        `{"email":"Admin@example.com","password":"hunter2"}`,
		"password whitespace": `{"email":"admin@example.com","password":"hunter2 "}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			handler := newAuthHandler()
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
			}
			if findCookie(rec, auth.SessionCookieName) != nil {
				t.Fatal("expected no cookie on failed login")
			}
			if !strings.Contains(rec.Body.String(), `"message":"Unauthorized"`) {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestAuthHandlerLoginValidation(t *testing.T) {
	cases := map[string]string{
		"missing password": `{"email":"admin@example.com"}`,
		"missing email":    `{"password":"hunter2"}`,
		"empty":            `{}`,
		"not json":         `email=admin`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			handler := newAuthHandler()
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
			}
			if findCookie(rec, auth.SessionCookieName) != nil {
				t.Fatal("expected no cookie on invalid login")
			}
		})
	}
}

func TestAuthHandlerLoginMethod(t *testing.T) {
	handler := newAuthHandler()
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodGet, "/api/login", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestAuthHandlerLogout(t *testing.T) {
	handler := newAuthHandler()

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodGet, "/api/logout", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login.html" {
		t.Fatalf("expected redirect to login page got %q", loc)
	}
	if c := findCookie(rec, auth.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie to be cleared got %+v", c)
	}

	rec = httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected POST logout response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerSession(t *testing.T) {
	handler := newAuthHandler()
	expires := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	rec := httptest.NewRecorder()
	handler.Session(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil), auth.Session{Email: testAdmin.Email, ExpiresAt: expires})

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Email != testAdmin.Email || !resp.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected session response %+v", resp)
	}
}
