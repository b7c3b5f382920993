package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/logging"
	"github.com/novastream/gateway/internal/middleware"
)

const maxLoginBody = 16 << 10

// AuthHandler implements the administrator login, logout and session endpoints.
type AuthHandler struct {
	Admin     config.AdminConfig
	Tokens    TokenIssuer
	Cookie    auth.CookiePolicy
	LoginPath string
}

// Login handles POST /api/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Tokens == nil {
		logger.Error("token issuer unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, failureMessage("authentication services unavailable"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, failureMessage("Invalid request body"))
		return
	}

	if req.Email == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondJSON(ctx, w, http.StatusBadRequest, failureMessage("Email and password are required"))
		return
	}

	// Plain equality against the configured administrator.
	if req.Email != h.Admin.Email || req.Password != h.Admin.Password {
		logger.Warn("login rejected")
		respondJSON(ctx, w, http.StatusUnauthorized, failureMessage("Unauthorized"))
		return
	}

	token, session, err := h.Tokens.Issue(req.Email)
	if err != nil {
		logger.Error("failed to issue session", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, failureMessage("failed to create session"))
		return
	}

	h.Cookie.SetSessionCookie(w, token)
	logger.Info("admin logged in", "expiresAt", session.ExpiresAt)
	respondJSON(ctx, w, http.StatusOK, success())
}

// Logout clears the session cookie. Browser navigation (GET) is redirected to
// the login page; API clients (POST) get a JSON acknowledgement.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookie.ClearSessionCookie(w)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		http.Redirect(w, r, h.loginPath(), http.StatusFound)
	case http.MethodPost:
		respondJSON(r.Context(), w, http.StatusOK, success())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Session reports the identity behind the current session cookie.
func (h AuthHandler) Session(w http.ResponseWriter, r *http.Request, session auth.Session) {
	respondJSON(r.Context(), w, http.StatusOK, sessionResponse{
		Success:   true,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h AuthHandler) loginPath() string {
	if h.LoginPath == "" {
		return middleware.DefaultLoginPath
	}
	return h.LoginPath
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Success   bool      `json:"success"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}
