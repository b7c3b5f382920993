package handlers

import (
	"net/http"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/media"
	"github.com/novastream/gateway/internal/middleware"
)

// Pages only served to an authenticated administrator.
var protectedPages = []string{"index.html", "photos.html"}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	guard := middleware.SessionGuard{Verifier: deps.Tokens, Cookie: deps.Cookie}
	uploads := NewUploadLimiter(deps.Upload.MaxConcurrent)
	limits := UploadLimits{MaxFileBytes: deps.Upload.MaxBytes, MaxFieldBytes: deps.Upload.MaxFieldLength}

	health := HealthHandler{Backend: deps.Backend}
	authH := AuthHandler{Admin: deps.Admin, Tokens: deps.Tokens, Cookie: deps.Cookie}
	pages := PageHandler{Root: deps.PublicDir, Protected: protectedPages}
	videos := VideoHandler{
		Store:      deps.Store,
		Folder:     deps.Media.VideoFolder,
		MaxResults: deps.Media.ListMaxResults,
		Uploads:    uploads,
		Limits:     limits,
	}
	images := ImageHandler{
		Store:      deps.Store,
		Folder:     deps.Media.ImageFolder,
		MaxResults: deps.Media.ListMaxResults,
		Uploads:    uploads,
		Limits:     limits,
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.Handle("POST /api/login", middleware.Throttle(deps.LoginLimiter, "login", deps.Proxies)(http.HandlerFunc(authH.Login)))
	mux.HandleFunc("GET /api/logout", authH.Logout)
	mux.HandleFunc("POST /api/logout", authH.Logout)
	mux.Handle("GET /api/session", guard.API(authH.Session))

	mux.Handle("GET /{$}", guard.Page(pages.Serve("index.html")))
	mux.Handle("GET /index.html", guard.Page(pages.Serve("index.html")))
	mux.Handle("GET /photos.html", guard.Page(pages.Serve("photos.html")))

	mux.Handle("GET /api/videos", guard.API(videos.List))
	mux.Handle("POST /api/upload", guard.API(videos.Upload))
	mux.Handle("POST /api/videos/{rest...}", guard.API(videos.Update))
	mux.Handle("DELETE /api/videos/{id...}", guard.API(videos.Delete))

	mux.Handle("GET /api/images", guard.API(images.List))
	mux.Handle("POST /api/upload-image", guard.API(images.Upload))
	mux.Handle("POST /api/images/{rest...}", guard.API(images.Update))
	mux.Handle("DELETE /api/images/{id...}", guard.API(images.Delete))

	mux.Handle("GET /", pages.Static())
}

// SessionTokens issues and verifies session tokens.
type SessionTokens interface {
	TokenIssuer
	middleware.TokenVerifier
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Admin        config.AdminConfig
	Tokens       SessionTokens
	Cookie       auth.CookiePolicy
	Store        media.Store
	Media        config.MediaConfig
	Upload       config.UploadConfig
	PublicDir    string
	Backend      string
	LoginLimiter middleware.RateLimiter
	Proxies      middleware.TrustedProxies
}
