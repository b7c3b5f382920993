package app

import (
	"context"
	"fmt"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/handlers"
	"github.com/novastream/gateway/internal/media"
	"github.com/novastream/gateway/internal/middleware"
	"github.com/novastream/gateway/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, cfg config.Config) (handlers.Dependencies, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	codec := auth.NewCodec(cfg.Session.Secret, cfg.Session.TTL)
	cookie := auth.DefaultCookiePolicy(codec.TTL())
	cookie.Secure = !cfg.Session.CookieInsecure

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	deps := handlers.Dependencies{
		Admin:     cfg.Admin,
		Tokens:    codec,
		Cookie:    cookie,
		Store:     store,
		Media:     cfg.Media,
		Upload:    cfg.Upload,
		PublicDir: cfg.PublicDir,
		Backend:   cfg.Media.Backend,
		Proxies:   proxies,
	}
	if cfg.LoginRateLimit > 0 {
		deps.LoginLimiter = middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateLimit)
	}
	return deps, nil
}

func newStore(ctx context.Context, cfg config.Config) (media.Store, error) {
	switch cfg.Media.Backend {
	case config.BackendCloudinary:
		store, err := storage.NewCloudinary(cfg.Cloudinary)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendS3:
		store, err := storage.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
}
