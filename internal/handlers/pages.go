package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/logging"
	"github.com/novastream/gateway/internal/middleware"
)

// PageHandler serves the front end out of Root. Protected pages are only
// reachable through Serve; the static handler refuses them.
type PageHandler struct {
	Root      string
	Protected []string
}

// Serve returns a handler writing the named page from Root.
func (h PageHandler) Serve(name string) middleware.AuthenticatedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ auth.Session) {
		f, err := os.Open(filepath.Join(h.Root, filepath.FromSlash(name)))
		if err != nil {
			logger := logging.FromContext(r.Context())
			if isNotExist(err) {
				logger.Warn("page missing", "page", name)
			} else {
				logger.Error("open page", "page", name, "error", err)
			}
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

// Static serves the public assets without directory listings.
func (h PageHandler) Static() http.Handler {
	protected := make(map[string]struct{}, len(h.Protected))
	for _, name := range h.Protected {
		protected[path.Clean("/"+name)] = struct{}{}
	}
	return http.FileServer(staticFS{root: http.Dir(h.Root), protected: protected})
}

type staticFS struct {
	root      http.FileSystem
	protected map[string]struct{}
}

func (s staticFS) Open(name string) (http.File, error) {
	clean := path.Clean("/" + name)
	if _, ok := s.protected[clean]; ok || path.Base(clean) == "index.html" {
		return nil, fs.ErrNotExist
	}

	f, err := s.root.Open(clean)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

// isNotExist reports whether err means the page is missing.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
