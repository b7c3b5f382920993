package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/media"
)

type stubStore struct {
	mu sync.Mutex

	uploads      []media.UploadInput
	uploadBodies []string
	descriptor   media.Descriptor
	uploadErr    error

	lists     []media.ListQuery
	resources []media.Resource
	listErr   error

	updates   []media.UpdateInput
	updateErr error

	destroys      []media.DestroyInput
	destroyResult string
	destroyErr    error
}

func (s *stubStore) Upload(_ context.Context, in media.UploadInput) (media.Descriptor, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, in)
	s.uploadBodies = append(s.uploadBodies, string(body))
	return s.descriptor, s.uploadErr
}

func (s *stubStore) List(_ context.Context, q media.ListQuery) ([]media.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, q)
	return s.resources, s.listErr
}

func (s *stubStore) Update(_ context.Context, in media.UpdateInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, in)
	return s.updateErr
}

func (s *stubStore) Destroy(_ context.Context, in media.DestroyInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroys = append(s.destroys, in)
	return s.destroyResult, s.destroyErr
}

var testAdmin = config.AdminConfig{Email: "admin@example.com", Password: "hunter2"}

func testCodec() *auth.Codec {
	return auth.NewCodec("handler-secret", 30*24*time.Hour)
}

func testDependencies(store media.Store, publicDir string) Dependencies {
	return Dependencies{
		Admin:     testAdmin,
		Tokens:    testCodec(),
		Cookie:    auth.DefaultCookiePolicy(30 * 24 * time.Hour),
		Store:     store,
		Media:     config.Default().Media,
		Upload:    config.Default().Upload,
		PublicDir: publicDir,
		Backend:   config.BackendCloudinary,
	}
}

func newTestMux(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)
	return mux
}

func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, _, err := testCodec().Issue(testAdmin.Email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

type formFile struct {
	field    string
	filename string
	content  string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(sessionCookie(t))
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
