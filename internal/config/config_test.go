package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "shh")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000 got %d", cfg.Port)
	}
	if cfg.Session.TTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day session ttl got %s", cfg.Session.TTL)
	}
	if cfg.Upload.MaxBytes != 1<<30 {
		t.Fatalf("expected 1 GiB upload cap got %d", cfg.Upload.MaxBytes)
	}
	if cfg.Media.Backend != BackendCloudinary {
		t.Fatalf("expected cloudinary backend got %q", cfg.Media.Backend)
	}
	if cfg.Media.VideoFolder != "video-streaming-app" {
		t.Fatalf("unexpected video folder %q", cfg.Media.VideoFolder)
	}
	if cfg.Admin.Email != "admin@example.com" || cfg.Session.Secret != "secret" {
		t.Fatalf("expected env values to be applied: %+v", cfg.Admin)
	}
}

func TestLoadRefusesMissingSecrets(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")
	t.Setenv("CLOUDINARY_API_KEY", "")
	t.Setenv("CLOUDINARY_API_SECRET", "")

	_, err := Load(LoadOptions{})
	if err == nil {
		t.Fatal("expected an error when secrets are missing")
	}
	for _, name := range []string{"ADMIN_EMAIL", "ADMIN_PASSWORD", "JWT_SECRET", "CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected error to mention %s, got %v", name, err)
		}
	}
}

func TestLoadS3BackendRequiresBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("NOVA_MEDIA_BACKEND", "S3")
	t.Setenv("NOVA_S3_BUCKET", "")

	_, err := Load(LoadOptions{})
	if err == nil || !strings.Contains(err.Error(), "NOVA_S3_BUCKET") {
		t.Fatalf("expected missing bucket error got %v", err)
	}

	t.Setenv("NOVA_S3_BUCKET", "media")
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Media.Backend != BackendS3 || cfg.S3.Bucket != "media" {
		t.Fatalf("unexpected s3 config: %+v", cfg.S3)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NOVA_VIDEO_FOLDER", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "novastream.toml")
	contents := `
port = 8081
http_timeout = "2m"

[media]
video_folder = "from-file"
image_folder = "gallery"

[upload]
max_concurrent = 2
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(LoadOptions{File: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8081 {
		t.Fatalf("expected port from file got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 2*time.Minute {
		t.Fatalf("expected timeout from file got %s", cfg.HTTPTimeout)
	}
	if cfg.Media.VideoFolder != "from-env" {
		t.Fatalf("expected env to override file got %q", cfg.Media.VideoFolder)
	}
	if cfg.Media.ImageFolder != "gallery" {
		t.Fatalf("expected image folder from file got %q", cfg.Media.ImageFolder)
	}
	if cfg.Upload.MaxConcurrent != 2 {
		t.Fatalf("expected concurrency from file got %d", cfg.Upload.MaxConcurrent)
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	setRequired(t)
	if _, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "absent.toml")}); err == nil {
		t.Fatal("expected error for explicitly named missing config file")
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	setRequired(t)
	if _, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env")}); err != nil {
		t.Fatalf("expected missing env file to be ignored got %v", err)
	}
}

func TestGetListTrimsEntries(t *testing.T) {
	t.Setenv("NOVA_CORS_ORIGINS", " https://a.example , ,https://b.example")
	got := getList("NOVA_CORS_ORIGINS", []string{"*"})
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func TestLoadSkipValidation(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("JWT_SECRET", "only-secret")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "")

	cfg, err := Load(LoadOptions{SkipValidation: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.Secret != "only-secret" {
		t.Fatalf("expected secret from env got %q", cfg.Session.Secret)
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("NOVA_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}

	t.Setenv("NOVA_TRUSTED_PROXIES", "proxy.internal")
	if _, err := Load(LoadOptions{}); err == nil || !strings.Contains(err.Error(), "proxy.internal") {
		t.Fatalf("expected invalid proxy error got %v", err)
	}
}
