package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Supported media backends.
const (
	BackendCloudinary = "cloudinary"
	BackendS3         = "s3"
)

// Config captures the runtime configuration for the NovaStream gateway. It is
// built once by Load and handed to constructors by value.
type Config struct {
	Port      int    `toml:"port"`
	PublicDir string `toml:"public_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Admin      AdminConfig      `toml:"admin"`
	Session    SessionConfig    `toml:"session"`
	Upload     UploadConfig     `toml:"upload"`
	Media      MediaConfig      `toml:"media"`
	Cloudinary CloudinaryConfig `toml:"cloudinary"`
	S3         S3Config         `toml:"s3"`

	HTTPTimeout    time.Duration `toml:"http_timeout"`
	LoginRateLimit int           `toml:"login_rate_limit"`
	CORSOrigins    []string      `toml:"cors_origins"`
	TrustedProxies []string      `toml:"trusted_proxies"`
}

// AdminConfig is the single administrator identity allowed to sign in.
type AdminConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// SessionConfig controls token signing and the session cookie.
type SessionConfig struct {
	Secret         string        `toml:"secret"`
	TTL            time.Duration `toml:"ttl"`
	CookieInsecure bool          `toml:"cookie_insecure"`
}

// UploadConfig bounds memory used by in-flight uploads.
type UploadConfig struct {
	MaxBytes       int64 `toml:"max_bytes"`
	MaxConcurrent  int   `toml:"max_concurrent"`
	MaxFieldLength int64 `toml:"max_field_length"`
}

// MediaConfig selects the remote media backend and the folders assets live in.
type MediaConfig struct {
	Backend        string `toml:"backend"`
	VideoFolder    string `toml:"video_folder"`
	ImageFolder    string `toml:"image_folder"`
	ListMaxResults int    `toml:"list_max_results"`
}

// CloudinaryConfig holds the credentials for the Cloudinary backend.
type CloudinaryConfig struct {
	CloudName string `toml:"cloud_name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// S3Config holds the settings for the S3-compatible backend.
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	PublicBaseURL   string `toml:"public_base_url"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// LoadOptions point Load at optional configuration sources.
type LoadOptions struct {
	// File is a TOML file. When set it must exist.
	File string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
	// SkipValidation returns the merged values unchecked, for commands that
	// only need part of the configuration.
	SkipValidation bool
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:      3000,
		PublicDir: "public",
		LogLevel:  "info",
		LogFormat: "json",
		Session: SessionConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxBytes:       1 << 30,
			MaxConcurrent:  4,
			MaxFieldLength: 64 << 10,
		},
		Media: MediaConfig{
			Backend:        BackendCloudinary,
			VideoFolder:    "video-streaming-app",
			ImageFolder:    "photo-gallery-app",
			ListMaxResults: 100,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		HTTPTimeout: 10 * time.Minute,
		CORSOrigins: []string{"*"},
	}
}

// Load reads configuration from the optional TOML and dotenv files and then the
// process environment, and validates the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	applyEnv(&cfg)

	if opts.SkipValidation {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getInt("PORT", cfg.Port)
	cfg.PublicDir = getString("NOVA_PUBLIC_DIR", cfg.PublicDir)
	cfg.LogLevel = getString("NOVA_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getString("NOVA_LOG_FORMAT", cfg.LogFormat)

	cfg.Admin.Email = getString("ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.Password = getString("ADMIN_PASSWORD", cfg.Admin.Password)

	cfg.Session.Secret = getString("JWT_SECRET", cfg.Session.Secret)
	cfg.Session.TTL = getDuration("NOVA_SESSION_TTL", cfg.Session.TTL)
	cfg.Session.CookieInsecure = getBool("NOVA_COOKIE_INSECURE", cfg.Session.CookieInsecure)

	cfg.Upload.MaxBytes = getInt64("NOVA_MAX_UPLOAD_BYTES", cfg.Upload.MaxBytes)
	cfg.Upload.MaxConcurrent = getInt("NOVA_MAX_CONCURRENT_UPLOADS", cfg.Upload.MaxConcurrent)
	cfg.Upload.MaxFieldLength = getInt64("NOVA_MAX_FIELD_BYTES", cfg.Upload.MaxFieldLength)

	cfg.Media.Backend = strings.ToLower(getString("NOVA_MEDIA_BACKEND", cfg.Media.Backend))
	cfg.Media.VideoFolder = getString("NOVA_VIDEO_FOLDER", cfg.Media.VideoFolder)
	cfg.Media.ImageFolder = getString("NOVA_IMAGE_FOLDER", cfg.Media.ImageFolder)
	cfg.Media.ListMaxResults = getInt("NOVA_LIST_MAX_RESULTS", cfg.Media.ListMaxResults)

	cfg.Cloudinary.CloudName = getString("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = getString("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = getString("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)

	cfg.S3.Bucket = getString("NOVA_S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getString("NOVA_S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = getString("NOVA_S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.PublicBaseURL = getString("NOVA_S3_PUBLIC_BASE_URL", cfg.S3.PublicBaseURL)
	cfg.S3.AccessKeyID = getString("NOVA_S3_ACCESS_KEY_ID", cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = getString("NOVA_S3_SECRET_ACCESS_KEY", cfg.S3.SecretAccessKey)

	cfg.HTTPTimeout = getDuration("NOVA_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.LoginRateLimit = getInt("NOVA_LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	cfg.CORSOrigins = getList("NOVA_CORS_ORIGINS", cfg.CORSOrigins)
	cfg.TrustedProxies = getList("NOVA_TRUSTED_PROXIES", cfg.TrustedProxies)
}

// Validate reports every required setting that is missing or out of range.
func (c Config) Validate() error {
	var missing []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require(c.Admin.Email, "ADMIN_EMAIL")
	require(c.Admin.Password, "ADMIN_PASSWORD")
	require(c.Session.Secret, "JWT_SECRET")

	var problems []string
	switch c.Media.Backend {
	case BackendCloudinary:
		require(c.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
		require(c.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
		require(c.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	case BackendS3:
		require(c.S3.Bucket, "NOVA_S3_BUCKET")
	default:
		problems = append(problems, fmt.Sprintf("unknown media backend %q", c.Media.Backend))
	}

	if len(missing) > 0 {
		problems = append(problems, "missing required settings: "+strings.Join(missing, ", "))
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d", c.Port))
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, "session ttl must be positive")
	}
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, "upload max bytes must be positive")
	}
	if c.Upload.MaxFieldLength <= 0 {
		problems = append(problems, "upload max field bytes must be positive")
	}
	if c.Upload.MaxConcurrent < 0 {
		problems = append(problems, "upload max concurrency must not be negative")
	}
	if c.Media.ListMaxResults <= 0 {
		problems = append(problems, "list max results must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			problems = append(problems, fmt.Sprintf("invalid trusted proxy %q", proxy))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validProxy(v string) bool {
	v = strings.TrimSpace(v)
	if strings.Contains(v, "/") {
		_, err := netip.ParsePrefix(v)
		return err == nil
	}
	_, err := netip.ParseAddr(v)
	return err == nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
