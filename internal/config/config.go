package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Backup    BackupConfig    `yaml:"backup"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// TrustProxy makes X-Forwarded-For / X-Real-IP the client address. Enable only behind a proxy.
	TrustProxy bool `yaml:"trust_proxy"`
}

// AdminConfig holds the shared secret guarding every mutation
type AdminConfig struct {
	Password string `yaml:"password"`
}

// StorageConfig holds file locations
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	MediaDir  string `yaml:"media_dir"`
	BackupDir string `yaml:"backup_dir"`
}

// UploadConfig holds gallery upload limits
type UploadConfig struct {
	MaxUploadMB   int64 `yaml:"max_upload_mb"`
	ThumbnailSize uint  `yaml:"thumbnail_size"`
}

// MaxBytes returns the upload ceiling in bytes
func (c UploadConfig) MaxBytes() int64 {
	return c.MaxUploadMB << 20
}

// RateLimitConfig holds the per-address request ceiling
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// BackupConfig holds the optional off-site backup target
type BackupConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config holds AWS or S3-compatible storage configuration
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether backups should be mirrored to S3
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Env:    "development",
		Server: ServerConfig{Host: "0.0.0.0", Port: 3000},
		Storage: StorageConfig{
			DBPath:    "data/site.db",
			MediaDir:  "data/media",
			BackupDir: "data/backups",
		},
		Upload:    UploadConfig{MaxUploadMB: 500, ThumbnailSize: 480},
		RateLimit: RateLimitConfig{Requests: 100, Window: 15 * time.Minute},
		Backup:    BackupConfig{S3: S3Config{Region: "us-east-1", Prefix: "backups"}},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if present),
// a .env file (if present) and finally the process environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.Server.Host, "HOST")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
	setString(&c.Storage.DBPath, "DB_PATH")
	setString(&c.Storage.MediaDir, "MEDIA_DIR")
	setString(&c.Storage.BackupDir, "BACKUP_DIR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Backup.S3.Bucket, "BACKUP_S3_BUCKET")
	setString(&c.Backup.S3.Region, "BACKUP_S3_REGION")
	setString(&c.Backup.S3.Endpoint, "BACKUP_S3_ENDPOINT")
	setString(&c.Backup.S3.AccessKey, "BACKUP_S3_ACCESS_KEY")
	setString(&c.Backup.S3.SecretKey, "BACKUP_S3_SECRET_KEY")

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	if v, ok := os.LookupEnv("MAX_UPLOAD_MB"); ok {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_MB %q: %w", v, err)
		}
		c.Upload.MaxUploadMB = mb
	}

	if v, ok := os.LookupEnv("RATE_LIMIT_REQUESTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_REQUESTS %q: %w", v, err)
		}
		c.RateLimit.Requests = n
	}

	if v, ok := os.LookupEnv("TRUST_PROXY"); ok {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		c.Server.TrustProxy = trust
	}

	if v, ok := os.LookupEnv("RATE_LIMIT_WINDOW"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_WINDOW %q: %w", v, err)
		}
		c.RateLimit.Window = d
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Storage.DBPath == "" || c.Storage.MediaDir == "" || c.Storage.BackupDir == "" {
		return errors.New("storage paths must not be empty")
	}
	if c.Upload.MaxUploadMB <= 0 {
		return errors.New("upload.max_upload_mb must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit requests and window must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
