package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/util"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither a flag nor UNBOXME_CONFIG names a file.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level flags.
type AppConfig struct {
	ConfigPath string
}

// FileConfig mirrors config.yaml.
type FileConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Media    MediaConfig    `yaml:"media"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Logging  LoggingConfig  `yaml:"logging"`
	CORS     CORSConfig     `yaml:"cors"`
	// PublicBaseURL prefixes share links, e.g. https://unbox.me.
	PublicBaseURL string `yaml:"public-base-url"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the optional Redis instance. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache-ttl"`
}

// StripeConfig holds payment collaborator credentials.
type StripeConfig struct {
	SecretKey      string `yaml:"secret-key"`
	PublishableKey string `yaml:"publishable-key"`
}

// MediaConfig selects the upload backend.
type MediaConfig struct {
	// Backend is "local" or "gcs".
	Backend        string `yaml:"backend"`
	LocalDir       string `yaml:"local-dir"`
	LocalURLPrefix string `yaml:"local-url-prefix"`
	GCSBucket      string `yaml:"gcs-bucket"`
	GCSCredentials string `yaml:"gcs-credentials-file"`
	GCSPublicURL   string `yaml:"gcs-public-url"`
	MaxImageBytes  int64  `yaml:"max-image-bytes"`
	MaxAudioBytes  int64  `yaml:"max-audio-bytes"`
}

// CheckoutConfig configures checkout tokens and locking.
type CheckoutConfig struct {
	TokenSecret string        `yaml:"token-secret"`
	TokenTTL    time.Duration `yaml:"token-ttl"`
	LockTTL     time.Duration `yaml:"lock-ttl"`
}

// LoggingConfig configures logrus and the optional rotating file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow-origins"`
}

// ResolveConfigPath picks the config file from the flag, then UNBOXME_CONFIG, then the default.
func ResolveConfigPath(flagPath string) string {
	if trimmed := strings.TrimSpace(flagPath); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("UNBOXME_CONFIG")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads .env, the YAML file (optional) and env overrides, then applies defaults.
func Load(path string) (FileConfig, error) {
	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, os.ErrNotExist) {
		return FileConfig{}, fmt.Errorf("config: load .env: %w", errEnv)
	}

	var cfg FileConfig
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return FileConfig{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return FileConfig{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return FileConfig{}, errEnv
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadDatabaseDSN returns only the database DSN, for the migrate command.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

func applyEnv(cfg *FileConfig) error {
	overrides := map[string]*string{
		"DATABASE_DSN":           &cfg.Database.DSN,
		"STRIPE_SECRET_KEY":      &cfg.Stripe.SecretKey,
		"STRIPE_PUBLISHABLE_KEY": &cfg.Stripe.PublishableKey,
		"CHECKOUT_TOKEN_SECRET":  &cfg.Checkout.TokenSecret,
		"REDIS_ADDR":             &cfg.Redis.Addr,
		"PUBLIC_BASE_URL":        &cfg.PublicBaseURL,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		port, errParse := strconv.Atoi(strings.TrimSpace(value))
		if errParse != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("config: invalid PORT %q", value)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = "file:" + filepath.ToSlash(filepath.Join(util.DataDir(), "unboxme.db"))
	}
	if cfg.Redis.CacheTTL <= 0 {
		cfg.Redis.CacheTTL = 24 * time.Hour
	}
	cfg.Media.Backend = strings.ToLower(strings.TrimSpace(cfg.Media.Backend))
	if cfg.Media.Backend == "" {
		cfg.Media.Backend = "local"
	}
	if cfg.Media.LocalDir == "" {
		cfg.Media.LocalDir = filepath.Join(util.DataDir(), "media")
	}
	if cfg.Media.LocalURLPrefix == "" {
		cfg.Media.LocalURLPrefix = "/media"
	}
	if cfg.Media.MaxImageBytes <= 0 {
		cfg.Media.MaxImageBytes = 10 << 20
	}
	if cfg.Media.MaxAudioBytes <= 0 {
		cfg.Media.MaxAudioBytes = 20 << 20
	}
	if cfg.Checkout.TokenTTL <= 0 {
		cfg.Checkout.TokenTTL = 2 * time.Hour
	}
	if cfg.Checkout.LockTTL <= 0 {
		cfg.Checkout.LockTTL = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
