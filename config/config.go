package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env     string `mapstructure:"APP_ENV"`
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	Mongo    MongoConfig    `mapstructure:",squash"`
	JWT      JWTConfig      `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Mail     MailConfig     `mapstructure:",squash"`
	Uploads  UploadConfig   `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type MongoConfig struct {
	URI      string `mapstructure:"MONGODB_URI"`
	Database string `mapstructure:"MONGODB_DATABASE"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"JWT_SECRET"`
	TTL    time.Duration `mapstructure:"JWT_EXPIRES_IN"`
}

type RedisConfig struct {
	Addr string        `mapstructure:"REDIS_ADDR"`
	TTL  time.Duration `mapstructure:"CACHE_TTL"`
}

type MailConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USER"`
	Password string `mapstructure:"SMTP_PASS"`
	From     string `mapstructure:"EMAIL_FROM"`
	BaseURL  string `mapstructure:"CLIENT_URL"`
}

type UploadConfig struct {
	Driver        string `mapstructure:"UPLOAD_DRIVER"` // "local" or "cloudinary"
	Dir           string `mapstructure:"UPLOAD_DIR"`
	CloudinaryURL string `mapstructure:"CLOUDINARY_URL"`
	MaxBytes      int64  `mapstructure:"UPLOAD_MAX_BYTES"`
}

type SecurityConfig struct {
	RateLimitRPM int      `mapstructure:"RATE_LIMIT_RPM"`
	CORSOrigins  []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present) and the process environment. Variables already
// set in the environment win over .env.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if origins := v.GetString("CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DATABASE", "blog")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "60s")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("EMAIL_FROM", "no-reply@localhost")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("UPLOAD_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("CLOUDINARY_URL", "")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("RATE_LIMIT_RPM", 120)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	switch c.Uploads.Driver {
	case "local":
	case "cloudinary":
		if c.Uploads.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required when UPLOAD_DRIVER=cloudinary")
		}
	default:
		return fmt.Errorf("invalid UPLOAD_DRIVER %q (must be local or cloudinary)", c.Uploads.Driver)
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != ""
}
