package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	UploadBodyLimit string        `mapstructure:"UPLOAD_BODY_LIMIT"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	TokenValidity time.Duration `mapstructure:"TOKEN_VALIDITY"`

	UploadDir string `mapstructure:"UPLOAD_DIR"`

	GeminiAPIKey string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string        `mapstructure:"GEMINI_MODEL"`
	AITimeout    time.Duration `mapstructure:"AI_TIMEOUT"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_BODY_LIMIT", "15M")
	v.SetDefault("TOKEN_VALIDITY", "720h") // 30 days
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("AI_TIMEOUT", "60s")
	v.SetDefault("MAIL_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("UPLOAD_BODY_LIMIT")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_VALIDITY")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("GEMINI_MODEL")
	v.BindEnv("AI_TIMEOUT")
	v.BindEnv("MAIL_HOST")
	v.BindEnv("MAIL_PORT")
	v.BindEnv("MAIL_USER")
	v.BindEnv("MAIL_PASSWORD")
	v.BindEnv("MAIL_FROM")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is not set; report analysis and chat will degrade to fallback responses")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. A signing secret is
// always required since every protected route depends on it.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production, got %d", len(c.JWTSecret))
	}
	if c.TokenValidity <= 0 {
		return fmt.Errorf("TOKEN_VALIDITY must be positive")
	}
	if c.MailHost != "" && c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required when MAIL_HOST is set")
	}
	return nil
}
