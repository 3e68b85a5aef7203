// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jpenzell/deck-live/db"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	// PresenterKeySalt signs presenter keys. Required.
	PresenterKeySalt string `env:"PRESENTER_KEY_SALT"`

	// PublicURL is the deck's base URL used in join links and QR codes.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:5173"`

	// CORSOrigins lists the deck origins allowed to call the API. Empty
	// allows any origin.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// RedisURL enables the cross-instance realtime relay and the shared
	// generate rate limiter.
	RedisURL string `env:"REDIS_URL"`

	LLMBaseURL         string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"llama3.2"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	GenerateRateLimit  int           `env:"GENERATE_RATE_LIMIT" envDefault:"10"`
	GenerateRateWindow time.Duration `env:"GENERATE_RATE_WINDOW" envDefault:"1m"`

	// DeckPassword enables the password gate. Empty disables it.
	DeckPassword    string `env:"DECK_PASSWORD"`
	DeckTokenSecret string `env:"DECK_TOKEN_SECRET"`

	// PollsOpenOnCreate makes Create start polls open instead of closed.
	PollsOpenOnCreate bool `env:"POLLS_OPEN_ON_CREATE" envDefault:"false"`
}

// LoadDotEnv loads variables from the given files (default ".env") into
// the environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags reads the environment, then lets CLI flags override it.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	fs := flag.NewFlagSet("deck-live", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "Public deck URL for join links")
	fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL for the realtime relay")
	fs.Func("cors-origins", "Comma-separated deck origins allowed by CORS", func(v string) error {
		cfg.CORSOrigins = splitList(v)
		return nil
	})
	fs.BoolVar(&cfg.TrustProxyHeaders, "trust-proxy", cfg.TrustProxyHeaders, "Trust X-Forwarded-For from a reverse proxy")

	// Collaborators
	fs.StringVar(&cfg.LLMBaseURL, "llm-url", cfg.LLMBaseURL, "Text generation base URL")
	fs.StringVar(&cfg.LLMModel, "llm-model", cfg.LLMModel, "Default text generation model")
	fs.IntVar(&cfg.GenerateRateLimit, "generate-limit", cfg.GenerateRateLimit, "Generate requests per client per window")

	// Poll policy
	fs.BoolVar(&cfg.PollsOpenOnCreate, "open-on-create", cfg.PollsOpenOnCreate, "Create polls already open")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.PresenterKeySalt, "presenter-salt", cfg.PresenterKeySalt, "Presenter key salt (prefer env)")
	fs.StringVar(&cfg.DeckPassword, "password", cfg.DeckPassword, "Deck password (prefer env)")
	fs.StringVar(&cfg.DeckTokenSecret, "token-secret", cfg.DeckTokenSecret, "Deck token secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or invalid setting.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid port")
	}

	dialect, err := db.ParseDialect(c.DatabaseType)
	if err != nil {
		return err
	}
	if dialect == db.Postgres && c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	// Secrets - MUST be provided
	if c.PresenterKeySalt == "" {
		return errors.New("PRESENTER_KEY_SALT required")
	}
	if c.DeckPassword != "" && c.DeckTokenSecret == "" {
		return errors.New("DECK_TOKEN_SECRET required when DECK_PASSWORD is set")
	}

	if c.GenerateRateLimit <= 0 {
		return errors.New("GENERATE_RATE_LIMIT must be positive")
	}
	if c.GenerateRateWindow <= 0 {
		return errors.New("GENERATE_RATE_WINDOW must be positive")
	}
	if !isHTTPURL(c.PublicURL) {
		return errors.New("PUBLIC_URL must be an http(s) URL")
	}
	for _, origin := range c.CORSOrigins {
		if !isHTTPURL(strings.TrimSpace(origin)) {
			return fmt.Errorf("CORS origin %q must be an http(s) URL", origin)
		}
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Dialect returns the parsed database type. Call after Validate.
func (c Config) Dialect() db.Dialect {
	d, _ := db.ParseDialect(c.DatabaseType)
	return d
}
