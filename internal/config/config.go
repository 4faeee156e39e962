package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`

	// Security
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:8080,http://localhost:3000" envSeparator:","`
	JWTSecret      string   `env:"JWT_SECRET"`
	InternalToken  string   `env:"INTERNAL_TOKEN"`

	// Rate Limiting (requests per second, burst)
	RateLimitAPI   float64 `env:"RATE_LIMIT_API" envDefault:"10"`
	RateBurstAPI   int     `env:"RATE_BURST_API" envDefault:"20"`
	RateLimitWS    float64 `env:"RATE_LIMIT_WS" envDefault:"5"`
	RateBurstWS    int     `env:"RATE_BURST_WS" envDefault:"10"`
	MaxMessageSize int64   `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // Options: debug, info, warn, error, silent

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"persona-chat.db"`

	// Credits
	InitialFreeCredits int `env:"INITIAL_FREE_CREDITS" envDefault:"5"`
	SignupBonusCredits int `env:"SIGNUP_BONUS_CREDITS" envDefault:"10"`
	AdBonusCredits     int `env:"AD_BONUS_CREDITS" envDefault:"10"`
	AdMinWatchSeconds  int `env:"AD_MIN_WATCH_SECONDS" envDefault:"13"`
	AdRevenueMinCents  int `env:"AD_REVENUE_MIN_CENTS" envDefault:"1"`
	AdRevenueMaxCents  int `env:"AD_REVENUE_MAX_CENTS" envDefault:"5"`

	// Turn pacing
	ReplyProbability float64       `env:"REPLY_PROBABILITY" envDefault:"0.6"`
	ReplyDelayMin    time.Duration `env:"REPLY_DELAY_MIN" envDefault:"1s"`
	ReplyDelayMax    time.Duration `env:"REPLY_DELAY_MAX" envDefault:"3s"`
	TypingPerChar    time.Duration `env:"TYPING_PER_CHAR" envDefault:"50ms"`
	TypingMax        time.Duration `env:"TYPING_MAX" envDefault:"3s"`
	AgentGapMin      time.Duration `env:"AGENT_GAP_MIN" envDefault:"500ms"`
	AgentGapMax      time.Duration `env:"AGENT_GAP_MAX" envDefault:"2s"`

	// History windows
	ContextWindow   int `env:"CONTEXT_WINDOW" envDefault:"15"`
	EchoWindow      int `env:"ECHO_WINDOW" envDefault:"20"`
	RehydrateWindow int `env:"REHYDRATE_WINDOW" envDefault:"50"`

	// Text generation
	GeneratorBaseURL  string        `env:"GENERATOR_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GeneratorAPIKey   string        `env:"GENERATOR_API_KEY"`
	GeneratorModel    string        `env:"GENERATOR_MODEL" envDefault:"gpt-4o-mini"`
	GeneratorAltModel string        `env:"GENERATOR_ALT_MODEL"`
	GeneratorTimeout  time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"60s"`

	// Character catalog
	CatalogPath string `env:"CATALOG_PATH"`
	GlossaryDir string `env:"GLOSSARY_DIR"`
}

// Default returns configuration with default values and no environment applied
func Default() *Config {
	cfg := &Config{}
	// Defaults come from struct tags; an empty environment cannot fail to parse.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Load reads an optional .env file, then the process environment
func Load() (*Config, error) {
	// .env is optional, e.g. absent in production
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent values
func (c *Config) Validate() error {
	var errs []error
	if c.ReplyProbability < 0 || c.ReplyProbability > 1 {
		errs = append(errs, fmt.Errorf("REPLY_PROBABILITY must be within [0,1], got %v", c.ReplyProbability))
	}
	if c.ReplyDelayMin > c.ReplyDelayMax {
		errs = append(errs, errors.New("REPLY_DELAY_MIN must not exceed REPLY_DELAY_MAX"))
	}
	if c.AgentGapMin > c.AgentGapMax {
		errs = append(errs, errors.New("AGENT_GAP_MIN must not exceed AGENT_GAP_MAX"))
	}
	if c.AdRevenueMinCents > c.AdRevenueMaxCents {
		errs = append(errs, errors.New("AD_REVENUE_MIN_CENTS must not exceed AD_REVENUE_MAX_CENTS"))
	}
	if c.InitialFreeCredits < 0 || c.SignupBonusCredits < 0 || c.AdBonusCredits < 0 {
		errs = append(errs, errors.New("credit amounts must not be negative"))
	}
	if c.ContextWindow <= 0 || c.EchoWindow <= 0 || c.RehydrateWindow <= 0 {
		errs = append(errs, errors.New("history windows must be positive"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("MAX_MESSAGE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// cleanOrigins trims whitespace and drops empty entries
func cleanOrigins(origins []string) []string {
	result := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			result = append(result, o)
		}
	}
	return result
}
