// Package config loads server settings from flags, environment variables
// and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all server settings.
type Config struct {
	HTTPAddr        string
	PostgresDSN     string
	ClickhouseDSN   string
	UseMemory       bool
	AssetsDir       string
	ImgDir          string
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int
	StrictCurrency  bool
	TokenSymbol     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load parses args (without the program name) on top of environment
// defaults. A .env file in the working directory is loaded first; it never
// overrides variables already set in the environment.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &Config{}
	var origins string

	fs.StringVar(&cfg.HTTPAddr, "http-addr", envString("HTTP_ADDR", ":5000"), "HTTP listen address")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for purchase analytics (optional)")
	fs.BoolVar(&cfg.UseMemory, "use-memory", envBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	fs.StringVar(&cfg.AssetsDir, "assets-dir", os.Getenv("ASSETS_DIR"), "Directory served under /api/assets/")
	fs.StringVar(&cfg.ImgDir, "img-dir", os.Getenv("IMG_DIR"), "Directory served under /img/")
	fs.StringVar(&origins, "allowed-origins", envString("ALLOWED_ORIGINS", "*"), "Comma-separated CORS origins")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", envFloat("RATE_LIMIT_RPS", 5), "Mutating requests per second per client (0 disables)")
	fs.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", envInt("RATE_LIMIT_BURST", 10), "Rate limiter burst size")
	fs.BoolVar(&cfg.StrictCurrency, "strict-currency", envBool("STRICT_CURRENCY", false), "Reject unsupported currencies instead of pricing them at 1")
	fs.StringVar(&cfg.TokenSymbol, "token-symbol", envString("TOKEN_SYMBOL", "PEPEWUFF"), "Token symbol shown in wallet purchase history")
	fs.StringVar(&cfg.LogLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", envString("LOG_FORMAT", "text"), "Log format (text, json)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg.AllowedOrigins = splitList(origins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("--rate-limit-rps must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("--rate-limit-burst must be at least 1")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("--log-format: unsupported format %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
