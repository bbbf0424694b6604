package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray .env is read.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load([]string{"--use-memory"})
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.StrictCurrency)
	assert.Equal(t, "PEPEWUFF", cfg.TokenSymbol)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_RequiresPostgresUnlessMemory(t *testing.T) {
	chdirTemp(t)
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load(nil)
	assert.Error(t, err)

	cfg, err := Load([]string{"--postgres-dsn", "postgres://localhost/presale"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/presale", cfg.PostgresDSN)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	chdirTemp(t)
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("STRICT_CURRENCY", "1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load([]string{"--http-addr", ":8080"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.StrictCurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("USE_MEMORY=true\nHTTP_ADDR=:7000\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("HTTP_ADDR", ":9000")
	// Unset after the test so the .env values do not leak.
	t.Setenv("USE_MEMORY", "")
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("USE_MEMORY"))
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	chdirTemp(t)

	_, err := Load([]string{"--use-memory", "--log-level", "chatty"})
	assert.Error(t, err)

	_, err = Load([]string{"--use-memory", "--log-format", "xml"})
	assert.Error(t, err)

	_, err = Load([]string{"--use-memory", "--rate-limit-rps", "-1"})
	assert.Error(t, err)

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}

	logger := cfg.NewLogger(&buf)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.WithField("component", "test").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"test"`)
}
