package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-adboard/components/dashboard"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
base_url: https://api.example.com/api/
timezone: Europe/Moscow
default_period: "30"
http_timeout: 3s
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/", cfg.BaseURL)
	assert.Equal(t, dashboard.Period30, cfg.DefaultPeriod)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, dashboard.DefaultLocale, cfg.Locale)
	require.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("base_url: x\nunknown: 1\n"))
	assert.Error(t, err)
}

func TestDecodeEmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"period":   func(c *Config) { c.DefaultPeriod = dashboard.PeriodCustom },
		"preset":   func(c *Config) { c.DefaultPeriod = "21" },
		"timezone": func(c *Config) { c.Timezone = "Mars/Olympus" },
		"level":    func(c *Config) { c.LogLevel = "loud" },
		"base_url": func(c *Config) { c.BaseURL = " " },
		"rate":     func(c *Config) { c.RateLimit = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: from-file\n"), 0o600))
	t.Setenv(EnvToken, "from-env")
	t.Setenv(EnvBaseURL, "http://backend/api/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "http://backend/api/", cfg.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
