package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminIDs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []int64
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "42", want: []int64{42}},
		{name: "spacesAndBlanks", in: " 1, ,2 ,, 3", want: []int64{1, 2, 3}},
		{name: "invalidSkipped", in: "1,abc,2.5,@nick,7", want: []int64{1, 7}},
		{name: "duplicates", in: "5,5,6,5", want: []int64{5, 6}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ParseAdminIDs(tc.in))
		})
	}
}

func TestLoadConfigRequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := loadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "10,20")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SELENIUM_URL", "http://selenium:4444/")
	t.Setenv("HEALTH_PORT", "70000")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("APP_TIMEOUT_SEC", "")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	env := cfg.Env
	assert.Equal(t, "123:abc", env.BotToken)
	assert.Equal(t, []int64{10, 20}, env.AdminIDs)
	assert.Equal(t, defaultRedisURL, env.RedisURL)
	assert.Equal(t, "http://selenium:4444", env.BrowserURL, "trailing slash is trimmed")
	assert.Equal(t, defaultHealthPort, env.HealthPort, "out of range port falls back")
	assert.Equal(t, defaultRateLimitRPS, env.RateLimitRPS)
	assert.Equal(t, StoreRedis, env.StoreBackend)
	assert.Equal(t, defaultLogLevel, env.LogLevel)
	assert.Equal(t, 45*time.Second, env.ScrapeTimeout)
	assert.Zero(t, env.AppTimeout)

	assert.NotEmpty(t, cfg.warnings)
	assert.Contains(t, cfg.warnings[0], "missing.env")
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BOT_TOKEN=from-file\nSTORE_BACKEND=BOLT\n"), 0o600))

	// godotenv не перезаписывает уже заданные переменные, поэтому очищаем их.
	t.Setenv("BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	t.Setenv("STORE_BACKEND", "")
	require.NoError(t, os.Unsetenv("STORE_BACKEND"))

	cfg, err := loadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Env.BotToken)
	assert.Equal(t, StoreBolt, cfg.Env.StoreBackend)
}

func TestLoadConfigAppTimeout(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		warning bool
	}{
		{name: "seconds", value: "90", want: 90 * time.Second},
		{name: "zero disables", value: "0", want: 0},
		{name: "negative", value: "-5", want: 0, warning: true},
		{name: "garbage", value: "soon", want: 0, warning: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "123:abc")
			t.Setenv("APP_TIMEOUT_SEC", tt.value)

			cfg, err := loadConfig("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Env.AppTimeout)

			warned := false
			for _, w := range cfg.warnings {
				if strings.Contains(w, "APP_TIMEOUT_SEC") {
					warned = true
				}
			}
			assert.Equal(t, tt.warning, warned)
		})
	}
}
