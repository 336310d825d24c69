package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.RefreshCron, again.RefreshCron)
	assert.Equal(t, cfg.Tools, again.Tools)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "listen: \":9000\"\nweek_start: Sunday\ndata_dir: /srv/calib\ntools:\n  source: bogus\nmqtt:\n  qos: 5\nrate_limit:\n  rps: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, time.Sunday, cfg.FirstWeekday())
	assert.Equal(t, "/srv/calib/calibtrack.db", cfg.Database)
	assert.Equal(t, SourceFile, cfg.Tools.Source)
	assert.Equal(t, "/srv/calib/tools.json", cfg.Tools.Path)
	assert.Equal(t, 1, cfg.MQTT.QoS)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 5*time.Second, cfg.SaveTimeout())
	assert.Equal(t, 6, cfg.DefaultIntervalMonths)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [oops"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.RefreshCron = "every five minutes"
	cfg.Timezone = "Mars/Olympus"
	cfg.Tools.Source = SourceHTTP
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "tools.url")
	assert.Contains(t, err.Error(), "mqtt.broker")
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CALIBTRACK_LISTEN":                  ":7000",
		"CALIBTRACK_TOOLS_SOURCE":            "http",
		"CALIBTRACK_TOOLS_URL":               "https://example.test/tools.json",
		"CALIBTRACK_MQTT_ENABLED":            "true",
		"CALIBTRACK_SAVE_TIMEOUT_SECONDS":    "9",
		"CALIBTRACK_DEFAULT_INTERVAL_MONTHS": "x",
		"CALIBTRACK_CORS_ORIGINS":            "http://a.test, ,http://b.test",
		"CALIBTRACK_BASIC_AUTH_USER":         "admin",
		"CALIBTRACK_BASIC_AUTH_PASSWORD":     "secret",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, SourceHTTP, cfg.Tools.Source)
	assert.Equal(t, "https://example.test/tools.json", cfg.Tools.URL)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, 9, cfg.SaveTimeoutSeconds)
	assert.Equal(t, 6, cfg.DefaultIntervalMonths)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.BasicAuthEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("CALIBTRACK_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CALIBTRACK_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), file))
	assert.Equal(t, "from-file", os.Getenv("CALIBTRACK_TEST_DOTENV"))
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "none.env")))
}
