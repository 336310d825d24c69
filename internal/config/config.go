package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calibtrack/internal/fileutil"
	appLog "calibtrack/internal/log"
)

// Tool source kinds.
const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// ToolsConfig selects where the tool catalog comes from.
type ToolsConfig struct {
	// Source is one of "file", "http" or "sqlite".
	Source string `yaml:"source" json:"source"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
}

// MQTTConfig enables publishing of accept/decline decisions.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"-"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
	QoS         int    `yaml:"qos" json:"qos"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// RateLimitConfig is the per-client token bucket of the API. RPS <= 0
// disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps"`
	Burst int     `yaml:"burst" json:"burst"`
}

// ChromeConfig controls the headless browser used for PDF exports.
type ChromeConfig struct {
	ExecPath       string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone calibration dates are scheduled in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is the tool catalog refresh schedule (standard 5-field cron).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DataDir holds the local cache files and the HTTP source cache.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Database is the SQLite file path.
	Database string `yaml:"database" json:"database"`

	SaveTimeoutSeconds    int    `yaml:"save_timeout_seconds" json:"save_timeout_seconds"`
	DefaultIntervalMonths int    `yaml:"default_interval_months" json:"default_interval_months"`
	LogLevel              string `yaml:"log_level" json:"log_level"`

	Tools       ToolsConfig      `yaml:"tools" json:"tools"`
	MQTT        MQTTConfig       `yaml:"mqtt" json:"mqtt"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Chrome      ChromeConfig     `yaml:"chrome" json:"chrome"`
	CORSOrigins []string         `yaml:"cors_origins" json:"cors_origins"`
	BasicAuth   *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                "127.0.0.1:8080",
		Timezone:              "UTC",
		WeekStart:             "monday",
		RefreshCron:           "*/15 * * * *",
		DataDir:               "./data",
		Database:              "./data/calibtrack.db",
		SaveTimeoutSeconds:    5,
		DefaultIntervalMonths: 6,
		LogLevel:              "info",
		Tools:                 ToolsConfig{Source: SourceFile, Path: "./data/tools.json"},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "calibtrack",
			TopicPrefix: "calibtrack/decisions",
			QoS:         1,
		},
		RateLimit:   RateLimitConfig{RPS: 20, Burst: 40},
		Chrome:      ChromeConfig{TimeoutSeconds: 30},
		CORSOrigins: []string{},
	}
}

// Normalize fills in missing or invalid values with defaults so that
// partially filled files still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "monday" && c.WeekStart != "sunday" {
		c.WeekStart = d.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "calibtrack.db")
	}
	if c.SaveTimeoutSeconds <= 0 {
		c.SaveTimeoutSeconds = d.SaveTimeoutSeconds
	}
	if c.DefaultIntervalMonths <= 0 {
		c.DefaultIntervalMonths = d.DefaultIntervalMonths
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	switch c.Tools.Source {
	case SourceFile, SourceHTTP, SourceSQLite:
	default:
		c.Tools.Source = SourceFile
	}
	if c.Tools.Source == SourceFile && c.Tools.Path == "" {
		c.Tools.Path = filepath.Join(c.DataDir, "tools.json")
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = d.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = d.MQTT.TopicPrefix
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		c.MQTT.QoS = d.MQTT.QoS
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = max(1, int(c.RateLimit.RPS))
	}
	if c.Chrome.TimeoutSeconds <= 0 {
		c.Chrome.TimeoutSeconds = d.Chrome.TimeoutSeconds
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	var errs []error
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.Tools.Source == SourceHTTP && c.Tools.URL == "" {
		errs = append(errs, errors.New("tools.url is required for the http source"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Warn("unknown timezone; using UTC", "name", c.Timezone)
		return time.UTC
	}
	return loc
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.SaveTimeoutSeconds) * time.Second
}

func (c *Config) ChromeTimeout() time.Duration {
	return time.Duration(c.Chrome.TimeoutSeconds) * time.Second
}

// BasicAuthEnabled reports whether both credentials are set.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}

// Load loads configuration from the given YAML path.
//
// When the file does not exist a default config is written there (0600)
// and returned. Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CALIBTRACK_"

// ApplyEnv overrides fields from CALIBTRACK_* variables looked up through
// lookup (os.LookupEnv in production). Unparsable numbers are logged and
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			appLog.Warn("ignoring invalid env override", "key", EnvPrefix+key, "value", v)
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			appLog.Warn("ignoring invalid env override", "key", EnvPrefix+key, "value", v)
			return
		}
		*dst = b
	}

	str("LISTEN", &c.Listen)
	str("TIMEZONE", &c.Timezone)
	str("WEEK_START", &c.WeekStart)
	str("REFRESH", &c.RefreshCron)
	str("DATA_DIR", &c.DataDir)
	str("DATABASE", &c.Database)
	str("LOG_LEVEL", &c.LogLevel)
	num("SAVE_TIMEOUT_SECONDS", &c.SaveTimeoutSeconds)
	num("DEFAULT_INTERVAL_MONTHS", &c.DefaultIntervalMonths)
	str("TOOLS_SOURCE", &c.Tools.Source)
	str("TOOLS_PATH", &c.Tools.Path)
	str("TOOLS_URL", &c.Tools.URL)
	boolean("MQTT_ENABLED", &c.MQTT.Enabled)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("MQTT_TOPIC_PREFIX", &c.MQTT.TopicPrefix)
	str("CHROME_PATH", &c.Chrome.ExecPath)

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}

	user, uok := lookup(EnvPrefix + "BASIC_AUTH_USER")
	pass, pok := lookup(EnvPrefix + "BASIC_AUTH_PASSWORD")
	if uok && pok && user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}

	c.Normalize()
}
