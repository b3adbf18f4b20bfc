package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "CORRESPONDENT_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	httpAddrEnv     = "HTTP_ADDR"
	smtpHostEnv     = "SMTP_HOST"
	smtpUsernameEnv = "SMTP_USERNAME"
	smtpPasswordEnv = "SMTP_PASSWORD"
	smtpFromEnv     = "SMTP_FROM"
)

// Duration decodes YAML strings like "30m" or "168h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Report    ReportConfig    `yaml:"report"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the sqlite file backing roster and seen items.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig describes the HTTP trigger surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines how often reports run on their own.
type SchedulerConfig struct {
	Disabled bool     `yaml:"disabled"`
	Interval Duration `yaml:"interval"`
}

// FetchConfig bounds site fetching for a run.
type FetchConfig struct {
	Workers      int      `yaml:"workers"`
	PerHostLimit int      `yaml:"perHostLimit"`
	Timeout      Duration `yaml:"timeout"`
	RetryBase    Duration `yaml:"retryBase"`
	RetryCap     Duration `yaml:"retryCap"`
	MaxAttempts  int      `yaml:"maxAttempts"`
	// Scanners maps a site host to a scanner strategy name ("rss" or "html").
	// Hosts not listed fall back to a URL heuristic.
	Scanners map[string]string `yaml:"scanners"`
}

// ReportConfig shapes the composed digest.
type ReportConfig struct {
	MaxItems      int `yaml:"maxItems"`
	RetentionDays int `yaml:"retentionDays"`
}

// SMTPConfig wires report delivery by email. Empty host disables SMTP and
// falls back to log delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"fromName"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv(smtpFromEnv); v != "" {
		c.SMTP.From = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Disabled {
		base.Scheduler.Disabled = true
	}

	if override.Fetch.Workers > 0 {
		base.Fetch.Workers = override.Fetch.Workers
	}
	if override.Fetch.PerHostLimit > 0 {
		base.Fetch.PerHostLimit = override.Fetch.PerHostLimit
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.RetryBase > 0 {
		base.Fetch.RetryBase = override.Fetch.RetryBase
	}
	if override.Fetch.RetryCap > 0 {
		base.Fetch.RetryCap = override.Fetch.RetryCap
	}
	if override.Fetch.MaxAttempts > 0 {
		base.Fetch.MaxAttempts = override.Fetch.MaxAttempts
	}
	if len(override.Fetch.Scanners) > 0 {
		base.Fetch.Scanners = override.Fetch.Scanners
	}

	if override.Report.MaxItems > 0 {
		base.Report.MaxItems = override.Report.MaxItems
	}
	if override.Report.RetentionDays > 0 {
		base.Report.RetentionDays = override.Report.RetentionDays
	}

	if override.SMTP.Host != "" {
		base.SMTP = override.SMTP
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "correspondent.db"},
		Server:   ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{
			Interval: Duration(7 * 24 * time.Hour),
		},
		Fetch: FetchConfig{
			Workers:      8,
			PerHostLimit: 2,
			Timeout:      Duration(20 * time.Second),
			RetryBase:    Duration(200 * time.Millisecond),
			RetryCap:     Duration(5 * time.Second),
			MaxAttempts:  3,
		},
		Report: ReportConfig{
			MaxItems:      20,
			RetentionDays: 30,
		},
		SMTP: SMTPConfig{Port: 587, FromName: "Correspondent"},
	}
}
