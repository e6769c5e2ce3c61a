package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"LeetTracker/pkg/logger"
)

const (
	configPathEnv = "LEETTRACKER_CONFIG"
	clockLayout   = "15:04"
)

var bootLog = logger.New("config")

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	LeetCode  LeetCodeConfig  `yaml:"leetcode"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Collector CollectorConfig `yaml:"collector"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig points at the local SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LeetCodeConfig describes the GraphQL endpoint and how hard we may hit it.
type LeetCodeConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	ProblemBaseURL    string        `yaml:"problemBaseUrl"`
	SubmissionLimit   int           `yaml:"submissionLimit"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	MaxRetries        int           `yaml:"maxRetries"`
}

// TelegramConfig wires the bot used for reports and operator commands.
type TelegramConfig struct {
	BotToken    string        `yaml:"botToken"`
	APIBase     string        `yaml:"apiBase"`
	PollTimeout time.Duration `yaml:"pollTimeout"`
}

// SchedulerConfig defines when each job runs. Times of day are UTC "HH:MM".
type SchedulerConfig struct {
	CollectInterval time.Duration `yaml:"collectInterval"`
	CollectDelay    time.Duration `yaml:"collectDelay"`
	ReportAt        string        `yaml:"reportAt"`
	SweepAt         string        `yaml:"sweepAt"`
}

// ReportOffset is the report time as an offset from UTC midnight.
func (s SchedulerConfig) ReportOffset() time.Duration {
	return clockOffset(s.ReportAt)
}

// SweepOffset is the sweep time as an offset from UTC midnight.
func (s SchedulerConfig) SweepOffset() time.Duration {
	return clockOffset(s.SweepAt)
}

// CollectorConfig bounds a single collection pass.
type CollectorConfig struct {
	IdentityTimeout time.Duration `yaml:"identityTimeout"`
}

// RetentionConfig bounds how long observations are kept.
type RetentionConfig struct {
	HorizonDays int `yaml:"horizonDays"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// envOverrides lists the variables that win over the YAML file.
type envOverrides struct {
	DatabasePath     string `env:"DATABASE_PATH"`
	TelegramToken    string `env:"TELEGRAM_BOT_TOKEN"`
	LeetCodeEndpoint string `env:"LEETCODE_ENDPOINT"`
	LogLevel         string `env:"LOG_LEVEL"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to $LEETTRACKER_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			bootLog.Printf("cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := parse(raw); err != nil {
			bootLog.Printf("cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

// parse decodes YAML on top of the defaults so absent keys keep their default.
func parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	var env envOverrides
	if err := cleanenv.ReadEnv(&env); err != nil {
		bootLog.Printf("cannot read environment: %v", err)
		return
	}

	if env.DatabasePath != "" {
		c.Database.Path = env.DatabasePath
	}
	if env.TelegramToken != "" {
		c.Telegram.BotToken = env.TelegramToken
	}
	if env.LeetCodeEndpoint != "" {
		c.LeetCode.Endpoint = env.LeetCodeEndpoint
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
}

// normalize replaces unusable values with defaults instead of failing startup.
func (c *Config) normalize() {
	def := defaultConfig()

	if c.Scheduler.CollectInterval <= 0 {
		c.Scheduler.CollectInterval = def.Scheduler.CollectInterval
	}
	if c.Scheduler.CollectDelay < 0 {
		c.Scheduler.CollectDelay = def.Scheduler.CollectDelay
	}
	if _, err := parseClock(c.Scheduler.ReportAt); err != nil {
		bootLog.Printf("invalid reportAt %q, reverting to %s", c.Scheduler.ReportAt, def.Scheduler.ReportAt)
		c.Scheduler.ReportAt = def.Scheduler.ReportAt
	}
	if _, err := parseClock(c.Scheduler.SweepAt); err != nil {
		bootLog.Printf("invalid sweepAt %q, reverting to %s", c.Scheduler.SweepAt, def.Scheduler.SweepAt)
		c.Scheduler.SweepAt = def.Scheduler.SweepAt
	}
	if c.Retention.HorizonDays < 0 {
		c.Retention.HorizonDays = def.Retention.HorizonDays
	}
	if c.LeetCode.SubmissionLimit <= 0 {
		c.LeetCode.SubmissionLimit = def.LeetCode.SubmissionLimit
	}
	if c.LeetCode.MaxRetries < 0 {
		c.LeetCode.MaxRetries = 0
	}
	if c.Collector.IdentityTimeout <= 0 {
		c.Collector.IdentityTimeout = def.Collector.IdentityTimeout
	}
	if !strings.HasSuffix(c.LeetCode.ProblemBaseURL, "/") {
		c.LeetCode.ProblemBaseURL += "/"
	}
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func clockOffset(value string) time.Duration {
	d, err := parseClock(value)
	if err != nil {
		return 0
	}
	return d
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "leettracker.db"},
		LeetCode: LeetCodeConfig{
			Endpoint:          "https://leetcode.com/graphql",
			ProblemBaseURL:    "https://leetcode.com/problems/",
			SubmissionLimit:   15,
			RequestTimeout:    20 * time.Second,
			RequestsPerSecond: 2,
			MaxRetries:        2,
		},
		Telegram: TelegramConfig{
			APIBase:     "https://api.telegram.org",
			PollTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			CollectInterval: 30 * time.Minute,
			CollectDelay:    10 * time.Second,
			ReportAt:        "13:00",
			SweepAt:         "16:00",
		},
		Collector: CollectorConfig{IdentityTimeout: 45 * time.Second},
		Retention: RetentionConfig{HorizonDays: 2},
		Logging:   LoggingConfig{Level: "info"},
	}
}
