package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	applog "reimburse/internal/log"
)

type Config struct {
	// HTTP Server
	Port string `envconfig:"PORT" default:"8081"`

	// Claim storage
	DataBackend      string `envconfig:"DATA_BACKEND" default:"memory"`
	SQLiteDBPath     string `envconfig:"SQLITE_DB_PATH" default:"./data/reimburse.db"`
	RedisURL         string `envconfig:"REDIS_URL"`
	ClaimsStorageKey string `envconfig:"CLAIMS_STORAGE_KEY" default:"@reimbursement_data"`
	MemorySeedFile   string `envconfig:"MEMORY_SEED_FILE"`

	// AMQP notifications, disabled when AMQP_URL is empty
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"reimburse"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"claim_submitted"`

	// Receipts
	ReceiptsBackend string `envconfig:"RECEIPTS_BACKEND" default:"local"`
	ReceiptsDir     string `envconfig:"RECEIPTS_DIR" default:"./data/receipts"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Form sessions
	DraftTTL  time.Duration `envconfig:"DRAFT_TTL" default:"30m"`
	MaxDrafts int           `envconfig:"MAX_DRAFTS" default:"1000"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file from the working directory and then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// AMQPEnabled reports whether submission notifications should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "redis"}
	if !contains(validBackends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "redis":
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required when using redis backend")
		} else if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			problems = append(problems, fmt.Sprintf("invalid Redis URL '%s': scheme must be 'redis' or 'rediss'", c.RedisURL))
		}
	}

	if strings.TrimSpace(c.ClaimsStorageKey) == "" {
		problems = append(problems, "claims storage key cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ReceiptsBackend {
	case "local":
		if c.ReceiptsDir == "" {
			problems = append(problems, "RECEIPTS_DIR is required when using local receipts")
		}
	case "s3":
		if c.S3Bucket == "" {
			problems = append(problems, "S3_BUCKET is required when using s3 receipts")
		}
		if c.AWSRegion == "" {
			problems = append(problems, "AWS_REGION is required when using s3 receipts")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid receipts backend '%s': must be one of [local s3]", c.ReceiptsBackend))
	}

	if c.DraftTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid draft TTL %v: must be at least 1 minute", c.DraftTTL))
	} else if c.DraftTTL > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid draft TTL %v: must be at most 24 hours", c.DraftTTL))
	}
	if c.MaxDrafts < 1 {
		problems = append(problems, fmt.Sprintf("invalid max drafts %d: must be at least 1", c.MaxDrafts))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// LoggerConfig maps the logging keys onto a logger configuration.
func (c *Config) LoggerConfig() applog.Config {
	lc := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(c.LogLevel); err == nil {
		lc.Level = lvl
	} else {
		lc.Level = slog.LevelInfo
	}
	lc.Format = c.LogFormat
	return lc
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
