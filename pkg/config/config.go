package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level        string        `yaml:"level" default:"info"`
		Format       string        `yaml:"format" default:"console"`
		Output       string        `yaml:"output" default:"stdout"`
		CollectTopic string        `yaml:"collect_topic"`
		CollectEvery time.Duration `yaml:"collect_every" default:"30s"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"5001"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// Per client IP; 0 disables the inbound limiter.
		RateLimit struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Analysis struct {
		Days            int     `yaml:"days" default:"180"`
		MinRows         int     `yaml:"min_rows" default:"50"`
		Seed            uint64  `yaml:"seed" default:"42"`
		Momentum        float64 `yaml:"momentum" default:"0.15"`
		ReversionWindow int     `yaml:"reversion_window" default:"20"`
		SmoothWindow    int     `yaml:"smooth_window" default:"0"`
		MaxLag          int     `yaml:"max_lag" default:"5"`
		Significance    float64 `yaml:"significance" default:"0.10"`
		TopK            int     `yaml:"top_k" default:"3"`
		MinImportance   float64 `yaml:"min_importance" default:"0.001"`
		MaxEdges        int     `yaml:"max_edges" default:"20"`
		Workers         int     `yaml:"workers" default:"8"`
	} `yaml:"analysis"`
	Cache struct {
		Capacity int `yaml:"capacity" default:"10"`
		Redis    struct {
			Enabled  bool          `yaml:"enabled"`
			Addr     string        `yaml:"addr" default:"localhost:6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			Prefix   string        `yaml:"prefix" default:"influence"`
			TTL      time.Duration `yaml:"ttl" default:"1h"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	MarketData struct {
		BaseURL      string        `yaml:"base_url"`
		Path         string        `yaml:"path" default:"/api/yahoo-finance"`
		Timeframe    string        `yaml:"timeframe" default:"6m"`
		Interval     string        `yaml:"interval" default:"1d"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		MinCloses    int           `yaml:"min_closes" default:"30"`
		RPS          float64       `yaml:"rps" default:"10"`
		Burst        int           `yaml:"burst" default:"10"`
		BreakerTrips uint32        `yaml:"breaker_trips" default:"5"`
		BreakerOpen  time.Duration `yaml:"breaker_open" default:"30s"`
	} `yaml:"market_data"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		Table       string        `yaml:"table" default:"daily_closes"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		RequestTopic string        `yaml:"request_topic" default:"influence.requests"`
		ResultTopic  string        `yaml:"result_topic" default:"influence.results"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Consumer     struct {
			GroupID    string        `yaml:"group_id" default:"influence-graph"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"influence.requests.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file. Missing keys fall back to
// their struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MARKETDATA_BASE_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.MinRows < 1 {
		return fmt.Errorf("analysis.min_rows must be positive")
	}
	if a.Days < a.MinRows {
		return fmt.Errorf("analysis.days (%d) must be >= analysis.min_rows (%d)", a.Days, a.MinRows)
	}
	if a.Momentum < 0.10 || a.Momentum > 0.15 {
		return fmt.Errorf("analysis.momentum must be within [0.10, 0.15], got %v", a.Momentum)
	}
	if a.ReversionWindow < 10 || a.ReversionWindow > 20 {
		return fmt.Errorf("analysis.reversion_window must be within [10, 20], got %d", a.ReversionWindow)
	}
	if a.SmoothWindow < 0 {
		return fmt.Errorf("analysis.smooth_window cannot be negative")
	}
	if a.MaxLag < 1 {
		return fmt.Errorf("analysis.max_lag must be positive")
	}
	if a.Significance <= 0 || a.Significance >= 1 {
		return fmt.Errorf("analysis.significance must be within (0, 1)")
	}
	if a.TopK < 1 || a.MaxEdges < 1 || a.Workers < 1 {
		return fmt.Errorf("analysis.top_k, analysis.max_edges and analysis.workers must be positive")
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}
	return nil
}
