package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"bookpulse/internal/infrastructure/feed"

	"github.com/BurntSushi/toml"
)

type ExchangeConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
	MaxBackups int    `toml:"max_backups"`
	Compress   bool   `toml:"compress"`
}

type Config struct {
	App struct {
		Name            string `toml:"name"`
		AnalysisEveryMs int    `toml:"analysis_every_ms"`
		SnapshotEveryS  int    `toml:"snapshot_every_s"`
		Render          bool   `toml:"render"`
	} `toml:"app"`

	Feed struct {
		Symbol              string `toml:"symbol"`
		Quote               string `toml:"quote"`
		HistoryLength       int    `toml:"history_length"`
		ConnectTimeoutMs    int    `toml:"connect_timeout_ms"`
		BaseDelayMs         int    `toml:"base_delay_ms"`
		MaxDelayMs          int    `toml:"max_delay_ms"`
		MaxAttempts         int    `toml:"max_attempts"`
		SyntheticIntervalMs int    `toml:"synthetic_interval_ms"`
		SubscriberBuffer    int    `toml:"subscriber_buffer"`
		PingIntervalMs      int    `toml:"ping_interval_ms"`
		ReadTimeoutMs       int    `toml:"read_timeout_ms"`
	} `toml:"feed"`

	Exchanges map[string]ExchangeConfig `toml:"exchanges"`

	Log LogConfig `toml:"log"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled bool   `toml:"enabled"`
			Addr    string `toml:"addr"`
			Pass    string `toml:"password"`
			DB      int    `toml:"db"`
			Prefix  string `toml:"prefix"`
			MaxLen  int64  `toml:"stream_max_len"`
		} `toml:"redis"`

		Kafka struct {
			Enabled bool     `toml:"enabled"`
			Brokers []string `toml:"brokers"`
			Topic   string   `toml:"topic"`
		} `toml:"kafka"`
	} `toml:"storage"`

	Publish struct {
		PerSecond float64 `toml:"per_second"`
		Burst     int     `toml:"burst"`
	} `toml:"publish"`
}

// Settings 行情核心需要的最小配置
type Settings struct {
	EnabledVenues []string
	Symbol        string
	HistoryLength int
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bookpulse"
	}
	if cfg.App.AnalysisEveryMs <= 0 {
		cfg.App.AnalysisEveryMs = 1000
	}
	if cfg.App.SnapshotEveryS <= 0 {
		cfg.App.SnapshotEveryS = 60
	}

	d := feed.DefaultOptions()
	f := &cfg.Feed
	if f.Quote == "" {
		f.Quote = "USDT"
	}
	if f.HistoryLength <= 0 {
		f.HistoryLength = d.HistoryLength
	}
	if f.ConnectTimeoutMs <= 0 {
		f.ConnectTimeoutMs = int(d.ConnectTimeout / time.Millisecond)
	}
	if f.BaseDelayMs <= 0 {
		f.BaseDelayMs = int(d.BaseDelay / time.Millisecond)
	}
	if f.MaxDelayMs <= 0 {
		f.MaxDelayMs = int(d.MaxDelay / time.Millisecond)
	}
	if f.MaxAttempts <= 0 {
		f.MaxAttempts = d.MaxAttempts
	}
	if f.SyntheticIntervalMs <= 0 {
		f.SyntheticIntervalMs = int(d.SyntheticInterval / time.Millisecond)
	}
	if f.SubscriberBuffer <= 0 {
		f.SubscriberBuffer = d.SubscriberBuffer
	}
	if f.PingIntervalMs <= 0 {
		f.PingIntervalMs = int(d.PingInterval / time.Millisecond)
	}
	if f.ReadTimeoutMs <= 0 {
		f.ReadTimeoutMs = 60000
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9108"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "bookpulse"
	}
	if cfg.Storage.Redis.MaxLen <= 0 {
		cfg.Storage.Redis.MaxLen = 10000
	}
	if cfg.Storage.Kafka.Topic == "" {
		cfg.Storage.Kafka.Topic = "bookpulse.signals"
	}
	if cfg.Publish.PerSecond <= 0 {
		cfg.Publish.PerSecond = 1
	}
	if cfg.Publish.Burst <= 0 {
		cfg.Publish.Burst = 1
	}
}

// applyEnv 环境变量覆盖 (可由 .env 提供)
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BOOKPULSE_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKPULSE_POSTGRES_DSN")); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKPULSE_REDIS_PASSWORD")); v != "" {
		cfg.Storage.Redis.Pass = v
	}
}

func validate(cfg *Config) error {
	cfg.Feed.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Feed.Symbol))
	cfg.Feed.Quote = strings.ToUpper(strings.TrimSpace(cfg.Feed.Quote))
	if cfg.Feed.Symbol == "" {
		return errors.New("feed.symbol is empty")
	}
	if cfg.Feed.MaxDelayMs < cfg.Feed.BaseDelayMs {
		return fmt.Errorf("feed.max_delay_ms (%d) < feed.base_delay_ms (%d)", cfg.Feed.MaxDelayMs, cfg.Feed.BaseDelayMs)
	}

	normalized := make(map[string]ExchangeConfig, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		name = strings.ToLower(strings.TrimSpace(name))
		ex.WsURL = strings.TrimSpace(ex.WsURL)
		if ex.Enabled && ex.WsURL == "" {
			return fmt.Errorf("exchanges.%s.ws_url empty but enabled", name)
		}
		normalized[name] = ex
	}
	cfg.Exchanges = normalized

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q invalid", cfg.Log.Level)
	}

	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	if cfg.Storage.Kafka.Enabled && len(cfg.Storage.Kafka.Brokers) == 0 {
		return errors.New("storage.kafka.brokers empty but enabled")
	}
	return nil
}

// GetEnabledExchanges 已启用的交易所，按名称排序
func (c *Config) GetEnabledExchanges() []string {
	out := make([]string, 0, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		if ex.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// PairSymbol 统一交易对，例: BTC + USDT -> BTCUSDT
func (c *Config) PairSymbol() string {
	if strings.HasSuffix(c.Feed.Symbol, c.Feed.Quote) {
		return c.Feed.Symbol
	}
	return c.Feed.Symbol + c.Feed.Quote
}

func (c *Config) Settings() Settings {
	return Settings{
		EnabledVenues: c.GetEnabledExchanges(),
		Symbol:        c.PairSymbol(),
		HistoryLength: c.Feed.HistoryLength,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) FeedOptions() feed.Options {
	f := c.Feed
	return feed.Options{
		HistoryLength:     f.HistoryLength,
		ConnectTimeout:    ms(f.ConnectTimeoutMs),
		BaseDelay:         ms(f.BaseDelayMs),
		MaxDelay:          ms(f.MaxDelayMs),
		MaxAttempts:       f.MaxAttempts,
		SyntheticInterval: ms(f.SyntheticIntervalMs),
		SubscriberBuffer:  f.SubscriberBuffer,
		PingInterval:      ms(f.PingIntervalMs),
		Now:               time.Now,
	}
}

func (c *Config) ReadTimeout() time.Duration   { return ms(c.Feed.ReadTimeoutMs) }
func (c *Config) AnalysisEvery() time.Duration { return ms(c.App.AnalysisEveryMs) }
