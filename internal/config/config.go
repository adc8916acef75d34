package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Gamma   GammaConfig   `mapstructure:"gamma"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Output            string `mapstructure:"output"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Ingest  string `mapstructure:"ingest"`
}

type GammaConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type IngestConfig struct {
	Limit      int      `mapstructure:"limit"`
	ActiveOnly bool     `mapstructure:"active_only"`
	Keywords   []string `mapstructure:"keywords"`
}

type MonitorConfig struct {
	FreshWithin          time.Duration `mapstructure:"fresh_within"`
	StaleWithin          time.Duration `mapstructure:"stale_within"`
	SuccessRateThreshold float64       `mapstructure:"success_rate_threshold"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "data/markets.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.ingest", "@every 15m")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("gamma.max_retries", 3)
	v.SetDefault("gamma.retry_backoff", "1s")
	v.SetDefault("ingest.limit", 100)
	v.SetDefault("ingest.active_only", true)
	v.SetDefault("ingest.keywords", []string{
		"bitcoin", "btc", "ethereum", "eth", "crypto",
		"solana", "sol", "dogecoin", "doge", "xrp", "ripple",
		"cardano", "ada", "polygon", "matic", "arbitrum",
	})
	v.SetDefault("monitor.fresh_within", "20m")
	v.SetDefault("monitor.stale_within", "1h")
	v.SetDefault("monitor.success_rate_threshold", 80)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configuration that would leave the pipeline unable to run.
// These are the only errors allowed to halt the process.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db driver %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("config: db dsn is empty")
	}
	if strings.TrimSpace(c.Gamma.BaseURL) == "" {
		return fmt.Errorf("config: gamma base_url is empty")
	}
	if c.Gamma.Timeout <= 0 {
		return fmt.Errorf("config: gamma timeout must be positive, got %s", c.Gamma.Timeout)
	}
	if c.Gamma.MaxRetries < 1 {
		return fmt.Errorf("config: gamma max_retries must be at least 1, got %d", c.Gamma.MaxRetries)
	}
	if c.Ingest.Limit <= 0 {
		return fmt.Errorf("config: ingest limit must be positive, got %d", c.Ingest.Limit)
	}
	if len(c.Ingest.Keywords) == 0 {
		return fmt.Errorf("config: ingest keywords is empty")
	}
	if strings.TrimSpace(c.Cron.Ingest) == "" {
		return fmt.Errorf("config: cron ingest schedule is empty")
	}
	if c.Monitor.FreshWithin <= 0 || c.Monitor.StaleWithin <= c.Monitor.FreshWithin {
		return fmt.Errorf("config: monitor windows must satisfy 0 < fresh_within < stale_within")
	}
	return nil
}
