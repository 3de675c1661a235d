package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/dex-client/pkg/client"
	"github.com/Sternrassler/dex-client/pkg/logging"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPath is read when Load is given an empty path.
const DefaultPath = "dex-proxy.toml"

const (
	defaultPort      = "8080"
	defaultUserAgent = "dex-proxy/1.0 (+https://github.com/Sternrassler/dex-client)"
)

// Config captures everything the proxy needs to start.
type Config struct {
	Port      string
	LogLevel  logging.LogLevel
	LogPretty bool
	RedisURL  string
	RedisTTL  time.Duration
	Catalog   client.Config
}

type rawConfig struct {
	Port     string `toml:"port"`
	RedisURL string `toml:"redis_url"`
	RedisTTL string `toml:"redis_ttl"`
	Log      struct {
		Level  string `toml:"level"`
		Pretty *bool  `toml:"pretty"`
	} `toml:"log"`
	Catalog struct {
		BaseURL        string `toml:"base_url"`
		UserAgent      string `toml:"user_agent"`
		Timeout        string `toml:"timeout"`
		CacheTTL       string `toml:"cache_ttl"`
		MinInterval    string `toml:"min_interval"`
		MaxRetries     *int   `toml:"max_retries"`
		InitialBackoff string `toml:"initial_backoff"`
		MaxConcurrency *int   `toml:"max_concurrency"`
		CorpusPageSize *int   `toml:"corpus_page_size"`
		SearchLimit    *int   `toml:"search_limit"`
		DomainSize     *int   `toml:"domain_size"`
	} `toml:"catalog"`
}

// Default returns the configuration used when no file or environment is present.
func Default() Config {
	return Config{
		Port:     defaultPort,
		LogLevel: logging.LevelInfo,
		Catalog:  client.DefaultConfig(defaultUserAgent),
	}
}

// Load reads path (DefaultPath when empty), falling back to defaults when the
// file is missing, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.apply(data); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.Port, raw.Port)
	setString(&c.RedisURL, raw.RedisURL)
	if err := setLevel(&c.LogLevel, raw.Log.Level); err != nil {
		return err
	}
	if raw.Log.Pretty != nil {
		c.LogPretty = *raw.Log.Pretty
	}

	cat := &c.Catalog
	setString(&cat.BaseURL, raw.Catalog.BaseURL)
	setString(&cat.UserAgent, raw.Catalog.UserAgent)
	setInt(&cat.MaxRetries, raw.Catalog.MaxRetries)
	setInt(&cat.MaxConcurrency, raw.Catalog.MaxConcurrency)
	setInt(&cat.CorpusPageSize, raw.Catalog.CorpusPageSize)
	setInt(&cat.SearchLimit, raw.Catalog.SearchLimit)
	setInt(&cat.DomainSize, raw.Catalog.DomainSize)

	for _, d := range []struct {
		name string
		raw  string
		dest *time.Duration
	}{
		{"redis_ttl", raw.RedisTTL, &c.RedisTTL},
		{"catalog.timeout", raw.Catalog.Timeout, &cat.Timeout},
		{"catalog.cache_ttl", raw.Catalog.CacheTTL, &cat.CacheTTL},
		{"catalog.min_interval", raw.Catalog.MinInterval, &cat.MinInterval},
		{"catalog.initial_backoff", raw.Catalog.InitialBackoff, &cat.InitialBackoff},
	} {
		if err := setDuration(d.dest, d.name, d.raw); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.Catalog.BaseURL, getenv("DEX_BASE_URL"))
	setString(&c.Catalog.UserAgent, getenv("DEX_USER_AGENT"))
	setString(&c.RedisURL, getenv("REDIS_URL"))
	setString(&c.Port, getenv("PORT"))
	if err := setLevel(&c.LogLevel, getenv("LOG_LEVEL")); err != nil {
		return err
	}
	if pretty := strings.TrimSpace(getenv("LOG_PRETTY")); pretty != "" {
		v, err := strconv.ParseBool(pretty)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.LogPretty = v
	}
	return nil
}

// Validate checks the proxy settings and the catalog client settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric (got %q)", c.Port)
	}
	if _, err := logging.ParseLevel(string(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.RedisTTL < 0 {
		return fmt.Errorf("redis_ttl must be >= 0 (got %s)", c.RedisTTL)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

func setString(dest *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dest = v
	}
}

// setLevel stores the normalized form so logging.Setup sees a canonical name.
func setLevel(dest *logging.LogLevel, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	level, err := logging.ParseLevel(v)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	*dest = level
	return nil
}

func setInt(dest *int, v *int) {
	if v != nil {
		*dest = *v
	}
}

func setDuration(dest *time.Duration, name, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dest = d
	return nil
}
