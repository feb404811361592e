package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Timeline TimelineConfig `yaml:"timeline"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled bool   `yaml:"enabled"`
}

type TimelineConfig struct {
	PageLimit int  `yaml:"page_limit"`
	Strict    bool `yaml:"strict"`
}

type HTTPConfig struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	WatchDB        bool    `yaml:"watch_db"`
}

const (
	defaultPageLimit = 100
	defaultHTTPAddr  = "127.0.0.1:8008"
	defaultRPS       = 10
	defaultBurst     = 20
)

// Default returns the configuration used when nothing is set. The database
// path and cache directory stay empty so callers can fill in per-user
// locations.
func Default() Config {
	return Config{
		Cache:    CacheConfig{Enabled: true},
		Timeline: TimelineConfig{PageLimit: defaultPageLimit},
		HTTP: HTTPConfig{
			Addr:           defaultHTTPAddr,
			RateLimitRPS:   defaultRPS,
			RateLimitBurst: defaultBurst,
			WatchDB:        true,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if path is
// non-empty), then LIBRETTO_* environment variables. A .env file in the
// working directory is loaded first and never overrides the real environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("LIBRETTO_DB")); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("LIBRETTO_CACHE_DIR")); v != "" {
		c.Cache.Dir = v
	}
	c.Cache.Enabled = readBool("LIBRETTO_CACHE", c.Cache.Enabled)
	c.Timeline.PageLimit = readInt("LIBRETTO_PAGE_LIMIT", c.Timeline.PageLimit)
	c.Timeline.Strict = readBool("LIBRETTO_STRICT", c.Timeline.Strict)
	if v := strings.TrimSpace(os.Getenv("LIBRETTO_HTTP_ADDR")); v != "" {
		c.HTTP.Addr = v
	}
	c.HTTP.RateLimitRPS = readFloat("LIBRETTO_RATE_RPS", c.HTTP.RateLimitRPS)
	c.HTTP.RateLimitBurst = readInt("LIBRETTO_RATE_BURST", c.HTTP.RateLimitBurst)
	c.HTTP.WatchDB = readBool("LIBRETTO_WATCH", c.HTTP.WatchDB)
}

func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Cache.Dir = strings.TrimSpace(c.Cache.Dir)
	if c.Timeline.PageLimit <= 0 {
		c.Timeline.PageLimit = defaultPageLimit
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = defaultBurst
	}
	if c.HTTP.RateLimitRPS < 0 {
		c.HTTP.RateLimitRPS = 0
	}
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func readFloat(name string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func readBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

type Summary struct {
	Database  string  `json:"database"`
	CacheDir  string  `json:"cache_dir,omitempty"`
	PageLimit int     `json:"page_limit"`
	Strict    bool    `json:"strict"`
	HTTPAddr  string  `json:"http_addr"`
	RateRPS   float64 `json:"rate_rps"`
	RateBurst int     `json:"rate_burst"`
	Watch     bool    `json:"watch"`
}

func (c Config) Summary() Summary {
	s := Summary{
		Database:  c.Database.Path,
		PageLimit: c.Timeline.PageLimit,
		Strict:    c.Timeline.Strict,
		HTTPAddr:  c.HTTP.Addr,
		RateRPS:   c.HTTP.RateLimitRPS,
		RateBurst: c.HTTP.RateLimitBurst,
		Watch:     c.HTTP.WatchDB,
	}
	if c.Cache.Enabled {
		s.CacheDir = c.Cache.Dir
	}
	return s
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}
