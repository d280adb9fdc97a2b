package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"osm-route-server/overpass"
)

// Config holds the application configuration
type Config struct {
	Port      string         `toml:"port"`
	AdminPort string         `toml:"admin_port"`
	LogLevel  string         `toml:"log_level"`
	LogFormat string         `toml:"log_format"`
	Overpass  OverpassConfig `toml:"overpass"`
	Graph     GraphConfig    `toml:"graph"`
	CORS      CORSConfig     `toml:"cors"`
}

type OverpassConfig struct {
	URL                string `toml:"url"`
	UserAgent          string `toml:"user_agent"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	RetryWindowSeconds int    `toml:"retry_window_seconds"`
	// OfflineFile, when set, replaces the Overpass API with a local extract.
	OfflineFile string `toml:"offline_file"`
}

func (o OverpassConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o OverpassConfig) RetryWindow() time.Duration {
	return time.Duration(o.RetryWindowSeconds) * time.Second
}

type GraphConfig struct {
	CacheSize    int  `toml:"cache_size"`
	VerifyOnLoad bool `toml:"verify_on_load"`
}

type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

func Default() Config {
	return Config{
		Port:      ":8080",
		AdminPort: ":8081",
		LogLevel:  "info",
		LogFormat: "json",
		Overpass: OverpassConfig{
			URL:                overpass.DEFAULT_ENDPOINT,
			UserAgent:          overpass.DEFAULT_USER_AGENT,
			TimeoutSeconds:     int(overpass.DEFAULT_TIMEOUT / time.Second),
			RetryWindowSeconds: int(overpass.DEFAULT_RETRY_WINDOW / time.Second),
		},
		Graph: GraphConfig{
			CacheSize:    16,
			VerifyOnLoad: true,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path and the environment, in that order. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.Port = normalizePort(cfg.Port)
	cfg.AdminPort = normalizePort(cfg.AdminPort)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.AdminPort, "ADMIN_PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Overpass.URL, "OVERPASS_URL")
	setString(&c.Overpass.OfflineFile, "OVERPASS_OFFLINE_FILE")

	if v := os.Getenv("GRAPH_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPH_CACHE_SIZE: %w", err)
		}
		c.Graph.CacheSize = n
	}
	if v := os.Getenv("GRAPH_VERIFY_ON_LOAD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPH_VERIFY_ON_LOAD: %w", err)
		}
		c.Graph.VerifyOnLoad = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// normalizePort accepts "8080" as well as ":8080" and "host:8080".
func normalizePort(p string) string {
	if p != "" && !strings.Contains(p, ":") {
		return ":" + p
	}
	return p
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.AdminPort != "" && c.AdminPort == c.Port {
		errs = append(errs, errors.New("admin_port must differ from port"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	if c.Overpass.OfflineFile == "" && c.Overpass.URL == "" {
		errs = append(errs, errors.New("overpass.url is required unless overpass.offline_file is set"))
	}
	if c.Overpass.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("overpass.timeout_seconds must be positive"))
	}
	if c.Overpass.RetryWindowSeconds < 0 {
		errs = append(errs, errors.New("overpass.retry_window_seconds must not be negative"))
	}
	if c.Graph.CacheSize <= 0 {
		errs = append(errs, errors.New("graph.cache_size must be positive"))
	}
	return errors.Join(errs...)
}
