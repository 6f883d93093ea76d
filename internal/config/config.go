package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultUpstreamURL = "http://127.0.0.1:11434/api/chat"
	DefaultModel       = "llama3"
	DefaultTimeout     = 20 * time.Second
	DefaultTemperature = 0.2
	DefaultNumPredict  = 50
)

// Environment variables consulted after the config file is applied.
const (
	EnvUpstreamURL = "OLLAMA_URL"
	EnvModel       = "OLLAMA_MODEL"
	EnvHost        = "RELAY_HOST"
	EnvPort        = "RELAY_PORT"
	EnvLogLevel    = "RELAY_LOG_LEVEL"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Prompt   PromptConfig   `yaml:"prompt"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UpstreamConfig describes the chat endpoint gloss is relayed to.
type UpstreamConfig struct {
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	NumPredict  int           `yaml:"num_predict"`
}

// PromptConfig optionally replaces the built-in system prompt.
type PromptConfig struct {
	SystemFile string `yaml:"system_file"`
}

// CORSConfig controls cross-origin access. The defaults are wide open and
// only suitable for local demos.
type CORSConfig struct {
	AllowOrigins     []string `yaml:"allow_origins"`
	AllowMethods     []string `yaml:"allow_methods"`
	AllowHeaders     []string `yaml:"allow_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Upstream: UpstreamConfig{
			URL:         DefaultUpstreamURL,
			Model:       DefaultModel,
			Timeout:     DefaultTimeout,
			Temperature: DefaultTemperature,
			NumPredict:  DefaultNumPredict,
		},
		CORS: CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowCredentials: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads YAML configuration from disk on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvUpstreamURL); ok && strings.TrimSpace(v) != "" {
		c.Upstream.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvModel); ok && strings.TrimSpace(v) != "" {
		c.Upstream.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHost); ok && strings.TrimSpace(v) != "" {
		c.Server.Host = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
	return nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if err := validateUpstream(c.Upstream); err != nil {
		return err
	}

	for _, origin := range c.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors.allow_origins must not contain empty entries")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	return nil
}

func validateUpstream(up UpstreamConfig) error {
	if strings.TrimSpace(up.URL) == "" {
		return fmt.Errorf("upstream.url must be provided")
	}
	parsed, err := url.Parse(up.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("upstream.url %q must be an absolute http(s) URL", up.URL)
	}
	if strings.TrimSpace(up.Model) == "" {
		return fmt.Errorf("upstream.model must be provided")
	}
	if up.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", up.Timeout)
	}
	if up.NumPredict < 0 {
		return fmt.Errorf("upstream.num_predict must not be negative, got %d", up.NumPredict)
	}
	return nil
}

// Address returns the host:port pair the server listens on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
