// Package config loads the bridge's configuration: built-in defaults, then
// a YAML file, then environment variables (highest precedence), mirroring
// the teacher's internal/config/config.go + internal/browser/config.go
// resolve-with-defaults pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk/environment shape (yaml tags mirror the teacher's
// config.go style).
type Config struct {
	RelayAddr      string `yaml:"relayAddr"`
	DataDir        string `yaml:"dataDir"`
	ExecutablePath string `yaml:"executablePath"`
	Headless       bool   `yaml:"headless"`
	ProfilesDir    string `yaml:"profilesDir"`
	LogLevel       string `yaml:"logLevel"`
}

// ResolvedConfig is Config with every default applied — the only shape the
// rest of the program should see (spec.md never specifies a partial
// config type; all consumers use this one).
type ResolvedConfig struct {
	RelayAddr      string
	DataDir        string
	ExecutablePath string
	Headless       bool
	ProfilesDir    string
	LogLevel       string
}

const (
	defaultRelayAddr = "127.0.0.1:9223"
	defaultLogLevel  = "info"
)

// Load reads defaults, then a YAML file at path (if it exists), then
// environment variables (PROMPTHUB_*, loaded from .env via godotenv if
// present), and returns the fully resolved config.
func Load(path string) (*ResolvedConfig, error) {
	_ = godotenv.Load()

	cfg := Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// no config file is not an error; defaults + env still apply.
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return resolve(cfg), nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("PROMPTHUB_RELAY_ADDR"); v != "" {
		c.RelayAddr = v
	}
	if v := os.Getenv("PROMPTHUB_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PROMPTHUB_CHROME_PATH"); v != "" {
		c.ExecutablePath = v
	}
	if v := os.Getenv("PROMPTHUB_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}
	if v := os.Getenv("PROMPTHUB_PROFILES_DIR"); v != "" {
		c.ProfilesDir = v
	}
	if v := os.Getenv("PROMPTHUB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func resolve(c Config) *ResolvedConfig {
	r := &ResolvedConfig{
		RelayAddr:      c.RelayAddr,
		DataDir:        c.DataDir,
		ExecutablePath: c.ExecutablePath,
		Headless:       c.Headless,
		ProfilesDir:    c.ProfilesDir,
		LogLevel:       c.LogLevel,
	}

	if r.RelayAddr == "" {
		r.RelayAddr = defaultRelayAddr
	}
	if r.LogLevel == "" {
		r.LogLevel = defaultLogLevel
	}
	if r.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			r.DataDir = filepath.Join(dir, "prompthub-bridge")
		}
	}
	if r.ProfilesDir == "" {
		r.ProfilesDir = filepath.Join(r.DataDir, "profiles")
	}

	return r
}
