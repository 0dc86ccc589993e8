package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the YAML file shape. Zero values mean "unset"; defaults are
// applied by the accessors below so env/flag merging stays simple.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Chat struct {
		// PopulateDepth bounds reply-tree expansion on reads and on the
		// broadcast payload. 0 means the default (3).
		PopulateDepth int `yaml:"populate_depth"`
		// MaxBodyLen rejects oversized submissions; 0 disables the check.
		MaxBodyLen int `yaml:"max_body_len"`
		// DefaultAuthor replaces an empty author on submit.
		DefaultAuthor string `yaml:"default_author"`
	} `yaml:"chat"`
	Hub struct {
		// SendBuffer is the per-session outbound queue; a session whose
		// queue fills is dropped rather than allowed to block fanout.
		SendBuffer   int `yaml:"send_buffer"`
		PingInterval int `yaml:"ping_interval_seconds"`
	} `yaml:"hub"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Janitor struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"janitor"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	if c.Server.Address == "" && c.Server.Port == 0 {
		return ""
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", c.Server.Address, port)
}

// PopulateDepth returns the configured reply-tree depth or the default.
func (c *Config) PopulateDepth() int {
	if c.Chat.PopulateDepth > 0 {
		return c.Chat.PopulateDepth
	}
	return 3
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// ResolveConfigPath picks the config path: an explicit flag wins, then the
// THREADCHAT_CONFIG env var, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("THREADCHAT_CONFIG"); v != "" {
		return v
	}
	return flagVal
}

func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
