package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk server configuration. Every field can be overridden
// by a ROLLOUTDB_* environment variable; explicit flags win over both.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	Batch struct {
		// Size is the exact sequence count of every formed batch, fixed at
		// server configuration time.
		Size int `yaml:"size"`
	} `yaml:"batch"`
	Journal struct {
		Enabled bool   `yaml:"enabled"`
		DBPath  string `yaml:"db_path"`
	} `yaml:"journal"`
	Expiry struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		MaxAge  string `yaml:"max_age"`
	} `yaml:"expiry"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Default returns a config with usable defaults for everything except the
// batch size, which deployments must set.
func Default() *Config {
	c := &Config{}
	c.Server.Address = "0.0.0.0"
	c.Server.Port = 8080
	c.Expiry.Cron = "*/5 * * * *"
	c.Expiry.MaxAge = "30m"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	return c
}

// Load reads the yaml file at path (when non-empty) over defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ROLLOUTDB_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("ROLLOUTDB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("ROLLOUTDB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Batch.Size = n
		}
	}
	if v := os.Getenv("ROLLOUTDB_JOURNAL_PATH"); v != "" {
		c.Journal.Enabled = true
		c.Journal.DBPath = v
	}
	if v := os.Getenv("ROLLOUTDB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ROLLOUTDB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch.size must be > 0, got %d", c.Batch.Size)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Expiry.Enabled {
		if _, err := c.ExpiryMaxAge(); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// ExpiryMaxAge parses the configured partial-buffer max age.
func (c *Config) ExpiryMaxAge() (time.Duration, error) {
	d, err := time.ParseDuration(c.Expiry.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("expiry.max_age: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry.max_age must be positive, got %s", c.Expiry.MaxAge)
	}
	return d, nil
}

// ParseCommandFlags centralizes server flag parsing. It returns the flag
// values together with a map recording which flags were set explicitly so
// callers can apply flags-win-over-config precedence.
func ParseCommandFlags() (addr string, batchSize int, cfgPath string, set map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port), overrides config")
	batchFlag := flag.Int("batch-size", 0, "batch size in sequences, overrides config")
	cfgFlag := flag.String("config", "", "path to yaml config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *batchFlag, *cfgFlag, set
}

// ResolveConfigPath prefers an explicit --config flag, then the
// ROLLOUTDB_CONFIG environment variable.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	return os.Getenv("ROLLOUTDB_CONFIG")
}
