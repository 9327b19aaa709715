package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the workoutlog CLI.
type Config struct {
	ServerEndpointAddr string
	// RequestTimeout bounds every unary call to the backend.
	RequestTimeout time.Duration
	// AllowZeroLoad accepts sets with a load of 0 (bodyweight exercises).
	AllowZeroLoad bool
	LogLevel      string
	LogFormat     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.AllowZeroLoad = false
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the optional config file named by -c or
// -config, then command-line flags. Later sources take precedence.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
