package config

import (
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/configx"
	"github.com/dmitrijs2005/workoutlog/internal/flagx"
	"github.com/dmitrijs2005/workoutlog/internal/timex"
)

// fileConfig is the on-disk shape. Pointer fields tell "absent" apart from
// zero values so a partial file only overrides what it names.
type fileConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	RequestTimeout     *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	AllowZeroLoad      *bool           `json:"allow_zero_load" yaml:"allow_zero_load"`
	LogLevel           *string         `json:"log_level" yaml:"log_level"`
	LogFormat          *string         `json:"log_format" yaml:"log_format"`
}

// parseFile overlays cfg with the file named by -c / -config, if any.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	var fc fileConfig
	if err := configx.Load(path, &fc); err != nil {
		return err
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeout.Duration)
	}
	if fc.AllowZeroLoad != nil {
		cfg.AllowZeroLoad = *fc.AllowZeroLoad
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	return nil
}
