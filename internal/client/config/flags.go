package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/workoutlog/internal/flagx"
)

// parseFlags populates Config fields from command-line flags:
//
//	-a string     address and port of the backend server
//	-t duration   request timeout
//	-zero-load    accept sets with a load of 0
//	-log-level    debug, info, warn or error
//	-log-format   text or json
//
// Args are filtered with flagx.FilterArgs first so the config file flag does
// not trip the parser.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-zero-load", "-log-level", "-log-format"})

	fs := flag.NewFlagSet("workoutlog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.BoolVar(&cfg.AllowZeroLoad, "zero-load", cfg.AllowZeroLoad, "accept sets with a load of 0")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")

	return fs.Parse(args)
}
