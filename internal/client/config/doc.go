// Package config loads runtime configuration for the workoutlog CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the backend gRPC endpoint
//	-t duration   request timeout (e.g. 5s)
//	-zero-load    accept sets with a load of 0
//	-log-level    debug | info | warn | error
//	-log-format   text | json
//
// # File schema
//
// Durations may be strings like "5s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "5s",
//	  "allow_zero_load": false,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
