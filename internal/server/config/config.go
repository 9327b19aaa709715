// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the workoutlog backend.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - OpsAddr: bind address for /metrics and /healthz; empty disables it.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (modernc) or "postgres" (pgx).
//   - SecretKey: HMAC secret for signing session tokens (HS256). Do not use test defaults in prod.
//   - SessionTTL: lifetime of a session and its token.
//   - MinSecretLength: shorter secrets are rejected as weak.
//   - RedisAddr: when set, write notifications are fanned out through Redis.
//   - BackupInterval: period of S3 backups; 0 disables them.
//   - S3*: object storage settings for backups.
type Config struct {
	EndpointAddrGRPC string
	OpsAddr          string
	DatabaseDriver   string
	DatabaseDSN      string
	SecretKey        string
	SessionTTL       time.Duration
	MinSecretLength  int
	RedisAddr        string
	BackupInterval   time.Duration
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
	LogLevel         string
	LogFormat        string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.OpsAddr = ":9090"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:workoutlog.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	c.SecretKey = "secretKey"
	c.SessionTTL = 24 * time.Hour
	c.MinSecretLength = 6
	c.RedisAddr = ""
	c.BackupInterval = 0
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "workoutlog-backups"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
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
