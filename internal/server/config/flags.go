package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/workoutlog/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
//	-a string        gRPC bind address (e.g., ":50051")
//	-o string        ops HTTP bind address
//	-driver string   sqlite | postgres
//	-d string        database DSN
//	-s string        JWT HMAC secret key
//	-ttl duration    session lifetime
//	-min-secret int  minimum secret length
//	-redis string    Redis address for the change feed
//	-backup duration backup interval, 0 disables backups
//	-u, -p           S3 root user and password
//	-b, -g, -e       S3 bucket, region and base endpoint
//	-log-level, -log-format
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-o", "-driver", "-d", "-s", "-ttl", "-min-secret", "-redis", "-backup",
		"-u", "-p", "-b", "-g", "-e", "-log-level", "-log-format",
	})

	fs := flag.NewFlagSet("workoutlog-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.OpsAddr, "o", cfg.OpsAddr, "address of the metrics and health endpoint")
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.SessionTTL, "ttl", cfg.SessionTTL, "session lifetime")
	fs.IntVar(&cfg.MinSecretLength, "min-secret", cfg.MinSecretLength, "minimum secret length")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address for the change feed")
	fs.DurationVar(&cfg.BackupInterval, "backup", cfg.BackupInterval, "backup interval")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text or json)")

	return fs.Parse(args)
}
