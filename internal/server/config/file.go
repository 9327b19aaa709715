package config

import (
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/configx"
	"github.com/dmitrijs2005/workoutlog/internal/flagx"
	"github.com/dmitrijs2005/workoutlog/internal/timex"
)

// fileConfig is the on-disk DTO. Durations use timex.Duration so files may
// carry "24h" as well as integer nanoseconds. Nil fields keep earlier values.
type fileConfig struct {
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	OpsAddr          *string         `json:"ops_addr" yaml:"ops_addr"`
	DatabaseDriver   *string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN      *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey        *string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL       *timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	MinSecretLength  *int            `json:"min_secret_length" yaml:"min_secret_length"`
	RedisAddr        *string         `json:"redis_addr" yaml:"redis_addr"`
	BackupInterval   *timex.Duration `json:"backup_interval" yaml:"backup_interval"`
	S3RootUser       *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region         *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel         *string         `json:"log_level" yaml:"log_level"`
	LogFormat        *string         `json:"log_format" yaml:"log_format"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	var fc fileConfig
	if err := configx.Load(path, &fc); err != nil {
		return err
	}

	setString(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&cfg.OpsAddr, fc.OpsAddr)
	setString(&cfg.DatabaseDriver, fc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setDuration(&cfg.SessionTTL, fc.SessionTTL)
	if fc.MinSecretLength != nil {
		cfg.MinSecretLength = *fc.MinSecretLength
	}
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setDuration(&cfg.BackupInterval, fc.BackupInterval)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = time.Duration(v.Duration)
	}
}
