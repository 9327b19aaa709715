package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	srvconfig "github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/metrics"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the subset of the S3 client used for backups.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Dumper yields every stored leaf.
type Dumper interface {
	Dump(ctx context.Context) ([]models.Node, error)
}

type backupNode struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type backupDocument struct {
	TakenAt time.Time    `json:"taken_at"`
	Nodes   []backupNode `json:"nodes"`
}

// BackupService uploads JSON snapshots of the data store to an
// S3-compatible bucket.
type BackupService struct {
	store   Dumper
	putter  ObjectPutter
	bucket  string
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

func NewBackupService(store Dumper, putter ObjectPutter, bucket string, mt *metrics.Metrics, logger logging.Logger) *BackupService {
	return &BackupService{
		store:   store,
		putter:  putter,
		bucket:  bucket,
		metrics: mt,
		logger:  logger.With("module", "backup_service"),
		now:     time.Now,
	}
}

// NewS3Client builds a client for the configured endpoint. Path-style
// addressing keeps MinIO-like endpoints working.
func NewS3Client(ctx context.Context, cfg *srvconfig.Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func backupKey(t time.Time) string {
	return fmt.Sprintf("backups/%04d/%02d/%02d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Backup uploads one snapshot and returns its object key.
func (s *BackupService) Backup(ctx context.Context) (string, error) {
	key, err := s.backup(ctx)
	if s.metrics != nil {
		s.metrics.Backup(err, s.now())
	}
	return key, err
}

func (s *BackupService) backup(ctx context.Context) (string, error) {
	nodes, err := s.store.Dump(ctx)
	if err != nil {
		return "", fmt.Errorf("dump: %w", err)
	}

	doc := backupDocument{TakenAt: s.now().UTC(), Nodes: make([]backupNode, 0, len(nodes))}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, backupNode{Path: n.Path, Value: json.RawMessage(n.Value)})
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	key := backupKey(doc.TakenAt)
	_, err = s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info(ctx, "backup uploaded", "key", key, "nodes", len(nodes))
	return key, nil
}

// Run takes a backup every interval until ctx is done.
func (s *BackupService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error(ctx, "backup failed", "error", err)
			}
		}
	}
}
