package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	srvconfig "github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDumper struct {
	nodes []models.Node
	err   error
}

func (f *fakeDumper) Dump(context.Context) ([]models.Node, error) { return f.nodes, f.err }

type fakePutter struct {
	mu          sync.Mutex
	bucket, key string
	body        []byte
	err         error
	calls       int
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakePutter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBackupService_Backup(t *testing.T) {
	dumper := &fakeDumper{nodes: []models.Node{
		{Path: "treinos/u1/k1/data", Value: `"2024-05-01"`},
		{Path: "usuarios/u1/aprovado", Value: `true`},
	}}
	putter := &fakePutter{}
	s := NewBackupService(dumper, putter, "bucket", nil, logging.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	key, err := s.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bucket", putter.bucket)
	assert.Equal(t, key, putter.key)
	assert.Regexp(t, regexp.MustCompile(`^backups/2024/05/01/[0-9a-f-]{36}\.json$`), key)

	var doc backupDocument
	require.NoError(t, json.Unmarshal(putter.body, &doc))
	assert.True(t, doc.TakenAt.Equal(s.now()))
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "usuarios/u1/aprovado", doc.Nodes[1].Path)
	assert.JSONEq(t, `true`, string(doc.Nodes[1].Value))
}

func TestBackupService_Errors(t *testing.T) {
	s := NewBackupService(&fakeDumper{err: errors.New("db down")}, &fakePutter{}, "bucket", nil, logging.Nop())
	_, err := s.Backup(context.Background())
	assert.ErrorContains(t, err, "db down")

	putter := &fakePutter{err: errors.New("access denied")}
	s = NewBackupService(&fakeDumper{}, putter, "bucket", nil, logging.Nop())
	_, err = s.Backup(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.Equal(t, 1, putter.calls)
}

func TestBackupService_RunStopsWithContext(t *testing.T) {
	putter := &fakePutter{}
	s := NewBackupService(&fakeDumper{}, putter, "bucket", nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return putter.callCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNewS3Client(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var opts s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	cfg := &srvconfig.Config{S3Region: "us-east-1", S3RootUser: "minio", S3RootPassword: "minio123", S3BaseEndpoint: "http://localhost:9000"}
	c, err := NewS3Client(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Client(context.Background(), cfg)
	assert.EqualError(t, err, "no config")
}
