package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Backupper writes a consistent copy of the database into a directory
type Backupper interface {
	Backup(ctx context.Context, dir string) (string, error)
}

// ObjectUploader is the part of the S3 client used to mirror backups
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BackupResult describes a finished backup
type BackupResult struct {
	Path  string `json:"path"`
	S3Key string `json:"s3Key,omitempty"`
}

// BackupService snapshots the database and optionally mirrors the snapshot to S3
type BackupService struct {
	db       Backupper
	dir      string
	uploader ObjectUploader
	bucket   string
	prefix   string
}

// NewBackupService creates a new backup service. uploader may be nil to keep backups local only.
func NewBackupService(db Backupper, dir string, uploader ObjectUploader, bucket, prefix string) *BackupService {
	return &BackupService{
		db:       db,
		dir:      dir,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// NewS3Client builds an S3 client for an AWS or S3-compatible endpoint
func NewS3Client(ctx context.Context, region, endpoint, accessKey, secretKey string) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Run writes a new backup file and mirrors it when an uploader is configured
func (s *BackupService) Run(ctx context.Context) (*BackupResult, error) {
	file, err := s.db.Backup(ctx, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	result := &BackupResult{Path: file}
	log.Info().Str("path", file).Msg("Database backup written")

	if s.uploader == nil || s.bucket == "" {
		return result, nil
	}

	key := path.Join(s.prefix, filepath.Base(file))
	if err := s.upload(ctx, file, key); err != nil {
		return nil, err
	}
	result.S3Key = key

	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("Database backup mirrored")
	return result, nil
}

func (s *BackupService) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}
