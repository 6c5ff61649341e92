/*
Package backup replicates committed registry snapshots to S3-compatible object
storage. Replication is strictly best-effort: the local snapshot on disk is
the durable source of truth, and an unreachable bucket never blocks or fails a
flush.
*/
package backup

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"secretsanta/internal/pkg/logx"
)

// keyPrefix namespaces snapshot objects inside the bucket.
const keyPrefix = "snapshots/"

// Config holds the settings required to reach the bucket.
type Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Replicator implements persist.Replicator against an S3-compatible endpoint.
type S3Replicator struct {
	cfg      Config
	uploader *manager.Uploader
}

// NewS3Replicator initializes the S3 client using a custom configuration that
// supports S3-compatible endpoints (path-style addressing, static credentials).
func NewS3Replicator(cfg Config) (*S3Replicator, error) {
	if cfg.BucketName == "" || cfg.Endpoint == "" {
		return nil, errors.New("backup: bucket name and endpoint are required")
	}

	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config for snapshot replication")
		return nil, errors.New("backup: failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Replicator{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
	}, nil
}

// Replicate uploads one committed snapshot under a stable key, overwriting the
// previous replica.
func (c *S3Replicator) Replicate(ctx context.Context, name string, data []byte) error {
	key := keyPrefix + name
	contentType := "application/json"

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &c.cfg.BucketName,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		logx.Error(err, "Snapshot replication upload failed", "key", key)
		return errors.New("backup: failed to upload snapshot replica")
	}

	return nil
}
