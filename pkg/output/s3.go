package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
)

// DefaultUploadTimeout bounds a single PutObject call
const DefaultUploadTimeout = 30 * time.Second

// S3Config holds the connection settings for an S3-compatible object store
type S3Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string // empty uses the AWS endpoint for Region
	Region    string
	Bucket    string
	Prefix    string // prepended to every object key
}

// Enabled reports whether enough is configured to upload
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// S3Publisher uploads encoded renders to a bucket
type S3Publisher struct {
	client  s3iface.S3API
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewS3Publisher opens a session against the configured store
func NewS3Publisher(cfg S3Config, logger *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required: %w", core.ErrInvalidConfig)
	}

	awsConfig := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3PublisherWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3PublisherWithClient wraps an existing client
func NewS3PublisherWithClient(client s3iface.S3API, bucket, prefix string, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: DefaultUploadTimeout,
		logger:  core.LoggerOr(logger),
	}
}

// Key returns the object key name is stored under
func (p *S3Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads data under name and returns the full object key
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if name == "" {
		return "", errors.New("object name is required")
	}
	key := p.Key(name)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}

	p.logger.Info("published render", "bucket", p.bucket, "key", key,
		"bytes", len(data), "elapsed", time.Since(start))
	return key, nil
}
