package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goliatone/go-press/pkg/interfaces"
)

// S3Config addresses an S3 compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
	// PublicURL is the base for object URLs. Defaults to Endpoint/Bucket.
	PublicURL string
}

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage uploads blobs to an S3 bucket.
type S3Storage struct {
	client    S3API
	bucket    string
	publicURL string
	keys      keyer
}

var _ interfaces.FileStorage = (*S3Storage)(nil)

// NewS3Client builds a client for cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("files: load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// NewS3Storage wraps client. Use NewS3Client for a configured client.
func NewS3Storage(client S3API, cfg S3Config, opts ...Option) (*S3Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("files: s3 client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("files: s3 bucket is required")
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = defaultS3URL(cfg)
	}
	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		keys:      newKeyer(opts),
	}, nil
}

func defaultS3URL(cfg S3Config) string {
	if cfg.Endpoint != "" {
		return joinURL(cfg.Endpoint, cfg.Bucket)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func (s *S3Storage) Put(ctx context.Context, upload interfaces.FileUpload) (interfaces.FileRef, error) {
	if upload.Body == nil {
		return interfaces.FileRef{}, ErrBodyRequired
	}

	// Request signing needs a seekable body of known length.
	body, size, err := seekable(upload)
	if err != nil {
		return interfaces.FileRef{}, err
	}

	key := s.keys.newKey(upload)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if upload.ContentType != "" {
		input.ContentType = aws.String(upload.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.keys.logger.Error("files.put.failed", "backend", "s3", "key", key, "error", err)
		return interfaces.FileRef{}, fmt.Errorf("files: put %s: %w", key, err)
	}

	s.keys.logger.Info("files.put.success", "backend", "s3", "key", key, "size", size)
	return interfaces.FileRef{
		Key:         key,
		URL:         s.URL(key),
		ContentType: upload.ContentType,
		Size:        size,
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("files: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) URL(key string) string {
	return joinURL(s.publicURL, key)
}

func seekable(upload interfaces.FileUpload) (io.ReadSeeker, int64, error) {
	if rs, ok := upload.Body.(io.ReadSeeker); ok && upload.Size > 0 {
		return rs, upload.Size, nil
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("files: read upload: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
