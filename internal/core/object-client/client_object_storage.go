package objectclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/core"
)

var _ core.ObjectClient = (*S3Client)(nil)

// maxObjectBytes caps GetFile so a stray object cannot exhaust memory.
const maxObjectBytes = 512 << 20

type S3Client struct {
	client *s3.Client
	region string
	logger *slog.Logger
}

// NewS3Client builds a client from static credentials in cfg. It does not
// contact S3; the first request does.
func NewS3Client(ctx context.Context, cfg *cfg.Config, logger *slog.Logger) (*S3Client, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, &core.ConfigurationError{Field: "AWS_ACCESS_KEY", Reason: "and AWS_SECRET_KEY must be set"}
	}
	if cfg.AwsRegion == "" {
		return nil, &core.ConfigurationError{Field: "AWS_REGION", Reason: "is not set"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := newS3Client(s3.NewFromConfig(awsCfg), cfg.AwsRegion, logger)
	logger.Info("object storage configured", "region", cfg.AwsRegion, "bucket", cfg.BucketName)
	return c, nil
}

func newS3Client(client *s3.Client, region string, logger *slog.Logger) *S3Client {
	return &S3Client{client: client, region: region, logger: logger}
}

// UploadFile streams data to S3 and returns the object URL.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	uploader := manager.NewUploader(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if _, err := uploader.Upload(ctxUpload, input); err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	c.logger.Debug("object uploaded", "bucket", bucket, "key", key)
	return ObjectURL(bucket, c.region, key), nil
}

// GetFile downloads a whole object.
func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxObjectBytes {
		return nil, fmt.Errorf("s3://%s/%s is larger than %d bytes", bucket, key, maxObjectBytes)
	}
	return body, nil
}

// ListKeys returns every key under prefix, in the order S3 lists them.
func (c *S3Client) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); k != "" && !strings.HasSuffix(k, "/") {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

// ObjectURL is the virtual-hosted-style URL of an object.
func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// ParseS3URI splits s3://bucket/key. The key may be empty or end in "/"
// to name a prefix.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.New("not an s3:// URI: " + uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.New("s3 URI has no bucket: " + uri)
	}
	return bucket, key, nil
}
