package sink

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	inthttp "github.com/rescale/appendix-client/internal/http"
)

// S3Options configures the S3 sink. Empty credentials fall back to the
// default AWS chain (env, shared config, instance role).
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint, e.g. MinIO; enables path-style
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads documents as objects under bucket/prefix.
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
	retry  inthttp.Config
}

// NewS3Sink builds an S3 client reusing opts.HTTPClient so proxy settings apply.
func NewS3Sink(ctx context.Context, bucket, prefix string, opts Options) (*S3Sink, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.S3.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.S3.Region))
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(opts.HTTPClient))
	}
	if opts.S3.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			opts.S3.AccessKeyID,
			opts.S3.SecretAccessKey,
			opts.S3.SessionToken,
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Sink(client, bucket, prefix, opts.retryConfig()), nil
}

func newS3Sink(client objectPutter, bucket, prefix string, retry inthttp.Config) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, retry: retry}
}

// Save puts the document at prefix/filename. Existing objects are replaced.
func (s *S3Sink) Save(ctx context.Context, filename string, content []byte) (string, error) {
	key := objectKey(s.prefix, filepath.Base(filename))

	contentType := mime.TypeByExtension(filepath.Ext(filename))

	err := inthttp.ExecuteWithRetry(ctx, s.retry, func() error {
		input := &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(content),
			ContentLength: aws.Int64(int64(len(content))),
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		_, err := s.client.PutObject(ctx, input)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
