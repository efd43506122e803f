package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ritzau/graph-explorer/pkg/model"
)

// ObjectGetter is the part of *s3.Client the S3 source needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client from the default AWS chain. Static credentials
// replace the chain when both keys are set, and a custom endpoint selects an
// S3 compatible store such as MinIO.
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.S3Region))
	}
	if opts.S3Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(opts.S3Endpoint))
	}
	if opts.S3AccessKey != "" && opts.S3SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.S3AccessKey, opts.S3SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.S3PathStyle
	}), nil
}

// S3Source reads a snapshot object from an S3 bucket
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source creates a source for s3://bucket/key
func NewS3Source(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Name() string   { return "s3://" + s.bucket + "/" + s.key }
func (s *S3Source) Scheme() string { return "s3" }

func (s *S3Source) Load(ctx context.Context) (*model.Snapshot, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.Name(), err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Name(), err)
	}
	return Decode(buf.Bytes(), FormatFor(s.key))
}
