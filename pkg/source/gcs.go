package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ritzau/graph-explorer/pkg/model"
)

// ObjectReader opens a GCS object for reading
type ObjectReader interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSClient adapts *storage.Client to ObjectReader
type GCSClient struct {
	client *storage.Client
}

// NewGCSClient creates a storage client. An empty credentials path uses
// application default credentials.
func NewGCSClient(ctx context.Context, credentialsFile string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSClient{client: client}, nil
}

func (c *GCSClient) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return c.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// Close releases the underlying client
func (c *GCSClient) Close() error {
	return c.client.Close()
}

// GCSSource reads a snapshot object from a Cloud Storage bucket
type GCSSource struct {
	client ObjectReader
	bucket string
	object string
}

// NewGCSSource creates a source for gs://bucket/object
func NewGCSSource(client ObjectReader, bucket, object string) *GCSSource {
	return &GCSSource{client: client, bucket: bucket, object: object}
}

func (s *GCSSource) Name() string   { return "gs://" + s.bucket + "/" + s.object }
func (s *GCSSource) Scheme() string { return "gs" }

func (s *GCSSource) Load(ctx context.Context) (*model.Snapshot, error) {
	reader, err := s.client.NewReader(ctx, s.bucket, s.object)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Name(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Name(), err)
	}
	return Decode(data, FormatFor(s.object))
}
