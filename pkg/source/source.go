package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ritzau/graph-explorer/pkg/finder"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/model"
)

// Source loads a snapshot from one location
type Source interface {
	// Name identifies the location, e.g. "s3://bucket/graph.json"
	Name() string
	// Scheme is "file", "s3" or "gs"
	Scheme() string
	Load(ctx context.Context) (*model.Snapshot, error)
}

// Options configures the remote sources
type Options struct {
	S3Region       string
	S3Endpoint     string
	S3PathStyle    bool
	S3AccessKey    string
	S3SecretKey    string
	GCSCredentials string
}

// Open returns the source for a location: a local path, s3://bucket/key or
// gs://bucket/object. A local directory resolves to its newest snapshot file.
func Open(ctx context.Context, location string, opts Options) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("no snapshot location given")
	}

	scheme, bucket, key, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		// A directory stands for its most recent snapshot file
		if info, err := os.Stat(key); err == nil && info.IsDir() {
			latest, err := finder.LatestSnapshot(key)
			if err != nil {
				return nil, err
			}
			logging.Info("resolved snapshot directory", "dir", key, "snapshot", latest)
			key = latest
		}
		return NewFileSource(key), nil
	case "s3":
		client, err := NewS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, bucket, key), nil
	case "gs":
		client, err := NewGCSClient(ctx, opts.GCSCredentials)
		if err != nil {
			return nil, err
		}
		return NewGCSSource(client, bucket, key), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot scheme %q", scheme)
	}
}

// parseLocation splits a location into scheme, bucket and key. Plain paths
// have scheme "file" and no bucket.
func parseLocation(location string) (scheme, bucket, key string, err error) {
	if !strings.Contains(location, "://") {
		return "file", "", location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid snapshot location %q: %w", location, err)
	}

	switch u.Scheme {
	case "file":
		return "file", "", u.Path, nil
	case "s3", "gs":
		key = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", "", fmt.Errorf("snapshot location %q needs a bucket and a key", location)
		}
		return u.Scheme, u.Host, key, nil
	default:
		return "", "", "", fmt.Errorf("unsupported snapshot scheme %q", u.Scheme)
	}
}

// FileSource reads a snapshot from the local filesystem
type FileSource struct {
	path string
}

// NewFileSource creates a source for a local JSON or YAML file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string   { return s.path }
func (s *FileSource) Scheme() string { return "file" }

// Path is the file watched for changes
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Load(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	return Decode(data, FormatFor(s.path))
}

// LoadRecorder receives the outcome of every load
type LoadRecorder interface {
	RecordLoad(scheme string, err error)
}

// Loader wraps a Source so that concurrent loads (a file change racing an
// API reload) share one fetch.
type Loader struct {
	source   Source
	recorder LoadRecorder
	group    singleflight.Group
}

// NewLoader creates a loader. recorder may be nil.
func NewLoader(src Source, recorder LoadRecorder) *Loader {
	return &Loader{source: src, recorder: recorder}
}

// Source returns the wrapped source
func (l *Loader) Source() Source {
	return l.source
}

// Load fetches and decodes the snapshot
func (l *Loader) Load(ctx context.Context) (*model.Snapshot, error) {
	v, err, shared := l.group.Do(l.source.Name(), func() (any, error) {
		start := time.Now()
		snapshot, err := l.source.Load(ctx)
		if l.recorder != nil {
			l.recorder.RecordLoad(l.source.Scheme(), err)
		}
		if err != nil {
			logging.Warn("snapshot load failed", "source", l.source.Name(), "error", err)
			return nil, err
		}
		logging.Info("snapshot loaded",
			"source", l.source.Name(),
			"nodes", len(snapshot.Nodes),
			"edges", len(snapshot.Edges),
			"durationMs", time.Since(start).Milliseconds())
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("snapshot load shared", "source", l.source.Name())
	}
	return v.(*model.Snapshot), nil
}
