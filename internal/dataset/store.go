package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Info describes the dataset currently being served
type Info struct {
	Source   string     `json:"source"`
	LoadedAt time.Time  `json:"loaded_at"`
	Report   LoadReport `json:"report"`
}

// Source is somewhere a listings CSV can be read from
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// ObjectReader fetches objects from a bucket. It is implemented by the S3
// repository.
type ObjectReader interface {
	GetObjectReader(ctx context.Context, bucket string, objectPath string) (io.ReadCloser, error)
}

type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

func (s FileSource) String() string {
	return s.Path
}

type ObjectSource struct {
	Objects ObjectReader
	Bucket  string
	Key     string
}

func (s ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.Objects.GetObjectReader(ctx, s.Bucket, s.Key)
}

func (s ObjectSource) String() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}

// ParseSource turns a configured location into a Source. Locations of the
// form s3://bucket/key are read through objects, everything else is a path
// on the local filesystem.
func ParseSource(location string, objects ObjectReader) (Source, error) {
	if !strings.HasPrefix(location, "s3://") {
		return FileSource{Path: location}, nil
	}

	bucket, key, found := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	if !found || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 location %q, expected s3://bucket/key", location)
	}
	if objects == nil {
		return nil, fmt.Errorf("dataset location %q needs S3 but S3 is not configured", location)
	}

	return ObjectSource{Objects: objects, Bucket: bucket, Key: key}, nil
}

// Store holds the Frame the dashboard is currently serving. Replacing the
// frame is atomic, readers always see either the old or the new dataset.
type Store struct {
	mu    sync.RWMutex
	frame *Frame
	info  Info
}

func NewStore() *Store {
	return &Store{
		frame: NewFrame(nil),
	}
}

// Current returns the frame being served, never nil
func (s *Store) Current() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Replace swaps in a new frame
func (s *Store) Replace(frame *Frame, report LoadReport, source string) {
	if frame == nil {
		frame = NewFrame(nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.info = Info{
		Source:   source,
		LoadedAt: time.Now(),
		Report:   report,
	}
}

// LoadFrom reads src and replaces the served frame with it. On error the
// previous frame keeps being served.
func (s *Store) LoadFrom(ctx context.Context, src Source) (LoadReport, error) {
	reader, err := src.Open(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("could not open dataset %s: %w", src, err)
	}
	defer reader.Close()

	frame, report, err := Load(reader)
	if err != nil {
		return report, fmt.Errorf("could not load dataset %s: %w", src, err)
	}

	s.Replace(frame, report, src.String())
	return report, nil
}
