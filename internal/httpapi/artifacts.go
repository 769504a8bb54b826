package httpapi

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"cloud.google.com/go/storage"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

// artifactIDPattern is the path-traversal-safe download id validator from
// the pattern ^[A-Za-z0-9_.\-]+\.csv$.
var artifactIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+\.csv$`)

// ValidArtifactID reports whether id is a safe, well-formed artifact handle.
func ValidArtifactID(id string) bool {
	return artifactIDPattern.MatchString(id)
}

// ArtifactStore persists and retrieves CSV download artifacts. Two
// implementations: local disk (the default) and an optional
// cloud.google.com/go/storage-backed one. Objects are written and read,
// never swept — retention and garbage collection are out of scope.
type ArtifactStore interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
}

// DiskArtifactStore writes artifacts under a single directory.
type DiskArtifactStore struct {
	Dir string
}

// NewDiskArtifactStore builds a DiskArtifactStore, creating Dir if absent.
func NewDiskArtifactStore(dir string) (*DiskArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskArtifactStore{Dir: dir}, nil
}

func (s *DiskArtifactStore) Put(ctx context.Context, id string, data []byte) error {
	if !ValidArtifactID(id) {
		return engineerrors.New(engineerrors.ArtifactNotFound, "invalid artifact id")
	}
	return os.WriteFile(filepath.Join(s.Dir, id), data, 0o644)
}

func (s *DiskArtifactStore) Get(ctx context.Context, id string) ([]byte, error) {
	if !ValidArtifactID(id) {
		return nil, engineerrors.New(engineerrors.ArtifactNotFound, "invalid artifact id")
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, id))
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.ArtifactNotFound, "artifact not found: "+id, err)
	}
	return data, nil
}

// GCSArtifactStore persists artifacts to a Google Cloud Storage bucket.
type GCSArtifactStore struct {
	client *storage.Client
	bucket string
}

// NewGCSArtifactStore builds a GCSArtifactStore.
func NewGCSArtifactStore(client *storage.Client, bucket string) *GCSArtifactStore {
	return &GCSArtifactStore{client: client, bucket: bucket}
}

func (s *GCSArtifactStore) Put(ctx context.Context, id string, data []byte) error {
	if !ValidArtifactID(id) {
		return engineerrors.New(engineerrors.ArtifactNotFound, "invalid artifact id")
	}
	w := s.client.Bucket(s.bucket).Object(id).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSArtifactStore) Get(ctx context.Context, id string) ([]byte, error) {
	if !ValidArtifactID(id) {
		return nil, engineerrors.New(engineerrors.ArtifactNotFound, "invalid artifact id")
	}
	r, err := s.client.Bucket(s.bucket).Object(id).NewReader(ctx)
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.ArtifactNotFound, "artifact not found: "+id, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
