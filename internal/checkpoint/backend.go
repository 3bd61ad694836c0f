package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/geoprov/internal/platform/s3"
	"github.com/imamik/geoprov/internal/util/naming"
)

var (
	// ErrNotExist is returned by a Backend when a group has no record yet.
	ErrNotExist = errors.New("checkpoint record does not exist")
	// ErrBucketNotFound is returned by S3Backend.Check for a missing bucket.
	ErrBucketNotFound = errors.New("checkpoint bucket does not exist")
)

// Backend stores the raw bytes of one record per group.
type Backend interface {
	Load(ctx context.Context, group string) ([]byte, error)
	Save(ctx context.Context, group string, data []byte) error
	// Location describes where a group's record lives, for logging.
	Location(group string) string
}

// Checker is implemented by backends that can verify their target before a
// run starts.
type Checker interface {
	Check(ctx context.Context) error
}

// FileBackend stores records as JSON files under Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend returns a backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir}
}

// Location returns the file path of a group's record.
func (b *FileBackend) Location(group string) string {
	return filepath.Join(b.Dir, naming.CheckpointObject(group))
}

// Check creates the record directory.
func (b *FileBackend) Check(_ context.Context) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return nil
}

// Load reads a group's record file.
func (b *FileBackend) Load(_ context.Context, group string) ([]byte, error) {
	data, err := os.ReadFile(b.Location(group))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return data, nil
}

// Save writes a group's record through a temporary file and a rename, so a
// crash never leaves a half-written record behind.
func (b *FileBackend) Save(_ context.Context, group string, data []byte) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.Dir, naming.CheckpointObject(group)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, b.Location(group)); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// ObjectStore is the subset of the S3 client used by S3Backend.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// S3Backend stores records as objects in a bucket.
type S3Backend struct {
	client ObjectStore
	bucket string
	prefix string
}

// NewS3Backend returns a backend writing to bucket under prefix.
func NewS3Backend(client ObjectStore, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

// Location returns the s3:// URL of a group's record.
func (b *S3Backend) Location(group string) string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, naming.CheckpointObjectKey(b.prefix, group))
}

// Check verifies that the bucket exists.
func (b *S3Backend) Check(ctx context.Context) error {
	ok, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, b.bucket)
	}
	return nil
}

// Load fetches a group's record object.
func (b *S3Backend) Load(ctx context.Context, group string) ([]byte, error) {
	data, err := b.client.GetObject(ctx, b.bucket, naming.CheckpointObjectKey(b.prefix, group))
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Save uploads a group's record object.
func (b *S3Backend) Save(ctx context.Context, group string, data []byte) error {
	return b.client.PutObject(ctx, b.bucket, naming.CheckpointObjectKey(b.prefix, group), data)
}
