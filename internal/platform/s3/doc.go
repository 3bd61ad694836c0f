// Package s3 provides a small client for S3-compatible object storage.
//
// It backs the remote checkpoint store: one JSON object per checkpoint
// group, read whole and written whole. Missing objects are reported as
// [ErrObjectNotFound] so callers can treat them as empty records.
package s3
