// Package blobstore provides content storage for uploaded medical record
// files. It defines the path-addressed BlobStore interface, an in-memory
// implementation for testing and development, and a filesystem-backed
// implementation for production use.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobTooLarge = errors.New("blob exceeds maximum allowed size")
	ErrEmptyPath    = errors.New("blob path is required")
)

// Blob describes a stored object.
type Blob struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	StoredAt    time.Time `json:"stored_at"`
}

// BlobStore is the contract for blob storage backends. Objects are addressed
// by the path produced at upload time; the path doubles as the record's
// file_url in the database.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, content io.Reader) (*Blob, error)
	Download(ctx context.Context, path string) (io.ReadCloser, *Blob, error)
	Delete(ctx context.Context, path string) error
}

// NewObjectPath derives a unique storage path for an uploaded file. The
// original name is discarded except for its extension; the path combines the
// upload timestamp in milliseconds with a short random suffix so concurrent
// uploads of identically named files never collide.
func NewObjectPath(fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	suffix := strconv.FormatInt(rand.Int63n(1<<40), 36)
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), suffix, ext)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type storedBlob struct {
	meta    Blob
	content []byte
}

// MemoryStore is a thread-safe, in-memory BlobStore for testing and
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	blobs    map[string]*storedBlob
	maxBytes int64
}

// NewMemoryStore returns a ready-to-use MemoryStore. A maxBytes of zero or
// less disables the size limit.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		blobs:    make(map[string]*storedBlob),
		maxBytes: maxBytes,
	}
}

// Upload reads the content into memory and stores it under the given path.
func (s *MemoryStore) Upload(_ context.Context, path, contentType string, content io.Reader) (*Blob, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	var data []byte
	var err error
	if s.maxBytes > 0 {
		data, err = io.ReadAll(io.LimitReader(content, s.maxBytes+1))
		if err == nil && int64(len(data)) > s.maxBytes {
			return nil, ErrBlobTooLarge
		}
	} else {
		data, err = io.ReadAll(content)
	}
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	meta := Blob{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        hashBytes(data),
		StoredAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[path] = &storedBlob{meta: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Download returns an io.ReadCloser over the blob content and its metadata.
func (s *MemoryStore) Download(_ context.Context, path string) (io.ReadCloser, *Blob, error) {
	s.mu.RLock()
	blob, ok := s.blobs[path]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.meta
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Delete removes a blob by path.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[path]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, path)
	return nil
}
