package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FSStore is a filesystem-backed BlobStore. Each object lives as a single
// file under the root directory. Writes go to a temp file first and are
// renamed into place so a crash mid-upload never leaves a partial object
// visible.
type FSStore struct {
	root     string
	maxBytes int64
}

// NewFSStore creates the root directory if needed and returns an FSStore.
// A maxBytes of zero or less disables the size limit.
func NewFSStore(root string, maxBytes int64) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", root, err)
	}
	return &FSStore{root: root, maxBytes: maxBytes}, nil
}

// validatePath rejects paths that would escape the root directory. Object
// paths are flat names produced by NewObjectPath, never nested.
func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsAny(path, `/\`) || strings.Contains(path, "..") {
		return fmt.Errorf("invalid blob path %q", path)
	}
	return nil
}

// Upload streams the content to a temp file, hashing as it goes, then
// fsyncs and atomically renames into place.
func (s *FSStore) Upload(_ context.Context, path, contentType string, content io.Reader) (*Blob, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	hasher := sha256.New()
	src := content
	if s.maxBytes > 0 {
		src = io.LimitReader(content, s.maxBytes+1)
	}

	size, err := io.Copy(tmp, io.TeeReader(src, hasher))
	if err != nil {
		return nil, fmt.Errorf("writing blob: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrBlobTooLarge
	}

	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("syncing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing blob: %w", err)
	}

	dest := filepath.Join(s.root, path)
	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("finalizing blob: %w", err)
	}

	return &Blob{
		Path:        path,
		ContentType: contentType,
		Size:        size,
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
		StoredAt:    time.Now().UTC(),
	}, nil
}

// Download opens the object file and returns it with metadata. The content
// type is derived from the path extension since the filesystem keeps no
// sidecar metadata.
func (s *FSStore) Download(_ context.Context, path string) (io.ReadCloser, *Blob, error) {
	if err := validatePath(path); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("opening blob %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat blob %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return f, &Blob{
		Path:        path,
		ContentType: contentType,
		Size:        info.Size(),
		StoredAt:    info.ModTime().UTC(),
	}, nil
}

// Delete removes the object file.
func (s *FSStore) Delete(_ context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, path)); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("deleting blob %s: %w", path, err)
	}
	return nil
}
