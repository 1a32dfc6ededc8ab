package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewObjectPath(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	p1 := NewObjectPath("scan.PDF", now)
	if !strings.HasPrefix(p1, "1700000000000_") {
		t.Errorf("expected millisecond prefix, got %q", p1)
	}
	if !strings.HasSuffix(p1, ".pdf") {
		t.Errorf("expected lowercased extension, got %q", p1)
	}

	p2 := NewObjectPath("scan.pdf", now)
	if p1 == p2 {
		t.Error("expected distinct paths for identical names")
	}

	p3 := NewObjectPath("noext", now)
	if strings.Contains(p3, ".") {
		t.Errorf("expected no extension, got %q", p3)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	blob, err := store.Upload(ctx, "123_abc.pdf", "application/pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if blob.Size != 5 {
		t.Errorf("expected size 5, got %d", blob.Size)
	}
	if blob.Hash == "" {
		t.Error("expected non-empty hash")
	}

	rc, meta, err := store.Download(ctx, "123_abc.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected content round trip, got %q", data)
	}
	if meta.ContentType != "application/pdf" {
		t.Errorf("expected stored content type, got %q", meta.ContentType)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if _, _, err := store.Download(ctx, "missing.pdf"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "missing.pdf"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestMemoryStore_SizeLimit(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	if _, err := store.Upload(ctx, "big.bin", "application/octet-stream", strings.NewReader("too big")); !errors.Is(err, ErrBlobTooLarge) {
		t.Errorf("expected ErrBlobTooLarge, got %v", err)
	}
	if _, err := store.Upload(ctx, "ok.bin", "application/octet-stream", strings.NewReader("tiny")); err != nil {
		t.Errorf("expected upload at limit to succeed, got %v", err)
	}
}

func TestMemoryStore_EmptyPath(t *testing.T) {
	store := NewMemoryStore(0)

	if _, err := store.Upload(context.Background(), "", "text/plain", strings.NewReader("x")); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if _, err := store.Upload(ctx, "gone.pdf", "application/pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := store.Delete(ctx, "gone.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Download(ctx, "gone.pdf"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestFSStore_RoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	blob, err := store.Upload(ctx, "456_xyz.pdf", "application/pdf", strings.NewReader("report body"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if blob.Size != int64(len("report body")) {
		t.Errorf("unexpected size %d", blob.Size)
	}

	rc, meta, err := store.Download(ctx, "456_xyz.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != "report body" {
		t.Errorf("expected content round trip, got %q", data)
	}
	if meta.ContentType != "application/pdf" {
		t.Errorf("expected pdf content type from extension, got %q", meta.ContentType)
	}
}

func TestFSStore_SizeLimit(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	if _, err := store.Upload(context.Background(), "big.bin", "application/octet-stream", strings.NewReader("well over the limit")); !errors.Is(err, ErrBlobTooLarge) {
		t.Errorf("expected ErrBlobTooLarge, got %v", err)
	}
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	for _, path := range []string{"../escape.pdf", "a/b.pdf", `a\b.pdf`, ""} {
		if _, err := store.Upload(ctx, path, "application/pdf", strings.NewReader("x")); err == nil {
			t.Errorf("expected rejection for path %q", path)
		}
	}
}

func TestFSStore_DeleteThenDownload(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Upload(ctx, "doomed.png", "image/png", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := store.Delete(ctx, "doomed.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Download(ctx, "doomed.png"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}
