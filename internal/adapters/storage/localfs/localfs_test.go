package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := New(root)

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "renders/job_1/photo_00.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "renders/job_1/photo_00.jpg" || out.Size != 10 {
		t.Errorf("unexpected output %+v", out)
	}

	rc, ct, size, err := fs.GetObject(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "jpeg-bytes" || size != 10 {
		t.Errorf("got %q (%d bytes)", body, size)
	}
	if ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}

	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Errorf("deleting a missing object should be a no-op, got %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, out.ObjectKey); !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestKeysStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := New(filepath.Join(root, "store"))

	_, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey: "../../escape.txt",
		Reader:    strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err == nil {
		t.Fatal("object was written outside the root")
	}
	if _, err := os.Stat(filepath.Join(root, "store", "escape.txt")); err != nil {
		t.Errorf("expected object inside root: %v", err)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	_, err := New(t.TempDir()).PutObject(context.Background(), ports.PutObjectInput{Reader: strings.NewReader("x")})
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSignedURLUnsupported(t *testing.T) {
	_, err := New(t.TempDir()).GetSignedURL(context.Background(), "k", time.Minute)
	if err != ports.ErrSignedURLUnsupported {
		t.Errorf("expected ErrSignedURLUnsupported, got %v", err)
	}
}
