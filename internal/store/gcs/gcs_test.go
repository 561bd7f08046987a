package gcs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// emulatorStore needs a running fake-gcs-server, e.g.
//
//	docker run -p 4443:4443 fsouza/fake-gcs-server -scheme http
//	STORAGE_EMULATOR_HOST=localhost:4443 go test ./internal/store/gcs/
func emulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	bucket := "stepdeck-test-" + uuid.NewString()[:8]
	s, err := New(ctx, bucket, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.client.Bucket(bucket).Create(ctx, "test-project", nil); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	if isPreconditionFailed(nil) {
		t.Error("nil reported as precondition failure")
	}
	if isPreconditionFailed(errors.New("boom")) {
		t.Error("plain error reported as precondition failure")
	}
}

func TestUploadResolveEmulator(t *testing.T) {
	s := emulatorStore(t)
	ctx := context.Background()
	blob := domain.Blob{Data: []byte("GIF89a"), MIMEType: "image/gif"}

	first, err := s.UploadAsset(ctx, blob, "spinner.gif", "p1")
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	second, err := s.UploadAsset(ctx, blob, "spinner.gif", "p1")
	if err != nil {
		t.Fatalf("UploadAsset(second): %v", err)
	}
	if first.AssetID != "p1/spinner.gif" || second.AssetID != "p1/spinner_1.gif" {
		t.Errorf("ids = %q, %q", first.AssetID, second.AssetID)
	}
	if !strings.HasSuffix(second.AssetURL, "/p1/spinner_1.gif") {
		t.Errorf("AssetURL = %q", second.AssetURL)
	}

	got, err := s.ResolveAsset(ctx, first.AssetID)
	if err != nil {
		t.Fatalf("ResolveAsset: %v", err)
	}
	if !bytes.Equal(got.Data, blob.Data) {
		t.Errorf("ResolveAsset data = %q", got.Data)
	}

	ids, err := s.ListAssets(ctx, "p1")
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListAssets = %v", ids)
	}

	if _, err := s.ResolveAsset(ctx, "p1/missing.gif"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveAsset(missing) err = %v", err)
	}
}
