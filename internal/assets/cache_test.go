package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

type fakeResolver struct {
	calls atomic.Int32
	gate  chan struct{}
	blobs map[string]domain.Blob
	err   error
}

func (f *fakeResolver) ResolveAsset(ctx context.Context, id string) (domain.Blob, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return domain.Blob{}, f.err
	}
	b, ok := f.blobs[id]
	if !ok {
		return domain.Blob{}, domain.NotFound("fake.ResolveAsset", id)
	}
	return b, nil
}

func pngBlob(t *testing.T, w, h int) domain.Blob {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return domain.Blob{Data: buf.Bytes(), MIMEType: "image/png"}
}

func TestResolveDecodesAndMemoizes(t *testing.T) {
	src := &fakeResolver{blobs: map[string]domain.Blob{"a": pngBlob(t, 4, 3)}}
	c := New(src, nil)

	a, err := c.Resolve(context.Background(), "a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Format != "png" || a.Image.Bounds().Dx() != 4 || a.Image.Bounds().Dy() != 3 {
		t.Errorf("asset = %+v", a)
	}
	again, err := c.Resolve(context.Background(), "a")
	if err != nil || again != a {
		t.Errorf("second Resolve = %v, %v; want memoized", again, err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	if !c.Cached("a") || c.Len() != 1 {
		t.Error("asset not cached")
	}
}

func TestResolveDeduplicatesConcurrentRequests(t *testing.T) {
	src := &fakeResolver{
		gate:  make(chan struct{}),
		blobs: map[string]domain.Blob{"big": pngBlob(t, 64, 64)},
	}
	c := New(src, nil)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Asset, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve(context.Background(), "big")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Resolve[%d]: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("Resolve[%d] returned a different asset", i)
		}
	}
	if got := c.Fetches(); got != 1 {
		t.Errorf("Fetches = %d, want 1", got)
	}
}

func TestResolveFailuresAreNotCached(t *testing.T) {
	src := &fakeResolver{err: errors.New("backend down")}
	c := New(src, nil)

	_, err := c.Resolve(context.Background(), "a")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	src.err = nil
	src.blobs = map[string]domain.Blob{"a": pngBlob(t, 1, 1)}
	if _, err := c.Resolve(context.Background(), "a"); err != nil {
		t.Fatalf("retry Resolve: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("resolver calls = %d, want 2", got)
	}
}

func TestResolveErrors(t *testing.T) {
	src := &fakeResolver{blobs: map[string]domain.Blob{"junk": {Data: []byte("not an image"), MIMEType: "image/png"}}}
	c := New(src, nil)

	if _, err := c.Resolve(context.Background(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty id err = %v, want NotFound", err)
	}
	if _, err := c.Resolve(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing err = %v, want NotFound", err)
	}
	if _, err := c.Resolve(context.Background(), "junk"); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("junk err = %v, want ErrUnsupportedImage", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestResolveCanceledCaller(t *testing.T) {
	src := &fakeResolver{gate: make(chan struct{}), blobs: map[string]domain.Blob{"a": pngBlob(t, 2, 2)}}
	c := New(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Resolve(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	close(src.gate)
	if _, err := c.Resolve(context.Background(), "a"); err != nil {
		t.Errorf("Resolve after cancel: %v", err)
	}
}

func TestForgetAndPurge(t *testing.T) {
	src := &fakeResolver{blobs: map[string]domain.Blob{"a": pngBlob(t, 1, 1), "b": pngBlob(t, 1, 1)}}
	c := New(src, nil)
	ctx := context.Background()
	c.Resolve(ctx, "a") //nolint:errcheck
	c.Resolve(ctx, "b") //nolint:errcheck

	c.Forget("a")
	if c.Cached("a") || !c.Cached("b") {
		t.Error("Forget removed the wrong entry")
	}
	c.Resolve(ctx, "a") //nolint:errcheck
	if got := src.calls.Load(); got != 3 {
		t.Errorf("resolver calls = %d, want 3", got)
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d", c.Len())
	}
}
