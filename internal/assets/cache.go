// Package assets resolves asset ids to decoded images and memoizes them.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"sync"
	"sync/atomic"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/singleflight"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// ErrUnsupportedImage is returned when asset bytes cannot be decoded.
var ErrUnsupportedImage = errors.New("unsupported image data")

// Resolver loads raw asset bytes. Store implementations satisfy it.
type Resolver interface {
	ResolveAsset(ctx context.Context, assetID string) (domain.Blob, error)
}

// Asset is a decoded, displayable image.
type Asset struct {
	ID       string
	MIMEType string
	Format   string
	Image    image.Image
	Bytes    int
}

// Cache memoizes decoded assets. Concurrent requests for the same id
// share one fetch. Failures are not cached.
type Cache struct {
	src Resolver
	log *logger.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*Asset
	fetches atomic.Int64
}

// New returns an empty cache over src.
func New(src Resolver, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		src:     src,
		log:     log.With("component", "assets"),
		entries: make(map[string]*Asset),
	}
}

// Resolve returns the decoded asset for id. A caller whose ctx ends stops
// waiting, but the shared fetch keeps running for the other waiters.
func (c *Cache) Resolve(ctx context.Context, id string) (*Asset, error) {
	if id == "" {
		return nil, domain.NotFound("assets.Resolve", id)
	}
	if a, ok := c.lookup(id); ok {
		return a, nil
	}

	ch := c.group.DoChan(id, func() (any, error) {
		if a, ok := c.lookup(id); ok {
			return a, nil
		}
		return c.fetch(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("assets.Resolve %s: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Asset), nil
	}
}

func (c *Cache) fetch(ctx context.Context, id string) (*Asset, error) {
	c.fetches.Add(1)
	blob, err := c.src.ResolveAsset(ctx, id)
	if err != nil {
		c.log.Warn("asset fetch failed", "asset", id, "error", err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.Error{Op: "assets.Resolve", Kind: domain.ErrNotFound, Err: err}
	}
	img, format, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("assets.Resolve %s: %w: %v", id, ErrUnsupportedImage, err)
	}
	a := &Asset{
		ID:       id,
		MIMEType: blob.MIMEType,
		Format:   format,
		Image:    img,
		Bytes:    len(blob.Data),
	}
	c.mu.Lock()
	c.entries[id] = a
	c.mu.Unlock()
	c.log.Debug("asset cached", "asset", id, "format", format, "bytes", a.Bytes)
	return a, nil
}

func (c *Cache) lookup(id string) (*Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[id]
	return a, ok
}

// Cached reports whether id is memoized.
func (c *Cache) Cached(id string) bool {
	_, ok := c.lookup(id)
	return ok
}

// Forget drops one entry so the next Resolve refetches it.
func (c *Cache) Forget(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	c.group.Forget(id)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]*Asset)
	c.mu.Unlock()
}

// Len returns the number of cached assets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fetches returns how many times the underlying resolver was called.
func (c *Cache) Fetches() int64 {
	return c.fetches.Load()
}
