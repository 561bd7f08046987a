package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// ErrSuperseded is returned when a newer slide load replaced this one.
var ErrSuperseded = errors.New("scene: slide load superseded")

// ErrMissingAsset marks image elements that carry no asset id.
var ErrMissingAsset = errors.New("image element has no asset id")

// maxConcurrentResolves bounds asset fetches per slide load.
const maxConcurrentResolves = 8

// Frame is a fully instantiated slide waiting to be committed to the
// scene on the event loop.
type Frame struct {
	gen        uint64
	Slide      *domain.Slide
	Background Background
	Objects    []*Object
	Failures   int
}

// Controller keeps the scene in step with the document model.
type Controller struct {
	log   *logger.Logger
	model *document.Model
	cache *assets.Cache
	scene *Scene

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	onReady func(*domain.Slide)
}

// NewController wires a scene to a model and an asset cache.
func NewController(model *document.Model, cache *assets.Cache, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		log:   log.With("component", "scene"),
		model: model,
		cache: cache,
		scene: New(),
	}
}

// Scene returns the controlled scene.
func (c *Controller) Scene() *Scene { return c.scene }

// OnReady registers the hook run after a slide is committed in viewer
// context.
func (c *Controller) OnReady(fn func(*domain.Slide)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = fn
}

// LoadSlide prepares and commits slide in one call.
func (c *Controller) LoadSlide(ctx context.Context, slide *domain.Slide) error {
	f, err := c.Prepare(ctx, slide)
	if err != nil {
		return err
	}
	return c.Commit(f)
}

// Prepare instantiates every element of slide, resolving image assets
// concurrently. It does not touch the scene. Starting a new Prepare
// cancels the one in flight.
func (c *Controller) Prepare(ctx context.Context, slide *domain.Slide) (*Frame, error) {
	if slide == nil {
		return nil, fmt.Errorf("scene.Prepare: nil slide")
	}
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	f := &Frame{gen: gen, Slide: slide, Objects: make([]*Object, len(slide.Elements))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)

	g.Go(func() error {
		f.Background = c.resolveBackground(gctx, slide.Background)
		return gctx.Err()
	})
	for i, el := range slide.Elements {
		g.Go(func() error {
			o, err := c.instantiate(gctx, el)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.log.Warn("element failed to load", "slide", slide.ID, "element", el.ID, "error", err)
				o = placeholder(el, err)
			}
			f.Objects[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if c.stale(gen) {
			return nil, ErrSuperseded
		}
		return nil, fmt.Errorf("scene.Prepare: %w", err)
	}
	for _, o := range f.Objects {
		if o.Placeholder {
			f.Failures++
		}
	}
	return f, nil
}

// Commit replaces the scene contents with f. It must run on the event
// loop. A frame from a superseded Prepare is rejected.
func (c *Controller) Commit(f *Frame) error {
	c.mu.Lock()
	if f == nil || f.gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	hook := c.onReady
	c.mu.Unlock()

	c.scene.Clear()
	c.scene.SetBackground(f.Background)
	for _, o := range f.Objects {
		c.scene.Add(o)
	}
	c.log.Debug("slide committed", "slide", f.Slide.ID, "objects", len(f.Objects), "failures", f.Failures)

	if c.model != nil && c.model.Context() == document.Viewer && hook != nil {
		hook(f.Slide)
	}
	return nil
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

func (c *Controller) instantiate(ctx context.Context, el *domain.Element) (*Object, error) {
	if el.Shape == nil {
		return nil, fmt.Errorf("element has no shape")
	}
	o := newObject(el)
	img, ok := el.Shape.(domain.Image)
	if !ok {
		return o, nil
	}
	if img.AssetID == "" {
		return nil, ErrMissingAsset
	}
	if c.cache == nil {
		return nil, fmt.Errorf("no asset cache for %s", img.AssetID)
	}
	a, err := c.cache.Resolve(ctx, img.AssetID)
	if err != nil {
		return nil, err
	}
	o.Image = a.Image
	return o, nil
}

func (c *Controller) resolveBackground(ctx context.Context, bg domain.Background) Background {
	if !bg.IsImage() {
		color := bg.Color
		if color == "" {
			color = domain.DefaultBackground
		}
		return Background{Color: color}
	}
	if c.cache == nil {
		return Background{Color: domain.DefaultBackground, AssetID: bg.AssetID, Error: "no asset cache"}
	}
	a, err := c.cache.Resolve(ctx, bg.AssetID)
	if err != nil {
		c.log.Warn("background failed to load", "asset", bg.AssetID, "error", err)
		return Background{Color: domain.DefaultBackground, AssetID: bg.AssetID, Error: err.Error()}
	}
	return Background{AssetID: bg.AssetID, Image: a.Image}
}

// SyncElementToModel writes an object's edited position, size and angle
// back into the model. The resize scale is folded into the size.
func (c *Controller) SyncElementToModel(o *Object) bool {
	if o == nil || c.model == nil || o.Placeholder {
		return false
	}
	w, h := o.ScaledSize()
	g := domain.Geometry{X: o.X, Y: o.Y, Width: w, Height: h, Angle: o.Angle}.Clamped()
	if o.Kind == domain.KindTextBox {
		g.Height = TextHeight(o.Text, o.Font, g.Width)
	}
	if !c.model.SetGeometry(o.ElementID, g) {
		return false
	}
	o.X, o.Y, o.Width, o.Height = g.X, g.Y, g.Width, g.Height
	o.ScaleX, o.ScaleY = 1, 1
	return true
}

// SyncModelToElement re-applies the model's element onto its existing
// object. Images whose asset changed are resolved again.
func (c *Controller) SyncModelToElement(ctx context.Context, id string) error {
	if c.model == nil {
		return fmt.Errorf("scene.SyncModelToElement: no model")
	}
	el := c.model.Element(id)
	if el == nil {
		return domain.NotFound("scene.SyncModelToElement", id)
	}
	o := c.scene.Object(id)
	if o == nil || o.Placeholder || o.Kind != el.Kind() {
		fresh, err := c.instantiate(ctx, el)
		if err != nil {
			fresh = placeholder(el, err)
		}
		if o != nil {
			fresh.Visible = o.Visible
		}
		c.scene.Add(fresh)
		return err
	}
	applyElement(o, el)
	if o.Kind == domain.KindTextBox {
		c.model.SetGeometry(id, domain.Geometry{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height, Angle: o.Angle})
	}
	if o.Kind == domain.KindImage && o.Image == nil {
		img, err := c.instantiate(ctx, el)
		if err != nil {
			c.scene.Add(placeholder(el, err))
			return err
		}
		o.Image = img.Image
	}
	return nil
}

// AddElement instantiates a newly added model element on the scene.
func (c *Controller) AddElement(ctx context.Context, el *domain.Element) error {
	o, err := c.instantiate(ctx, el)
	if err != nil {
		o = placeholder(el, err)
	}
	c.scene.Add(o)
	return err
}

// RemoveElement drops an element's object.
func (c *Controller) RemoveElement(id string) {
	c.scene.Remove(id)
}

// SetBackgroundColor switches the current slide to a flat color, clearing
// any background image on screen and in the model.
func (c *Controller) SetBackgroundColor(color string) bool {
	s := c.model.CurrentSlide()
	if s == nil || !c.model.SetSlideBackground(s.ID, domain.Background{Color: color}) {
		return false
	}
	c.scene.SetBackground(Background{Color: color})
	return true
}

// SetBackgroundImage switches the current slide to an image asset,
// clearing the flat color. On resolution failure the scene falls back to
// white with an error, but the model keeps the asset reference.
func (c *Controller) SetBackgroundImage(ctx context.Context, assetID, url string) error {
	s := c.model.CurrentSlide()
	if s == nil {
		return fmt.Errorf("scene.SetBackgroundImage: no current slide")
	}
	bg := domain.Background{AssetID: assetID, URL: url}
	if !c.model.SetSlideBackground(s.ID, bg) {
		return fmt.Errorf("scene.SetBackgroundImage: slide %s rejected", s.ID)
	}
	resolved := c.resolveBackground(ctx, bg)
	c.scene.SetBackground(resolved)
	if resolved.Error != "" {
		return fmt.Errorf("scene.SetBackgroundImage: %s", resolved.Error)
	}
	return nil
}
