// Package scene keeps a retained-mode scene graph in step with the
// document model and renders it to PNG or to a terminal grid.
package scene

import (
	"image"
	"slices"
	"sync"

	"github.com/naveenspark/stepdeck/internal/anim"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// ViewportID is the anim target id of the scene viewport.
const ViewportID = "viewport"

// Background is the active slide background. Exactly one of Color and
// Image is in effect; Error is set when an image failed to resolve.
type Background struct {
	Color   string
	AssetID string
	Image   image.Image
	Error   string
}

// Scene is an ordered set of objects plus a background and viewport.
type Scene struct {
	mu         sync.RWMutex
	objects    []*Object
	byID       map[string]*Object
	background Background
	viewport   domain.Viewport
	emphasis   string
}

// New returns an empty scene with a white background.
func New() *Scene {
	return &Scene{
		byID:       make(map[string]*Object),
		background: Background{Color: domain.DefaultBackground},
		viewport:   domain.IdentityViewport,
	}
}

// Clear removes every object, resets the viewport and background.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.byID = make(map[string]*Object)
	s.background = Background{Color: domain.DefaultBackground}
	s.viewport = domain.IdentityViewport
	s.emphasis = ""
}

// Add appends an object on top of the others, replacing any object with
// the same element id.
func (s *Scene) Add(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[o.ElementID]; ok {
		i := slices.Index(s.objects, old)
		s.objects[i] = o
	} else {
		s.objects = append(s.objects, o)
	}
	s.byID[o.ElementID] = o
}

// Remove deletes the object for an element id.
func (s *Scene) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	s.objects = slices.DeleteFunc(s.objects, func(x *Object) bool { return x == o })
	return true
}

// Object returns the object for an element id, or nil.
func (s *Scene) Object(id string) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Objects returns the objects bottom to top.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Background returns the active background.
func (s *Scene) Background() Background {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

// SetBackground replaces the background.
func (s *Scene) SetBackground(bg Background) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = bg
}

// Viewport returns the current pan/zoom transform.
func (s *Scene) Viewport() domain.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// SetViewport replaces the pan/zoom transform. Zoom is kept positive.
func (s *Scene) SetViewport(v domain.Viewport) {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v
}

// SetVisible shows or hides an object.
func (s *Scene) SetVisible(id string, visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false
	}
	o.Visible = visible
	return true
}

// Visibility captures every object's visibility.
func (s *Scene) Visibility() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.objects))
	for _, o := range s.objects {
		out[o.ElementID] = o.Visible
	}
	return out
}

// RestoreVisibility applies a captured visibility map. Objects missing
// from the map are left alone.
func (s *Scene) RestoreVisibility(vis map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range vis {
		if o, ok := s.byID[id]; ok {
			o.Visible = v
		}
	}
}

// SetEmphasis marks one object as spotlighted; "" clears it.
func (s *Scene) SetEmphasis(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emphasis = id
}

// Emphasis returns the spotlighted object id.
func (s *Scene) Emphasis() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emphasis
}

// ToCanvas converts a screen point in canvas units to world coordinates.
func (s *Scene) ToCanvas(sx, sy float64) (float64, float64) {
	v := s.Viewport()
	return sx/v.Zoom + v.X, sy/v.Zoom + v.Y
}

// ObjectAt returns the topmost visible object under a screen point.
func (s *Scene) ObjectAt(sx, sy float64) *Object {
	wx, wy := s.ToCanvas(sx, sy)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Visible && o.Contains(wx, wy) {
			return o
		}
	}
	return nil
}

// ViewportTarget exposes the viewport to the animation scheduler so pan
// and zoom can be tweened. x and y map to the pan offset, scale to zoom.
func (s *Scene) ViewportTarget() anim.Target {
	return viewportTarget{s}
}

type viewportTarget struct{ s *Scene }

func (v viewportTarget) ID() string { return ViewportID }

func (v viewportTarget) Get(prop string) float64 {
	vp := v.s.Viewport()
	switch prop {
	case anim.PropX:
		return vp.X
	case anim.PropY:
		return vp.Y
	case anim.PropScale:
		return vp.Zoom
	}
	return 0
}

func (v viewportTarget) Set(prop string, val float64) {
	vp := v.s.Viewport()
	switch prop {
	case anim.PropX:
		vp.X = val
	case anim.PropY:
		vp.Y = val
	case anim.PropScale:
		vp.Zoom = val
	}
	v.s.SetViewport(vp)
}
