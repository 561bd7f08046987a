package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SlideKind is the rendering mode of a slide.
type SlideKind string

const (
	SlideImage SlideKind = "image" // static canvas, optionally with a background image
	SlideVideo SlideKind = "video" // embedded video with timed overlays
)

// DefaultBackground is the flat color a new slide starts with.
const DefaultBackground = "#ffffff"

// Canvas dimensions every slide is authored against.
const (
	CanvasWidth  = 960
	CanvasHeight = 540
)

// Project is the root of a training document.
type Project struct {
	ID         string    `json:"id,omitempty"` // empty until first persisted
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Slides     []*Slide  `json:"slides"`
}

// Slide is one screen of a project.
type Slide struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Kind           SlideKind       `json:"kind"`
	Background     Background      `json:"background"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	Elements       []*Element      `json:"elements"`
	Sequence       []string        `json:"sequence"`
	OverlayTimings []OverlayTiming `json:"overlayTimings,omitempty"`
}

// Background is either a flat color or an image asset, never both.
type Background struct {
	Color   string `json:"color,omitempty"`
	AssetID string `json:"assetId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// IsImage reports whether the background references an image asset.
func (b Background) IsImage() bool {
	return b.AssetID != ""
}

// OverlayTiming ties an element's visibility to a video playback window.
type OverlayTiming struct {
	ElementID string  `json:"elementId"`
	Start     float64 `json:"start"` // seconds
	End       float64 `json:"end"`   // seconds
	Animation string  `json:"animation,omitempty"`
}

// Active reports whether t falls inside [Start, End).
func (o OverlayTiming) Active(t float64) bool {
	return t >= o.Start && t < o.End
}

// Viewport is a pan/zoom transform applied to the whole scene.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// IdentityViewport is the untransformed view.
var IdentityViewport = Viewport{Zoom: 1}

// NewProject returns an empty project holding one default slide.
func NewProject(title string, now time.Time) *Project {
	if title == "" {
		title = "Untitled training"
	}
	return &Project{
		Title:      title,
		CreatedAt:  now,
		ModifiedAt: now,
		Slides:     []*Slide{NewSlide(SlideImage, "Slide 1")},
	}
}

// NewSlide returns a blank slide of the given kind.
func NewSlide(kind SlideKind, title string) *Slide {
	if kind == "" {
		kind = SlideImage
	}
	return &Slide{
		ID:         uuid.NewString(),
		Title:      title,
		Kind:       kind,
		Background: Background{Color: DefaultBackground},
		Elements:   []*Element{},
		Sequence:   []string{},
	}
}

// Element returns the element with the given id, or nil.
func (s *Slide) Element(id string) *Element {
	for _, el := range s.Elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

// SequenceIndex returns the position of id in the click sequence, or -1.
func (s *Slide) SequenceIndex(id string) int {
	for i, seqID := range s.Sequence {
		if seqID == id {
			return i
		}
	}
	return -1
}

// Slide returns the slide with the given id, or nil.
func (p *Project) Slide(id string) *Slide {
	for _, s := range p.Slides {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SlideIndex returns the position of the slide with the given id, or -1.
func (p *Project) SlideIndex(id string) int {
	for i, s := range p.Slides {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var out Project
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// Normalize fills nil collections and clamps element sizes to at least 1.
func (p *Project) Normalize() {
	if p.Slides == nil {
		p.Slides = []*Slide{}
	}
	for _, s := range p.Slides {
		s.Normalize()
	}
}

// Normalize fills nil collections, defaults the kind and clamps element sizes.
func (s *Slide) Normalize() {
	if s.Kind == "" {
		s.Kind = SlideImage
	}
	if s.Elements == nil {
		s.Elements = []*Element{}
	}
	if s.Sequence == nil {
		s.Sequence = []string{}
	}
	for _, el := range s.Elements {
		el.Geometry = el.Geometry.Clamped()
	}
}

// Clamped returns g with width and height of at least 1.
func (g Geometry) Clamped() Geometry {
	if g.Width < 1 {
		g.Width = 1
	}
	if g.Height < 1 {
		g.Height = 1
	}
	return g
}
