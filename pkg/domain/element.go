package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ShapeKind discriminates the variant payload of an element.
type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindEllipse   ShapeKind = "ellipse"
	KindTextBox   ShapeKind = "textbox"
	KindImage     ShapeKind = "image"
)

// Shape is the variant part of an element.
type Shape interface {
	Kind() ShapeKind
}

// Rectangle is a filled box.
type Rectangle struct {
	CornerRadius float64 `json:"cornerRadius,omitempty"`
}

// Ellipse is inscribed in the element's bounding box.
type Ellipse struct{}

// TextBox renders wrapped text.
type TextBox struct {
	Content string `json:"content"`
	Font    Font   `json:"font"`
}

// Image draws a stored asset.
type Image struct {
	AssetID string `json:"assetId,omitempty"`
	URL     string `json:"url,omitempty"`
}

func (Rectangle) Kind() ShapeKind { return KindRectangle }
func (Ellipse) Kind() ShapeKind   { return KindEllipse }
func (TextBox) Kind() ShapeKind   { return KindTextBox }
func (Image) Kind() ShapeKind     { return KindImage }

// Font describes how text is drawn.
type Font struct {
	Family string  `json:"family,omitempty"`
	Size   float64 `json:"size"`
	Color  string  `json:"color,omitempty"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
	Align  string  `json:"align,omitempty"` // left, center, right
}

// DefaultFontSize applies when a text box carries no size.
const DefaultFontSize = 24

// Geometry is the placement of an element on the slide canvas.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"` // degrees, clockwise
}

// Stroke is an optional outline.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Shadow is an optional drop shadow.
type Shadow struct {
	Color   string  `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// AnimationTrigger says when an element's animation starts.
type AnimationTrigger string

const (
	TriggerAlways   AnimationTrigger = "always"
	TriggerOnClick  AnimationTrigger = "onClick"
	TriggerOnReveal AnimationTrigger = "onReveal"
)

// AnimationSpec names a library animation and its trigger.
type AnimationSpec struct {
	Name    string           `json:"name"`
	Trigger AnimationTrigger `json:"trigger"`
}

// Style holds visual attributes common to all shapes.
type Style struct {
	Fill      string         `json:"fill,omitempty"`
	Opacity   float64        `json:"opacity"`
	Stroke    *Stroke        `json:"stroke,omitempty"`
	Shadow    *Shadow        `json:"shadow,omitempty"`
	Animation *AnimationSpec `json:"animation,omitempty"`
}

// Element is one visual object on a slide.
type Element struct {
	ID           string
	Nickname     string
	Geometry     Geometry
	Style        Style
	Hidden       bool
	Interactions Interactions
	Shape        Shape
}

// NewElement returns an element with a fresh id and default style.
func NewElement(shape Shape, g Geometry) *Element {
	return &Element{
		ID:       uuid.NewString(),
		Geometry: g,
		Style:    Style{Opacity: 1},
		Shape:    shape,
	}
}

// Kind returns the shape kind, or "" when no shape is set.
func (e *Element) Kind() ShapeKind {
	if e == nil || e.Shape == nil {
		return ""
	}
	return e.Shape.Kind()
}

// Label is the nickname when set, otherwise a short form of the id.
func (e *Element) Label() string {
	if e.Nickname != "" {
		return e.Nickname
	}
	if len(e.ID) > 8 {
		return string(e.Kind()) + " " + e.ID[:8]
	}
	return string(e.Kind()) + " " + e.ID
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	var out Element
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

type elementWire struct {
	ID           string        `json:"id"`
	Type         ShapeKind     `json:"type"`
	Nickname     string        `json:"nickname,omitempty"`
	Geometry     Geometry      `json:"geometry"`
	Style        Style         `json:"style"`
	Hidden       bool          `json:"hidden,omitempty"`
	Interactions *Interactions `json:"interactions,omitempty"`
	Rect         *Rectangle    `json:"rect,omitempty"`
	Ellipse      *Ellipse      `json:"ellipse,omitempty"`
	Text         *TextBox      `json:"text,omitempty"`
	Image        *Image        `json:"image,omitempty"`
}

// MarshalJSON writes the element with a "type" discriminator and the
// variant payload under its own key.
func (e Element) MarshalJSON() ([]byte, error) {
	w := elementWire{
		ID:       e.ID,
		Nickname: e.Nickname,
		Geometry: e.Geometry,
		Style:    e.Style,
		Hidden:   e.Hidden,
	}
	if !e.Interactions.IsZero() {
		in := e.Interactions
		w.Interactions = &in
	}
	switch s := e.Shape.(type) {
	case Rectangle:
		w.Type, w.Rect = KindRectangle, &s
	case *Rectangle:
		w.Type, w.Rect = KindRectangle, s
	case Ellipse:
		w.Type, w.Ellipse = KindEllipse, &s
	case *Ellipse:
		w.Type, w.Ellipse = KindEllipse, s
	case TextBox:
		w.Type, w.Text = KindTextBox, &s
	case *TextBox:
		w.Type, w.Text = KindTextBox, s
	case Image:
		w.Type, w.Image = KindImage, &s
	case *Image:
		w.Type, w.Image = KindImage, s
	default:
		return nil, fmt.Errorf("element %s: unsupported shape %T", e.ID, e.Shape)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the discriminated form written by MarshalJSON.
// Opacity defaults to 1 when absent.
func (e *Element) UnmarshalJSON(data []byte) error {
	w := elementWire{Style: Style{Opacity: 1}}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("element: missing id")
	}
	out := Element{
		ID:       w.ID,
		Nickname: w.Nickname,
		Geometry: w.Geometry,
		Style:    w.Style,
		Hidden:   w.Hidden,
	}
	if w.Interactions != nil {
		out.Interactions = *w.Interactions
	}
	switch w.Type {
	case KindRectangle:
		if w.Rect == nil {
			w.Rect = &Rectangle{}
		}
		out.Shape = *w.Rect
	case KindEllipse:
		out.Shape = Ellipse{}
	case KindTextBox:
		if w.Text == nil {
			w.Text = &TextBox{}
		}
		if w.Text.Font.Size <= 0 {
			w.Text.Font.Size = DefaultFontSize
		}
		out.Shape = *w.Text
	case KindImage:
		// No payload means no asset; the renderer shows a placeholder.
		if w.Image == nil {
			w.Image = &Image{}
		}
		out.Shape = *w.Image
	default:
		return fmt.Errorf("element %s: unknown type %q", w.ID, w.Type)
	}
	*e = out
	return nil
}
