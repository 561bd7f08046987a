package scene

import (
	"fmt"
	"image"
	"math"

	"github.com/naveenspark/stepdeck/internal/anim"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// PlaceholderFill and PlaceholderStroke mark objects that failed to load.
const (
	PlaceholderFill   = "#ffe5e5"
	PlaceholderStroke = "#d32f2f"
)

// Object is the visual counterpart of one element. Geometry is in canvas
// units. ScaleX/ScaleY hold a pending user resize, Scale is the
// animation multiplier around the object's center.
type Object struct {
	ElementID string
	Kind      domain.ShapeKind

	X, Y          float64
	Width, Height float64
	Angle         float64
	ScaleX        float64
	ScaleY        float64
	Scale         float64
	Opacity       float64
	Visible       bool

	Fill         string
	Stroke       *domain.Stroke
	Shadow       *domain.Shadow
	CornerRadius float64

	Text string
	Font domain.Font

	AssetID string
	Image   image.Image

	Placeholder bool
	Error       string
	Interactive bool
}

var _ anim.Target = (*Object)(nil)

// ID implements anim.Target.
func (o *Object) ID() string { return o.ElementID }

// Get implements anim.Target.
func (o *Object) Get(prop string) float64 {
	switch prop {
	case anim.PropX:
		return o.X
	case anim.PropY:
		return o.Y
	case anim.PropAngle:
		return o.Angle
	case anim.PropScale:
		return o.Scale
	case anim.PropOpacity:
		return o.Opacity
	}
	return 0
}

// Set implements anim.Target.
func (o *Object) Set(prop string, v float64) {
	switch prop {
	case anim.PropX:
		o.X = v
	case anim.PropY:
		o.Y = v
	case anim.PropAngle:
		o.Angle = v
	case anim.PropScale:
		o.Scale = v
	case anim.PropOpacity:
		o.Opacity = math.Max(0, math.Min(1, v))
	}
}

// ScaledSize returns width and height including a pending user resize.
func (o *Object) ScaledSize() (float64, float64) {
	return o.Width * o.ScaleX, o.Height * o.ScaleY
}

// Center returns the object's center in canvas units.
func (o *Object) Center() (float64, float64) {
	w, h := o.ScaledSize()
	return o.X + w/2, o.Y + h/2
}

// Contains reports whether the canvas point lies inside the object,
// honoring rotation about the center and the animation scale.
func (o *Object) Contains(px, py float64) bool {
	w, h := o.ScaledSize()
	w *= o.Scale
	h *= o.Scale
	cx, cy := o.Center()
	dx, dy := px-cx, py-cy
	if o.Angle != 0 {
		rad := -o.Angle * math.Pi / 180
		sin, cos := math.Sincos(rad)
		dx, dy = dx*cos-dy*sin, dx*sin+dy*cos
	}
	if o.Kind == domain.KindEllipse && !o.Placeholder {
		rx, ry := w/2, h/2
		if rx <= 0 || ry <= 0 {
			return false
		}
		return (dx*dx)/(rx*rx)+(dy*dy)/(ry*ry) <= 1
	}
	return math.Abs(dx) <= w/2 && math.Abs(dy) <= h/2
}

// newObject maps an element onto a fresh object. Image pixels are filled
// in by the caller after asset resolution.
func newObject(el *domain.Element) *Object {
	o := &Object{
		ElementID: el.ID,
		Kind:      el.Kind(),
		ScaleX:    1,
		ScaleY:    1,
		Scale:     1,
		Visible:   true,
	}
	applyElement(o, el)
	return o
}

// applyElement copies element fields onto o without touching its image
// pixels, visibility or animation scale.
func applyElement(o *Object, el *domain.Element) {
	g := el.Geometry.Clamped()
	o.Kind = el.Kind()
	o.X, o.Y = g.X, g.Y
	o.Width, o.Height = g.Width, g.Height
	o.Angle = g.Angle
	o.ScaleX, o.ScaleY = 1, 1
	o.Opacity = el.Style.Opacity
	o.Fill = el.Style.Fill
	o.Stroke = el.Style.Stroke
	o.Shadow = el.Style.Shadow
	o.Interactive = el.Interactions.Interactive()
	o.Text, o.Font, o.CornerRadius = "", domain.Font{}, 0

	switch s := el.Shape.(type) {
	case domain.Rectangle:
		o.CornerRadius = s.CornerRadius
	case domain.TextBox:
		o.Text = s.Content
		o.Font = s.Font
		if o.Font.Size <= 0 {
			o.Font.Size = domain.DefaultFontSize
		}
		o.Height = TextHeight(s.Content, o.Font, o.Width)
	case domain.Image:
		if s.AssetID != o.AssetID {
			o.Image = nil
		}
		o.AssetID = s.AssetID
	}
}

// placeholder builds the red error box shown in place of an element that
// could not be instantiated.
func placeholder(el *domain.Element, err error) *Object {
	o := newObject(el)
	o.Kind = domain.KindTextBox
	o.Placeholder = true
	o.Error = err.Error()
	o.Fill = PlaceholderFill
	o.Stroke = &domain.Stroke{Color: PlaceholderStroke, Width: 2}
	o.Opacity = 1
	o.Text = fmt.Sprintf("%s\n(element %s)", o.Error, el.ID)
	o.Font = domain.Font{Size: 14, Color: PlaceholderStroke}
	o.Image = nil
	return o
}
