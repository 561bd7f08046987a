package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Render rasterizes the scene at the given pixel width. Height follows
// the canvas aspect ratio.
func (s *Scene) Render(width int) image.Image {
	if width <= 0 {
		width = domain.CanvasWidth
	}
	k := float64(width) / domain.CanvasWidth
	height := int(math.Round(domain.CanvasHeight * k))
	dc := gg.NewContext(width, height)

	bg := s.Background()
	dc.SetColor(color.White)
	if bg.Image == nil && bg.Color != "" {
		dc.SetHexColor(bg.Color)
	}
	dc.Clear()

	vp := s.Viewport()
	dc.Scale(k*vp.Zoom, k*vp.Zoom)
	dc.Translate(-vp.X, -vp.Y)

	if bg.Image != nil {
		dc.DrawImage(scaleImage(bg.Image, domain.CanvasWidth, domain.CanvasHeight), 0, 0)
	}

	emphasis := s.Emphasis()
	measureMu.Lock()
	defer measureMu.Unlock()
	for _, o := range s.Objects() {
		if !o.Visible || o.Opacity <= 0 {
			continue
		}
		drawObject(dc, o)
	}
	if emphasis != "" {
		if o := s.Object(emphasis); o != nil && o.Visible {
			drawSpotlight(dc, o)
		}
	}
	if bg.Error != "" {
		dc.Identity()
		dc.SetHexColor(PlaceholderStroke)
		dc.SetFontFace(Face(domain.Font{Size: 14}, k))
		dc.DrawString("background: "+bg.Error, 8*k, float64(height)-8*k)
	}
	return dc.Image()
}

// WritePNG encodes the rendered scene as PNG.
func (s *Scene) WritePNG(w io.Writer, width int) error {
	if err := png.Encode(w, s.Render(width)); err != nil {
		return fmt.Errorf("scene.WritePNG: %w", err)
	}
	return nil
}

// SavePNG renders the scene into a PNG file.
func (s *Scene) SavePNG(path string, width int) error {
	return SaveImagePNG(path, s.Render(width))
}

// SaveImagePNG writes an already rendered frame, so the encode can run
// off the event loop.
func SaveImagePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("scene.SavePNG: %w", err)
	}
	return nil
}

// ExportFileName names the PNG for slide n (1-based) of a project:
// the lowercased title with separators turned into dashes.
func ExportFileName(title string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := b.String()
	if name == "" {
		name = "slide"
	}
	return name + "-slide" + strconv.Itoa(n) + ".png"
}

func drawObject(dc *gg.Context, o *Object) {
	w, h := o.ScaledSize()
	cx, cy := o.Center()

	dc.Push()
	defer dc.Pop()
	dc.RotateAbout(gg.Radians(o.Angle), cx, cy)
	dc.ScaleAbout(o.Scale, o.Scale, cx, cy)
	x, y := cx-w/2, cy-h/2

	if o.Shadow != nil && o.Kind != domain.KindImage {
		setColor(dc, o.Shadow.Color, o.Opacity*0.5)
		shapePath(dc, o, x+o.Shadow.OffsetX, y+o.Shadow.OffsetY, w, h)
		dc.Fill()
	}

	switch {
	case o.Kind == domain.KindImage && o.Image != nil:
		dc.DrawImage(scaleImage(o.Image, int(math.Max(1, w)), int(math.Max(1, h))), int(x), int(y))
	case o.Fill != "":
		setColor(dc, o.Fill, o.Opacity)
		shapePath(dc, o, x, y, w, h)
		dc.Fill()
	}

	if o.Stroke != nil && o.Stroke.Width > 0 {
		setColor(dc, o.Stroke.Color, o.Opacity)
		dc.SetLineWidth(o.Stroke.Width)
		shapePath(dc, o, x, y, w, h)
		dc.Stroke()
	}

	if o.Text != "" {
		c := o.Font.Color
		if c == "" {
			c = "#000000"
		}
		setColor(dc, c, o.Opacity)
		dc.SetFontFace(Face(o.Font, 1))
		align := gg.AlignLeft
		switch o.Font.Align {
		case "center":
			align = gg.AlignCenter
		case "right":
			align = gg.AlignRight
		}
		dc.DrawStringWrapped(o.Text, x, y, 0, 0, w, LineHeight, align)
	}
}

func shapePath(dc *gg.Context, o *Object, x, y, w, h float64) {
	switch {
	case o.Kind == domain.KindEllipse && !o.Placeholder:
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	case o.CornerRadius > 0:
		dc.DrawRoundedRectangle(x, y, w, h, o.CornerRadius)
	default:
		dc.DrawRectangle(x, y, w, h)
	}
}

// drawSpotlight dims everything outside the object's bounding box.
func drawSpotlight(dc *gg.Context, o *Object) {
	w, h := o.ScaledSize()
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(-domain.CanvasWidth, -domain.CanvasHeight, domain.CanvasWidth*3, domain.CanvasHeight+o.Y)
	dc.DrawRectangle(-domain.CanvasWidth, o.Y+h, domain.CanvasWidth*3, domain.CanvasHeight*2)
	dc.DrawRectangle(-domain.CanvasWidth, o.Y, domain.CanvasWidth+o.X, h)
	dc.DrawRectangle(o.X+w, o.Y, domain.CanvasWidth*2, h)
	dc.Fill()
}

func setColor(dc *gg.Context, hex string, opacity float64) {
	c := parseHex(hex)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(math.Round(float64(c.A)*opacity)))
}

// parseHex reads #rgb, #rrggbb and #rrggbbaa. Anything else is black.
func parseHex(s string) color.NRGBA {
	black := color.NRGBA{A: 255}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return black
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func scaleImage(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
