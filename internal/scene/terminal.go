package scene

import (
	"math"
	"strings"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Grid is the scene rendered to terminal cells. Owner holds the element
// id drawn in each cell, "" for background.
type Grid struct {
	Cols, Rows int
	Runes      [][]rune
	Owner      [][]string
	viewport   domain.Viewport
}

type borderSet struct {
	tl, tr, bl, br, h, v rune
}

var (
	boxBorder         = borderSet{'┌', '┐', '└', '┘', '─', '│'}
	roundBorder       = borderSet{'╭', '╮', '╰', '╯', '─', '│'}
	faintBorder       = borderSet{'·', '·', '·', '·', '·', '·'}
	placeholderBorder = borderSet{'╳', '╳', '╳', '╳', '!', '!'}
)

// RenderGrid draws the visible objects into a cols x rows character grid,
// bottom to top. Rotation is not represented.
func (s *Scene) RenderGrid(cols, rows int) *Grid {
	cols, rows = max(cols, 1), max(rows, 1)
	g := &Grid{Cols: cols, Rows: rows, viewport: s.Viewport()}
	g.Runes = make([][]rune, rows)
	g.Owner = make([][]string, rows)
	for r := range g.Runes {
		g.Runes[r] = []rune(strings.Repeat(" ", cols))
		g.Owner[r] = make([]string, cols)
	}
	for _, o := range s.Objects() {
		if o.Visible {
			g.draw(o)
		}
	}
	return g
}

// Lines returns the grid as strings, one per row.
func (g *Grid) Lines() []string {
	out := make([]string, g.Rows)
	for r, row := range g.Runes {
		out[r] = string(row)
	}
	return out
}

// String joins the rows with newlines.
func (g *Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}

// CanvasPoint converts a cell to a screen point in canvas units, the
// input ObjectAt expects.
func (g *Grid) CanvasPoint(col, row int) (float64, float64) {
	cw := float64(domain.CanvasWidth) / float64(g.Cols)
	ch := float64(domain.CanvasHeight) / float64(g.Rows)
	return (float64(col) + 0.5) * cw, (float64(row) + 0.5) * ch
}

// cellRect maps an object's box to cells [c0,c1) x [r0,r1).
func (g *Grid) cellRect(o *Object) (c0, r0, c1, r1 int) {
	w, h := o.ScaledSize()
	w *= o.Scale
	h *= o.Scale
	cx, cy := o.Center()
	vp := g.viewport
	toCol := func(x float64) float64 {
		return (x - vp.X) * vp.Zoom * float64(g.Cols) / domain.CanvasWidth
	}
	toRow := func(y float64) float64 {
		return (y - vp.Y) * vp.Zoom * float64(g.Rows) / domain.CanvasHeight
	}
	c0 = int(math.Floor(toCol(cx - w/2)))
	r0 = int(math.Floor(toRow(cy - h/2)))
	c1 = max(int(math.Ceil(toCol(cx+w/2))), c0+1)
	r1 = max(int(math.Ceil(toRow(cy+h/2))), r0+1)
	return c0, r0, c1, r1
}

func (g *Grid) set(c, r int, ch rune, owner string) {
	if r < 0 || r >= g.Rows || c < 0 || c >= g.Cols {
		return
	}
	g.Runes[r][c] = ch
	g.Owner[r][c] = owner
}

func (g *Grid) draw(o *Object) {
	c0, r0, c1, r1 := g.cellRect(o)
	id := o.ElementID

	// Claim the whole box so hit highlighting and layering work.
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			g.set(c, r, ' ', id)
		}
	}

	var border *borderSet
	switch {
	case o.Placeholder:
		border = &placeholderBorder
	case o.Opacity < 0.35:
		border = &faintBorder
	case o.Kind == domain.KindRectangle:
		border = &boxBorder
	case o.Kind == domain.KindEllipse:
		border = &roundBorder
	}

	inner := [4]int{c0, r0, c1, r1}
	if border != nil && c1-c0 >= 2 && r1-r0 >= 2 {
		g.box(c0, r0, c1, r1, *border, id)
		inner = [4]int{c0 + 1, r0 + 1, c1 - 1, r1 - 1}
	}

	switch {
	case o.Kind == domain.KindImage && !o.Placeholder:
		for r := inner[1]; r < inner[3]; r++ {
			for c := inner[0]; c < inner[2]; c++ {
				g.set(c, r, '░', id)
			}
		}
		g.text(inner, "[image]", true, id)
	case o.Text != "":
		g.text(inner, o.Text, o.Font.Align == "center", id)
	}
}

func (g *Grid) box(c0, r0, c1, r1 int, b borderSet, id string) {
	for c := c0 + 1; c < c1-1; c++ {
		g.set(c, r0, b.h, id)
		g.set(c, r1-1, b.h, id)
	}
	for r := r0 + 1; r < r1-1; r++ {
		g.set(c0, r, b.v, id)
		g.set(c1-1, r, b.v, id)
	}
	g.set(c0, r0, b.tl, id)
	g.set(c1-1, r0, b.tr, id)
	g.set(c0, r1-1, b.bl, id)
	g.set(c1-1, r1-1, b.br, id)
}

func (g *Grid) text(rect [4]int, content string, center bool, id string) {
	width := rect[2] - rect[0]
	if width <= 0 {
		return
	}
	for i, line := range wrapRunes(content, width) {
		r := rect[1] + i
		if r >= rect[3] {
			break
		}
		runes := []rune(line)
		c := rect[0]
		if center {
			c += (width - len(runes)) / 2
		}
		for j, ch := range runes {
			g.set(c+j, r, ch, id)
		}
	}
}

// wrapRunes word-wraps s to lines of at most width runes, hard-breaking
// longer words.
func wrapRunes(s string, width int) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		line := []rune{}
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					out = append(out, string(line))
					line = []rune{}
				}
				out = append(out, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = append(line, w...)
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				out = append(out, string(line))
				line = append([]rune{}, w...)
			}
		}
		out = append(out, string(line))
	}
	return out
}
