package scene

import (
	"math"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// LineHeight is the line spacing multiplier for text boxes.
const LineHeight = 1.2

type fontKey struct {
	mono, bold, italic bool
}

type faceKey struct {
	fontKey
	size float64
}

var (
	fontMu sync.Mutex
	fonts  = map[fontKey]*truetype.Font{}
	faces  = map[faceKey]font.Face{}

	// truetype faces keep a glyph cache and are not safe for concurrent use.
	measureMu sync.Mutex
)

// Face returns a face for f at f.Size scaled by k. Unknown families fall
// back to Go Regular; names containing "mono" or "courier" use Go Mono.
func Face(f domain.Font, k float64) font.Face {
	size := f.Size
	if size <= 0 {
		size = domain.DefaultFontSize
	}
	if k <= 0 {
		k = 1
	}
	key := faceKey{fontKey: lookupKey(f), size: math.Round(size*k*4) / 4}

	fontMu.Lock()
	defer fontMu.Unlock()
	if face, ok := faces[key]; ok {
		return face
	}
	ttf, ok := fonts[key.fontKey]
	if !ok {
		var err error
		ttf, err = truetype.Parse(ttfBytes(key.fontKey))
		if err != nil {
			ttf, _ = truetype.Parse(goregular.TTF) //nolint:errcheck
		}
		fonts[key.fontKey] = ttf
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	faces[key] = face
	return face
}

func lookupKey(f domain.Font) fontKey {
	fam := strings.ToLower(f.Family)
	return fontKey{
		mono:   strings.Contains(fam, "mono") || strings.Contains(fam, "courier"),
		bold:   f.Bold,
		italic: f.Italic,
	}
}

func ttfBytes(k fontKey) []byte {
	switch {
	case k.mono && k.bold:
		return gomonobold.TTF
	case k.mono:
		return gomono.TTF
	case k.bold && k.italic:
		return gobolditalic.TTF
	case k.bold:
		return gobold.TTF
	case k.italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}

// WrapText breaks content into lines no wider than width when drawn with
// face. Explicit newlines are kept; a word wider than width gets a line
// of its own.
func WrapText(face font.Face, content string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(content, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if measure(face, candidate) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// TextHeight derives a text box's height from its content, font and
// managed width.
func TextHeight(content string, f domain.Font, width float64) float64 {
	size := f.Size
	if size <= 0 {
		size = domain.DefaultFontSize
	}
	face := Face(f, 1)
	measureMu.Lock()
	lines := WrapText(face, content, width)
	measureMu.Unlock()
	return math.Max(1, math.Ceil(float64(len(lines))*size*LineHeight))
}
