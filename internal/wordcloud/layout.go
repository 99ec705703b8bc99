// Package wordcloud places ranked words on a fixed-size canvas.
//
// Placement is a spiral search from the canvas centre followed by a
// row-major grid scan. Text extents are estimated from the rune count, not
// measured, so the renderer should use a font close to the 0.6em average
// glyph width assumed here. Layout holds no state between calls.
package wordcloud

import (
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"review_lens/internal/domain"
)

const (
	DefaultMaxWords = 40

	spiralRadiusStep = 20.0
	spiralAngleStep  = 30 // degrees
	gridStep         = 20.0

	charWidthEm  = 0.6
	lineHeightEm = 1.4
	padX         = 16.0
	padY         = 8.0
)

type rect struct{ x, y, w, h float64 }

// overlaps treats touching edges as overlapping.
func (r rect) overlaps(o rect) bool {
	return !(r.x > o.x+o.w || r.x+r.w < o.x || r.y > o.y+o.h || r.y+r.h < o.y)
}

type canvas struct {
	width, height float64
	occupied      []rect
}

func (c *canvas) free(r rect) bool {
	if r.x < 0 || r.y < 0 || r.x+r.w > c.width || r.y+r.h > c.height {
		return false
	}
	for _, o := range c.occupied {
		if r.overlaps(o) {
			return false
		}
	}
	return true
}

// find returns the top-left corner of the first free slot for a w×h box.
func (c *canvas) find(w, h float64) (float64, float64, bool) {
	cx, cy := c.width/2, c.height/2
	maxRadius := math.Max(c.width, c.height) / 2

	for radius := 0.0; radius < maxRadius; radius += spiralRadiusStep {
		for deg := 0; deg < 360; deg += spiralAngleStep {
			rad := float64(deg) * math.Pi / 180
			x := cx + radius*math.Cos(rad) - w/2
			y := cy + radius*math.Sin(rad) - h/2
			if c.free(rect{x, y, w, h}) {
				return x, y, true
			}
		}
	}

	for y := 0.0; y <= c.height-h; y += gridStep {
		for x := 0.0; x <= c.width-w; x += gridStep {
			if c.free(rect{x, y, w, h}) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// Layout assigns a position, font size and colour to up to maxWords of the
// most frequent words. Words that do not fit are left out. Degenerate
// canvases and empty input yield an empty result.
func Layout(words []domain.WordFrequency, width, height float64, maxWords int) []domain.WordPosition {
	if width <= 0 || height <= 0 || len(words) == 0 {
		return []domain.WordPosition{}
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	ranked := make([]domain.WordFrequency, 0, len(words))
	for _, w := range words {
		if w.Word != "" && w.Count > 0 {
			ranked = append(ranked, w)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > maxWords {
		ranked = ranked[:maxWords]
	}
	if len(ranked) == 0 {
		return []domain.WordPosition{}
	}

	minCount, maxCount := ranked[len(ranked)-1].Count, ranked[0].Count
	span := float64(maxCount - minCount)
	if span == 0 {
		span = 1
	}
	minSize := math.Max(12, width*0.02)
	maxSize := math.Max(28, width*0.06)

	c := &canvas{width: width, height: height}
	out := make([]domain.WordPosition, 0, len(ranked))
	for _, w := range ranked {
		ratio := float64(w.Count-minCount) / span
		fs := minSize + ratio*(maxSize-minSize)
		bw := float64(utf8.RuneCountInString(w.Word))*charWidthEm*fs + padX
		bh := fs*lineHeightEm + padY

		x, y, ok := c.find(bw, bh)
		if !ok {
			continue
		}
		c.occupied = append(c.occupied, rect{x, y, bw, bh})
		out = append(out, domain.WordPosition{
			Word:     w.Word,
			Count:    w.Count,
			X:        x,
			Y:        y,
			Width:    bw,
			Height:   bh,
			FontSize: fs,
			Color:    color(ratio),
		})
	}
	return out
}

// color maps a 0..1 frequency ratio onto a blue-to-purple HSL gradient whose
// lightness peaks at mid frequency.
func color(ratio float64) string {
	hue := 200 + ratio*60
	sat := 60 + ratio*20
	light := 45 + math.Sin(ratio*math.Pi)*10
	return "hsl(" + num(hue) + ", " + num(sat) + "%, " + num(light) + "%)"
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
