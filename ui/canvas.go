package ui

import (
	"sysdiag/panel"
	"sysdiag/style"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// cellMeasurer measures text in terminal cells, grapheme by grapheme, so
// emoji with variation selectors count as two cells.
type cellMeasurer struct{}

func (cellMeasurer) TextWidth(text string) int {
	return uniseg.StringWidth(text)
}

// screenCanvas paints panel primitives onto a tcell screen. Coordinates are
// relative to the node origin and clipped to the node rectangle.
type screenCanvas struct {
	cellMeasurer
	screen tcell.Screen
	x, y   int
	w, h   int
	// fallback is used when a cell has no RGB background to blend with.
	fallback colorful.Color
}

func newScreenCanvas(screen tcell.Screen, x, y, w, h int, fallback colorful.Color) *screenCanvas {
	return &screenCanvas{screen: screen, x: x, y: y, w: w, h: h, fallback: fallback}
}

func (c *screenCanvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.w && y < c.h
}

func (c *screenCanvas) FillRoundRect(r panel.Rect, radius int, fill colorful.Color) {
	st := tcell.StyleDefault.Background(toTcell(fill)).Foreground(tcell.ColorWhite)
	rounded := radius > 0 && r.W > 1 && r.H > 1
	for j := 0; j < r.H; j++ {
		for i := 0; i < r.W; i++ {
			if rounded && (i == 0 || i == r.W-1) && (j == 0 || j == r.H-1) {
				continue
			}
			x, y := r.X+i, r.Y+j
			if !c.inside(x, y) {
				continue
			}
			c.screen.SetContent(c.x+x, c.y+y, ' ', nil, st)
		}
	}
}

func (c *screenCanvas) DrawText(x, y int, text string, fg colorful.Color, bold bool) {
	if y < 0 || y >= c.h {
		return
	}
	state := -1
	for len(text) > 0 {
		var cluster string
		var width int
		cluster, text, width, state = uniseg.FirstGraphemeClusterInString(text, state)
		if width <= 0 {
			continue
		}
		if x >= 0 && x+width <= c.w {
			runes := []rune(cluster)
			_, _, existing, _ := c.screen.GetContent(c.x+x, c.y+y)
			st := existing.Foreground(toTcell(fg)).Bold(bold)
			c.screen.SetContent(c.x+x, c.y+y, runes[0], runes[1:], st)
		}
		x += width
	}
}

func (c *screenCanvas) Overlay(x, y int, paint colorful.Color, alpha float64) {
	if !c.inside(x, y) {
		return
	}
	mainc, combc, st, _ := c.screen.GetContent(c.x+x, c.y+y)
	_, bg, _ := st.Decompose()
	blended := style.OverlayBlend(fromTcell(bg, c.fallback), paint, alpha)
	c.screen.SetContent(c.x+x, c.y+y, mainc, combc, st.Background(toTcell(blended)))
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func fromTcell(c tcell.Color, fallback colorful.Color) colorful.Color {
	r, g, b := c.RGB()
	if r < 0 || g < 0 || b < 0 {
		return fallback
	}
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
