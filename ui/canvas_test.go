package ui

import (
	"testing"

	"sysdiag/panel"
	"sysdiag/style"

	"github.com/gdamore/tcell/v2"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(w, h)
	return screen
}

func bgAt(screen tcell.Screen, x, y int) tcell.Color {
	_, _, st, _ := screen.GetContent(x, y)
	_, bg, _ := st.Decompose()
	return bg
}

func TestScreenCanvasRoundedFillSkipsCorners(t *testing.T) {
	screen := newSimScreen(t, 10, 5)
	c := newScreenCanvas(screen, 2, 1, 6, 4, style.Parse(nodeBodyColor))
	fill := style.Parse("#3498db")

	c.FillRoundRect(panel.Rect{W: 4, H: 3}, 1, fill)

	if bgAt(screen, 2, 1) == toTcell(fill) {
		t.Fatalf("expected top-left corner to stay unfilled")
	}
	if bgAt(screen, 3, 1) != toTcell(fill) {
		t.Fatalf("expected top edge to be filled at origin offset")
	}
	if bgAt(screen, 2, 2) != toTcell(fill) {
		t.Fatalf("expected left edge middle row to be filled")
	}
	if bgAt(screen, 5, 3) == toTcell(fill) {
		t.Fatalf("expected bottom-right corner to stay unfilled")
	}
}

func TestScreenCanvasClipsToNode(t *testing.T) {
	screen := newSimScreen(t, 10, 3)
	c := newScreenCanvas(screen, 0, 0, 4, 2, style.Parse(nodeBodyColor))

	c.DrawText(2, 0, "abcd", style.Parse("#ffffff"), false)
	c.DrawText(0, 5, "zz", style.Parse("#ffffff"), false)

	if r, _, _, _ := screen.GetContent(2, 0); r != 'a' {
		t.Fatalf("expected 'a' at 2,0, got %q", r)
	}
	if r, _, _, _ := screen.GetContent(3, 0); r != 'b' {
		t.Fatalf("expected 'b' at 3,0, got %q", r)
	}
	if r, _, _, _ := screen.GetContent(4, 0); r == 'c' {
		t.Fatalf("expected text past the node edge to be clipped")
	}
}

func TestScreenCanvasTextKeepsBackground(t *testing.T) {
	screen := newSimScreen(t, 6, 1)
	c := newScreenCanvas(screen, 0, 0, 6, 1, style.Parse(nodeBodyColor))
	fill := style.Parse("#2ecc71")
	c.FillRoundRect(panel.Rect{W: 6, H: 1}, 0, fill)
	c.DrawText(0, 0, "ok", style.Parse("#ffffff"), true)

	_, _, st, _ := screen.GetContent(0, 0)
	_, bg, attr := st.Decompose()
	if bg != toTcell(fill) {
		t.Fatalf("expected text to keep row background")
	}
	if attr&tcell.AttrBold == 0 {
		t.Fatalf("expected bold label")
	}
}

func TestScreenCanvasWideGlyphAdvancesTwoCells(t *testing.T) {
	screen := newSimScreen(t, 6, 1)
	c := newScreenCanvas(screen, 0, 0, 6, 1, style.Parse(nodeBodyColor))
	if w := c.TextWidth("🐍"); w != 2 {
		t.Fatalf("expected emoji width 2, got %d", w)
	}
	c.DrawText(0, 0, "🐍x", style.Parse("#ffffff"), false)
	if r, _, _, _ := screen.GetContent(2, 0); r != 'x' {
		t.Fatalf("expected x after wide glyph, got %q", r)
	}
}

func TestScreenCanvasOverlay(t *testing.T) {
	screen := newSimScreen(t, 2, 1)
	base := style.Parse("#3498db")
	c := newScreenCanvas(screen, 0, 0, 2, 1, style.Parse(nodeBodyColor))
	c.FillRoundRect(panel.Rect{W: 2, H: 1}, 0, base)
	screen.SetContent(0, 0, 'v', nil, tcell.StyleDefault.Background(toTcell(base)))

	paint := style.Parse(style.Lighten("#3498db", 10))
	c.Overlay(0, 0, paint, 0)
	if bgAt(screen, 0, 0) != toTcell(base) {
		t.Fatalf("expected zero alpha overlay to keep the background")
	}

	c.Overlay(0, 0, paint, 0.3)
	if bgAt(screen, 0, 0) == toTcell(base) {
		t.Fatalf("expected overlay to tint the background")
	}
	if r, _, _, _ := screen.GetContent(0, 0); r != 'v' {
		t.Fatalf("expected overlay to keep cell text, got %q", r)
	}

	c.Overlay(5, 0, paint, 0.3)
}

func TestFromTcellFallsBackForDefaultColor(t *testing.T) {
	fallback := style.Parse(nodeBodyColor)
	if got := fromTcell(tcell.ColorDefault, fallback); got != fallback {
		t.Fatalf("expected fallback for default color, got %v", got)
	}
	want := style.Parse("#102030")
	if got := fromTcell(toTcell(want), fallback); got.Hex() != want.Hex() {
		t.Fatalf("expected round trip %s, got %s", want.Hex(), got.Hex())
	}
}
