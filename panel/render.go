package panel

import (
	"math"

	"sysdiag/anim"
	"sysdiag/diag"
	"sysdiag/style"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	badgeLighten   = 20
	overlayLighten = 10
	waveCycles     = 3
	waveAmplitude  = 0.4
	overlayOpacity = 0.3
	textColor      = "#ffffff"
)

// Rect is an axis-aligned area in surface units.
type Rect struct {
	X, Y, W, H int
}

// Canvas is the drawing surface a panel paints onto. Coordinates are
// relative to the node's top-left corner.
type Canvas interface {
	Measurer
	FillRoundRect(r Rect, radius int, fill colorful.Color)
	DrawText(x, y int, text string, fg colorful.Color, bold bool)
	// Overlay composites paint over whatever is at (x, y) with the overlay
	// blend mode at the given opacity.
	Overlay(x, y int, paint colorful.Color, alpha float64)
}

// Purpose: Paint the snapshot as animated rows and report the node size.
// Key aspects: A nil snapshot draws nothing and skips report, so the node
// keeps its previous size. Layout is recomputed on every call.
// Upstream: node foreground draw slot, ANSI one-shot render.
// Downstream: BuildRows, Measure, Canvas drawing calls, report.
func Render(c Canvas, snap diag.Snapshot, phase anim.Phase, opts Options, report func(NodeSize)) (Geometry, bool) {
	if snap == nil {
		return Geometry{}, false
	}
	rows := BuildRows(snap, c, phase, opts)
	geom := Measure(rows, opts)
	for _, row := range rows {
		drawRow(c, row, geom.Width, opts)
	}
	if report != nil {
		report(geom.NodeSize(opts.Margin))
	}
	return geom, true
}

func drawRow(c Canvas, row Row, width int, opts Options) {
	base := style.Parse(row.Style.Color)
	badge := style.Parse(style.Lighten(row.Style.Color, badgeLighten))
	fluid := style.Parse(style.Lighten(row.Style.Color, overlayLighten))
	white := style.Parse(textColor)

	left := opts.Margin
	bounds := Rect{X: left, Y: row.Top, W: width, H: opts.RowHeight}
	c.FillRoundRect(bounds, opts.Radius, base)
	c.FillRoundRect(Rect{X: left, Y: row.Top, W: opts.IconWidth, H: opts.RowHeight}, opts.Radius, badge)

	mid := row.Top + opts.RowHeight/2
	glyphW := c.TextWidth(row.Style.Icon)
	c.DrawText(left+(opts.IconWidth-glyphW)/2, mid, row.Style.Icon, white, false)
	c.DrawText(left+opts.IconWidth+opts.LabelInset, mid, row.Key, white, true)
	c.DrawText(left+width-opts.ValuePadding-row.ValueWidth, mid, row.Value, white, false)

	drawFluid(c, bounds, fluid, row.Phase)
}

// WaveOffset is the vertical displacement of the wave surface at horizontal
// fraction dx of a row of the given height.
func WaveOffset(dx float64, phase anim.Phase, height float64) float64 {
	return math.Sin((dx+float64(phase))*math.Pi*2*waveCycles) * height * waveAmplitude
}

// gradientWeight fades the overlay in from the left edge and out to the
// right edge, peaking at the middle of the row.
func gradientWeight(dx float64) float64 {
	w := 1 - math.Abs(2*dx-1)
	return math.Max(0, math.Min(1, w))
}

// coverage is the share of the unit cell starting at cellTop that lies
// below the wave surface.
func coverage(cellTop, surface float64) float64 {
	return math.Max(0, math.Min(1, cellTop+1-surface))
}

func drawFluid(c Canvas, r Rect, paint colorful.Color, phase anim.Phase) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	h := float64(r.H)
	for i := 0; i < r.W; i++ {
		dx := (float64(i) + 0.5) / float64(r.W)
		surface := h/2 + WaveOffset(dx, phase, h)
		weight := gradientWeight(dx)
		for j := 0; j < r.H; j++ {
			alpha := overlayOpacity * weight * coverage(float64(j), surface)
			if alpha <= 0 {
				continue
			}
			c.Overlay(r.X+i, r.Y+j, paint, alpha)
		}
	}
}
