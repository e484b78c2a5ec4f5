package style

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Parse decodes a "#rrggbb" color. Unparsable input falls back to DefaultColor.
func Parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(DefaultColor)
	}
	return c
}

// Lighten raises every channel of hex by round(2.55*percent), clamping to
// [0,255], and returns lower-case "#rrggbb". Negative percentages darken.
// A zero adjustment returns hex as given, whatever its case, and so does
// input that does not parse as a hex color.
func Lighten(hex string, percent float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	// Half-up rounding keeps -0.5 at zero instead of rounding away from it.
	amt := int(math.Floor(2.55*percent + 0.5))
	if amt == 0 {
		return hex
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("#%02x%02x%02x", clampChannel(int(r)+amt), clampChannel(int(g)+amt), clampChannel(int(b)+amt))
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// OverlayBlend composites paint over base with the "overlay" blend mode and
// mixes the result into base with the given opacity.
func OverlayBlend(base, paint colorful.Color, alpha float64) colorful.Color {
	if alpha <= 0 {
		return base
	}
	if alpha > 1 {
		alpha = 1
	}
	blended := colorful.Color{
		R: overlayChannel(base.R, paint.R),
		G: overlayChannel(base.G, paint.G),
		B: overlayChannel(base.B, paint.B),
	}
	return base.BlendRgb(blended, alpha).Clamped()
}

func overlayChannel(b, p float64) float64 {
	if b <= 0.5 {
		return 2 * b * p
	}
	return 1 - 2*(1-b)*(1-p)
}
