// Package style holds the fixed icon and color palette for diagnostic rows
// and the color math used to tint badges and overlays.
package style

const (
	// DefaultIcon is used for any key missing from the icon table.
	DefaultIcon = "ℹ️"
	// DefaultColor is the neutral gray used for any key missing from the color table.
	DefaultColor = "#95a5a6"
)

var iconByKey = map[string]string{
	"Operating System":     "🖥️",
	"CPU":                  "⚙️",
	"RAM":                  "🧠",
	"GPU":                  "🎮",
	"CUDA version":         "🚀",
	"Python version":       "🐍",
	"PyTorch":              "🔥",
	"xformers":             "⚡",
	"torchvision":          "👁️",
	"torchaudio":           "🎵",
	"numpy":                "🔢",
	"Pillow":               "🖼️",
	"OpenCV":               "📷",
	"transformers":         "🤖",
	"diffusers":            "🌈",
	"Triton":               "🏎️",
	"sageattention":        "🍃",
	"AMD Arch":             "🌀",
	"Env: PYTHONPATH":      "🔗",
	"Env: CUDA_HOME":       "🏠",
	"Env: LD_LIBRARY_PATH": "📂",
}

var colorByKey = map[string]string{
	"Operating System":     "#4a90e2",
	"CPU":                  "#50c878",
	"RAM":                  "#9b59b6",
	"GPU":                  "#e74c3c",
	"CUDA version":         "#f39c12",
	"Python version":       "#3498db",
	"PyTorch":              "#e67e22",
	"xformers":             "#1abc9c",
	"torchvision":          "#34495e",
	"torchaudio":           "#8e44ad",
	"numpy":                "#2ecc71",
	"Pillow":               "#e84393",
	"OpenCV":               "#c5a01c",
	"transformers":         "#6c5ce7",
	"diffusers":            "#00cec9",
	"Triton":               "#e1b12c",
	"sageattention":        "#1e272e",
	"AMD Arch":             "#d63031",
	"Env: PYTHONPATH":      "#d35400",
	"Env: CUDA_HOME":       "#27ae60",
	"Env: LD_LIBRARY_PATH": "#2980b9",
}

// Style is the resolved look of one row.
type Style struct {
	Icon  string
	Color string
}

// IconFor returns the glyph for key, or DefaultIcon.
func IconFor(key string) string {
	if icon, ok := iconByKey[key]; ok {
		return icon
	}
	return DefaultIcon
}

// ColorFor returns the base hex color for key, or DefaultColor.
func ColorFor(key string) string {
	if color, ok := colorByKey[key]; ok {
		return color
	}
	return DefaultColor
}

// Resolve looks up both tables for key.
func Resolve(key string) Style {
	return Style{
		Icon:  IconFor(key),
		Color: ColorFor(key),
	}
}
