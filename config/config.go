package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sysdiag/strutil"

	"gopkg.in/yaml.v3"
)

// UI modes accepted by ui.mode.
const (
	UIModeTview    = "tview"
	UIModeANSI     = "ansi"
	UIModeHeadless = "headless"
)

// Animation modes accepted by animation.mode.
const (
	AnimationFrame   = "frame"
	AnimationElapsed = "elapsed"
)

// Config represents the complete sysdiag configuration
type Config struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	UI        UIConfig        `yaml:"ui"`
	Animation AnimationConfig `yaml:"animation"`
	Layout    LayoutConfig    `yaml:"layout"`
	Logging   LoggingConfig   `yaml:"logging"`
	Host      HostConfig      `yaml:"host"`

	// LoadedFrom records the file or directory the config came from.
	LoadedFrom string `yaml:"-"`
}

// EndpointConfig describes where diagnostics are fetched from.
// TimeoutMS of zero means the request is never cut short.
type EndpointConfig struct {
	URL          string `yaml:"url"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent"`
}

// UIConfig selects and tunes the console renderer.
type UIConfig struct {
	Mode        string `yaml:"mode"`
	TargetFPS   int    `yaml:"target_fps"`
	EnableMouse bool   `yaml:"enable_mouse"`
	LogLines    int    `yaml:"log_lines"`
}

// AnimationConfig controls the per-node phase clock.
type AnimationConfig struct {
	Mode    string  `yaml:"mode"`
	Step    float64 `yaml:"step"`
	Stagger float64 `yaml:"stagger"`
}

// LayoutConfig holds panel geometry in terminal cells.
type LayoutConfig struct {
	Margin       int `yaml:"margin"`
	RowHeight    int `yaml:"row_height"`
	RowSpacing   int `yaml:"row_spacing"`
	TopMargin    int `yaml:"top_margin"`
	RowPadding   int `yaml:"row_padding"`
	IconWidth    int `yaml:"icon_width"`
	LabelInset   int `yaml:"label_inset"`
	ValuePadding int `yaml:"value_padding"`
	Radius       int `yaml:"radius"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// HostConfig configures the fixture-backed diagnostics host.
type HostConfig struct {
	Listen  string `yaml:"listen"`
	Fixture string `yaml:"fixture"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.UI.EnableMouse = true
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file or from a directory of YAML
// files. Directory files are overlaid in name order so later files win.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		files, err = yamlFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no YAML files found in %s", path)
		}
	}

	var cfg Config
	// UI mouse support defaults on; yaml leaves it untouched when absent.
	cfg.UI.EnableMouse = true
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	cfg.LoadedFrom = path
	return &cfg, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Endpoint.URL) == "" {
		c.Endpoint.URL = "http://127.0.0.1:8188/fl_system_info"
	}
	if c.Endpoint.MaxBodyBytes <= 0 {
		c.Endpoint.MaxBodyBytes = 1 << 20
	}
	if c.Endpoint.UserAgent == "" {
		c.Endpoint.UserAgent = "sysdiag"
	}

	c.UI.Mode = strutil.NormalizeLower(c.UI.Mode)
	if c.UI.Mode == "" {
		c.UI.Mode = UIModeTview
	}
	if c.UI.TargetFPS == 0 {
		c.UI.TargetFPS = 60
	}
	if c.UI.LogLines <= 0 {
		c.UI.LogLines = 200
	}

	c.Animation.Mode = strutil.NormalizeLower(c.Animation.Mode)
	if c.Animation.Mode == "" {
		c.Animation.Mode = AnimationFrame
	}
	if c.Animation.Step == 0 {
		c.Animation.Step = 0.005
	}
	if c.Animation.Stagger == 0 {
		c.Animation.Stagger = 0.1
	}

	l := &c.Layout
	if l.Margin == 0 {
		l.Margin = 1
	}
	if l.RowHeight == 0 {
		l.RowHeight = 3
	}
	if l.RowSpacing == 0 {
		l.RowSpacing = 1
	}
	if l.TopMargin == 0 {
		l.TopMargin = 3
	}
	if l.IconWidth == 0 {
		l.IconWidth = 4
	}
	if l.LabelInset == 0 {
		l.LabelInset = 2
	}
	if l.ValuePadding == 0 {
		l.ValuePadding = 1
	}
	if l.RowPadding == 0 {
		// icon badge + label inset + label/value gap + value padding
		l.RowPadding = l.IconWidth + l.LabelInset + 3 + l.ValuePadding
	}
	if l.Radius == 0 {
		l.Radius = 1
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = "data/logs"
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}

	if c.Host.Listen == "" {
		c.Host.Listen = "127.0.0.1:8188"
	}
	if c.Host.Fixture == "" {
		c.Host.Fixture = "data/fixtures/system_info.yaml"
	}
}

// Validate rejects values the renderer and driver cannot work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.UI.Mode {
	case UIModeTview, UIModeANSI, UIModeHeadless:
	default:
		errs = append(errs, fmt.Errorf("ui.mode %q must be one of tview, ansi, headless", c.UI.Mode))
	}
	if c.UI.TargetFPS < 1 || c.UI.TargetFPS > 240 {
		errs = append(errs, fmt.Errorf("ui.target_fps %d out of range 1-240", c.UI.TargetFPS))
	}
	switch c.Animation.Mode {
	case AnimationFrame, AnimationElapsed:
	default:
		errs = append(errs, fmt.Errorf("animation.mode %q must be frame or elapsed", c.Animation.Mode))
	}
	if c.Animation.Step <= 0 || c.Animation.Step >= 1 {
		errs = append(errs, fmt.Errorf("animation.step %v must be in (0,1)", c.Animation.Step))
	}
	if c.Animation.Stagger < 0 {
		errs = append(errs, fmt.Errorf("animation.stagger %v must not be negative", c.Animation.Stagger))
	}
	if c.Endpoint.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("endpoint.timeout_ms %d must not be negative", c.Endpoint.TimeoutMS))
	}
	l := c.Layout
	if l.Margin < 0 || l.RowSpacing < 0 || l.TopMargin < 0 || l.Radius < 0 {
		errs = append(errs, errors.New("layout margins, spacing and radius must not be negative"))
	}
	if l.RowHeight < 1 || l.IconWidth < 1 {
		errs = append(errs, errors.New("layout.row_height and layout.icon_width must be at least 1"))
	}
	if l.RowPadding < l.IconWidth {
		errs = append(errs, fmt.Errorf("layout.row_padding %d must cover icon_width %d", l.RowPadding, l.IconWidth))
	}
	return errors.Join(errs...)
}

// Summary describes the effective configuration, one line per concern.
func (c *Config) Summary() []string {
	endpoint := "Endpoint: " + c.Endpoint.URL
	if c.Endpoint.TimeoutMS > 0 {
		endpoint += fmt.Sprintf(" (timeout %dms)", c.Endpoint.TimeoutMS)
	}
	lines := []string{
		endpoint,
		fmt.Sprintf("UI: mode=%s fps=%d mouse=%v", c.UI.Mode, c.UI.TargetFPS, c.UI.EnableMouse),
		fmt.Sprintf("Animation: mode=%s step=%g stagger=%g", c.Animation.Mode, c.Animation.Step, c.Animation.Stagger),
	}
	if c.Logging.Enabled {
		lines = append(lines, fmt.Sprintf("Logging: %s (retention %d days)", c.Logging.Dir, c.Logging.RetentionDays))
	}
	return lines
}
