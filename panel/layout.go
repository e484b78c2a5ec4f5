// Package panel lays out a diagnostics snapshot as fixed-height rows and
// paints them, with a flowing overlay per row, onto any Canvas.
package panel

import (
	"sysdiag/anim"
	"sysdiag/diag"
	"sysdiag/style"
)

// Measurer reports the display width of text on a surface.
type Measurer interface {
	TextWidth(text string) int
}

// Options is the panel geometry, in surface units (terminal cells).
type Options struct {
	Margin       int
	RowHeight    int
	RowSpacing   int
	TopMargin    int
	RowPadding   int
	IconWidth    int
	LabelInset   int
	ValuePadding int
	Radius       int
	Stagger      float64
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Margin:       1,
		RowHeight:    3,
		RowSpacing:   1,
		TopMargin:    3,
		RowPadding:   10,
		IconWidth:    4,
		LabelInset:   2,
		ValuePadding: 1,
		Radius:       1,
		Stagger:      0.1,
	}
}

// Row is one laid-out entry.
type Row struct {
	Key        string
	Value      string
	Style      style.Style
	LabelWidth int
	ValueWidth int
	MinWidth   int
	Top        int
	Phase      anim.Phase
}

// Geometry is the size of the row area, recomputed on every draw.
type Geometry struct {
	Width  int
	Height int
}

// NodeSize is the size the host node must take to show the panel unclipped.
type NodeSize struct {
	Width  int
	Height int
}

// BuildRows resolves style and measures every entry, keeping snapshot order.
func BuildRows(snap diag.Snapshot, m Measurer, phase anim.Phase, opts Options) []Row {
	rows := make([]Row, len(snap))
	for i, e := range snap {
		labelW := m.TextWidth(e.Key)
		valueW := m.TextWidth(e.Value)
		rows[i] = Row{
			Key:        e.Key,
			Value:      e.Value,
			Style:      style.Resolve(e.Key),
			LabelWidth: labelW,
			ValueWidth: valueW,
			MinWidth:   labelW + valueW + opts.RowPadding,
			Top:        opts.TopMargin + i*(opts.RowHeight+opts.RowSpacing),
			Phase:      phase.Stagger(i, opts.Stagger),
		}
	}
	return rows
}

// Measure returns the panel geometry for rows: the widest row sets the
// width, and every row adds its height plus spacing below the top margin.
func Measure(rows []Row, opts Options) Geometry {
	width := 0
	for _, r := range rows {
		if r.MinWidth > width {
			width = r.MinWidth
		}
	}
	return Geometry{
		Width:  width,
		Height: len(rows)*(opts.RowHeight+opts.RowSpacing) + opts.TopMargin,
	}
}

// NodeSize adds the outer margin around g.
func (g Geometry) NodeSize(margin int) NodeSize {
	return NodeSize{
		Width:  g.Width + 2*margin,
		Height: g.Height + margin,
	}
}
