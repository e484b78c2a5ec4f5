package ui

import (
	"bufio"
	"fmt"
	"io"

	"sysdiag/diag"
	"sysdiag/panel"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// RenderANSI draws the node once for snap into an off-screen tcell screen
// sized to the node and writes it to w as 24-bit ANSI text. A nil snap
// renders the node chrome alone.
func RenderANSI(w io.Writer, snap diag.Snapshot, opts panel.Options) error {
	node := NewNode(opts, nil)
	node.SetSnapshot(snap)
	size := measureNode(node, snap, opts)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init render screen: %w", err)
	}
	defer screen.Fini()
	screen.SetSize(size.Width, size.Height)
	node.SetRect(0, 0, size.Width, size.Height)
	node.Draw(screen)
	screen.Show()

	cells, width, height := screen.GetContents()
	out := bufio.NewWriter(w)
	writeANSI(out, cells, width, height)
	return out.Flush()
}

func measureNode(node *Node, snap diag.Snapshot, opts panel.Options) panel.NodeSize {
	if snap != nil {
		rows := panel.BuildRows(snap, cellMeasurer{}, 0, opts)
		node.resize(panel.Measure(rows, opts).NodeSize(opts.Margin))
	}
	return node.DisplaySize()
}

func writeANSI(out *bufio.Writer, cells []tcell.SimCell, width, height int) {
	for y := 0; y < height; y++ {
		var last tcell.Style
		first := true
		for x := 0; x < width; x++ {
			cell := cells[y*width+x]
			if first || cell.Style != last {
				writeSGR(out, cell.Style)
				last = cell.Style
				first = false
			}
			text := string(cell.Runes)
			if text == "" {
				text = " "
			}
			out.WriteString(text)
			if uniseg.StringWidth(text) == 2 {
				x++
			}
		}
		out.WriteString("\x1b[0m\n")
	}
}

func writeSGR(out *bufio.Writer, st tcell.Style) {
	fg, bg, attr := st.Decompose()
	out.WriteString("\x1b[0")
	if attr&tcell.AttrBold != 0 {
		out.WriteString(";1")
	}
	if r, g, b := fg.RGB(); r >= 0 {
		fmt.Fprintf(out, ";38;2;%d;%d;%d", r, g, b)
	}
	if r, g, b := bg.RGB(); r >= 0 {
		fmt.Fprintf(out, ";48;2;%d;%d;%d", r, g, b)
	}
	out.WriteString("m")
}
