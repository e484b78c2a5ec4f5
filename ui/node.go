package ui

import (
	"time"

	"sysdiag/anim"
	"sysdiag/diag"
	"sysdiag/panel"
	"sysdiag/style"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	titleBarColor = "#2a363b"
	nodeBodyColor = "#4F0074"
	nodeTitle     = "System Check"
	buttonLabel   = "Run System Check"
)

// Node is the System Check node: a title bar, a trigger button and a
// foreground slot that paints the diagnostics panel below them.
//
// Node state is only touched on the UI goroutine; other goroutines go
// through the application's scheduler.
type Node struct {
	*tview.Box

	opts    panel.Options
	metrics *Metrics

	snapshot diag.Snapshot
	phase    anim.Phase
	size     panel.NodeSize
	dirty    bool

	drawForeground func(c panel.Canvas)
	onTrigger      func()
	onResize       func(panel.NodeSize)
	onDirty        func()
}

// NewNode returns a node whose foreground draws the panel for the
// current snapshot and phase. metrics may be nil.
func NewNode(opts panel.Options, metrics *Metrics) *Node {
	n := &Node{
		Box:     tview.NewBox(),
		opts:    opts,
		metrics: metrics,
	}
	n.SetBackgroundColor(toTcell(style.Parse(nodeBodyColor)))
	n.size = n.headerSize()
	n.drawForeground = func(c panel.Canvas) {
		panel.Render(c, n.snapshot, n.phase, n.opts, n.resize)
	}
	return n
}

// SetDrawForeground replaces the foreground slot, invoked on every redraw
// after the chrome is painted.
func (n *Node) SetDrawForeground(fn func(c panel.Canvas)) *Node {
	n.drawForeground = fn
	return n
}

// SetTriggerFunc sets what "Run System Check" does.
func (n *Node) SetTriggerFunc(fn func()) *Node {
	n.onTrigger = fn
	return n
}

// SetResizeFunc is called with the display size whenever the panel
// reports a new node size.
func (n *Node) SetResizeFunc(fn func(panel.NodeSize)) *Node {
	n.onResize = fn
	return n
}

// SetDirtyFunc is called whenever the node is marked dirty.
func (n *Node) SetDirtyFunc(fn func()) *Node {
	n.onDirty = fn
	return n
}

func (n *Node) SetSnapshot(s diag.Snapshot) {
	n.snapshot = s
}

func (n *Node) Snapshot() diag.Snapshot {
	return n.snapshot
}

func (n *Node) SetPhase(p anim.Phase) {
	n.phase = p
}

func (n *Node) Phase() anim.Phase {
	return n.phase
}

// MarkDirty requests a redraw.
func (n *Node) MarkDirty() {
	n.dirty = true
	if n.onDirty != nil {
		n.onDirty()
	}
}

func (n *Node) Dirty() bool {
	return n.dirty
}

// Size is the size last reported by the panel renderer.
func (n *Node) Size() panel.NodeSize {
	return n.size
}

// DisplaySize is Size widened so the title and button stay visible when the
// panel is narrower than the chrome.
func (n *Node) DisplaySize() panel.NodeSize {
	size := n.size
	header := n.headerSize()
	if size.Width < header.Width {
		size.Width = header.Width
	}
	if size.Height < header.Height {
		size.Height = header.Height
	}
	return size
}

// Trigger runs the button action.
func (n *Node) Trigger() {
	if n.onTrigger != nil {
		n.onTrigger()
	}
}

func (n *Node) resize(size panel.NodeSize) {
	if size == n.size {
		return
	}
	n.size = size
	if n.onResize != nil {
		n.onResize(n.DisplaySize())
	}
}

func (n *Node) buttonText() string {
	return "[ " + buttonLabel + " ]"
}

func (n *Node) headerSize() panel.NodeSize {
	var m cellMeasurer
	width := m.TextWidth(n.buttonText())
	if tw := m.TextWidth(nodeTitle) + 2; tw > width {
		width = tw
	}
	return panel.NodeSize{Width: width + 2*n.opts.Margin, Height: n.opts.TopMargin}
}

func (n *Node) buttonRect() panel.Rect {
	var m cellMeasurer
	return panel.Rect{X: n.opts.Margin, Y: 1, W: m.TextWidth(n.buttonText()), H: 1}
}

func (n *Node) Draw(screen tcell.Screen) {
	start := time.Now()
	n.Box.DrawForSubclass(screen, n)

	x, y, w, h := n.GetRect()
	if w <= 0 || h <= 0 {
		return
	}
	c := newScreenCanvas(screen, x, y, w, h, style.Parse(nodeBodyColor))
	n.drawChrome(c, w)
	if n.drawForeground != nil {
		n.drawForeground(c)
	}
	n.dirty = false
	n.metrics.ObserveRender(time.Since(start))
}

func (n *Node) drawChrome(c *screenCanvas, width int) {
	white := style.Parse("#ffffff")
	c.FillRoundRect(panel.Rect{W: width, H: 1}, 0, style.Parse(titleBarColor))
	c.DrawText(1, 0, nodeTitle, white, true)

	btn := n.buttonRect()
	c.FillRoundRect(btn, 0, style.Parse(style.Lighten(titleBarColor, 10)))
	c.DrawText(btn.X, btn.Y, n.buttonText(), white, n.HasFocus())
}

func (n *Node) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return n.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		x, y := event.Position()
		if !n.InRect(x, y) {
			return false, nil
		}
		if action != tview.MouseLeftClick {
			return false, nil
		}
		setFocus(n)
		ox, oy, _, _ := n.GetRect()
		btn := n.buttonRect()
		if lx, ly := x-ox, y-oy; lx >= btn.X && lx < btn.X+btn.W && ly == btn.Y {
			n.Trigger()
		}
		return true, nil
	})
}

func (n *Node) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return n.WrapInputHandler(func(event *tcell.EventKey, _ func(p tview.Primitive)) {
		switch {
		case event.Key() == tcell.KeyEnter:
			n.Trigger()
		case event.Key() == tcell.KeyRune && event.Rune() == 'r':
			n.Trigger()
		}
	})
}
