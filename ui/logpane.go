package ui

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"sysdiag/internal/ratelimit"
	"sysdiag/strutil"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"
)

const (
	paneWriterMaxBytes = 64 * 1024
	dropNoticeInterval = 30 * time.Second
)

const (
	accentTag   = "[#ff69b4]"
	accentReset = "[-]"
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorHotPink
)

// Console line colors. Fetch failures are logged as "Error fetching ...".
var (
	paneTextColor    = colorful.Color{R: 1, G: 1, B: 1}
	paneErrorColor   = colorful.Color{R: 0xe7 / 255.0, G: 0x4c / 255.0, B: 0x3c / 255.0}
	paneWarningColor = colorful.Color{R: 0xf1 / 255.0, G: 0xc4 / 255.0, B: 0x0f / 255.0}
)

// logPane is the console below the node: the newest max log lines, drawn
// so the tail stays visible unless the user scrolls back.
// Append may be called from any goroutine; Draw and HandleScroll run on the
// UI goroutine.
type logPane struct {
	*tview.Box

	mu      sync.Mutex
	lines   []string
	max     int
	dropped uint64
	// scrollBack counts rows hidden below the view; zero follows the tail.
	scrollBack int
}

func newLogPane(title string, max int) *logPane {
	if max <= 0 {
		max = 1
	}
	p := &logPane{
		Box:   tview.NewBox().SetBorder(true),
		lines: make([]string, 0, max),
		max:   max,
	}
	p.SetTitle(accentText(title)).SetTitleAlign(tview.AlignLeft)
	p.SetBorderColor(uiBorderColor)
	p.SetTitleColor(uiTitleColor)
	return p
}

func (p *logPane) Append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
	if over := len(p.lines) - p.max; over > 0 {
		p.lines = p.lines[over:]
		p.dropped += uint64(over)
	}
	if p.scrollBack > 0 {
		// Keep the rows being read in place.
		p.scrollBack++
	}
}

// rowsLocked is the full scrollable content: a notice for lines that fell
// out of the history, then the history oldest first.
func (p *logPane) rowsLocked() []string {
	if p.dropped == 0 {
		return p.lines
	}
	rows := make([]string, 0, len(p.lines)+1)
	rows = append(rows, "... "+strconv.FormatUint(p.dropped, 10)+" earlier lines dropped")
	return append(rows, p.lines...)
}

// windowLocked returns the rows visible in height rows and clamps
// scrollBack to the content.
func (p *logPane) windowLocked(height int) []string {
	rows := p.rowsLocked()
	maxBack := len(rows) - height
	if maxBack < 0 {
		maxBack = 0
	}
	if p.scrollBack > maxBack {
		p.scrollBack = maxBack
	}
	end := len(rows) - p.scrollBack
	start := end - height
	if start < 0 {
		start = 0
	}
	return rows[start:end]
}

func (p *logPane) Draw(screen tcell.Screen) {
	p.Box.DrawForSubclass(screen, p)
	x, y, width, height := p.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	p.mu.Lock()
	rows := p.windowLocked(height)
	p.mu.Unlock()

	bg := p.GetBackgroundColor()
	c := newScreenCanvas(screen, x, y, width, height, fromTcell(bg, colorful.Color{}))
	for i, row := range rows {
		c.DrawText(1, i, strings.ReplaceAll(row, "\t", " "), lineColor(row), false)
	}
}

func lineColor(line string) colorful.Color {
	switch {
	case strings.Contains(line, "Error") || strings.Contains(line, "failed"):
		return paneErrorColor
	case strings.Contains(line, "Warning"):
		return paneWarningColor
	default:
		return paneTextColor
	}
}

// HandleScroll scrolls for arrow, page, Home/End and j/k keys. End, or
// scrolling back to the bottom, resumes following new lines.
func (p *logPane) HandleScroll(event *tcell.EventKey) bool {
	if event == nil {
		return false
	}
	_, _, _, height := p.GetInnerRect()
	if height < 1 {
		height = 1
	}
	page := height - 1
	if page < 1 {
		page = 1
	}

	back := 0
	switch event.Key() {
	case tcell.KeyUp:
		back = 1
	case tcell.KeyDown:
		back = -1
	case tcell.KeyPgUp:
		back = page
	case tcell.KeyPgDn:
		back = -page
	case tcell.KeyHome, tcell.KeyEnd:
	case tcell.KeyRune:
		switch event.Rune() {
		case 'k':
			back = 1
		case 'j':
			back = -1
		default:
			return false
		}
	default:
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch event.Key() {
	case tcell.KeyHome:
		p.scrollBack = len(p.rowsLocked())
	case tcell.KeyEnd:
		p.scrollBack = 0
	default:
		p.scrollBack += back
	}
	if p.scrollBack < 0 {
		p.scrollBack = 0
	}
	p.windowLocked(height)
	return true
}

// Following reports whether new lines scroll into view.
func (p *logPane) Following() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollBack == 0
}

func (p *logPane) SnapshotText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.rowsLocked(), "\n")
}

// paneWriter turns log output into pane lines. notify, when set, runs after
// each batch of complete lines so the caller can request a redraw.
type paneWriter struct {
	pane   *logPane
	notify func()
	// drops throttles the overflow notice; nil suppresses it.
	drops *ratelimit.Counter

	mu sync.Mutex
	// buf holds the partial line, capped at paneWriterMaxBytes by dropping
	// its oldest bytes.
	buf          []byte
	droppedBytes uint64
}

func (w *paneWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var excess int
	if excess = len(w.buf) - paneWriterMaxBytes; excess > 0 {
		w.buf = w.buf[excess:]
		w.droppedBytes += uint64(excess)
	}
	total := w.droppedBytes
	lines, rest := strutil.SplitLines(w.buf)
	w.buf = append(w.buf[:0], rest...)
	w.mu.Unlock()

	for _, line := range lines {
		w.pane.Append(line)
	}
	if excess > 0 {
		if _, ok := w.drops.Inc(); ok {
			// Reported through the pane itself; log.Printf here would re-enter this writer.
			w.pane.Append("UI: console dropped " + strconv.Itoa(excess) +
				" bytes (total " + strconv.FormatUint(total, 10) + ") due to missing newline")
		}
	}
	if (len(lines) > 0 || excess > 0) && w.notify != nil {
		w.notify()
	}
	return len(p), nil
}

func accentText(text string) string {
	if text == "" {
		return ""
	}
	return accentTag + text + accentReset
}
