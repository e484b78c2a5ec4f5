package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"sysdiag/anim"
	"sysdiag/config"
	"sysdiag/diag"
	"sysdiag/internal/ratelimit"
	"sysdiag/panel"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Application hosts a single System Check node above the console log pane.
type Application struct {
	app       *tview.Application
	pages     *tview.Pages
	root      *tview.Flex
	nodeRow   *tview.Flex
	node      *Node
	logs      *logPane
	footer    *tview.TextView
	scheduler *frameScheduler
	driver    *anim.Driver
	fetcher   *diag.Fetcher
	metrics   *Metrics
	sink      diag.SnapshotSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	helpShown bool

	statusMu sync.Mutex
	status   fetchStatus
}

type fetchStatus struct {
	last     diag.FetchInfo
	have     bool
	inFlight int
}

// PanelOptions converts layout config into renderer options.
func PanelOptions(l config.LayoutConfig, stagger float64) panel.Options {
	return panel.Options{
		Margin:       l.Margin,
		RowHeight:    l.RowHeight,
		RowSpacing:   l.RowSpacing,
		TopMargin:    l.TopMargin,
		RowPadding:   l.RowPadding,
		IconWidth:    l.IconWidth,
		LabelInset:   l.LabelInset,
		ValuePadding: l.ValuePadding,
		Radius:       l.Radius,
		Stagger:      stagger,
	}
}

// NewApplication builds the UI, starts the animation driver and runs the
// tview event loop in the background. screen may be nil to use the
// terminal. metrics may be nil.
func NewApplication(cfg *config.Config, fetcher *diag.Fetcher, metrics *Metrics, screen tcell.Screen) *Application {
	a := newApplication(cfg, fetcher, metrics, screen)
	a.start()
	return a
}

func newApplication(cfg *config.Config, fetcher *diag.Fetcher, metrics *Metrics, screen tcell.Screen) *Application {
	if metrics == nil {
		metrics = NewMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := tview.NewApplication().EnableMouse(cfg.UI.EnableMouse)
	if screen != nil {
		app.SetScreen(screen)
	}
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})

	a := &Application{
		app:     app,
		fetcher: fetcher,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		ready:   ready,
		done:    make(chan struct{}),
	}
	a.scheduler = newFrameScheduler(func(fn func()) { app.QueueUpdateDraw(fn) }, cfg.UI.TargetFPS, 100*time.Millisecond, metrics.ObserveQueueDelay)
	a.driver = anim.NewDriver(cfg.Animation.Step, cfg.UI.TargetFPS, anim.ParseMode(cfg.Animation.Mode))

	a.node = NewNode(PanelOptions(cfg.Layout, cfg.Animation.Stagger), metrics).
		SetTriggerFunc(a.Refresh).
		SetResizeFunc(a.applySize).
		SetDirtyFunc(func() { a.scheduler.Schedule("draw", func() {}) })
	a.sink = queuedSink{node: a.node, schedule: a.scheduler.Schedule}

	a.logs = newLogPane("Console", cfg.UI.LogLines)
	a.footer = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	a.footer.SetText(a.statusText(time.Now()))

	size := a.node.DisplaySize()
	a.nodeRow = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.node, size.Width, 0, true).
		AddItem(nil, 0, 1, false)
	a.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.nodeRow, size.Height, 0, true).
		AddItem(a.logs, 0, 1, false).
		AddItem(a.footer, 1, 0, false)

	a.pages = tview.NewPages().
		AddPage("main", a.root, true, true).
		AddPage("help", buildHelpOverlay(), true, false)

	a.installKeybindings()
	app.SetRoot(a.pages, true).SetFocus(a.node)
	return a
}

func (a *Application) start() {
	a.scheduler.Start()
	a.driver.Start(a.ctx, a.node, func(fn func()) { a.scheduler.Schedule("phase", fn) })

	a.wg.Add(1)
	go a.statusLoop()

	go func() {
		defer close(a.done)
		if err := a.app.Run(); err != nil {
			log.Printf("UI: tview error: %v", err)
		}
	}()
}

func (a *Application) installKeybindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.helpShown {
			if event.Key() == tcell.KeyEsc || event.Rune() == 'h' || event.Rune() == '?' {
				a.toggleHelp(false)
				return nil
			}
		}
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'h', '?':
				a.toggleHelp(!a.helpShown)
				return nil
			}
		}
		if a.logs.HandleScroll(event) {
			return nil
		}
		return event
	})
}

func (a *Application) toggleHelp(show bool) {
	a.helpShown = show
	if show {
		a.pages.ShowPage("help")
		a.pages.SendToFront("help")
		return
	}
	a.pages.HidePage("help")
	a.app.SetFocus(a.node)
}

// Refresh starts one diagnostics fetch. Overlapping fetches are not
// coordinated; whichever completes last sets the snapshot.
func (a *Application) Refresh() {
	a.statusMu.Lock()
	a.status.inFlight++
	a.statusMu.Unlock()
	a.scheduleFooter()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		info := a.fetcher.Refresh(a.ctx, a.sink)
		a.metrics.Refresh(info.Err != nil)
		a.statusMu.Lock()
		a.status.inFlight--
		a.status.last = info
		a.status.have = true
		a.statusMu.Unlock()
		a.scheduleFooter()
	}()
}

// applySize runs on the UI goroutine from inside the node's draw.
func (a *Application) applySize(size panel.NodeSize) {
	a.nodeRow.ResizeItem(a.node, size.Width, 0)
	a.root.ResizeItem(a.nodeRow, size.Height, 0)
	a.scheduler.Schedule("draw", func() {})
}

func (a *Application) scheduleFooter() {
	a.scheduler.Schedule("footer", func() {
		a.footer.SetText(a.statusText(time.Now()))
	})
}

func (a *Application) statusLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.scheduleFooter()
		}
	}
}

func (a *Application) statusText(now time.Time) string {
	a.statusMu.Lock()
	st := a.status
	a.statusMu.Unlock()

	var b strings.Builder
	b.WriteString(accentText("r") + " Run  " + accentText("h") + " Help  " + accentText("q") + " Quit")
	b.WriteString("  |  ")
	switch {
	case st.inFlight > 0:
		b.WriteString("checking " + a.fetcher.URL() + "...")
	case !st.have:
		b.WriteString("no check yet")
	case st.last.Err != nil:
		fmt.Fprintf(&b, "last check failed %s", humanize.RelTime(st.last.FetchedAt, now, "ago", "from now"))
	default:
		fmt.Fprintf(&b, "last check %s  %s  %d rows  fp %016x",
			humanize.RelTime(st.last.FetchedAt, now, "ago", "from now"),
			humanize.Bytes(uint64(st.last.Bytes)),
			st.last.Rows,
			st.last.Fingerprint)
	}
	render := a.metrics.RenderSnapshot()
	fetch := a.metrics.FetchSnapshot()
	if render.N > 0 {
		fmt.Fprintf(&b, "  |  draw p50 %s p99 %s", render.P50.Round(time.Microsecond), render.P99.Round(time.Microsecond))
	}
	if fetch.N > 0 {
		fmt.Fprintf(&b, "  fetch p50 %s p99 %s", fetch.P50.Round(time.Millisecond), fetch.P99.Round(time.Millisecond))
	}
	return b.String()
}

// LogWriter returns a writer that feeds the console pane.
func (a *Application) LogWriter() io.Writer {
	if a == nil {
		return nil
	}
	return &paneWriter{
		pane:  a.logs,
		drops: ratelimit.NewCounter(dropNoticeInterval),
		notify: func() {
			a.scheduler.Schedule("logs", func() {})
		},
	}
}

// Node returns the hosted System Check node.
func (a *Application) Node() *Node {
	return a.node
}

func (a *Application) WaitReady() {
	if a == nil || a.ready == nil {
		return
	}
	<-a.ready
}

// Done is closed once the event loop has exited.
func (a *Application) Done() <-chan struct{} {
	return a.done
}

// Stop tears the node down: the driver and pending fetches see the
// cancelled context, then the event loop exits.
func (a *Application) Stop() {
	if a == nil {
		return
	}
	a.stopOnce.Do(func() {
		a.cancel()
		a.scheduler.Stop()
		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			log.Printf("UI: stop timeout, some goroutines may leak")
		}
		a.app.Stop()
	})
}

// queuedSink forwards fetch results to the node through the scheduler so
// the node is only mutated on the UI goroutine.
type queuedSink struct {
	node     *Node
	schedule func(id string, fn func())
}

func (s queuedSink) SetSnapshot(snap diag.Snapshot) {
	s.schedule("snapshot", func() { s.node.SetSnapshot(snap) })
}

func (s queuedSink) MarkDirty() {
	s.schedule("dirty", s.node.MarkDirty)
}

func buildHelpOverlay() tview.Primitive {
	help := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	help.SetText(strings.TrimSpace(fmt.Sprintf(`
KEYBOARD HELP

SYSTEM CHECK
  %sr%s / Enter / click the button   Run System Check
  %sh%s / ?  Help   q / Ctrl+C Quit

CONSOLE
  ↑/↓ or k/j Scroll   PageUp/Down Fast scroll   Home/End Top/Bottom
`, accentTag, accentReset, accentTag, accentReset)))
	help.SetBorder(true).SetTitle("Help")
	help.SetBorderColor(uiBorderColor)
	help.SetTitleColor(uiTitleColor)
	container := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(help, 10, 1, true).
			AddItem(nil, 0, 1, false),
			60, 1, true).
		AddItem(nil, 0, 1, false)
	return container
}
