// Program sysdiag hosts the System Check node: on request it fetches the
// host's diagnostics mapping and paints it as animated, color-coded rows in
// the terminal. ui.mode selects the interactive tview node, a one-shot ANSI
// render, or a plain headless table.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sysdiag/config"
	"sysdiag/diag"
	"sysdiag/ui"

	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	defaultConfigPath = "data/config"
	envConfigPath     = "SYSDIAG_CONFIG_PATH"
	envEndpoint       = "SYSDIAG_ENDPOINT"
)

// Version will be set at build time
var Version = "dev"

func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Load configuration from env/default locations.
// Key aspects: Tries the env override first, then the default config dir.
// Upstream: main startup.
// Downstream: config.Load and os.IsNotExist.
func loadConfig() (*config.Config, string, error) {
	candidates := make([]string, 0, 2)
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	candidates = append(candidates, defaultConfigPath)

	var lastErr error
	for _, path := range candidates {
		cfg, err := config.Load(path)
		if err != nil {
			if os.IsNotExist(err) {
				lastErr = err
				continue
			}
			return nil, path, err
		}
		return cfg, cfg.LoadedFrom, nil
	}
	return nil, "", fmt.Errorf("unable to load config; tried %s (last error: %v)", strings.Join(candidates, ", "), lastErr)
}

// applyEnvOverrides lets SYSDIAG_ENDPOINT point a stock config at another host.
func applyEnvOverrides(cfg *config.Config) (string, bool) {
	url := strings.TrimSpace(os.Getenv(envEndpoint))
	if url == "" {
		return "", false
	}
	cfg.Endpoint.URL = url
	return url, true
}

// Purpose: Pick the renderer for this run.
// Key aspects: tview needs an interactive console and falls back to
// headless; ansi output may be piped.
// Upstream: main startup.
// Downstream: None.
func resolveUIMode(mode string, tty bool) string {
	switch mode {
	case config.UIModeTview:
		if !tty {
			log.Printf("UI disabled (tview requires an interactive console)")
			return config.UIModeHeadless
		}
		return mode
	case config.UIModeANSI, config.UIModeHeadless:
		return mode
	default:
		log.Printf("UI mode %q not recognized; defaulting to headless", mode)
		return config.UIModeHeadless
	}
}

// sessionHeader opens every log file. cfg is not modified once logging is up.
func sessionHeader(cfg *config.Config, source string) []string {
	header := []string{fmt.Sprintf("sysdiag v%s, config %s", Version, source)}
	return append(header, cfg.Summary()...)
}

func newFetcher(cfg *config.Config, metrics *ui.Metrics) *diag.Fetcher {
	return diag.NewFetcher(diag.Options{
		URL:            cfg.Endpoint.URL,
		Timeout:        time.Duration(cfg.Endpoint.TimeoutMS) * time.Millisecond,
		MaxBodyBytes:   cfg.Endpoint.MaxBodyBytes,
		UserAgent:      cfg.Endpoint.UserAgent + "/" + Version,
		ObserveLatency: metrics.ObserveFetch,
	})
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: unable to read .env: %v", err)
	}

	cfg, configSource, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	overrideURL, overridden := applyEnvOverrides(cfg)

	// Stdout carries only the table or ANSI render in the one-shot modes.
	fanout, logErr := setupLogging(cfg.Logging, os.Stderr)
	// The fanout stamps its own timestamps.
	log.SetFlags(0)
	log.SetOutput(fanout)
	if logErr != nil {
		log.Printf("Warning: file logging disabled: %v", logErr)
	}
	fanout.SetFileHeader(func() []string {
		return sessionHeader(cfg, configSource)
	})

	log.Printf("sysdiag v%s starting...", Version)
	log.Printf("Loaded configuration from %s", configSource)
	if overridden {
		log.Printf("Endpoint overridden by %s: %s", envEndpoint, overrideURL)
	}
	for _, line := range cfg.Summary() {
		log.Print(line)
	}

	mode := resolveUIMode(cfg.UI.Mode, isStdoutTTY())
	metrics := ui.NewMetrics()
	fetcher := newFetcher(cfg, metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch mode {
	case config.UIModeTview:
		runInteractive(ctx, cfg, fetcher, metrics, fanout)
	case config.UIModeANSI:
		runErr = runANSI(ctx, cfg, fetcher, os.Stdout)
	default:
		runErr = runHeadless(ctx, fetcher, os.Stdout)
	}

	_ = fanout.Close()
	if runErr != nil {
		os.Exit(1)
	}
}

// Purpose: Run the tview node until the user quits or a signal arrives.
// Key aspects: Log output moves into the console pane while the UI is up.
// Upstream: main when ui.mode=tview.
// Downstream: ui.NewApplication, logFanout.SetConsole.
func runInteractive(ctx context.Context, cfg *config.Config, fetcher *diag.Fetcher, metrics *ui.Metrics, fanout *logFanout) {
	app := ui.NewApplication(cfg, fetcher, metrics, nil)
	select {
	case <-readyChan(app):
	case <-app.Done():
		log.Printf("UI exited before first draw")
		return
	}
	fanout.SetConsole(app.LogWriter(), true)
	defer fanout.SetConsole(os.Stderr, true)

	log.Printf("Endpoint: %s", fetcher.URL())
	log.Printf("Press r or click [ Run System Check ] to fetch diagnostics.")

	select {
	case <-ctx.Done():
		log.Printf("Received shutdown signal")
	case <-app.Done():
	}
	app.Stop()
	select {
	case <-app.Done():
	case <-time.After(time.Second):
	}
	logSessionSummary(metrics)
}

func logSessionSummary(metrics *ui.Metrics) {
	total, failed := metrics.Refreshes()
	queue := metrics.QueueSnapshot()
	log.Printf("UI: %d frames drawn, %d checks (%d failed), queue delay p99 %s",
		metrics.Frames(), total, failed, queue.P99.Round(time.Microsecond))
}

func readyChan(app *ui.Application) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		app.WaitReady()
		close(ch)
	}()
	return ch
}

// captureSink keeps the snapshot a one-shot refresh produced.
type captureSink struct {
	snap  diag.Snapshot
	dirty bool
}

func (s *captureSink) SetSnapshot(snap diag.Snapshot) { s.snap = snap }
func (s *captureSink) MarkDirty()                     { s.dirty = true }

func checkOnce(ctx context.Context, fetcher *diag.Fetcher) (diag.Snapshot, diag.FetchInfo) {
	var sink captureSink
	info := fetcher.Refresh(ctx, &sink)
	return sink.snap, info
}

// runANSI renders the node once, with the same fallback row a failed fetch
// shows interactively.
func runANSI(ctx context.Context, cfg *config.Config, fetcher *diag.Fetcher, w io.Writer) error {
	snap, info := checkOnce(ctx, fetcher)
	if err := ui.RenderANSI(w, snap, ui.PanelOptions(cfg.Layout, cfg.Animation.Stagger)); err != nil {
		log.Printf("Render failed: %v", err)
		return err
	}
	return info.Err
}

func runHeadless(ctx context.Context, fetcher *diag.Fetcher, w io.Writer) error {
	snap, info := checkOnce(ctx, fetcher)
	writeTable(w, snap)
	if info.Err == nil {
		fmt.Fprintf(w, "\n%d entries from %s in %s (fp %016x)\n", info.Rows, fetcher.URL(), info.Duration.Round(time.Millisecond), info.Fingerprint)
	}
	return info.Err
}

// writeTable prints key/value pairs with the keys padded to a common
// display width so CJK and emoji keys stay aligned.
func writeTable(w io.Writer, snap diag.Snapshot) {
	width := 0
	for _, e := range snap {
		if kw := runewidth.StringWidth(e.Key); kw > width {
			width = kw
		}
	}
	for _, e := range snap {
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(e.Key, width), e.Value)
	}
}
