package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sysdiag/config"
	"sysdiag/diag"

	"github.com/gdamore/tcell/v2"
)

func diagServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestApplication builds the UI without running the event loop and
// routes scheduled work through an inline queue.
func newTestApplication(t *testing.T, url string) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint.URL = url
	metrics := NewMetrics()
	fetcher := diag.NewFetcher(diag.Options{URL: url, ObserveLatency: metrics.ObserveFetch})
	a := newApplication(cfg, fetcher, metrics, nil)
	a.scheduler = newFrameScheduler(inlineQueue, 60, 50*time.Millisecond, nil)
	a.sink = queuedSink{node: a.node, schedule: a.scheduler.Schedule}
	t.Cleanup(a.cancel)
	return a
}

func TestApplicationRefreshStoresSnapshotOnUIQueue(t *testing.T) {
	srv := diagServer(t, http.StatusOK, `{"Python Version":"3.11","GPU":"RTX","Env: CUDA_HOME":"/usr/local/cuda"}`)
	a := newTestApplication(t, srv.URL+"/fl_system_info")

	a.Refresh()
	a.wg.Wait()
	if a.Node().Snapshot() != nil {
		t.Fatalf("expected node untouched until the queue flushes")
	}
	a.scheduler.flush()

	got := a.Node().Snapshot()
	if len(got) != 2 || got[0].Key != "Python Version" || got[1].Key != "GPU" {
		t.Fatalf("unexpected node snapshot %+v", got)
	}
	if !a.Node().Dirty() {
		t.Fatalf("expected node marked dirty")
	}
	if text := a.footer.GetText(false); !strings.Contains(text, "2 rows") {
		t.Fatalf("expected footer to report rows, got %q", text)
	}
	if total, failed := a.metrics.Refreshes(); total != 1 || failed != 0 {
		t.Fatalf("expected one successful refresh, got %d/%d", total, failed)
	}
	if a.metrics.FetchSnapshot().N != 1 {
		t.Fatalf("expected fetch latency observed")
	}
}

func TestApplicationRefreshFailureShowsErrorRow(t *testing.T) {
	srv := diagServer(t, http.StatusInternalServerError, `{}`)
	a := newTestApplication(t, srv.URL+"/fl_system_info")

	a.Refresh()
	a.wg.Wait()
	a.scheduler.flush()

	got := a.Node().Snapshot()
	if len(got) != 1 || got[0].Key != diag.ErrorKey {
		t.Fatalf("expected synthetic error snapshot, got %+v", got)
	}
	if text := a.footer.GetText(false); !strings.Contains(text, "failed") {
		t.Fatalf("expected footer to report failure, got %q", text)
	}
	if _, failed := a.metrics.Refreshes(); failed != 1 {
		t.Fatalf("expected failed refresh counted")
	}
}

func TestApplicationLogWriterFeedsConsole(t *testing.T) {
	a := newTestApplication(t, "http://127.0.0.1:1/fl_system_info")
	w := a.LogWriter()
	if _, err := w.Write([]byte("Error fetching system info: boom\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := a.logs.SnapshotText(); got != "Error fetching system info: boom" {
		t.Fatalf("unexpected console text %q", got)
	}
	if a.scheduler.Pending() != 1 {
		t.Fatalf("expected a console redraw to be scheduled")
	}
}

func TestStatusTextBeforeFirstCheck(t *testing.T) {
	a := newTestApplication(t, "http://127.0.0.1:1/fl_system_info")
	text := a.statusText(time.Now())
	if !strings.Contains(text, "no check yet") {
		t.Fatalf("expected idle status, got %q", text)
	}
	a.status.last = diag.FetchInfo{FetchedAt: time.Now().Add(-3 * time.Second), Bytes: 2048, Rows: 7, Fingerprint: 0xabc}
	a.status.have = true
	text = a.statusText(time.Now())
	for _, want := range []string{"3 seconds ago", "2.0 kB", "7 rows", "fp 0000000000000abc"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestApplicationRunAndStop(t *testing.T) {
	srv := diagServer(t, http.StatusOK, `{"OS":"linux"}`)
	cfg := config.Default()
	fetcher := diag.NewFetcher(diag.Options{URL: srv.URL})
	screen := tcell.NewSimulationScreen("UTF-8")

	a := NewApplication(cfg, fetcher, nil, screen)
	ready := make(chan struct{})
	go func() {
		a.WaitReady()
		close(ready)
	}()
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("application never drew")
	}

	a.Stop()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("event loop did not exit")
	}
}
