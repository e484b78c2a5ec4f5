package diag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultMaxBodyBytes bounds the response body when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// SnapshotSink receives the result of a refresh. The panel node implements it.
type SnapshotSink interface {
	SetSnapshot(s Snapshot)
	MarkDirty()
}

// Options configures a Fetcher.
type Options struct {
	URL string
	// Timeout of zero leaves the request unbounded.
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Client       *http.Client
	// ObserveLatency, when set, receives the duration of every fetch.
	ObserveLatency func(time.Duration)
}

// FetchInfo summarizes one fetch attempt.
type FetchInfo struct {
	StatusCode  int
	Bytes       int64
	Duration    time.Duration
	FetchedAt   time.Time
	Rows        int
	Fingerprint uint64
	Changed     bool
	Err         error
}

// Fetcher retrieves diagnostics snapshots from the host endpoint.
type Fetcher struct {
	url       string
	timeout   time.Duration
	maxBody   int64
	userAgent string
	client    *http.Client
	observe   func(time.Duration)

	mu      sync.Mutex
	lastFP  uint64
	hasLast bool
}

// NewFetcher builds a Fetcher from opts.
func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Fetcher{
		url:       strings.TrimSpace(opts.URL),
		timeout:   opts.Timeout,
		maxBody:   maxBody,
		userAgent: opts.UserAgent,
		client:    client,
		observe:   opts.ObserveLatency,
	}
}

// URL returns the endpoint the fetcher reads from.
func (f *Fetcher) URL() string {
	if f == nil {
		return ""
	}
	return f.url
}

// Purpose: Perform one GET against the diagnostics endpoint and decode it.
// Key aspects: Non-2xx, oversized and malformed bodies are errors; the
// returned snapshot is already redacted.
// Upstream: Refresh, headless and ANSI one-shot modes.
// Downstream: http.Client.Do and Parse.
func (f *Fetcher) Fetch(ctx context.Context) (snap Snapshot, info FetchInfo, err error) {
	start := time.Now()
	info.FetchedAt = start
	defer func() {
		info.Duration = time.Since(start)
		if f.observe != nil {
			f.observe(info.Duration)
		}
	}()

	if f.url == "" {
		info.Err = errors.New("diag: endpoint URL is empty")
		return nil, info, info.Err
	}

	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.url, nil)
	if err != nil {
		info.Err = fmt.Errorf("diag: build request: %w", err)
		return nil, info, info.Err
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		info.Err = fmt.Errorf("diag: fetch failed: %w", err)
		return nil, info, info.Err
	}
	defer resp.Body.Close()
	info.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))
		info.Err = fmt.Errorf("diag: HTTP error! status: %d", resp.StatusCode)
		return nil, info, info.Err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		info.Err = fmt.Errorf("diag: read body: %w", err)
		return nil, info, info.Err
	}
	info.Bytes = int64(len(body))
	if info.Bytes > f.maxBody {
		info.Err = fmt.Errorf("diag: body exceeds %d bytes", f.maxBody)
		return nil, info, info.Err
	}

	snap, err = Parse(body)
	if err != nil {
		info.Err = err
		return nil, info, err
	}
	snap = Redact(snap)
	info.Rows = len(snap)
	info.Fingerprint = snap.Fingerprint()
	info.Changed = f.recordFingerprint(info.Fingerprint)
	return snap, info, nil
}

func (f *Fetcher) recordFingerprint(fp uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := !f.hasLast || f.lastFP != fp
	f.lastFP = fp
	f.hasLast = true
	return changed
}

// Purpose: Run one user-triggered refresh and hand the result to sink.
// Key aspects: Never fails; errors are logged and replaced by ErrorSnapshot.
// Concurrent calls are not coordinated, the last to finish wins.
// Upstream: node trigger (button, key press) and one-shot modes.
// Downstream: Fetch, SnapshotSink.SetSnapshot, SnapshotSink.MarkDirty.
func (f *Fetcher) Refresh(ctx context.Context, sink SnapshotSink) FetchInfo {
	snap, info, err := f.Fetch(ctx)
	if err != nil {
		log.Printf("Error fetching system info: %v", err)
		snap = ErrorSnapshot()
		info.Rows = len(snap)
		info.Fingerprint = snap.Fingerprint()
	} else if info.Changed {
		log.Printf("System info refreshed: %d entries (fingerprint %016x)", info.Rows, info.Fingerprint)
	} else {
		log.Printf("System info unchanged: %d entries", info.Rows)
	}
	if sink != nil {
		sink.SetSnapshot(snap)
		sink.MarkDirty()
	}
	return info
}
