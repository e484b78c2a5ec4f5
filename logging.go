package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sysdiag/config"
	"sysdiag/internal/ratelimit"
	"sysdiag/strutil"
)

// Every complete log line is stamped once and handed to the console (stdout,
// or the UI console pane while the node is up) and, with logging.enabled, to
// a per-day file under logging.dir.

const (
	logTimestampLayout = "2006/01/02 15:04:05"
	logFileDateLayout  = "2006-01-02"
	logFilePrefix      = "sysdiag-"
	logFileSuffix      = ".log"
	maxLogBufferBytes  = 16 * 1024
	logErrorInterval   = time.Minute
)

type consoleSink struct {
	w     io.Writer
	stamp bool
}

func (c consoleSink) write(line string, now time.Time) {
	if c.w == nil {
		return
	}
	if c.stamp {
		line = logStamp(now) + " " + line
	}
	_, _ = io.WriteString(c.w, line+"\n")
}

// dailyLog appends to sysdiag-YYYY-MM-DD.log (UTC dates). Each file it opens
// starts with the session header, so a file found on its own still names
// the build and endpoint that wrote it.
type dailyLog struct {
	dir       string
	retention int
	errors    *ratelimit.Counter

	mu     sync.Mutex
	header func() []string
	date   string
	path   string
	file   *os.File
}

// Purpose: Prepare the log directory and drop files past retention.
// Key aspects: The first file is opened lazily on the first line.
// Upstream: setupLogging.
// Downstream: pruneLogs.
func openDailyLog(dir string, retentionDays int) (*dailyLog, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("log directory is empty")
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	d := &dailyLog{
		dir:       dir,
		retention: retentionDays,
		errors:    ratelimit.NewCounter(logErrorInterval),
	}
	if err := pruneLogs(dir, time.Now(), retentionDays); err != nil {
		d.report(fmt.Errorf("prune %s: %w", dir, err))
	}
	return d, nil
}

// SetHeader sets the lines written at the top of every new file. header
// runs with the file lock held, so it must not log.
func (d *dailyLog) SetHeader(header func() []string) {
	d.mu.Lock()
	d.header = header
	d.mu.Unlock()
}

func (d *dailyLog) write(line string, now time.Time) {
	if d == nil {
		return
	}
	now = now.UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	if date := now.Format(logFileDateLayout); d.file == nil || d.date != date {
		if err := d.openLocked(date, now); err != nil {
			d.report(err)
			return
		}
	}
	if _, err := d.file.WriteString(logStamp(now) + " " + line + "\n"); err != nil {
		d.report(fmt.Errorf("write %s: %w", d.path, err))
	}
}

func (d *dailyLog) openLocked(date string, now time.Time) error {
	prev := d.path
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", d.dir, err)
	}
	path := filepath.Join(d.dir, logFileName(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	d.file, d.date, d.path = file, date, path

	var intro []string
	if d.header != nil {
		intro = d.header()
	}
	if prev != "" && prev != path {
		intro = append(intro, "continued from "+filepath.Base(prev))
	}
	for _, line := range intro {
		if _, err := file.WriteString(logStamp(now) + " " + line + "\n"); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := pruneLogs(d.dir, now, d.retention); err != nil {
		d.report(fmt.Errorf("prune %s: %w", d.dir, err))
	}
	return nil
}

// report writes to stderr at most once per logErrorInterval. Logging through
// the fanout here would recurse.
func (d *dailyLog) report(err error) {
	if total, ok := d.errors.Inc(); ok {
		fmt.Fprintf(os.Stderr, "Logging: %v (%d errors so far)\n", err, total)
	}
}

// Path is the file currently written, empty before the first line.
func (d *dailyLog) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

func (d *dailyLog) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// logFanout is the log package's output.
type logFanout struct {
	mu      sync.Mutex
	pending []byte
	console consoleSink
	file    *dailyLog
}

// Purpose: Wire logging from config without blocking startup.
// Key aspects: Returns a usable console-only fanout when the file sink fails.
// Upstream: main startup.
// Downstream: openDailyLog.
func setupLogging(cfg config.LoggingConfig, console io.Writer) (*logFanout, error) {
	f := &logFanout{console: consoleSink{w: console, stamp: true}}
	if !cfg.Enabled {
		return f, nil
	}
	file, err := openDailyLog(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return f, err
	}
	f.file = file
	return f, nil
}

// SetConsole moves console output, e.g. into the UI console pane.
func (f *logFanout) SetConsole(w io.Writer, stamp bool) {
	f.mu.Lock()
	f.console = consoleSink{w: w, stamp: stamp}
	f.mu.Unlock()
}

// SetFileHeader is a no-op when file logging is off.
func (f *logFanout) SetFileHeader(header func() []string) {
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file != nil {
		file.SetHeader(header)
	}
}

// Write buffers partial lines; an unterminated tail longer than
// maxLogBufferBytes is emitted as a line of its own.
func (f *logFanout) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.pending = append(f.pending, p...)
	lines, rest := strutil.SplitLines(f.pending)
	if len(rest) > maxLogBufferBytes {
		if tail := string(bytes.TrimRight(rest, "\r")); tail != "" {
			lines = append(lines, tail)
		}
		rest = nil
	}
	f.pending = append(f.pending[:0], rest...)
	console, file := f.console, f.file
	f.mu.Unlock()

	now := time.Now()
	for _, line := range lines {
		console.write(line, now)
		file.write(line, now)
	}
	return len(p), nil
}

func (f *logFanout) Close() error {
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	return file.Close()
}

func logStamp(now time.Time) string {
	return now.UTC().Format(logTimestampLayout)
}

func logFileName(now time.Time) string {
	return logFilePrefix + now.UTC().Format(logFileDateLayout) + logFileSuffix
}

// logFileDate reports the date encoded in a name produced by logFileName.
func logFileDate(name string) (time.Time, bool) {
	base, ok := strings.CutPrefix(name, logFilePrefix)
	if !ok {
		return time.Time{}, false
	}
	base, ok = strings.CutSuffix(base, logFileSuffix)
	if !ok {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation(logFileDateLayout, base, time.UTC)
	return date, err == nil
}

// pruneLogs removes log files dated before the retention window, which
// includes today.
func pruneLogs(dir string, now time.Time, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	y, m, day := now.UTC().Date()
	cutoff := time.Date(y, m, day-(retentionDays-1), 0, 0, 0, 0, time.UTC)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if date, ok := logFileDate(entry.Name()); ok && date.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}
