package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sysdiag/config"
	"sysdiag/diag"
	"sysdiag/ui"
)

func diagServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher(url string) *diag.Fetcher {
	cfg := config.Default()
	cfg.Endpoint.URL = url
	return newFetcher(cfg, ui.NewMetrics())
}

func TestLoadConfigPrefersEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysdiag.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  mode: ansi\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)

	cfg, source, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if source != path || cfg.UI.Mode != config.UIModeANSI {
		t.Fatalf("expected config from %s, got %s (mode %s)", path, source, cfg.UI.Mode)
	}
}

func TestLoadConfigReportsInvalidEnvConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  mode: curses\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envConfigPath, path)
	if _, _, err := loadConfig(); err == nil {
		t.Fatalf("expected validation error to surface")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := config.Default()
	t.Setenv(envEndpoint, "")
	if _, ok := applyEnvOverrides(cfg); ok {
		t.Fatalf("expected no override when unset")
	}
	t.Setenv(envEndpoint, " http://10.0.0.5:8188/fl_system_info ")
	url, ok := applyEnvOverrides(cfg)
	if !ok || cfg.Endpoint.URL != "http://10.0.0.5:8188/fl_system_info" || url != cfg.Endpoint.URL {
		t.Fatalf("expected endpoint override, got %q", cfg.Endpoint.URL)
	}
}

func TestResolveUIMode(t *testing.T) {
	cases := []struct {
		mode string
		tty  bool
		want string
	}{
		{config.UIModeTview, true, config.UIModeTview},
		{config.UIModeTview, false, config.UIModeHeadless},
		{config.UIModeANSI, false, config.UIModeANSI},
		{config.UIModeHeadless, true, config.UIModeHeadless},
		{"curses", true, config.UIModeHeadless},
	}
	for _, tc := range cases {
		if got := resolveUIMode(tc.mode, tc.tty); got != tc.want {
			t.Fatalf("resolveUIMode(%q, %v) = %q, want %q", tc.mode, tc.tty, got, tc.want)
		}
	}
}

func TestRunHeadlessPrintsAlignedTable(t *testing.T) {
	srv := diagServer(t, http.StatusOK, `{"OS":"linux","Python Version":"3.11","Env: PYTHONPATH":"/x"}`)
	var out bytes.Buffer
	if err := runHeadless(context.Background(), testFetcher(srv.URL), &out); err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	if lines[0] != "OS              linux" {
		t.Fatalf("unexpected first row %q", lines[0])
	}
	if lines[1] != "Python Version  3.11" {
		t.Fatalf("unexpected second row %q", lines[1])
	}
	if strings.Contains(out.String(), "PYTHONPATH") {
		t.Fatalf("expected redacted entry to be absent")
	}
	if !strings.Contains(out.String(), "2 entries") {
		t.Fatalf("expected summary line, got %q", out.String())
	}
}

func TestRunHeadlessFailurePrintsErrorRow(t *testing.T) {
	srv := diagServer(t, http.StatusServiceUnavailable, `{}`)
	var out bytes.Buffer
	if err := runHeadless(context.Background(), testFetcher(srv.URL), &out); err == nil {
		t.Fatalf("expected fetch error to be returned")
	}
	if !strings.Contains(out.String(), diag.ErrorMessage) {
		t.Fatalf("expected synthetic error row, got %q", out.String())
	}
}

func TestRunANSIRendersNode(t *testing.T) {
	srv := diagServer(t, http.StatusOK, `{"GPU":"RTX 4090"}`)
	var out bytes.Buffer
	if err := runANSI(context.Background(), config.Default(), testFetcher(srv.URL), &out); err != nil {
		t.Fatalf("runANSI: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[") || !strings.Contains(out.String(), "R") {
		t.Fatalf("expected ANSI output, got %q", out.String())
	}
}

func TestWriteTableWideKeys(t *testing.T) {
	var out bytes.Buffer
	writeTable(&out, diag.Snapshot{{Key: "显卡", Value: "a"}, {Key: "OS", Value: "b"}})
	want := "显卡  a\nOS    b\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := config.Load(defaultConfigPath)
	if err != nil {
		t.Fatalf("shipped config: %v", err)
	}
	if cfg.Endpoint.URL != "http://127.0.0.1:8188/fl_system_info" || cfg.Host.Listen != "127.0.0.1:8188" {
		t.Fatalf("shipped config does not point the node at the host stub: %+v %+v", cfg.Endpoint, cfg.Host)
	}
}
