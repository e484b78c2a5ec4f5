package hoststub

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"sysdiag/diag"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// InfoPath is the route the System Check node fetches.
	InfoPath        = "/fl_system_info"
	shutdownTimeout = 5 * time.Second
)

// Server replays a fixture over HTTP.
type Server struct {
	echo    *echo.Echo
	fixture string
	version string

	mu   sync.RWMutex
	snap diag.Snapshot
	body []byte
}

// New returns a server for the fixture at path. The fixture is read
// immediately so a bad file fails at startup.
func New(fixturePath, version string) (*Server, error) {
	s := &Server{
		echo:    echo.New(),
		fixture: fixturePath,
		version: version,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

// Reload re-reads the fixture file. The previous mapping stays in place if
// the new one does not parse.
func (s *Server) Reload() error {
	snap, err := LoadFixture(s.fixture)
	if err != nil {
		return err
	}
	return s.SetSnapshot(snap)
}

// SetSnapshot replaces the served mapping.
func (s *Server) SetSnapshot(snap diag.Snapshot) error {
	body, err := EncodeJSON(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.body = body
	s.mu.Unlock()
	return nil
}

// Snapshot returns the mapping currently served.
func (s *Server) Snapshot() diag.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
		Output: log.Writer(),
	}))
	s.echo.Use(middleware.Recover())

	s.echo.GET(InfoPath, s.getSystemInfo)
	s.echo.POST("/fixture/reload", s.reloadFixture)
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok "+s.version)
	})
}

// getSystemInfo serves the fixture. ?status=NNN answers with that status
// and a JSON error body instead, for exercising the client's failure path.
func (s *Server) getSystemInfo(c echo.Context) error {
	if raw := c.QueryParam("status"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil || code < 100 || code > 599 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "status must be an HTTP status code",
			})
		}
		return c.JSON(code, map[string]string{"error": http.StatusText(code)})
	}

	s.mu.RLock()
	body := s.body
	s.mu.RUnlock()
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

func (s *Server) reloadFixture(c echo.Context) error {
	if err := s.Reload(); err != nil {
		log.Printf("Fixture reload failed: %v", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	snap := s.Snapshot()
	log.Printf("Fixture reloaded: %d entries", len(snap))
	return c.JSON(http.StatusOK, map[string]int{"entries": len(snap)})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		snap := s.Snapshot()
		log.Printf("Serving %d fixture entries from %s on http://%s%s", len(snap), s.fixture, addr, InfoPath)
		log.Printf("Fixture keys: %s", strings.Join(snap.Keys(), ", "))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	log.Printf("Shutting down host stub...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		log.Printf("Host stub shutdown failed: %v", err)
		return err
	}
	return nil
}
