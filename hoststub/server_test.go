package hoststub

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	dir     string
	fixture string
	server  *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.fixture = filepath.Join(s.dir, "system_info.yaml")
	s.writeFixture("Python Version: \"3.11\"\nOS: linux\n\"Env: CUDA_HOME\": /usr/local/cuda\n")

	srv, err := New(s.fixture, "test")
	s.Require().NoError(err)
	s.server = srv
}

func (s *ServerTestSuite) writeFixture(text string) {
	s.Require().NoError(os.WriteFile(s.fixture, []byte(text), 0o644))
}

func (s *ServerTestSuite) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) TestServesFixtureInOrder() {
	rec := s.get(InfoPath)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "application/json")
	s.Equal(`{"Python Version":"3.11","OS":"linux","Env: CUDA_HOME":"/usr/local/cuda"}`, rec.Body.String())
}

func (s *ServerTestSuite) TestForcedStatus() {
	rec := s.get(InfoPath + "?status=500")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "Internal Server Error")

	rec = s.get(InfoPath + "?status=abc")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.get(InfoPath + "?status=42")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestReloadPicksUpChanges() {
	s.writeFixture("GPU: RTX\n")

	req := httptest.NewRequest(http.MethodPost, "/fixture/reload", nil)
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"entries":1}`, rec.Body.String())

	s.Equal(`{"GPU":"RTX"}`, s.get(InfoPath).Body.String())
}

func (s *ServerTestSuite) TestReloadKeepsPreviousOnError() {
	s.writeFixture("- not\n- a mapping\n")

	req := httptest.NewRequest(http.MethodPost, "/fixture/reload", nil)
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	s.Len(s.server.Snapshot(), 3)
}

func (s *ServerTestSuite) TestHealthAndUnknownRoutes() {
	rec := s.get("/healthz")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok test", rec.Body.String())

	rec = s.get("/nonexistent")
	s.Equal(http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, InfoPath, nil)
	rec = httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *ServerTestSuite) TestNewFailsOnMissingFixture() {
	_, err := New(filepath.Join(s.dir, "absent.yaml"), "test")
	s.Error(err)
}

func (s *ServerTestSuite) TestShutdownWithoutStart() {
	s.NoError(s.server.Shutdown())
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
