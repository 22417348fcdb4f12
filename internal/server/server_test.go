package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/michaeltoohig/unofficial-vfsc-graph/config"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/routes/health"
)

type pingHandler struct{}

func (pingHandler) Register(g *echo.Group) {
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Routes(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	cfg := config.Config{AppName: "vfsc-graph", Port: 0, AllowOrigins: []string{"*"}, AllowMethods: []string{"GET"}}
	s := New(cfg, logger, health.NewChecker("test"), pingHandler{})

	rec := get(s, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	assert.Equal(t, http.StatusOK, get(s, "/api/v1/health/live").Code)
	assert.Equal(t, http.StatusOK, get(s, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/nope").Code)
}
