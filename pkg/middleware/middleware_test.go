package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
)

func newTestEcho() *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	return e
}

func TestError_HTTPError(t *testing.T) {
	e := newTestEcho()
	e.GET("/missing", func(c echo.Context) error {
		return httperror.NewHTTPError(http.StatusNotFound, "no such node")
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "no such node")
	assert.Equal(t, "req-123", body.RequestID)
}

func TestError_PlainErrorIs500(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("connection reset")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.NotEmpty(t, body.RequestID)
}

func TestError_EchoHTTPError(t *testing.T) {
	e := newTestEcho()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/not-routed", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogger_RecordsRequestsByRouteAndClass(t *testing.T) {
	e := newTestEcho()
	e.GET("/companies/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return httperror.NewHTTPError(http.StatusNotFound, "no such company")
		}
		return c.NoContent(http.StatusOK)
	})

	ok := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/companies/:id", "2xx")
	missing := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/companies/:id", "4xx")
	okBefore := testutil.ToFloat64(ok)
	missingBefore := testutil.ToFloat64(missing)

	for _, path := range []string{"/companies/1", "/companies/2", "/companies/0"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, missingBefore+1, testutil.ToFloat64(missing))
}

func TestError_DeadlineIs504(t *testing.T) {
	e := newTestEcho()
	e.GET("/graph", func(c echo.Context) error {
		return fmt.Errorf("build graph: %w", context.DeadlineExceeded)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
