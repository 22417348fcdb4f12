package middleware

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/appctx"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
)

// quietPaths are probed constantly and only logged when they fail.
var quietPaths = map[string]bool{
	"/metrics":            true,
	"/api/v1/health/live": true,
}

// Logger writes one access line per request and records request metrics.
// Server errors log at error level, client errors at warn.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(req.Method, route, res.Status, elapsed.Seconds())

			if quietPaths[route] && res.Status < http.StatusBadRequest {
				return nil
			}

			ctx := req.Context()
			entry := logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":    appctx.GetRequestID(ctx),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"route":         route,
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"response_time": elapsed,
				"response_size": res.Size,
			})
			switch {
			case res.Status >= http.StatusInternalServerError:
				entry.Error("Request failed")
			case res.Status >= http.StatusBadRequest:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request")
			}
			return nil
		}
	}
}
