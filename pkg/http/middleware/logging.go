package middleware

import (
	"time"

	applogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request at debug level, 4xx at warn.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", status),
				applogger.Duration("latency_ms", time.Since(start)),
			}
			switch {
			case status >= 500:
				// logged by the metrics middleware
			case status >= 400:
				l.Warn("request", fields...)
			default:
				l.Debug("request", fields...)
			}
			return nil
		}
	}
}
