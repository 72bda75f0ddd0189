package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"phonestorage/internal/pkg/logging"
	"phonestorage/internal/pkg/response"
)

// ErrorLogger logs request errors and 5xx responses, and turns panics into
// a JSON 500.
func ErrorLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				logRequestError(log, c, start, "panic", err.Error()).
					Bytes("stack", debug.Stack()).
					Msg("request panicked")

				response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					logRequestError(log, c, start, "http_error", fmt.Sprintf("status=%d", c.Writer.Status())).
						Msg("request failed")
				}
				return
			}

			for _, err := range c.Errors {
				ev := logRequestError(log, c, start, fmt.Sprintf("%v", err.Type), err.Error())
				if err.Meta != nil {
					ev = ev.Interface("meta", err.Meta)
				}
				ev.Msg("request error")
			}
		}()

		c.Next()
	}
}

func logRequestError(log zerolog.Logger, c *gin.Context, start time.Time, errType, message string) *zerolog.Event {
	return log.Error().
		Str("type", errType).
		Int("status", c.Writer.Status()).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("query", c.Request.URL.RawQuery).
		Str("client_ip", c.ClientIP()).
		Str("request_id", requestID(c)).
		Str("latency", logging.Since(start)).
		Str("error", message)
}

// AccessLog writes one line per request. Upload tokens appear in paths, so
// only the matched route pattern is logged.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Str("client_ip", c.ClientIP()).
			Str("request_id", requestID(c)).
			Str("latency", logging.Since(start)).
			Msg("request")
	}
}
