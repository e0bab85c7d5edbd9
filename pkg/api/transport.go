package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/logging"
)

// LoggingTransport returns a round tripper that logs each exchange at DEBUG level.
// Pass nil logger to disable logging.
func LoggingTransport(next http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	// If no logger provided, pass through without logging
	if logger == nil {
		return next
	}
	return &loggingTransport{next: next, logger: logger}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", logging.SanitizeURL(req.URL.String())),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.String("error", logging.SanitizeError(err)))
		t.logger.Debug("HTTP exchange failed", fields...)
		return nil, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	t.logger.Debug("HTTP exchange", fields...)
	return resp, nil
}
