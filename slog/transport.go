// Package slog provides logging decorators for subsync interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/akarol/subsync"
)

// Ensure LoggingTransport implements subsync.Transport.
var _ subsync.Transport = (*LoggingTransport)(nil)

// LoggingTransport wraps a Transport with debug logging.
type LoggingTransport struct {
	next   subsync.Transport
	logger *slog.Logger
}

// NewLoggingTransport creates a new LoggingTransport.
func NewLoggingTransport(next subsync.Transport, logger *slog.Logger) *LoggingTransport {
	return &LoggingTransport{next: next, logger: logger}
}

// Fetch delegates to the wrapped transport and logs the request.
func (t *LoggingTransport) Fetch(ctx context.Context, url string) (resp *subsync.Response, err error) {
	defer func(begin time.Time) {
		status := 0
		size := 0
		if resp != nil {
			status = resp.StatusCode
			size = len(resp.Body)
		}
		t.logger.Debug("fetch",
			"url", url,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.Fetch(ctx, url)
}
