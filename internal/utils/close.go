package utils

import (
	"io"

	"github.com/MrSnakeDoc/visitrelay/internal/logger"
)

// DrainClose discards what is left of an HTTP response body and closes it so
// the underlying connection can be reused. Errors are ignored.
func DrainClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64<<10))
	_ = rc.Close()
}

// LogClose closes c and logs any error at debug level.
// Use in defer statements where a failed close is worth a trace.
func LogClose(c io.Closer, log logger.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Debug("failed to close", logger.String("what", what), logger.Error(err))
	}
}
