// Package loggertest provides loggers for tests.
package loggertest

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"raiserocket/internal/logger"
)

// New returns a Logger that writes through t.
func New(t testing.TB) logger.Logger {
	return logger.Wrap(zaptest.NewLogger(t))
}
