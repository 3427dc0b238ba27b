package testhelpers

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
)

// ObservedLogger returns a logger whose entries can be inspected.
func ObservedLogger(t *testing.T) (logger.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}
