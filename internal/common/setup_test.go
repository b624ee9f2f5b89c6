package common

import (
	"testing"

	"go.uber.org/zap"
)

func TestInitializeLogger_ReplacesGlobal(t *testing.T) {
	previous := zap.L()
	defer zap.ReplaceGlobals(previous)

	zap.ReplaceGlobals(zap.NewNop())
	if zap.L().Core().Enabled(zap.ErrorLevel) {
		t.Fatal("Expected no-op global before initialization")
	}

	logger, cleanup := InitializeLogger()
	defer cleanup()

	if !zap.L().Core().Enabled(zap.InfoLevel) {
		t.Error("Expected global logger to accept info entries after initialization")
	}
	if zap.L() != logger {
		t.Error("Expected the returned logger to be the global one")
	}
}
