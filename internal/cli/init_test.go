package cli

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug", "worker")
	if logger.Component() != "worker" {
		t.Errorf("Component() = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled")
	}

	logger = SetupLogger("loud", "app")
	if logger.Enabled(context.Background(), slog.LevelDebug) || !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should fall back to info")
	}
}

func TestSignalContext_Cancel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, cancel := SignalContext(SetupLogger("error", "app"))
	cancel()
	<-ctx.Done()
}
