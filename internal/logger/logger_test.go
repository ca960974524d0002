package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesObjectField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core))

	log.InfoObj("detection complete", "detection", map[string]any{"confidence": 84.0})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if _, ok := fields["detection"]; !ok {
		t.Fatalf("expected detection field, got %#v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warning") != zapcore.WarnLevel {
		t.Fatalf("warning should map to warn level")
	}
	if parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("unknown level should default to info")
	}
}

func TestEnsureReturnsNop(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("Ensure(nil) should return NopLogger")
	}
}
