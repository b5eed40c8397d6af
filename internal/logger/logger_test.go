package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"pointstake/internal/config"
)

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer log.Sync()
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info must be enabled on the fallback level")
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug must stay disabled on the fallback level")
	}
}

func TestNew_Encodings(t *testing.T) {
	for _, encoding := range []string{"", "json", "console"} {
		if _, err := New(config.LogConfig{Level: "debug", Encoding: encoding}); err != nil {
			t.Fatalf("New(encoding=%q): %v", encoding, err)
		}
	}
}
