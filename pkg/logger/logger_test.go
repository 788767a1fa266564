package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"production", "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"development", "", zapcore.DebugLevel, zapcore.Level(-2)},
		{"production", "warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"development", "bogus", zapcore.DebugLevel, zapcore.Level(-2)},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.env, tt.level)
		if err != nil {
			t.Fatalf("NewLogger(%q, %q): %v", tt.env, tt.level, err)
		}
		if !l.Core().Enabled(tt.enabled) {
			t.Errorf("%s/%s: expected %v enabled", tt.env, tt.level, tt.enabled)
		}
		if l.Core().Enabled(tt.disabled) {
			t.Errorf("%s/%s: expected %v disabled", tt.env, tt.level, tt.disabled)
		}
	}
}
