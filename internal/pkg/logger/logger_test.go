package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level, env string
		want       zapcore.Level
	}{
		{"debug", "development", zapcore.DebugLevel},
		{"warn", "production", zapcore.WarnLevel},
		{"loud", "production", zapcore.InfoLevel},
		{"", "", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		l, err := New(tt.level, tt.env)
		if err != nil {
			t.Fatalf("New(%q, %q) error = %v", tt.level, tt.env, err)
		}
		if !l.Core().Enabled(tt.want) {
			t.Errorf("New(%q) does not enable %v", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Errorf("New(%q) enables %v", tt.level, tt.want-1)
		}
	}
}
