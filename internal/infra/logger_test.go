package infra

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		level, format string
		wantErr       bool
		wantLevel     logrus.Level
	}{
		{"info", "json", false, logrus.InfoLevel},
		{"debug", "text", false, logrus.DebugLevel},
		{"warn", "", false, logrus.WarnLevel},
		{"loud", "json", true, 0},
		{"info", "xml", true, 0},
	}
	for _, tc := range cases {
		log, err := NewLogger(tc.level, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NewLogger(%q, %q): expected error", tc.level, tc.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewLogger(%q, %q): %v", tc.level, tc.format, err)
		}
		if log.GetLevel() != tc.wantLevel {
			t.Errorf("level = %v, want %v", log.GetLevel(), tc.wantLevel)
		}
	}
}
