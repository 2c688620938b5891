package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestGetStatusStyle(t *testing.T) {
	tests := []struct {
		status string
		want   lipgloss.Color
	}{
		{"ok", Success},
		{"partial", Warning},
		{"failed", Error},
		{"skipped", TextMuted},
	}

	for _, tt := range tests {
		got := GetStatusStyle(tt.status).GetForeground()
		if got != tt.want {
			t.Errorf("GetStatusStyle(%q) foreground = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestGetKindColor(t *testing.T) {
	if GetKindColor("bb") != BodyBattery || GetKindColor("hr") != HeartRate || GetKindColor("x") != Subtle {
		t.Error("unexpected kind colors")
	}
}
