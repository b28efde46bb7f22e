package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "clip-01.mp4", "clip-01.mp4"},
		{"spaces collapse", "north  gate cam", "north_gate_cam"},
		{"traversal", "../../etc/passwd", "etc_passwd"},
		{"hidden", ".secret", "secret"},
		{"unicode", "перекрёсток", "unknown"},
		{"empty", "", "unknown"},
		{"only symbols", "/// ", "unknown"},
		{"keeps underscores once", "a__b", "a__b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}

	long := SanitizeFilename(strings.Repeat("x", 500))
	assert.Len(t, long, maxFilenameLen)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "clip_3f2a9c1d.csv", ExportFilename("/videos/clip.mp4", "3f2a9c1d-7b3e-4a51-9d0c-2b6f1e0a9b77", "csv"))
	assert.Equal(t, "camera_0_run-1.html", ExportFilename("camera 0", "run-1", ".html"))
	assert.Equal(t, "unknown_abc.csv", ExportFilename("", "abc", "csv"))
	assert.Equal(t, "detections.csv", ExportFilename("logs/detections.csv", "", "csv"))
}
