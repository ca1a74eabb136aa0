package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"60/1", 60},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"25", 0},
		{"abc/1", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseFrameRate(tt.in); got != tt.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEstimateFrameCount(t *testing.T) {
	if got := EstimateFrameCount(0.333333, 30); got != 10 {
		t.Errorf("expected 10 frames, got %d", got)
	}
	if got := EstimateFrameCount(0, 30); got != 0 {
		t.Errorf("expected 0 frames for zero duration, got %d", got)
	}
	if got := EstimateFrameCount(2, 0); got != 0 {
		t.Errorf("expected 0 frames for zero fps, got %d", got)
	}
}

func TestSafeExtension(t *testing.T) {
	tests := map[string]string{
		"match.mp4":           ".mp4",
		"clip.MKV":            ".MKV",
		"noext":               "",
		"../../etc/passwd":    "",
		"evil.mp4/../x":       "",
		"weird.m p4":          "",
		"a.verylongextension": "",
	}
	for in, want := range tests {
		if got := SafeExtension(in); got != want {
			t.Errorf("SafeExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTempFileAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	f, err := TempFile(dir, "upload-", ".mp4")
	if err != nil {
		t.Fatalf("TempFile failed: %v", err)
	}
	name := f.Name()
	_ = f.Close()

	if !strings.HasSuffix(name, ".mp4") {
		t.Errorf("expected .mp4 suffix, got %s", name)
	}
	if !FileExists(name) {
		t.Fatalf("temp file %s does not exist", name)
	}

	if err := CleanupFiles(name, filepath.Join(dir, "missing.mp4")); err != nil {
		t.Errorf("cleanup returned error: %v", err)
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("temp file still present after cleanup")
	}
}
