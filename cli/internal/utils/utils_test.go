package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatters(t *testing.T) {
	if got := FormatSize(1536); got != "1.50 KB" {
		t.Errorf("FormatSize = %q", got)
	}
	if got := FormatSize(12); got != "12 B" {
		t.Errorf("FormatSize = %q", got)
	}
	if got := FormatSpeed(2 * 1024 * 1024); got != "2.00 MB/s" {
		t.Errorf("FormatSpeed = %q", got)
	}
	if got := FormatTimeDuration(3723 * time.Second); got != "1h 2m 3s" {
		t.Errorf("FormatTimeDuration = %q", got)
	}
	if got := FormatTimeDuration(42 * time.Second); got != "42s" {
		t.Errorf("FormatTimeDuration = %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateString("a-very-long-name.txt", 10); got != "a-very-..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateString("héllo wörld", 5); got != "hé..." {
		t.Errorf("got %q", got)
	}
}

func TestGetUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "report.pdf")
	if got := GetUniqueFilename(name); got != name {
		t.Fatalf("free name changed: %s", got)
	}

	if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report (1).pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := GetUniqueFilename(name); got != filepath.Join(dir, "report (2).pdf") {
		t.Fatalf("got %s", got)
	}
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":             "photo.jpg",
		"../../etc/passwd":      "passwd",
		`..\..\windows\win.ini`: "win.ini",
		"/abs/path/file.txt":    "file.txt",
		"..":                    "download",
		"":                      "download",
	}
	for in, want := range tests {
		if got := SafeFilename(in); got != want {
			t.Errorf("SafeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
