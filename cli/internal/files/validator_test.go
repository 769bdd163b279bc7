package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "notes.txt", "hello")
	b := writeFile(t, dir, "blob.unknownext", "12345678")

	infos, err := ValidateFiles([]string{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos", len(infos))
	}
	if infos[0].Name != "notes.txt" || infos[0].Size != 5 || !strings.HasPrefix(infos[0].Type, "text/plain") {
		t.Errorf("unexpected info %+v", infos[0])
	}
	if infos[1].Type != "application/octet-stream" {
		t.Errorf("unknown extension typed as %q", infos[1].Type)
	}
	if GetTotalSize(infos) != 13 {
		t.Errorf("total = %d", GetTotalSize(infos))
	}
}

func TestValidateFilesCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.txt", "")
	missing := filepath.Join(dir, "missing.txt")

	_, err := ValidateFiles([]string{empty, missing, dir})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"file is empty", "does not exist", "is a directory"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateFilesRejectsDuplicateNames(t *testing.T) {
	a := writeFile(t, t.TempDir(), "same.txt", "one")
	b := writeFile(t, t.TempDir(), "same.txt", "two")

	if _, err := ValidateFiles([]string{a, b}); err == nil || !strings.Contains(err.Error(), "same name") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidateFilesEmpty(t *testing.T) {
	if _, err := ValidateFiles(nil); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("got %v", err)
	}
}
