package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pairworks/tpsflow/internal/types"
)

func TestGetReturnsTemplateBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tps-vanilla.pdf"), []byte("%PDF-fake"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	b, err := NewSource(dir).Get(CanonicalKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(b) != "%PDF-fake" {
		t.Errorf("Unexpected bytes: %q", b)
	}
}

func TestGetUnknownKeyIsNotFound(t *testing.T) {
	if _, err := NewSource(t.TempDir()).Get("missing"); !types.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestGetRejectsPathTraversal(t *testing.T) {
	src := NewSource(t.TempDir())
	for _, key := range []string{"../etc/passwd", "a/b", "UPPER", "", ".hidden"} {
		if _, err := src.Get(key); !types.IsValidation(err) {
			t.Errorf("Key %q: expected validation error, got %v", key, err)
		}
	}
}
