package home

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-copyforge")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-copyforge" {
			t.Errorf("expected path /tmp/test-copyforge, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-copyforge")

	t.Run("OutputsPath", func(t *testing.T) {
		expected := "/tmp/test-copyforge/outputs"
		if dir.OutputsPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.OutputsPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-copyforge/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("OutputPath", func(t *testing.T) {
		at := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
		got := dir.OutputPath("content", "Áo thun  Cotton!", at)
		expected := "/tmp/test-copyforge/outputs/content/20250102-150405-áo-thun-cotton.json"
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Serum Vitamin C", "serum-vitamin-c"},
		{"  --  ", "untitled"},
		{"Sữa rửa mặt", "sữa-rửa-mặt"},
		{"a/b\\c", "a-b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := slug(tt.in); got != tt.want {
				t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := slug(strings.Repeat("word ", 30))
	if n := len([]rune(long)); n > 48 || strings.HasSuffix(long, "-") {
		t.Errorf("long slug not capped cleanly: %q (%d runes)", long, n)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	copyforgeDir := filepath.Join(tmpDir, "copyforge-test")

	dir, err := New(copyforgeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.OutputsPath()); os.IsNotExist(err) {
		t.Error("outputs directory should exist after EnsureExists")
	}
}

func TestDir_ConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}

func TestDir_SaveOutput(t *testing.T) {
	dir, _ := New(t.TempDir())
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	path, err := dir.SaveOutput("product", "Serum", at, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("SaveOutput failed: %v", err)
	}
	if path != dir.OutputPath("product", "Serum", at) {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved output: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected content %s", data)
	}
}
