package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromEnhancedErrors(t *testing.T) {
	t.Run("file not found", func(t *testing.T) {
		tmpDir := t.TempDir()
		testPath := filepath.Join(tmpDir, "nonexistent.json")

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for nonexistent file")
		}
		if !strings.Contains(err.Error(), "config file not found") {
			t.Errorf("error should mention file not found, got: %v", err)
		}
		if !strings.Contains(err.Error(), "register") {
			t.Errorf("error should mention register command, got: %v", err)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		tmpDir := t.TempDir()
		testPath := filepath.Join(tmpDir, "config.json")

		// Create file with no read permissions
		if err := os.WriteFile(testPath, []byte(`{"apis": {}}`), 0000); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for permission denied")
		}
		if !strings.Contains(err.Error(), "permission denied") {
			t.Errorf("error should mention permission denied, got: %v", err)
		}
		if !strings.Contains(err.Error(), "chmod 644") {
			t.Errorf("error should suggest chmod fix, got: %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		testPath := filepath.Join(tmpDir, "config.json")

		if err := os.WriteFile(testPath, []byte(`{invalid json}`), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for invalid JSON")
		}
		if !strings.Contains(err.Error(), "invalid config") {
			t.Errorf("error should mention invalid config, got: %v", err)
		}
		if !strings.Contains(err.Error(), ".bak") {
			t.Errorf("error should mention backup restoration, got: %v", err)
		}
	})

	t.Run("nil apis map initialized", func(t *testing.T) {
		tmpDir := t.TempDir()
		testPath := filepath.Join(tmpDir, "config.json")

		if err := os.WriteFile(testPath, []byte(`{}`), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cfg, err := LoadFrom(testPath)
		if err != nil {
			t.Fatalf("LoadFrom failed: %v", err)
		}
		if cfg.APIs == nil {
			t.Error("APIs map should be initialized when missing from file")
		}
	})
}
