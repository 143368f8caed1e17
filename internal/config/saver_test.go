package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.APIs["github"] = &APIConfig{
		SpecURL: "https://api.github.com/openapi.json",
	}
	return cfg
}

func TestSave_CreatesBackup(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	if err := Save(validConfig(), path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	// Second save backs up the first.
	cfg := validConfig()
	cfg.APIs["jira"] = &APIConfig{SpecURL: "https://jira.example.com/openapi.json"}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup file should exist: %v", err)
	}
	if strings.Contains(string(bak), "jira") {
		t.Error("backup should hold the previous config, not the new one")
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	if err := Save(validConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away after save")
	}
}

func TestSave_RejectsInvalidRegistration(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := NewConfig()
	cfg.APIs["github"] = &APIConfig{SpecURL: ""}

	err := Save(cfg, path)
	if err == nil {
		t.Fatal("Save should reject an API with no specUrl")
	}
	if !strings.Contains(err.Error(), "specUrl") {
		t.Errorf("error should name the missing field, got: %v", err)
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("invalid config should not be written")
	}
}

func TestSave_MissingParentDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "dir", "config.json")

	// The write-permission check runs before any directory creation,
	// so a missing parent surfaces as a permission error with a fix.
	err := Save(validConfig(), path)
	if err == nil {
		t.Fatal("Save should fail when the parent directory is missing")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("unexpected error: %v", err)
	}
}
