package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	s.valid = true
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "scriptorium")
	path := writeFile(t, "name: ${CONFIG_TEST_NAME}\n")

	cfg := sample{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "scriptorium" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, default should survive", cfg.Port)
	}
	if !cfg.valid {
		t.Error("Validate was not called")
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "port: -1\n")

	cfg := sample{}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "port: [\n")

	cfg := sample{Port: 1}
	if err := Load(path, &cfg); err == nil {
		t.Fatal("malformed YAML should fail")
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	cfg := sample{Port: 8080}
	loaded, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if loaded {
		t.Error("loaded should be false for a missing file")
	}
	if !cfg.valid {
		t.Error("defaults should still be validated")
	}
}

func TestLoadWithDefaults_ExistingFile(t *testing.T) {
	path := writeFile(t, "port: 9000\n")

	cfg := sample{Port: 8080}
	loaded, err := LoadWithDefaults(path, &cfg)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if !loaded || cfg.Port != 9000 {
		t.Errorf("loaded = %v, port = %d", loaded, cfg.Port)
	}
}
