package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_KeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	cfg := sample{Port: 8080}
	if err := Load(write(t, "name: ${SAMPLE_NAME}\n"), &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &sample{Port: 1}); err == nil {
		t.Error("expected error for missing file")
	}
	if err := Load(write(t, "name: [\n"), &sample{Port: 1}); err == nil {
		t.Error("expected parse error")
	}
	if err := Load(write(t, "port: 0\n"), &sample{Port: 1}); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 9000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &sample{}); err == nil {
		t.Error("defaults are still validated")
	}
	if err := LoadOptional(write(t, "port: 7\n"), &cfg); err != nil || cfg.Port != 7 {
		t.Errorf("existing file: port=%d err=%v", cfg.Port, err)
	}
}
