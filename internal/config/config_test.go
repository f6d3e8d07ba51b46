package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Parallel()

	data := []byte(`
theme: dark
auto_reload: false
graph:
  include_remote_branches: false
  row_pitch: 30
watch:
  debounce_ms: 100
  ignore: ["*.lock", "objects/"]
`)
	cfg, err := Parse(data, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Theme != "dark" || cfg.AutoReload {
		t.Fatalf("cfg = %+v, want dark theme without auto reload", cfg)
	}
	if cfg.Graph.IncludeRemoteBranches || cfg.Graph.RowPitch != 30 {
		t.Fatalf("Graph = %+v", cfg.Graph)
	}
	if cfg.Graph.PaddingRows != Default().Graph.PaddingRows || cfg.Graph.LaneSpacing != Default().Graph.LaneSpacing {
		t.Fatalf("unset graph keys lost their defaults: %+v", cfg.Graph)
	}
	if cfg.Watch.Debounce() != 100*time.Millisecond {
		t.Fatalf("Debounce() = %v, want 100ms", cfg.Watch.Debounce())
	}
	if !slices.Equal(cfg.Watch.Ignore, []string{"*.lock", "objects/"}) {
		t.Fatalf("Ignore = %v", cfg.Watch.Ignore)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "syntax", data: "theme: [dark"},
		{name: "theme", data: "theme: purple"},
		{name: "padding", data: "graph:\n  padding_rows: -1"},
		{name: "pitch", data: "graph:\n  row_pitch: 0"},
		{name: "spacing", data: "graph:\n  lane_spacing: -2"},
		{name: "debounce", data: "watch:\n  debounce_ms: -5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Parse([]byte(tt.data), Default())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Parse() error = %v, want ErrInvalidConfig", err)
			}
			if cfg.Theme != "auto" {
				t.Fatalf("Parse() returned %+v, want defaults on error", cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("verbose: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Verbose || !cfg.AutoReload {
		t.Fatalf("cfg = %+v, want verbose over defaults", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("Load() of a missing explicit path should fail")
	}
}

func TestLoad_DefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if want := filepath.Join(dir, "gitlanes", "config.yaml"); path != want {
		t.Fatalf("DefaultPath() = %q, want %q", path, want)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without a file error = %v", err)
	}
	if cfg.Theme != Default().Theme {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("theme: light\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if cfg, err = Load(""); err != nil || cfg.Theme != "light" {
		t.Fatalf("Load(\"\") = %+v, %v, want light theme", cfg, err)
	}
}
