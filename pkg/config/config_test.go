package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/ritzau/graph-explorer/pkg/layout"
)

func newFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Int("port", 8080, "")
	f.Int("depth", 1, "")
	f.Int("min-connections", 1, "")
	f.String("layout-engine", "force", "")
	return f
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.Depth != 1 || cfg.InitialCap != 50 || cfg.SearchCap != 20 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.LayoutParams() != layout.DefaultParams() {
		t.Errorf("Expected default layout params, got %+v", cfg.LayoutParams())
	}
	if _, ok := cfg.LayoutPrimitive().(layout.ForcePrimitive); !ok {
		t.Errorf("Expected force primitive by default")
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := "port = 9000\ndepth = 2\nmin-connections = 3\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAPH_EXPLORER_MIN_CONNECTIONS", "4")
	t.Setenv("GRAPH_EXPLORER_LAYOUT_ENGINE", "eades")

	f := newFlags()
	if err := f.Parse([]string{"--depth", "3"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(f, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected file port 9000, got %d", cfg.Port)
	}
	if cfg.MinConnections != 4 {
		t.Errorf("Expected env to override file, got %d", cfg.MinConnections)
	}
	if cfg.Depth != 3 {
		t.Errorf("Expected flag to override file, got %d", cfg.Depth)
	}
	if _, ok := cfg.LayoutPrimitive().(layout.EadesPrimitive); !ok {
		t.Errorf("Expected eades primitive from env")
	}
}

func TestLoadCategories(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[[categories]]
label = "Fruit"
keywords = ["apple", "pear"]

[[categories]]
label = "Tools"
keywords = ["hammer"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[1].Label != "Tools" {
		t.Fatalf("Unexpected categories: %+v", cfg.Categories)
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		t.Fatalf("Classifier failed: %v", err)
	}
	if got := classifier.Labels(); len(got) != 2 || got[0] != "Fruit" {
		t.Errorf("Unexpected labels %v", got)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(nil, filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"depth too large", map[string]string{"GRAPH_EXPLORER_DEPTH": "4"}, "must not exceed 3"},
		{"depth too small", map[string]string{"GRAPH_EXPLORER_DEPTH": "0"}, "must be at least 1"},
		{"unknown engine", map[string]string{"GRAPH_EXPLORER_LAYOUT_ENGINE": "circle"}, "must be one of"},
		{"bad verbosity", map[string]string{"GRAPH_EXPLORER_VERBOSITY": "loud"}, "Verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil, "")
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateDuplicateCategory(t *testing.T) {
	cfg := &Config{
		Port: 8080, Depth: 1, InitialCap: 1, SearchCap: 1,
		LayoutEngine: "force", LayoutIterations: 1,
		LayoutWidth: 1, LayoutHeight: 1, LinkDistance: 1, LayoutTolerance: 1,
		Categories: []Category{
			{Label: "A", Keywords: []string{"a"}},
			{Label: "A", Keywords: []string{"b"}},
		},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected duplicate label error, got %v", err)
	}
}
