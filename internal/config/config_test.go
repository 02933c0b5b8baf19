package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Trace.MaxDepth != 10 {
		t.Fatalf("default max depth = %d, want 10", c.Trace.MaxDepth)
	}
	if c.Cluster.DefaultNamespace != "default" {
		t.Fatalf("default namespace = %q", c.Cluster.DefaultNamespace)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
cluster:
  server: https://127.0.0.1:6443
  insecureSkipVerify: true
trace:
  maxDepth: 4
logLevel: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Cluster.Server != "https://127.0.0.1:6443" {
		t.Fatalf("server = %q", c.Cluster.Server)
	}
	if !c.Cluster.InsecureSkipVerify {
		t.Fatalf("expected insecureSkipVerify")
	}
	if c.Trace.MaxDepth != 4 {
		t.Fatalf("maxDepth = %d, want 4", c.Trace.MaxDepth)
	}
	// Unset fields keep their defaults.
	if c.UI.SidebarWidth != 32 {
		t.Fatalf("sidebarWidth = %d, want 32", c.UI.SidebarWidth)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
