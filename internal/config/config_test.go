package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// writeConfigFile writes a YAML config to a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imgsearch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// discard is a logger that swallows everything.
var discard = slog.New(slog.DiscardHandler)

func TestLoad_AppliesYAMLValues(t *testing.T) {
	// t.Setenv clears the vars after the test; it also marks this test as
	// not parallel-safe, which Load's os.Setenv side effects require.
	t.Setenv("AZURE_STORAGE_ACCOUNT_NAME", "")
	os.Unsetenv("AZURE_STORAGE_ACCOUNT_NAME")
	t.Setenv("QDRANT_HOST", "")
	os.Unsetenv("QDRANT_HOST")
	t.Setenv("QDRANT_PORT", "")
	os.Unsetenv("QDRANT_PORT")
	t.Setenv("QDRANT_TLS", "")
	os.Unsetenv("QDRANT_TLS")

	path := writeConfigFile(t, `
storage:
  account: myacct
qdrant:
  host: qdrant.internal
  port: 6334
  tls: true
`)

	loaded, err := Load(path, discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != path {
		t.Errorf("loaded path: got %q, want %q", loaded, path)
	}

	if got := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"); got != "myacct" {
		t.Errorf("AZURE_STORAGE_ACCOUNT_NAME: got %q", got)
	}
	if got := os.Getenv("QDRANT_HOST"); got != "qdrant.internal" {
		t.Errorf("QDRANT_HOST: got %q", got)
	}
	if got := os.Getenv("QDRANT_PORT"); got != "6334" {
		t.Errorf("QDRANT_PORT: got %q", got)
	}
	if got := os.Getenv("QDRANT_TLS"); got != "true" {
		t.Errorf("QDRANT_TLS: got %q", got)
	}
}

func TestLoad_EnvAlwaysWins(t *testing.T) {
	t.Setenv("AZURE_STORAGE_ACCOUNT_NAME", "fromenv")

	path := writeConfigFile(t, `
storage:
  account: fromfile
`)

	if _, err := Load(path, discard); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"); got != "fromenv" {
		t.Errorf("env var must not be overridden by YAML: got %q", got)
	}
}

func TestLoad_NoFileFound(t *testing.T) {
	t.Setenv("IMGSEARCH_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	loaded, err := Load("", discard)
	if err != nil {
		t.Fatalf("Load without file must not error: %v", err)
	}
	if loaded != "" {
		t.Errorf("loaded path: got %q, want empty", loaded)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "storage: [not a mapping")

	if _, err := Load(path, discard); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestLoad_ExplicitPathMissingIsIgnored(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != "" {
		t.Errorf("missing explicit path should fall through, got %q", loaded)
	}
}
