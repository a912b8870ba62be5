package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                        DefaultBackendURL,
		"http://backend:5000":     "http://backend:5000/",
		"http://backend:5000///":  "http://backend:5000/",
		"  https://api.example/ ": "https://api.example/",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMergeFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"backendUrl":"http://file:5000","pollInterval":"2s","orderFallback":true}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		t.Fatalf("mergeFile: %v", err)
	}
	if cfg.BackendURL != "http://file:5000" || cfg.PollInterval != 2*time.Second || !cfg.OrderFallback {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ConfirmationTimeout != 8*time.Second {
		t.Fatalf("confirmation timeout = %s, want default 8s", cfg.ConfirmationTimeout)
	}

	env := map[string]string{
		"BACKEND_URL":         "http://legacy:5000",
		"KIOSK_BACKEND_URL":   "http://env:5000",
		"KIOSK_POLL_INTERVAL": "750ms",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	if err := cfg.mergeEnv(lookup); err != nil {
		t.Fatalf("mergeEnv: %v", err)
	}
	if cfg.BackendURL != "http://env:5000" {
		t.Fatalf("backend url = %q, want prefixed env to win", cfg.BackendURL)
	}
	if cfg.PollInterval != 750*time.Millisecond {
		t.Fatalf("poll interval = %s", cfg.PollInterval)
	}
}

func TestMergeFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	if err := cfg.mergeFile(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Fatalf("missing file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.PollInterval = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}

	bad = cfg
	bad.BackendURL = "ftp://x/"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}
