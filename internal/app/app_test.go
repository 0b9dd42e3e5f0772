package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.edu/scripts/mgrqispi.dll")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.PortalBaseURL != "https://portal.example.edu/scripts/mgrqispi.dll" {
		t.Errorf("PortalBaseURL = %q, want portal login URL", cfg.PortalBaseURL)
	}

	// グローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithInternalPortalURL_ReturnsError(t *testing.T) {
	// 内部アドレスを指すポータルURLは起動時に拒否される
	t.Setenv("PORTAL_BASE_URL", "http://169.254.169.254/latest/meta-data/")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for internal portal base URL, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestInit_WithPrivatePortalURLAllowed_Succeeds(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "http://192.168.1.10:8080/portal")
	t.Setenv("PORTAL_ALLOW_PRIVATE", "true")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error with PORTAL_ALLOW_PRIVATE, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}
