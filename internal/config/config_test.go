package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/melocuore/internal/recognize"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIURL, "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultRequestTimeout)
	}
	if cfg.Recognition != recognize.DefaultConfig() {
		t.Fatalf("Recognition = %#v, want defaults", cfg.Recognition)
	}

	wantSession, err := expandPath(defaultSessionPath)
	if err != nil {
		t.Fatalf("expandPath(defaultSessionPath) returned error: %v", err)
	}
	if cfg.SessionPath != wantSession {
		t.Fatalf("SessionPath = %q, want %q", cfg.SessionPath, wantSession)
	}
	if !strings.HasPrefix(cfg.LogPath, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", cfg.LogPath, home)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://melocuore.example.com  "
request_timeout = "30s"
requests_per_second = 0.0
session_path = "  ~/.mc/session.toml  "
log_level = "debug"

[recognition]
retry_ceiling = 20
retry_delay = "2s"
poll_endpoint = "/api/v2/status/{id}/"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://melocuore.example.com" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.RequestsPerSecond != 0 {
		t.Fatalf("timeout/rps = %v/%v, want 30s/0", cfg.RequestTimeout, cfg.RequestsPerSecond)
	}
	if cfg.SessionPath != filepath.Join(home, ".mc/session.toml") {
		t.Fatalf("SessionPath = %q", cfg.SessionPath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	rec := cfg.Recognition
	if rec.RetryCeiling != 20 || rec.RetryDelay != 2*time.Second || rec.PollEndpoint != "/api/v2/status/{id}/" {
		t.Fatalf("Recognition = %#v", rec)
	}
	if rec.PreviewEndpoint != recognize.DefaultConfig().PreviewEndpoint {
		t.Fatalf("PreviewEndpoint = %q, want default", rec.PreviewEndpoint)
	}
}

func TestLoad_ZeroRetryCeilingIsKept(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[recognition]\nretry_ceiling = 0\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Recognition.RetryCeiling != 0 {
		t.Fatalf("RetryCeiling = %d, want 0", cfg.Recognition.RetryCeiling)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	cases := map[string]string{
		"toml":    `api_url = [`,
		"timeout": `request_timeout = "soon"`,
		"level":   `log_level = "loud"`,
		"ceiling": "[recognition]\nretry_ceiling = -1",
		"delay":   "[recognition]\nretry_delay = \"0s\"",
		"rate":    `requests_per_second = -2.0`,
	}
	for name, body := range cases {
		isolate(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		_, err := Load(path)
		if err == nil {
			t.Fatalf("%s: Load returned nil error, want parse error", name)
		}
		if !strings.Contains(err.Error(), "parse config") {
			t.Fatalf("%s: Load error = %q, want it to mention parse config", name, err.Error())
		}
	}
}

func TestLoad_EnvOverridesAPIURL(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://from-file:8000"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := os.WriteFile(".env", []byte("MELOCUORE_API_URL=http://from-dotenv:8000\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://from-dotenv:8000" {
		t.Fatalf("APIURL = %q, want .env value", cfg.APIURL)
	}

	t.Setenv(EnvAPIURL, "http://from-env:8000")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://from-env:8000" {
		t.Fatalf("APIURL = %q, want process env value", cfg.APIURL)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.ClientOptions(nil)
	if opts.BaseURL != cfg.APIURL || opts.Timeout != cfg.RequestTimeout || opts.RequestsPerSecond != cfg.RequestsPerSecond {
		t.Fatalf("ClientOptions = %#v, want values from config", opts)
	}
}

func TestExpandOrKeep_FallsBackToRawPath(t *testing.T) {
	if got := expandOrKeep("   "); got != "   " {
		t.Fatalf("expandOrKeep(blank) = %q, want input unchanged", got)
	}
	want, err := expandPath("~/x")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got := expandOrKeep("~/x"); got != want {
		t.Fatalf("expandOrKeep = %q, want %q", got, want)
	}
}
