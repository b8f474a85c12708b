package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/tessera/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestEditorConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  EditorConfig
		ok   bool
	}{
		{"empty", EditorConfig{}, true},
		{"header default", EditorConfig{DefaultTool: "header"}, true},
		{"delimiter default", EditorConfig{DefaultTool: "delimiter"}, false},
		{"unknown default", EditorConfig{DefaultTool: "table"}, false},
		{"negative concurrency", EditorConfig{SaveConcurrency: -1}, false},
		{"huge concurrency", EditorConfig{SaveConcurrency: 1000}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err == nil) != tc.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestAutosaveConfig(t *testing.T) {
	for _, s := range []string{"", "@every 30s", "*/5 * * * *", "@hourly"} {
		cfg := AutosaveConfig{Schedule: s}
		if err := cfg.Validate(); err != nil {
			t.Errorf("schedule %q rejected: %v", s, err)
		}
	}
	cfg := AutosaveConfig{Schedule: "every now and then"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid schedule accepted")
	}
	cfg = AutosaveConfig{Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative timeout accepted")
	}
}

func TestLoadYAMLWithEnv(t *testing.T) {
	t.Setenv("TESSERA_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
storage:
  path: /tmp/docs
sqlite:
  path: /tmp/tessera.db
auth:
  mode: token
  token: ${TESSERA_TEST_TOKEN}
editor:
  default_tool: header
  save_concurrency: 2
autosave:
  schedule: "@every 1m"
  timeout: 5s
events:
  throttle: 500ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Editor.DefaultTool != "header" || cfg.Autosave.Timeout != 5*time.Second || cfg.Events.Throttle != 500*time.Millisecond {
		t.Errorf("editor = %+v, autosave = %+v, events = %+v", cfg.Editor, cfg.Autosave, cfg.Events)
	}
}
