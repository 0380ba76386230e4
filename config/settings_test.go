package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_TIMEOUT",
		"OPENAI_MODEL", "ANTHROPIC_MODEL", "DEEPSEEK_MODEL", "GEMINI_MODEL",
		"STORAGE_BACKEND", "STORAGE_PATH",
		"AUTOSAVE_DELAY_MS", "AUTOSAVE_SAVED_WINDOW_MS",
		"DISPATCH_LINK_BASE", "DISPATCH_DELAY", "DISPATCH_OPENER",
	} {
		t.Setenv(key, "")
	}
}

func TestNewValidProvider(t *testing.T) {
	clearEnv(t)
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model 'gpt-4o', got %q", settings.LLM.Model)
	}
}

func TestNewDefaults(t *testing.T) {
	clearEnv(t)
	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "gemini" {
		t.Errorf("expected default provider 'gemini', got %q", settings.LLM.Provider)
	}
	if settings.Autosave.Delay != time.Second || settings.Autosave.SavedWindow != 2*time.Second {
		t.Errorf("unexpected autosave defaults: %+v", settings.Autosave)
	}
	if settings.Storage.Backend != BackendSqlite {
		t.Errorf("expected sqlite backend, got %q", settings.Storage.Backend)
	}
	if settings.Dispatch.LinkBase != "https://wa.me" {
		t.Errorf("unexpected link base %q", settings.Dispatch.LinkBase)
	}
}

func TestNewWithAlias(t *testing.T) {
	clearEnv(t)
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	clearEnv(t)
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForGeminiFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	key, err := APIKeyFor("google")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "google-key" {
		t.Errorf("expected 'google-key', got %q", key)
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	_, err := New("openai")
	if err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestNewInvalidBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "cloud")

	if _, err := New("openai"); err == nil {
		t.Error("expected error for unknown storage backend")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "toolsuite.yaml")
	doc := `
llm:
  provider: claude
  model: claude-3-5-haiku-latest
  temperature: 0
  timeout: 15s
storage:
  backend: dir
  path: /tmp/notes
autosave:
  delay: 500ms
dispatch:
  opener: dry-run
  delay: 2s
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" || settings.LLM.Model != "claude-3-5-haiku-latest" {
		t.Errorf("unexpected llm settings: %+v", settings.LLM)
	}
	if settings.LLM.Temperature != 0 {
		t.Errorf("expected explicit zero temperature, got %v", settings.LLM.Temperature)
	}
	if settings.LLM.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", settings.LLM.Timeout)
	}
	if settings.Storage.Backend != BackendDir || settings.Storage.Path != "/tmp/notes" {
		t.Errorf("unexpected storage settings: %+v", settings.Storage)
	}
	if settings.Autosave.Delay != 500*time.Millisecond {
		t.Errorf("expected 500ms delay, got %v", settings.Autosave.Delay)
	}
	if settings.Dispatch.Opener != OpenerDryRun || settings.Dispatch.Delay != 2*time.Second {
		t.Errorf("unexpected dispatch settings: %+v", settings.Dispatch)
	}

	// Env wins over the file; a different provider drops the file's model.
	t.Setenv("AUTOSAVE_DELAY_MS", "250")
	settings, err = Load(path, "openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Autosave.Delay != 250*time.Millisecond {
		t.Errorf("expected env delay 250ms, got %v", settings.Autosave.Delay)
	}
	if settings.LLM.Model != "gpt-4o" {
		t.Errorf("expected openai default model, got %q", settings.LLM.Model)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestStoragePathExplicit(t *testing.T) {
	s := Settings{Storage: StorageConfig{Backend: BackendDir, Path: "/data"}}
	path, err := s.StoragePath()
	if err != nil || path != "/data" {
		t.Errorf("expected /data, got %q (%v)", path, err)
	}
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	want := []string{"anthropic", "deepseek", "gemini", "openai"}
	if strings.Join(providers, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, providers)
	}

	clearEnv(t)
	_, err := New("mistral")
	if err == nil || !strings.Contains(err.Error(), "supported: anthropic, deepseek, gemini, openai") {
		t.Errorf("expected supported list in error, got %v", err)
	}
}

func TestTimeoutZeroDisablesBound(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TIMEOUT", "0")
	s, err := New("gemini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLM.Timeout != 0 {
		t.Errorf("expected timeout 0, got %v", s.LLM.Timeout)
	}

	t.Setenv("LLM_TIMEOUT", "-1s")
	if _, err := New("gemini"); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestTimeoutZeroFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "toolsuite.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  timeout: 0s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLM.Timeout != 0 {
		t.Errorf("expected timeout 0 from file, got %v", s.LLM.Timeout)
	}
}

func TestEnvProviderDropsFileModel(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "toolsuite.yaml")
	doc := "llm:\n  provider: openai\n  model: gpt-4o-mini\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected file model, got %q", s.LLM.Model)
	}

	t.Setenv("LLM_PROVIDER", "anthropic")
	s, err = Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLM.Provider != "anthropic" || s.LLM.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected anthropic default model, got %s/%s", s.LLM.Provider, s.LLM.Model)
	}
}
