package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/copyforge/copyforge/internal/marketing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	gemini, ok := cfg.GetLLMProvider("gemini")
	if !ok {
		t.Fatal("expected gemini provider")
	}
	if gemini.APIKey != "${GEMINI_API_KEY}" {
		t.Errorf("expected gemini API key placeholder, got %q", gemini.APIKey)
	}
	if !gemini.Enabled {
		t.Error("expected gemini enabled by default")
	}
	if cfg.Defaults.LLMProvider != "gemini" {
		t.Errorf("expected default provider gemini, got %q", cfg.Defaults.LLMProvider)
	}
	if cfg.Pipeline.MaxAttempts != 4 {
		t.Errorf("expected max_attempts 4, got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.BackoffCap != 8*time.Second {
		t.Errorf("expected backoff_cap 8s, got %s", cfg.Pipeline.BackoffCap)
	}
	if cfg.Pipeline.MaxJitter != 500*time.Millisecond {
		t.Errorf("expected max_jitter 500ms, got %s", cfg.Pipeline.MaxJitter)
	}
	if cfg.Pipeline.Language != "vi" {
		t.Errorf("expected language vi, got %q", cfg.Pipeline.Language)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Windows, marketing.DefaultWindows()) {
		t.Errorf("windows = %v, want %v", cfg.Pipeline.Windows, marketing.DefaultWindows())
	}
	if !reflect.DeepEqual(cfg.Pipeline.Variants, marketing.DefaultVariants()) {
		t.Errorf("variants = %+v, want %+v", cfg.Pipeline.Variants, marketing.DefaultVariants())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands embedded references", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.com")
		result := ResolveEnvVars("https://${TEST_HOST}/v1")
		if result != "https://example.com/v1" {
			t.Errorf("expected https://example.com/v1, got %s", result)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "g-key")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {Type: "gemini", Model: "gemini-2.5-flash", APIKey: "${TEST_GEMINI_KEY}", RateLimit: 30, Enabled: true},
			"proxy":  {Type: "openai", APIKey: "direct-key", BaseURL: "http://localhost:9999/v1/"},
		},
	}

	reg := cfg.ToProviderRegistryConfig()
	if len(reg.LLMProviders) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(reg.LLMProviders))
	}
	if got := reg.LLMProviders["gemini"]; got.APIKey != "g-key" || got.RateLimit != 30 || !got.Enabled {
		t.Errorf("unexpected gemini config: %+v", got)
	}
	if got := reg.LLMProviders["proxy"]; got.APIKey != "direct-key" || got.BaseURL != "http://localhost:9999/v1/" || got.Enabled {
		t.Errorf("unexpected proxy config: %+v", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
server:
  port: "9191"
pipeline:
  language: en
  windows:
    ad_copy:
      min_words: 10
      max_words: 50
`)

		mgr, err := NewManager(configFile, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != "9191" {
			t.Errorf("expected port 9191, got %s", cfg.Server.Port)
		}
		if cfg.Pipeline.Language != "en" {
			t.Errorf("expected language en, got %s", cfg.Pipeline.Language)
		}
		if w := cfg.Pipeline.Windows["ad_copy"]; w.MinWords != 10 || w.MaxWords != 50 {
			t.Errorf("unexpected ad_copy window: %+v", w)
		}
		// Untouched keys keep their defaults.
		if w := cfg.Pipeline.Windows["video_script"]; w.MaxWords != 160 {
			t.Errorf("expected default video_script window, got %+v", w)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("expected default host, got %s", cfg.Server.Host)
		}
		if mgr.ConfigFileUsed() != configFile {
			t.Errorf("ConfigFileUsed() = %q, want %q", mgr.ConfigFileUsed(), configFile)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("COPYFORGE_SERVER_PORT", "7070")
		t.Setenv("COPYFORGE_PIPELINE_MAX_ATTEMPTS", "6")
		configFile := writeConfig(t, "server:\n  port: \"9191\"\n")

		mgr, err := NewManager(configFile, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Server.Port != "7070" {
			t.Errorf("expected env port 7070, got %s", cfg.Server.Port)
		}
		if cfg.Pipeline.MaxAttempts != 6 {
			t.Errorf("expected env max_attempts 6, got %d", cfg.Pipeline.MaxAttempts)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		cases := map[string]string{
			"zero attempts":     "pipeline:\n  max_attempts: 0\n",
			"inverted window":   "pipeline:\n  windows:\n    ad_copy:\n      min_words: 90\n      max_words: 10\n",
			"unknown provider":  "defaults:\n  llm_provider: nowhere\n",
			"bad provider type": "llm_providers:\n  custom:\n    type: carrier-pigeon\n",
			"empty variant":     "pipeline:\n  variants:\n    content:\n      - advanced: true\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := NewManager(writeConfig(t, content), nil)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := NewManager(writeConfig(t, "server: [unclosed\n"), nil)
		if err == nil {
			t.Fatal("expected error for malformed YAML")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"8081\"\n"), nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"8081\"\n"), nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Server.Port
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "server:\n  port: \"8081\"\n")

	mgr, err := NewManager(configFile, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Server.Port; got != "8081" {
		t.Fatalf("initial port mismatch: expected 8081, got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Server.Port)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("server:\n  port: \"8082\"\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	waitFor(t, func() bool { return callbackCount.Load() > 0 })

	if got := mgr.Get().Server.Port; got != "8082" {
		t.Errorf("config not updated: expected 8082, got %s", got)
	}
	if v := lastValue.Load(); v != "8082" {
		t.Errorf("callback received wrong value: expected 8082, got %v", v)
	}

	// An invalid edit is rejected and the last good config stays active.
	before := callbackCount.Load()
	if err := os.WriteFile(configFile, []byte("pipeline:\n  max_attempts: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write invalid config file: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if callbackCount.Load() != before {
		t.Error("callback invoked for invalid config")
	}
	if got := mgr.Get().Server.Port; got != "8082" {
		t.Errorf("expected last good port 8082, got %s", got)
	}
}

func TestManager_Reload(t *testing.T) {
	configFile := writeConfig(t, "server:\n  port: \"8081\"\n")

	mgr, err := NewManager(configFile, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	var calls []string
	mgr.OnChange(func(cfg *Config) {
		calls = append(calls, cfg.Server.Port)
	})

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
	}

	t.Run("truncated file is skipped", func(t *testing.T) {
		write("")
		mgr.reload(configFile)
		if len(calls) != 0 {
			t.Errorf("callbacks ran for an empty file: %v", calls)
		}
		if got := mgr.Get().Server.Port; got != "8081" {
			t.Errorf("port = %s, want 8081", got)
		}
	})

	t.Run("valid edit applies once", func(t *testing.T) {
		write("server:\n  port: \"8083\"\n")
		mgr.reload(configFile)
		mgr.reload(configFile)
		if len(calls) != 1 || calls[0] != "8083" {
			t.Errorf("callbacks = %v, want [8083]", calls)
		}
		if got := mgr.Get().Server.Port; got != "8083" {
			t.Errorf("port = %s, want 8083", got)
		}
	})

	t.Run("invalid edit keeps last good config", func(t *testing.T) {
		write("")
		mgr.reload(configFile)
		write("pipeline:\n  max_attempts: 0\n")
		mgr.reload(configFile)
		if len(calls) != 1 {
			t.Errorf("callbacks = %v, want one", calls)
		}
		if got := mgr.Get().Server.Port; got != "8083" {
			t.Errorf("port = %s, want 8083", got)
		}
	})

	t.Run("missing file is skipped", func(t *testing.T) {
		mgr.reload(filepath.Join(t.TempDir(), "gone.yaml"))
		if got := mgr.Get().Server.Port; got != "8083" {
			t.Errorf("port = %s, want 8083", got)
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# copyforge configuration") {
		t.Error("expected header comment")
	}
	if !strings.Contains(string(data), "${GEMINI_API_KEY}") {
		t.Error("expected unresolved API key placeholder in written config")
	}

	mgr, err := NewManager(path, nil)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	cfg, want := mgr.Get(), DefaultConfig()
	if !reflect.DeepEqual(cfg.Pipeline, want.Pipeline) {
		t.Errorf("pipeline round trip mismatch:\n got %+v\nwant %+v", cfg.Pipeline, want.Pipeline)
	}
	if !reflect.DeepEqual(cfg.LLMProviders, want.LLMProviders) {
		t.Errorf("providers round trip mismatch:\n got %+v\nwant %+v", cfg.LLMProviders, want.LLMProviders)
	}
}

func TestOrchestratorOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.OrchestratorOptions(nil)
	if opts.RetriesPerVariant != 1 || opts.BackoffBase != time.Second || opts.BackoffCap != 8*time.Second {
		t.Errorf("unexpected options: %+v", opts)
	}

	cfg.Pipeline.RetriesPerVariant = 0
	if opts := cfg.OrchestratorOptions(nil); opts.RetriesPerVariant >= 0 {
		t.Errorf("retries_per_variant 0 maps to %d, want disabled", opts.RetriesPerVariant)
	}
}
