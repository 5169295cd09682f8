package epubtranslate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.SourceLang != "en" || cfg.TargetLang != "es" {
		t.Errorf("languages = %s -> %s, want en -> es", cfg.SourceLang, cfg.TargetLang)
	}
	opts := cfg.Options()
	for _, tag := range []string{"script", "style", "code", "pre"} {
		if !opts.Exclude.Has(tag) {
			t.Errorf("Options().Exclude lacks %q", tag)
		}
	}
	if opts.DeepExclude || opts.Workers != 1 {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "target_lang": "fr",
  "workers": 4,
  "deep_exclude": true,
  "exclude": ["pre", "kbd"],
  "translator": {"provider": "ollama", "model": "llama3.1:8b", "rate_limit": 2.5}
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.SourceLang != "en" || cfg.TargetLang != "fr" {
		t.Errorf("languages = %s -> %s, want en -> fr", cfg.SourceLang, cfg.TargetLang)
	}
	if cfg.Workers != 4 || !cfg.DeepExclude {
		t.Errorf("Workers/DeepExclude = %d/%v", cfg.Workers, cfg.DeepExclude)
	}
	if cfg.Translator.Provider != "ollama" || cfg.Translator.Model != "llama3.1:8b" || cfg.Translator.RateLimit != 2.5 {
		t.Errorf("Translator = %+v", cfg.Translator)
	}
	opts := cfg.Options()
	if !opts.Exclude.Has("kbd") || opts.Exclude.Has("code") {
		t.Errorf("Exclude = %v, want pre and kbd only", opts.Exclude)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadConfig(missing) should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"workers": "many"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig(bad) error = %v, want ErrInvalidConfig", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EPUBTRANSLATE_SOURCE_LANG", "")
	t.Setenv("EPUBTRANSLATE_TARGET_LANG", "de")
	t.Setenv("EPUBTRANSLATE_PROVIDER", "openai")
	t.Setenv("EPUBTRANSLATE_MODEL", "gpt-4o-mini")
	t.Setenv("EPUBTRANSLATE_BASE_URL", "")
	t.Setenv("EPUBTRANSLATE_API_KEY", "")
	t.Setenv("EPUBTRANSLATE_WORKERS", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.SourceLang != "en" || cfg.TargetLang != "de" || cfg.Workers != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Translator.Provider != "openai" || cfg.Translator.Model != "gpt-4o-mini" || cfg.Translator.APIKey != "" {
		t.Errorf("Translator = %+v", cfg.Translator)
	}

	t.Setenv("EPUBTRANSLATE_API_KEY", "explicit")
	cfg = DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	cfg.ResolveAPIKey()
	if cfg.Translator.APIKey != "explicit" {
		t.Errorf("APIKey = %q, want the explicit key", cfg.Translator.APIKey)
	}

	t.Setenv("EPUBTRANSLATE_WORKERS", "lots")
	if err := cfg.ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ApplyEnv(bad workers) error = %v, want ErrInvalidConfig", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GROQ_API_KEY", "gsk-groq")
	t.Setenv("LIBRETRANSLATE_API_KEY", "libre-secret")

	tests := []struct {
		provider string
		key      string
		want     string
	}{
		{"openai", "", "sk-openai"},
		{"groq", "", "gsk-groq"},
		{"libretranslate", "", "libre-secret"},
		{"argos", "", "libre-secret"},
		{"ollama", "", ""},
		{"custom", "", ""},
		{"openai", "explicit", "explicit"},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Translator.Provider = tt.provider
		cfg.Translator.APIKey = tt.key
		cfg.ResolveAPIKey()
		if cfg.Translator.APIKey != tt.want {
			t.Errorf("ResolveAPIKey(%s, %q) key = %q, want %q", tt.provider, tt.key, cfg.Translator.APIKey, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad source", func(c *Config) { c.SourceLang = "not a tag" }},
		{"empty target", func(c *Config) { c.TargetLang = "" }},
		{"no provider", func(c *Config) { c.Translator.Provider = "" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative rate", func(c *Config) { c.Translator.RateLimit = -1 }},
		{"negative retries", func(c *Config) { c.Translator.Retries = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.SourceLang, cfg.TargetLang = "zh-Hant", "pt-BR"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate(zh-Hant, pt-BR) error = %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, target, want string
	}{
		{"book.epub", "es", "book_espanol.epub"},
		{"dir/My Book.epub", "fr", "dir/My Book_francais.epub"},
		{"book.epub", "de", "book_deutsch.epub"},
		{"book", "pt", "book_portugues"},
		{"book.epub", "en", "book_english.epub"},
		{"book.epub", "ja", "book_日本語.epub"},
		{"book.epub", "%%", "book_translated.epub"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.target); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.input, tt.target, got, tt.want)
		}
	}
}

func TestLabelsFor(t *testing.T) {
	tests := []struct {
		target, wantSuffix string
	}{
		{"es", " (Traducido)"},
		{"es-MX", " (Traducido)"},
		{"de-AT", " (Übersetzt)"},
		{"zh", " (Translated)"},
		{"??", " (Translated)"},
	}
	for _, tt := range tests {
		if got := labelsFor(tt.target).TitleSuffix; got != tt.wantSuffix {
			t.Errorf("labelsFor(%q).TitleSuffix = %q, want %q", tt.target, got, tt.wantSuffix)
		}
	}
}
