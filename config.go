package epubtranslate

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/simp-lee/epubtranslate/markup"
	"github.com/simp-lee/epubtranslate/translator"
)

// Config holds the settings of a translation run.
type Config struct {
	// Translator selects the translation backend.
	Translator translator.Config `json:"translator"`

	// SourceLang and TargetLang are BCP 47 tags.
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	// Exclude lists the tags whose text is never translated.
	Exclude []string `json:"exclude"`

	// DeepExclude also skips text nested anywhere inside an excluded tag,
	// not only its direct text.
	DeepExclude bool `json:"deep_exclude"`

	// Workers is the number of concurrent translation requests per chapter.
	Workers int `json:"workers"`
}

// DefaultConfig translates English to Spanish through a LibreTranslate
// server on localhost, one fragment at a time.
func DefaultConfig() Config {
	return Config{
		Translator: translator.Config{
			Provider: "libretranslate",
			BaseURL:  translator.DefaultLibreTranslateURL,
			Timeout:  "120s",
		},
		SourceLang: "en",
		TargetLang: "es",
		Exclude:    []string{"script", "style", "code", "pre"},
		Workers:    1,
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("epubtranslate: read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// apiKeyEnv maps providers to the environment variable holding their key.
var apiKeyEnv = map[string]string{
	"openai":         "OPENAI_API_KEY",
	"groq":           "GROQ_API_KEY",
	"openrouter":     "OPENROUTER_API_KEY",
	"libretranslate": "LIBRETRANSLATE_API_KEY",
	"argos":          "LIBRETRANSLATE_API_KEY",
}

// ApplyEnv overrides fields from EPUBTRANSLATE_* environment variables.
func (c *Config) ApplyEnv() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.SourceLang, "EPUBTRANSLATE_SOURCE_LANG")
	setString(&c.TargetLang, "EPUBTRANSLATE_TARGET_LANG")
	setString(&c.Translator.Provider, "EPUBTRANSLATE_PROVIDER")
	setString(&c.Translator.Model, "EPUBTRANSLATE_MODEL")
	setString(&c.Translator.BaseURL, "EPUBTRANSLATE_BASE_URL")
	setString(&c.Translator.APIKey, "EPUBTRANSLATE_API_KEY")

	if v := os.Getenv("EPUBTRANSLATE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: EPUBTRANSLATE_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Workers = n
	}
	return nil
}

// ResolveAPIKey fills an empty API key from the provider's conventional
// variable (for example OPENAI_API_KEY). Call it once the provider is final.
func (c *Config) ResolveAPIKey() {
	if c.Translator.APIKey != "" {
		return
	}
	if key, ok := apiKeyEnv[c.Translator.Provider]; ok {
		c.Translator.APIKey = os.Getenv(key)
	}
}

// Validate checks the language tags and numeric limits.
func (c Config) Validate() error {
	if _, err := language.Parse(c.SourceLang); err != nil {
		return fmt.Errorf("%w: source language %q: %w", ErrInvalidConfig, c.SourceLang, err)
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("%w: target language %q: %w", ErrInvalidConfig, c.TargetLang, err)
	}
	if c.Translator.Provider == "" {
		return fmt.Errorf("%w: no translator provider", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.Translator.RateLimit < 0 || c.Translator.Retries < 0 || c.Translator.MaxLength < 0 {
		return fmt.Errorf("%w: rate limit, retries and max length must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Options converts c into engine options.
func (c Config) Options() Options {
	return Options{
		Source:      c.SourceLang,
		Target:      c.TargetLang,
		Exclude:     markup.NewExclusionSet(c.Exclude...),
		DeepExclude: c.DeepExclude,
		Workers:     c.Workers,
	}
}
