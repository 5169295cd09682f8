package translator

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config selects and tunes a translation backend.
type Config struct {
	Provider string `json:"provider"` // libretranslate, identity, openai, ollama, lmstudio, groq, openrouter, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`

	// MaxLength is the longest text, in characters, sent in one request.
	MaxLength int `json:"max_length"`

	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64 `json:"rate_limit"`

	// Retries is the number of extra attempts after an unavailable backend.
	Retries int `json:"retries"`

	// Timeout is the per-request timeout, e.g. "90s".
	Timeout string `json:"timeout"`
}

// New builds the backend described by cfg, wrapped with retry and rate
// limiting when configured.
func New(cfg Config) (Translator, error) {
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("translator: timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}

	var t Translator
	switch cfg.Provider {
	case "libretranslate", "argos":
		t = NewLibreTranslate(LibreTranslateOptions{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			MaxLength: cfg.MaxLength,
			Timeout:   timeout,
		})
	case "identity":
		t = Identity{}
	case "openai", "ollama", "lmstudio", "groq", "openrouter", "custom":
		c, err := NewChat(ChatOptions{
			Provider:  cfg.Provider,
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxLength: cfg.MaxLength,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, err
		}
		t = c
	case "":
		return nil, fmt.Errorf("translator: provider not specified")
	default:
		return nil, fmt.Errorf("translator: unknown provider: %s", cfg.Provider)
	}

	if cfg.Retries > 0 {
		t = Retry(t, cfg.Retries+1, time.Second)
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		t = RateLimited(t, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return t, nil
}
