package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultLibreTranslateURL is where a self-hosted LibreTranslate server
// listens by default.
const DefaultLibreTranslateURL = "http://localhost:5000"

// LibreTranslate talks to a LibreTranslate server, the HTTP front end of the
// Argos Translate engine.
type LibreTranslate struct {
	baseURL   string
	apiKey    string
	maxLength int
	client    *http.Client
}

// LibreTranslateOptions configures NewLibreTranslate.
type LibreTranslateOptions struct {
	BaseURL string
	APIKey  string

	// MaxLength rejects longer texts (in characters) with ErrTextTooLong
	// before any request is made. Zero means no limit.
	MaxLength int

	Timeout time.Duration
}

// NewLibreTranslate returns a LibreTranslate client.
func NewLibreTranslate(opts LibreTranslateOptions) *LibreTranslate {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultLibreTranslateURL
	}
	return &LibreTranslate{
		baseURL:   base,
		apiKey:    opts.APIKey,
		maxLength: opts.MaxLength,
		client:    newHTTPClient(opts.Timeout),
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreError struct {
	Error string `json:"error"`
}

// Translate implements Translator.
func (l *LibreTranslate) Translate(ctx context.Context, text, source, target string) (string, error) {
	if l.maxLength > 0 && utf8.RuneCountInString(text) > l.maxLength {
		return "", fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, utf8.RuneCountInString(text), l.maxLength)
	}

	req := libreRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: l.apiKey,
	}
	var resp libreResponse
	if err := postJSON(ctx, l.client, l.baseURL+"/translate", nil, req, &resp); err != nil {
		return "", classifyLibreError(err)
	}
	if resp.TranslatedText == "" {
		return "", ErrEmptyResponse
	}
	return resp.TranslatedText, nil
}

// classifyLibreError maps LibreTranslate's 400 answers onto the package's
// sentinel errors.
func classifyLibreError(err error) error {
	var se *statusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		return fmt.Errorf("libretranslate: %w", err)
	}
	msg := strings.ToLower(se.Body)
	var le libreError
	if jsonErr := decodeJSONString(se.Body, &le); jsonErr == nil && le.Error != "" {
		msg = strings.ToLower(le.Error)
	}
	switch {
	case strings.Contains(msg, "not supported"):
		return fmt.Errorf("libretranslate: %w: %s", ErrUnsupportedPair, msg)
	case strings.Contains(msg, "character limit") || strings.Contains(msg, "too long"):
		return fmt.Errorf("libretranslate: %w: %s", ErrTextTooLong, msg)
	}
	return fmt.Errorf("libretranslate: %w", err)
}
