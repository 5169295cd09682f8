// Package translator defines the text translation capability used by the
// e-book pipeline, together with HTTP backends and composable strategies
// (rate limiting, retries).
package translator

import (
	"context"
	"errors"
)

// Translator translates a single piece of text from source to target
// language. Language arguments are BCP 47 tags such as "en" or "pt-BR".
// Implementations must be safe for concurrent use.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Func adapts an ordinary function to the Translator interface.
type Func func(ctx context.Context, text, source, target string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Identity returns every text unchanged. It is useful for dry runs that
// exercise the whole pipeline without a translation backend.
type Identity struct{}

// Translate returns text.
func (Identity) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

var (
	// ErrUnsupportedPair is returned when the backend cannot translate
	// between the requested languages.
	ErrUnsupportedPair = errors.New("translator: unsupported language pair")

	// ErrTextTooLong is returned when the text exceeds the backend's limit.
	ErrTextTooLong = errors.New("translator: text too long")

	// ErrUnavailable is returned when the backend cannot be reached or
	// answers with a server error.
	ErrUnavailable = errors.New("translator: backend unavailable")

	// ErrEmptyResponse is returned when the backend answers without text.
	ErrEmptyResponse = errors.New("translator: empty response")
)
