package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Translator
	limiter *rate.Limiter
}

// RateLimited waits for limiter before every call to t.
func RateLimited(t Translator, limiter *rate.Limiter) Translator {
	return &rateLimited{next: t, limiter: limiter}
}

func (r *rateLimited) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Translate(ctx, text, source, target)
}

type retrying struct {
	next     Translator
	attempts int
	backoff  time.Duration
}

// Retry calls t up to attempts times while it fails with ErrUnavailable,
// doubling the wait between attempts starting at backoff. Other errors are
// returned immediately: retrying an unsupported pair or an oversized text
// cannot succeed.
func Retry(t Translator, attempts int, backoff time.Duration) Translator {
	if attempts < 1 {
		attempts = 1
	}
	return &retrying{next: t, attempts: attempts, backoff: backoff}
}

func (r *retrying) Translate(ctx context.Context, text, source, target string) (string, error) {
	wait := r.backoff
	var err error
	for attempt := 1; ; attempt++ {
		var out string
		out, err = r.next.Translate(ctx, text, source, target)
		if err == nil {
			return out, nil
		}
		if attempt >= r.attempts || !errors.Is(err, ErrUnavailable) {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	if r.attempts > 1 && errors.Is(err, ErrUnavailable) {
		return "", fmt.Errorf("after %d attempts: %w", r.attempts, err)
	}
	return "", err
}
