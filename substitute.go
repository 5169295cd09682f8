package epubtranslate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/simp-lee/epubtranslate/epub"
	"github.com/simp-lee/epubtranslate/markup"
	"github.com/simp-lee/epubtranslate/translator"
)

// Outcome is the result of translating one fragment: the translated text on
// success, the error otherwise.
type Outcome struct {
	Fragment   markup.Fragment
	Translated string
	Err        error
}

// OK reports whether the fragment was translated.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ChapterReport summarizes the substitution of one chapter.
type ChapterReport struct {
	ID   string
	Href string

	Fragments  int
	Translated int
	Failed     int

	// Failures lists the failed fragments in document order.
	Failures []FragmentError
}

// Substituter translates fragments and writes the results back into their
// text nodes.
type Substituter struct {
	Translator translator.Translator
	Source     string
	Target     string

	// Workers bounds the number of concurrent Translate calls. Values below
	// two translate one fragment at a time.
	Workers int

	// Logger receives a warning for every failed fragment. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// Progress, if set, is called after each fragment completes. Only the
	// Href and fragment fields are filled in.
	Progress ProgressFunc
}

// Substitute translates the fragments of ch and replaces each node's text with
// its translation. A fragment whose translation fails keeps its text; the
// failure is logged, recorded in the report, and the remaining fragments are
// still processed. The only error returned is the context's: a cancelled run
// leaves every node untouched.
func (s *Substituter) Substitute(ctx context.Context, ch epub.Chapter, fragments []markup.Fragment) (ChapterReport, error) {
	report := ChapterReport{ID: ch.ID, Href: ch.Href, Fragments: len(fragments)}

	outcomes := s.Translate(ctx, ch.Href, fragments)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("epubtranslate: %s: %w", ch.Href, err)
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, o := range outcomes {
		if o.OK() {
			node := o.Fragment.Node
			node.SetData(respace(node.Data, o.Translated))
			report.Translated++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, FragmentError{Chapter: ch.Href, Text: o.Fragment.Text, Err: o.Err})
		logger.Warn("substitute: fragment not translated", "chapter", ch.Href, "text", o.Fragment.Text, "error", o.Err)
	}
	return report, nil
}

// Translate calls the translator for every fragment and returns the outcomes
// in the order of fragments. The tree is not modified. Fragments not reached
// before ctx is done carry the context's error.
func (s *Substituter) Translate(ctx context.Context, href string, fragments []markup.Fragment) []Outcome {
	outcomes := make([]Outcome, len(fragments))
	reached := make([]bool, len(fragments))
	var mu sync.Mutex
	done := 0
	finished := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if s.Progress != nil {
			s.Progress(Progress{Href: href, Fragment: done, Fragments: len(fragments)})
		}
	}

	if s.Workers < 2 {
		for i, f := range fragments {
			if ctx.Err() != nil {
				break
			}
			outcomes[i], reached[i] = s.translate(ctx, f), true
			finished()
		}
		return unreached(ctx, fragments, outcomes, reached)
	}

	sem := make(chan struct{}, s.Workers)
	var wg sync.WaitGroup
dispatch:
	for i, f := range fragments {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i], reached[i] = s.translate(ctx, f), true
			finished()
		}()
	}
	wg.Wait()
	return unreached(ctx, fragments, outcomes, reached)
}

// unreached fills in the outcomes of fragments skipped after cancellation.
func unreached(ctx context.Context, fragments []markup.Fragment, outcomes []Outcome, reached []bool) []Outcome {
	for i, ok := range reached {
		if !ok {
			outcomes[i] = Outcome{Fragment: fragments[i], Err: ctx.Err()}
		}
	}
	return outcomes
}

func (s *Substituter) translate(ctx context.Context, f markup.Fragment) Outcome {
	out, err := s.Translator.Translate(ctx, f.Text, s.Source, s.Target)
	if err == nil && strings.TrimSpace(out) == "" {
		err = translator.ErrEmptyResponse
	}
	if err != nil {
		return Outcome{Fragment: f, Err: err}
	}
	return Outcome{Fragment: f, Translated: out}
}

// respace puts the leading and trailing whitespace of orig around the trimmed
// translation, so spacing between inline elements survives.
func respace(orig, translated string) string {
	body := strings.TrimSpace(orig)
	if body == "" {
		return strings.TrimSpace(translated)
	}
	start := strings.Index(orig, body)
	return orig[:start] + strings.TrimSpace(translated) + orig[start+len(body):]
}
