package epubtranslate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/simp-lee/epubtranslate/epub"
	"github.com/simp-lee/epubtranslate/markup"
	"github.com/simp-lee/epubtranslate/translator"
)

// modifiedLayout is the dcterms:modified format.
const modifiedLayout = "2006-01-02T15:04:05Z"

// Options configure an Engine.
type Options struct {
	// Source and Target are the BCP 47 tags passed to the translator.
	Source string
	Target string

	// Exclude holds the tags whose text is never translated. Nil uses
	// markup.DefaultExclusions.
	Exclude markup.ExclusionSet

	// DeepExclude skips text anywhere below an excluded tag.
	DeepExclude bool

	// Workers bounds concurrent translator calls within a chapter.
	Workers int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Progress, if set, receives chapter and fragment progress.
	Progress ProgressFunc

	// Now stamps the output's modification time. Defaults to time.Now.
	Now func() time.Time
}

// Report summarizes a translated book.
type Report struct {
	Chapters []ChapterReport

	Fragments  int
	Translated int
	Failed     int
}

// Failures returns every failed fragment of the book in order.
func (r *Report) Failures() []FragmentError {
	var out []FragmentError
	for _, c := range r.Chapters {
		out = append(out, c.Failures...)
	}
	return out
}

func (r *Report) add(c ChapterReport) {
	r.Chapters = append(r.Chapters, c)
	r.Fragments += c.Fragments
	r.Translated += c.Translated
	r.Failed += c.Failed
}

// Engine translates books.
type Engine struct {
	tr     translator.Translator
	opts   Options
	logger *slog.Logger
}

// New returns an Engine that translates text with tr.
func New(tr translator.Translator, opts Options) *Engine {
	if opts.Exclude == nil {
		opts.Exclude = markup.DefaultExclusions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tr: tr, opts: opts, logger: logger}
}

// TranslateFile reads the book at in, translates it and writes the result to
// out. The output file only appears once it has been written completely.
func (e *Engine) TranslateFile(ctx context.Context, in, out string) (*Report, error) {
	if _, err := os.Stat(in); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, in)
		}
		return nil, fmt.Errorf("%w: %w", ErrContainerParse, err)
	}

	src, err := epub.Open(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerParse, err)
	}
	for _, w := range src.Warnings() {
		e.logger.Warn("assemble: source book", "file", in, "warning", w)
	}

	doc, report, err := e.TranslateBook(ctx, src)
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := epub.WriteFile(doc, out); err != nil {
		return report, fmt.Errorf("%w: %w", ErrContainerWrite, err)
	}
	e.logger.Info("assemble: book written", "file", out,
		"chapters", len(report.Chapters), "fragments", report.Fragments, "failed", report.Failed)
	return report, nil
}

// TranslateBook returns a translated copy of src. Chapters are translated in
// order; resources, extra files, the TOC and the spine are copied unchanged.
// Failed fragments keep their text and are listed in the report. The
// returned error is non-nil only for cancellation, unreadable chapter markup
// or a structural mismatch.
func (e *Engine) TranslateBook(ctx context.Context, src *epub.Document) (*epub.Document, *Report, error) {
	report := &Report{}
	out := &epub.Document{
		Version:   src.Version,
		Dir:       src.Dir,
		Metadata:  e.metadata(src.Metadata),
		Chapters:  make([]epub.Chapter, 0, len(src.Chapters)),
		Resources: slices.Clone(src.Resources),
		Files:     slices.Clone(src.Files),
		TOC:       slices.Clone(src.TOC),
		Spine: epub.Spine{
			Items:                    slices.Clone(src.Spine.Items),
			PageProgressionDirection: src.Spine.PageProgressionDirection,
		},
		Navigation: epub.Navigation{
			NavID:     src.Navigation.NavID,
			NavHref:   src.Navigation.NavHref,
			NCXID:     src.Navigation.NCXID,
			NCXHref:   src.Navigation.NCXHref,
			Landmarks: slices.Clone(src.Navigation.Landmarks),
			PageList:  slices.Clone(src.Navigation.PageList),
			Guide:     slices.Clone(src.Navigation.Guide),
		},
	}

	extractor := markup.Extractor{Exclude: e.opts.Exclude, Deep: e.opts.DeepExclude}
	for i, ch := range src.Chapters {
		e.progress(Progress{Chapter: i + 1, Chapters: len(src.Chapters), Href: ch.Href})

		tree, err := markup.Parse(ch.Content)
		if err != nil {
			return nil, report, fmt.Errorf("%w: %s: %w", ErrContainerParse, ch.Href, err)
		}
		fragments := slices.Collect(extractor.Fragments(tree))

		sub := &Substituter{
			Translator: e.tr,
			Source:     e.opts.Source,
			Target:     e.opts.Target,
			Workers:    e.opts.Workers,
			Logger:     e.logger,
			Progress: func(p Progress) {
				p.Chapter, p.Chapters = i+1, len(src.Chapters)
				e.progress(p)
			},
		}
		cr, err := sub.Substitute(ctx, ch, fragments)
		if err != nil {
			return nil, report, err
		}
		report.add(cr)

		rebuilt, err := RebuildChapter(ch, e.opts.Target, tree)
		if err != nil {
			return nil, report, err
		}
		out.Chapters = append(out.Chapters, rebuilt)
		e.logger.Debug("assemble: chapter translated", "href", ch.Href,
			"fragments", cr.Fragments, "translated", cr.Translated, "failed", cr.Failed)
	}

	if err := VerifyStructure(src, out); err != nil {
		return nil, report, err
	}
	return out, report, nil
}

func (e *Engine) progress(p Progress) {
	if e.opts.Progress != nil {
		e.opts.Progress(p)
	}
}

// metadata copies md for the translated book: the title gains the localized
// suffix, the language becomes the target, and placeholders stand in for a
// missing title or author.
func (e *Engine) metadata(md epub.Metadata) epub.Metadata {
	l := labelsFor(e.opts.Target)
	out := md

	title := l.UntitledBook
	if len(md.Titles) > 0 && strings.TrimSpace(md.Titles[0]) != "" {
		title = md.Titles[0]
	}
	out.Titles = []string{title + l.TitleSuffix}
	if len(md.Titles) > 1 {
		out.Titles = append(out.Titles, md.Titles[1:]...)
	}

	out.Language = []string{e.opts.Target}

	out.Authors = nil
	for _, a := range md.Authors {
		if strings.TrimSpace(a.Name) != "" {
			out.Authors = append(out.Authors, a)
		}
	}
	if len(out.Authors) == 0 {
		out.Authors = []epub.Author{{Name: l.UnknownAuthor}}
	}

	out.Identifiers = slices.Clone(md.Identifiers)
	if len(out.Identifiers) == 0 {
		out.Identifiers = []epub.Identifier{{Value: "urn:xid:" + xid.New().String()}}
		out.UniqueIdentifier = ""
	}
	out.Subjects = slices.Clone(md.Subjects)
	out.Modified = e.opts.Now().UTC().Format(modifiedLayout)
	return out
}

// VerifyStructure checks that out has the same chapters (ids and hrefs, in
// order), resources, TOC and spine as src.
func VerifyStructure(src, out *epub.Document) error {
	if len(src.Chapters) != len(out.Chapters) {
		return fmt.Errorf("%w: %d chapters, want %d", ErrStructureMismatch, len(out.Chapters), len(src.Chapters))
	}
	for i, c := range src.Chapters {
		o := out.Chapters[i]
		if c.ID != o.ID || c.Href != o.Href {
			return fmt.Errorf("%w: chapter %d is %s (%s), want %s (%s)", ErrStructureMismatch, i, o.ID, o.Href, c.ID, c.Href)
		}
	}
	if !slices.EqualFunc(src.Resources, out.Resources, func(a, b epub.Resource) bool {
		return a.ID == b.ID && a.Href == b.Href && a.MediaType == b.MediaType && bytes.Equal(a.Data, b.Data)
	}) {
		return fmt.Errorf("%w: resources differ", ErrStructureMismatch)
	}
	if !tocEqual(src.TOC, out.TOC) {
		return fmt.Errorf("%w: table of contents differs", ErrStructureMismatch)
	}
	if src.Spine.PageProgressionDirection != out.Spine.PageProgressionDirection ||
		!slices.Equal(src.Spine.Items, out.Spine.Items) {
		return fmt.Errorf("%w: spine differs", ErrStructureMismatch)
	}
	return nil
}

func tocEqual(a, b []epub.TOCItem) bool {
	return slices.EqualFunc(a, b, func(x, y epub.TOCItem) bool {
		return x.Title == y.Title && x.Href == y.Href && x.Type == y.Type && tocEqual(x.Children, y.Children)
	})
}
