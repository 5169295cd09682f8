package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/simp-lee/epubtranslate"
	"github.com/simp-lee/epubtranslate/translator"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("epubtranslate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	from := fs.String("from", "", "source language (default en)")
	to := fs.String("to", "", "target language (default es)")
	out := fs.String("o", "", "output file (default <input>_<language>.epub)")
	configPath := fs.String("config", "", "JSON config file")
	provider := fs.String("provider", "", "translation backend")
	model := fs.String("model", "", "model name for chat backends")
	baseURL := fs.String("url", "", "backend base URL")
	workers := fs.Int("workers", 0, "concurrent requests per chapter")
	rateLimit := fs.Float64("rate", 0, "maximum requests per second")
	retries := fs.Int("retries", 0, "extra attempts when the backend is unavailable")
	deep := fs.Bool("deep-exclude", false, "skip all text nested inside excluded tags")
	verbose := fs.Bool("v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		printUsage(stderr)
		return 1
	}
	input := fs.Arg(0)

	if _, err := os.Stat(input); err != nil {
		fmt.Fprintf(stderr, "Input file not found: %s\n", input)
		return 1
	}

	cfg := epubtranslate.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = epubtranslate.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Only flags given on the command line override the config.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "from":
			cfg.SourceLang = *from
		case "to":
			cfg.TargetLang = *to
		case "provider":
			cfg.Translator.Provider = *provider
		case "model":
			cfg.Translator.Model = *model
		case "url":
			cfg.Translator.BaseURL = *baseURL
		case "workers":
			cfg.Workers = *workers
		case "rate":
			cfg.Translator.RateLimit = *rateLimit
		case "retries":
			cfg.Translator.Retries = *retries
		case "deep-exclude":
			cfg.DeepExclude = *deep
		}
	})
	cfg.ResolveAPIKey()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	tr, err := translator.New(cfg.Translator)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	output := *out
	if output == "" {
		output = epubtranslate.OutputPath(input, cfg.TargetLang)
	}

	opts := cfg.Options()
	opts.Logger = logger
	opts.Progress = progressLine(stderr)

	report, err := epubtranslate.New(tr, opts).TranslateFile(ctx, input, output)
	fmt.Fprintln(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Translation failed: %v\n", err)
		return 1
	}
	if report.Failed > 0 {
		fmt.Fprintf(stderr, "%d of %d fragments could not be translated and were left as is\n", report.Failed, report.Fragments)
	}
	fmt.Fprintf(stdout, "Translation complete! Book saved to: %s\n", output)
	return 0
}

// progressLine renders progress as a single line that is rewritten in place.
func progressLine(w io.Writer) epubtranslate.ProgressFunc {
	return func(p epubtranslate.Progress) {
		if p.Fragments == 0 {
			fmt.Fprintf(w, "\r\033[KChapter %d/%d %s", p.Chapter, p.Chapters, p.Href)
			return
		}
		fmt.Fprintf(w, "\r\033[KChapter %d/%d %s  %d/%d", p.Chapter, p.Chapters, p.Href, p.Fragment, p.Fragments)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `epubtranslate: translate the text of an EPUB book

Usage:
  epubtranslate [options] <book.epub>

Options:
  -from           Source language (default en)
  -to             Target language (default es)
  -o              Output file (default <book>_<language>.epub)
  -config         JSON config file
  -provider       libretranslate, identity, openai, ollama, lmstudio, groq, openrouter, custom
  -model          Model name for chat backends
  -url            Backend base URL
  -workers        Concurrent requests per chapter
  -rate           Maximum requests per second
  -retries        Extra attempts when the backend is unavailable
  -deep-exclude   Skip all text nested inside excluded tags
  -v              Verbose logging
`)
}
