// Package epubtranslate translates ePub books while keeping their structure.
//
// Every chapter is parsed into a markup tree, its text nodes are sent to a
// [translator.Translator] one fragment at a time, and the translations are
// written back into the same nodes. Tags, attributes, comments and all
// non-chapter resources are left untouched, so the TOC and the spine of the
// translated book still point at the same files:
//
//	tr := translator.NewLibreTranslate(translator.LibreTranslateOptions{})
//	engine := epubtranslate.New(tr, epubtranslate.Options{Source: "en", Target: "es"})
//	report, err := engine.TranslateFile(ctx, "book.epub", epubtranslate.OutputPath("book.epub", "es"))
//
// A fragment the translator fails on keeps its original text; the failure is
// logged and listed in the [Report]. Errors reading or writing a book are
// fatal and never leave a partial file at the output path.
package epubtranslate
