package epubtranslate

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// labels are the strings the assembler adds to the book metadata.
type labels struct {
	TitleSuffix   string
	UntitledBook  string
	UnknownAuthor string
}

var defaultLabels = labels{" (Translated)", "Translated Book", "Unknown author"}

// localizedLabels is keyed by base language.
var localizedLabels = map[string]labels{
	"en": defaultLabels,
	"es": {" (Traducido)", "Libro Traducido", "Autor desconocido"},
	"fr": {" (Traduit)", "Livre traduit", "Auteur inconnu"},
	"de": {" (Übersetzt)", "Übersetztes Buch", "Unbekannter Autor"},
	"it": {" (Tradotto)", "Libro tradotto", "Autore sconosciuto"},
	"pt": {" (Traduzido)", "Livro traduzido", "Autor desconhecido"},
}

// labelsFor returns the labels for the target language, falling back to
// English.
func labelsFor(target string) labels {
	tag, err := language.Parse(target)
	if err != nil {
		return defaultLabels
	}
	base, _ := tag.Base()
	if l, ok := localizedLabels[base.String()]; ok {
		return l
	}
	return defaultLabels
}

// OutputPath derives the translated book's path from the input path by
// inserting "_" and the target language's own name before the extension:
// "book.epub" translated to "es" becomes "book_espanol.epub".
func OutputPath(input, target string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_" + languageSlug(target) + ext
}

// languageSlug returns the lowercase self-name of a language with diacritics
// removed and words joined by underscores, or the cleaned tag itself when
// the name is unknown.
func languageSlug(target string) string {
	name := target
	if tag, err := language.Parse(target); err == nil {
		if n := display.Self.Name(tag); n != "" {
			name = n
		}
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(t, name); err == nil {
		name = s
	}

	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "translated"
	}
	return strings.Join(words, "_")
}
