package markup

import (
	"iter"
	"strings"
)

// ExclusionSet holds tag names whose text children are never translated.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from tag names. Names are lowercased to match
// the tokenizer's tag names.
func NewExclusionSet(tags ...string) ExclusionSet {
	s := make(ExclusionSet, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// DefaultExclusions returns the code-like tags: script, style, code and pre.
func DefaultExclusions() ExclusionSet {
	return NewExclusionSet("script", "style", "code", "pre")
}

// Has reports whether tag is excluded.
func (s ExclusionSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Fragment is a translatable piece of text found by an Extractor.
type Fragment struct {
	// Node is the text node the fragment came from; write the translation
	// back through Node.SetData.
	Node *Text

	// Parent is the tag name of the node's immediate parent element, empty
	// at the top level.
	Parent string

	// Text is the node's data with surrounding whitespace trimmed.
	Text string
}

// Extractor finds translatable text fragments in a tree.
type Extractor struct {
	Exclude ExclusionSet

	// Deep suppresses text anywhere below an excluded element. By default
	// only the immediate parent is checked, so in <pre><b>x</b></pre> the
	// text "x" is extracted.
	Deep bool
}

// Fragments yields fragments in document order. Text nodes whose trimmed
// content is empty are skipped, as are nodes under excluded tags.
func (e Extractor) Fragments(root *Element) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		stopped := false
		Walk(root, func(n Node, parent *Element) bool {
			if stopped {
				return false
			}
			switch n := n.(type) {
			case *Element:
				return !e.Deep || !e.Exclude.Has(n.Tag)
			case *Text:
				if e.Exclude.Has(parent.Tag) {
					return false
				}
				text := strings.TrimSpace(n.Data)
				if text != "" && !yield(Fragment{Node: n, Parent: parent.Tag, Text: text}) {
					stopped = true
				}
			}
			return false
		})
	}
}
