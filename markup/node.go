// Package markup models a chapter's XHTML as a small tagged-variant tree and
// finds the text inside it that should be translated.
//
// A tree is produced by [Parse] and turned back into bytes by [Render]. The
// tree keeps the original bytes of every tag, comment and directive, so a
// document renders byte-for-byte identical to its input unless a [Text] node
// was changed with [Text.SetData].
package markup

// Node is one of *Element, *Text or *Raw.
type Node interface {
	node()
}

// Element is a tag with ordered children. The root returned by Parse is an
// Element with an empty Tag.
type Element struct {
	// Tag is the lowercased tag name (e.g. "p", "svg:title").
	Tag string

	Children []Node

	start []byte // original start tag, nil for the root
	end   []byte // original end tag, nil when implicitly closed
}

// Text is a run of character data.
type Text struct {
	// Data is the unescaped text content.
	Data string

	raw   []byte
	dirty bool
}

// Raw is markup that is reproduced verbatim and never translated: comments,
// doctype, XML declarations, CDATA sections and unmatched end tags.
type Raw struct {
	Data []byte
}

func (*Element) node() {}
func (*Text) node()    {}
func (*Raw) node()     {}

// SetData replaces the text content. The node keeps its position in the tree.
func (t *Text) SetData(s string) {
	t.Data = s
	t.dirty = true
}

// Changed reports whether SetData was called.
func (t *Text) Changed() bool {
	return t.dirty
}

// Walk calls fn for n and every descendant in document order (pre-order,
// depth first). parent is the enclosing element, nil for the root.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(n Node, parent *Element) bool) {
	walk(n, nil, fn)
}

func walk(n Node, parent *Element, fn func(Node, *Element) bool) {
	if !fn(n, parent) {
		return
	}
	if el, ok := n.(*Element); ok {
		for _, c := range el.Children {
			walk(c, el, fn)
		}
	}
}
