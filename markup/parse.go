package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements never have children or an end tag, even when written without
// the XHTML self-closing slash.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// rawTextElements switch the tokenizer into raw text mode after their start
// tag. A self-closing form such as <script src="x"/> must switch it back, or
// the rest of the document would be swallowed as script text.
var rawTextElements = map[atom.Atom]bool{
	atom.Iframe:    true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Noscript:  true,
	atom.Plaintext: true,
	atom.Script:    true,
	atom.Style:     true,
	atom.Textarea:  true,
	atom.Title:     true,
	atom.Xmp:       true,
}

// keepsRawText lists the raw text elements whose content really is text in
// XHTML. The others (noscript, iframe and friends) hold ordinary markup, so
// the tokenizer is told to keep tokenizing tags inside them.
var keepsRawText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
	atom.Title:    true,
}

// Parse tokenizes an XHTML (or HTML) document into a tree. It never
// normalises the document: no elements are inserted, and unbalanced end tags
// are kept as Raw nodes. Rendering the result with Render reproduces data
// exactly.
func Parse(data []byte) (*Element, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	root := &Element{}
	stack := []*Element{root}

	appendChild := func(n Node) {
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			err := z.Err()
			if errors.Is(err, io.EOF) {
				return root, nil
			}
			return nil, fmt.Errorf("markup: tokenize: %w", err)

		case html.TextToken:
			raw := cloneBytes(z.Raw())
			appendChild(&Text{Data: string(z.Text()), raw: raw})

		case html.StartTagToken:
			raw := cloneBytes(z.Raw())
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if rawTextElements[a] && !keepsRawText[a] {
				z.NextIsNotRawText()
			}
			el := &Element{Tag: string(name), start: raw}
			appendChild(el)
			if !voidElements[a] {
				stack = append(stack, el)
			}

		case html.SelfClosingTagToken:
			raw := cloneBytes(z.Raw())
			name, _ := z.TagName()
			if rawTextElements[atom.Lookup(name)] {
				z.NextIsNotRawText()
			}
			appendChild(&Element{Tag: string(name), start: raw})

		case html.EndTagToken:
			raw := cloneBytes(z.Raw())
			name, _ := z.TagName()
			i := openIndex(stack, string(name))
			if i < 0 {
				appendChild(&Raw{Data: raw})
				continue
			}
			// Elements opened after stack[i] are closed implicitly.
			stack[i].end = raw
			stack = stack[:i]

		default:
			appendChild(&Raw{Data: cloneBytes(z.Raw())})
		}
	}
}

// openIndex returns the stack index of the innermost open element named tag,
// or -1. The root at index 0 is never matched.
func openIndex(stack []*Element, tag string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].Tag == tag {
			return i
		}
	}
	return -1
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
