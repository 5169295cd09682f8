package markup

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/net/html"
)

// Render writes n back out. Tags, comments and directives are written with
// their original bytes; text nodes are written with their original bytes
// unless they were changed, in which case the new data is escaped.
func Render(w io.Writer, n Node) error {
	bw := bufio.NewWriter(w)
	if err := render(bw, n); err != nil {
		return err
	}
	return bw.Flush()
}

// Bytes renders n into a new byte slice.
func Bytes(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(w *bufio.Writer, n Node) error {
	switch n := n.(type) {
	case *Element:
		if _, err := w.Write(n.start); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := render(w, c); err != nil {
				return err
			}
		}
		_, err := w.Write(n.end)
		return err

	case *Text:
		if n.Changed() || n.raw == nil {
			_, err := w.WriteString(html.EscapeString(n.Data))
			return err
		}
		_, err := w.Write(n.raw)
		return err

	case *Raw:
		_, err := w.Write(n.Data)
		return err
	}
	return nil
}
