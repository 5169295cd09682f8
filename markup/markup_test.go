package markup

import (
	"slices"
	"strings"
	"testing"
)

const sampleChapter = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="en" xml:lang="en">
<head>
  <title>Chapter One</title>
  <link rel="stylesheet" type="text/css" href="../Styles/style.css"/>
  <script type="text/javascript" src="x.js"/>
  <style>p { color: red; }</style>
</head>
<body class="chapter">
  <!-- a comment -->
  <h1 id="c1">Chapter  One</h1>
  <p>Hello &amp; <i>goodbye</i>.<br/>Second line</p>
  <p>   </p>
  <pre>x = 1</pre>
  <p><code>fmt.Println()</code> prints</p>
  <img src="../Images/a.png" alt="An image"/>
  <![CDATA[ raw data ]]>
</body>
</html>
`

func parseString(t *testing.T, s string) *Element {
	t.Helper()
	root, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return root
}

func renderString(t *testing.T, n Node) string {
	t.Helper()
	out, err := Bytes(n)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return string(out)
}

func fragmentTexts(e Extractor, root *Element) []string {
	var out []string
	for f := range e.Fragments(root) {
		out = append(out, f.Text)
	}
	return out
}

func TestParseRenderRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"chapter", sampleChapter},
		{"empty", ""},
		{"text only", "just text"},
		{"unbalanced end tag", "<p>a</b></p>"},
		{"unclosed element", "<div><p>a"},
		{"void without slash", "<p>a<br>b<img src=x>c</p>"},
		{"entities", "<p>&lt;tag&gt; &#8212; &nbsp;</p>"},
		{"crlf", "<p>a\r\nb</p>\r\n"},
		{"attributes verbatim", `<p  class='x'   data-a="1&amp;2">t</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parseString(t, tt.input)
			if got := renderString(t, root); got != tt.input {
				t.Errorf("round trip = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestParseTreeShape(t *testing.T) {
	root := parseString(t, `<p>a<br>b<i>c</i></p><pre><b>d</b></pre>`)
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	p, ok := root.Children[0].(*Element)
	if !ok || p.Tag != "p" {
		t.Fatalf("first child = %#v, want <p>", root.Children[0])
	}
	if len(p.Children) != 4 {
		t.Fatalf("<p> children = %d, want 4 (text, br, text, i)", len(p.Children))
	}
	if br, ok := p.Children[1].(*Element); !ok || br.Tag != "br" || len(br.Children) != 0 {
		t.Errorf("<br> should be a childless element, got %#v", p.Children[1])
	}
}

func TestParseSelfClosingScript(t *testing.T) {
	root := parseString(t, `<head><script src="a.js"/></head><p>Hello</p>`)
	if got := fragmentTexts(Extractor{Exclude: DefaultExclusions()}, root); !slices.Equal(got, []string{"Hello"}) {
		t.Errorf("fragments = %q, want [Hello]", got)
	}
}

func TestFragmentsExclusion(t *testing.T) {
	root := parseString(t, sampleChapter)
	got := fragmentTexts(Extractor{Exclude: DefaultExclusions()}, root)
	want := []string{"Chapter One", "Chapter  One", "Hello &", "goodbye", ".", "Second line", "prints"}
	if !slices.Equal(got, want) {
		t.Errorf("fragments = %q, want %q", got, want)
	}
}

func TestFragmentsParentTag(t *testing.T) {
	root := parseString(t, `Top<p>para <em>emph</em></p>`)
	var parents []string
	for f := range (Extractor{}).Fragments(root) {
		parents = append(parents, f.Parent)
	}
	want := []string{"", "p", "em"}
	if !slices.Equal(parents, want) {
		t.Errorf("parents = %q, want %q", parents, want)
	}
}

func TestFragmentsShallowVersusDeep(t *testing.T) {
	input := `<pre><b>bold code</b>plain code</pre><p>prose</p>`

	shallow := fragmentTexts(Extractor{Exclude: DefaultExclusions()}, parseString(t, input))
	if want := []string{"bold code", "prose"}; !slices.Equal(shallow, want) {
		t.Errorf("shallow fragments = %q, want %q", shallow, want)
	}

	deep := fragmentTexts(Extractor{Exclude: DefaultExclusions(), Deep: true}, parseString(t, input))
	if want := []string{"prose"}; !slices.Equal(deep, want) {
		t.Errorf("deep fragments = %q, want %q", deep, want)
	}
}

func TestFragmentsWhitespaceOnly(t *testing.T) {
	root := parseString(t, "<p>   </p><p>\n\t</p>")
	if got := fragmentTexts(Extractor{}, root); len(got) != 0 {
		t.Errorf("fragments = %q, want none", got)
	}
}

func TestFragmentsEarlyStop(t *testing.T) {
	root := parseString(t, "<p>a</p><p>b</p><p>c</p>")
	var got []string
	for f := range (Extractor{}).Fragments(root) {
		got = append(got, f.Text)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("fragments = %q, want [a b]", got)
	}
}

// Every text node with content whose parent is not excluded is extracted,
// and nothing else is.
func TestFragmentsCompleteness(t *testing.T) {
	root := parseString(t, sampleChapter)
	ex := DefaultExclusions()

	want := map[*Text]bool{}
	Walk(root, func(n Node, parent *Element) bool {
		if txt, ok := n.(*Text); ok && strings.TrimSpace(txt.Data) != "" && !ex.Has(parent.Tag) {
			want[txt] = true
		}
		return true
	})

	got := map[*Text]bool{}
	for f := range (Extractor{Exclude: ex}).Fragments(root) {
		got[f.Node] = true
	}
	if len(got) != len(want) {
		t.Fatalf("extracted %d nodes, want %d", len(got), len(want))
	}
	for n := range want {
		if !got[n] {
			t.Errorf("text node %q not extracted", n.Data)
		}
	}
}

func TestSetDataRendersEscaped(t *testing.T) {
	root := parseString(t, `<p class="a">Hello</p><pre>x=1</pre>`)
	for f := range (Extractor{Exclude: DefaultExclusions()}).Fragments(root) {
		f.Node.SetData("Hola <3 & más")
	}
	want := `<p class="a">Hola &lt;3 &amp; más</p><pre>x=1</pre>`
	if got := renderString(t, root); got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestSetDataMarksChanged(t *testing.T) {
	root := parseString(t, "<p>a</p><p>b</p>")
	var nodes []*Text
	for f := range (Extractor{}).Fragments(root) {
		nodes = append(nodes, f.Node)
	}
	nodes[1].SetData("B")
	if nodes[0].Changed() || !nodes[1].Changed() {
		t.Errorf("Changed() = %v, %v, want false, true", nodes[0].Changed(), nodes[1].Changed())
	}
}

func TestParseMarkupInsideNoscript(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		fragments []string
		want      string
	}{
		{
			name:      "noscript paragraph",
			input:     "<noscript><p>Enable scripts</p></noscript>",
			fragments: []string{"Enable scripts"},
			want:      "<noscript><p>ENABLE SCRIPTS</p></noscript>",
		},
		{
			name:      "noscript entity",
			input:     "<noscript>Tom &amp; Jerry</noscript>",
			fragments: []string{"Tom & Jerry"},
			want:      "<noscript>TOM &amp; JERRY</noscript>",
		},
		{
			name:      "iframe fallback",
			input:     `<iframe src="a.html"><p>No <b>frames</b></p></iframe>`,
			fragments: []string{"No", "frames"},
			want:      `<iframe src="a.html"><p>NO <b>FRAMES</b></p></iframe>`,
		},
		{
			name:      "noembed and xmp",
			input:     "<noembed><i>x</i></noembed><xmp><i>y</i></xmp>",
			fragments: []string{"x", "y"},
			want:      "<noembed><i>X</i></noembed><xmp><i>Y</i></xmp>",
		},
		{
			name:      "script stays raw",
			input:     "<script>if (a < b) { x = '<p>' }</script><p>t</p>",
			fragments: []string{"t"},
			want:      "<script>if (a < b) { x = '<p>' }</script><p>T</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parseString(t, tt.input)
			if got := renderString(t, root); got != tt.input {
				t.Fatalf("round trip = %q, want %q", got, tt.input)
			}
			ex := Extractor{Exclude: DefaultExclusions()}
			if got := fragmentTexts(ex, root); !slices.Equal(got, tt.fragments) {
				t.Errorf("fragments = %q, want %q", got, tt.fragments)
			}
			for f := range ex.Fragments(root) {
				f.Node.SetData(strings.Replace(f.Node.Data, f.Text, strings.ToUpper(f.Text), 1))
			}
			if got := renderString(t, root); got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNoscriptTreeShape(t *testing.T) {
	root := parseString(t, "<noscript><p>a</p></noscript>")
	ns, ok := root.Children[0].(*Element)
	if !ok || ns.Tag != "noscript" || len(ns.Children) != 1 {
		t.Fatalf("root child = %#v, want <noscript> with one child", root.Children[0])
	}
	if p, ok := ns.Children[0].(*Element); !ok || p.Tag != "p" {
		t.Errorf("<noscript> child = %#v, want <p>", ns.Children[0])
	}
}

func TestNewExclusionSet(t *testing.T) {
	s := NewExclusionSet(" PRE ", "", "Code")
	if !s.Has("pre") || !s.Has("code") {
		t.Errorf("set = %v, want pre and code", s)
	}
	if len(s) != 2 {
		t.Errorf("len = %d, want 2", len(s))
	}
}
