package epub

import (
	"strings"
	"testing"
)

func TestZipPath(t *testing.T) {
	tests := []struct {
		dir, href, want string
	}{
		{".", "ch1.xhtml", "ch1.xhtml"},
		{"OEBPS", "text/ch1.xhtml", "OEBPS/text/ch1.xhtml"},
		{"OEBPS", "text/ch1.xhtml#frag", "OEBPS/text/ch1.xhtml"},
		{"OEBPS", "Text/My%20Chapter.xhtml", "OEBPS/Text/My Chapter.xhtml"},
		{"OEBPS/content", "../images/a.png", "OEBPS/images/a.png"},
	}
	for _, tt := range tests {
		if got := zipPath(tt.dir, tt.href); got != tt.want {
			t.Errorf("zipPath(%q, %q) = %q, want %q", tt.dir, tt.href, got, tt.want)
		}
	}
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		name                 string
		docDir, opfDir, href string
		want                 string
	}{
		{"same directory", "OEBPS", "OEBPS", "ch1.xhtml", "ch1.xhtml"},
		{"fragment kept", "OEBPS", "OEBPS", "ch1.xhtml#p2", "ch1.xhtml#p2"},
		{"escapes kept", ".", ".", "My%20Chapter.xhtml", "My%20Chapter.xhtml"},
		{"nav in subdirectory", "OEBPS/nav", "OEBPS", "../text/ch1.xhtml", "text/ch1.xhtml"},
		{"outside opf dir", "OEBPS", "OEBPS/text", "ch1.xhtml", "../ch1.xhtml"},
		{"external link", "OEBPS", "OEBPS", "https://example.com/x", "https://example.com/x"},
		{"fragment only", "OEBPS", "OEBPS", "#top", "#top"},
		{"escapes archive", ".", ".", "../../etc/passwd", ""},
		{"absolute", "OEBPS", "OEBPS", "/etc/passwd", ""},
		{"empty", "OEBPS", "OEBPS", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveHref(tt.docDir, tt.opfDir, tt.href); got != tt.want {
				t.Errorf("resolveHref(%q, %q, %q) = %q, want %q", tt.docDir, tt.opfDir, tt.href, got, tt.want)
			}
		})
	}
}

func TestLinkFrom(t *testing.T) {
	tests := []struct {
		from, href, want string
	}{
		{"nav.xhtml", "text/ch1.xhtml#s1", "text/ch1.xhtml#s1"},
		{"nav/toc.xhtml", "text/ch1.xhtml", "../text/ch1.xhtml"},
		{"text/nav.xhtml", "text/ch1.xhtml", "ch1.xhtml"},
		{"nav.xhtml", "mailto:someone@example.com", "mailto:someone@example.com"},
	}
	for _, tt := range tests {
		if got := linkFrom(tt.from, tt.href); got != tt.want {
			t.Errorf("linkFrom(%q, %q) = %q, want %q", tt.from, tt.href, got, tt.want)
		}
	}
}

func TestHasURIScheme(t *testing.T) {
	tests := map[string]bool{
		"http://x":        true,
		"mailto:a@b":      true,
		"urn:isbn:1":      true,
		"chapter.xhtml":   false,
		"dir/a:b.xhtml":   false,
		"1abc:def":        false,
		":nothing":        false,
		"text/ch1.xhtml#": false,
	}
	for in, want := range tests {
		if got := hasURIScheme(in); got != want {
			t.Errorf("hasURIScheme(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsSafePath(t *testing.T) {
	tests := map[string]bool{
		"OEBPS/ch1.xhtml":     true,
		"a/../b":              true,
		"../../../etc/passwd": false,
		"/absolute/path":      false,
		"..":                  false,
		"OEBPS/../../escaped": false,
	}
	for in, want := range tests {
		if got := isSafePath(in); got != want {
			t.Errorf("isSafePath(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStripBOM(t *testing.T) {
	if got := string(stripBOM([]byte("\xEF\xBB\xBFabc"))); got != "abc" {
		t.Errorf("stripBOM = %q, want %q", got, "abc")
	}
	if got := string(stripBOM([]byte("abc"))); got != "abc" {
		t.Errorf("stripBOM without BOM = %q", got)
	}
}

func TestReadZipFileWithLimit(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"small.txt": "hello",
		"big.txt":   strings.Repeat("A", 200),
	})

	data, err := readZipFileWithLimit(findFileInsensitive(zr, "small.txt"), 100)
	if err != nil || string(data) != "hello" {
		t.Errorf("readZipFileWithLimit(small) = %q, %v", data, err)
	}
	if _, err := readZipFileWithLimit(findFileInsensitive(zr, "big.txt"), 100); err == nil {
		t.Error("readZipFileWithLimit should reject an oversized entry")
	}
}

func TestFindFileInsensitive(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"OEBPS/Content.OPF": "upper",
	})
	if f := findFileInsensitive(zr, "oebps/content.opf"); f == nil || f.Name != "OEBPS/Content.OPF" {
		t.Errorf("findFileInsensitive = %v", f)
	}
	if f := findFileInsensitive(zr, "missing"); f != nil {
		t.Errorf("findFileInsensitive(missing) = %v, want nil", f.Name)
	}
}
