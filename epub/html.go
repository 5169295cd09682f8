package epub

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// namedEntityPattern matches named character references such as "&nbsp;".
var namedEntityPattern = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)

// xmlEntities are the named references encoding/xml understands natively.
var xmlEntities = map[string]bool{"amp": true, "lt": true, "gt": true, "quot": true, "apos": true}

// preprocessHTMLEntities rewrites HTML named entities into numeric character
// references so that encoding/xml can parse OPF and NCX files produced by
// tools that emit "&nbsp;" and friends. Names are tried as written, then
// lowercased; unknown names are left alone.
func preprocessHTMLEntities(data []byte) []byte {
	return namedEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(match[1 : len(match)-1])
		if xmlEntities[name] {
			return match
		}
		decoded := html.UnescapeString("&" + name + ";")
		// A leftover ';' means only a prefix matched (e.g. "&notit;").
		if strings.ContainsAny(decoded, "&;") {
			decoded = html.UnescapeString("&" + strings.ToLower(name) + ";")
		}
		if strings.ContainsAny(decoded, "&;") {
			return match
		}
		var b strings.Builder
		for _, r := range decoded {
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(r)))
			b.WriteByte(';')
		}
		return []byte(b.String())
	})
}
