package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// maxDecompressSize caps the decompressed size of a single archive entry.
const maxDecompressSize int64 = 256 << 20

// findFileInsensitive returns the entry named name, preferring an exact
// match over a case-insensitive one, or nil.
func findFileInsensitive(zr *zip.Reader, name string) *zip.File {
	var folded *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
		if folded == nil && strings.EqualFold(f.Name, name) {
			folded = f
		}
	}
	return folded
}

// resolveRelativePath resolves href against the directory of the archive
// path basePath. It returns "" for absolute hrefs and for results outside
// the archive root.
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	p := zipPath(path.Dir(basePath), href)
	if !isSafePath(p) {
		return ""
	}
	return p
}

// zipPath converts a manifest href (relative to the OPF directory dir) into
// an archive path. Percent-escapes and fragments are removed.
func zipPath(dir, href string) string {
	href = hrefWithoutFragment(strings.TrimSpace(href))
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	return path.Join(dir, href)
}

// resolveHref resolves href, found in a document located in docDir, to an
// href relative to the OPF directory opfDir. Escapes and the fragment are
// kept; external links are returned unchanged and escaping ones as "".
func resolveHref(docDir, opfDir, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || hasURIScheme(href) {
		return href
	}
	file, frag := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		file, frag = href[:i], href[i:]
	}
	if file == "" {
		return href
	}
	if strings.HasPrefix(file, "/") {
		return ""
	}
	joined := path.Join(docDir, file)
	if !isSafePath(joined) {
		return ""
	}
	return relativePath(opfDir, joined) + frag
}

// relativePath returns target (an archive path) relative to the directory base.
func relativePath(base, target string) string {
	base = path.Clean(base)
	if base == "." {
		return target
	}
	baseParts := strings.Split(base, "/")
	targetParts := strings.Split(target, "/")
	n := 0
	for n < len(baseParts) && n < len(targetParts)-1 && baseParts[n] == targetParts[n] {
		n++
	}
	parts := make([]string, 0, len(baseParts)-n+len(targetParts)-n)
	for range baseParts[n:] {
		parts = append(parts, "..")
	}
	parts = append(parts, targetParts[n:]...)
	return strings.Join(parts, "/")
}

// hasURIScheme reports whether s starts with a URI scheme such as "http:".
func hasURIScheme(s string) bool {
	for i, c := range s {
		switch {
		case c == ':':
			return i > 0
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}

// hrefWithoutFragment returns the href with the fragment (#...) removed.
func hrefWithoutFragment(href string) string {
	if idx := strings.IndexByte(href, '#'); idx >= 0 {
		return href[:idx]
	}
	return href
}

// isSafePath reports whether the archive path p stays inside the archive
// root once cleaned.
func isSafePath(p string) bool {
	p = path.Clean(p)
	return !strings.HasPrefix(p, "/") && p != ".." && !strings.HasPrefix(p, "../")
}

// stripBOM drops a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
}

func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxDecompressSize)
}

// readZipFileWithLimit reads an entry, refusing unsafe names and entries
// whose declared or actual size exceeds limit.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("epub: unsafe zip entry path: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size can lie, so read one byte past the limit.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epub: zip entry %s exceeds %d bytes", f.Name, limit)
	}
	return data, nil
}
