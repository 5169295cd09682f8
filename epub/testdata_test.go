package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"maps"
	"slices"
	"testing"
)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// A "mimetype" entry, if present, is written first. It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestEPubBytes returns the bytes of a ZIP archive holding files.
// Entries other than "mimetype" are written in sorted order.
func buildTestEPubBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	names := slices.Sorted(maps.Keys(files))
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, slices.DeleteFunc(names, func(n string) bool { return n == "mimetype" })...)
	}
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestEPubBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestEPubBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestEPubBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// readTestEPub builds an archive from files and reads it as a Document.
func readTestEPub(t *testing.T, files map[string]string) *Document {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	doc, err := Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return doc
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPFv3 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="isbn">9780000000001</dc:identifier>
    <dc:identifier id="bookid">urn:uuid:12345678-1234-1234-1234-123456789abc</dc:identifier>
    <meta refines="#isbn" property="identifier-type">ISBN</meta>
    <dc:title id="t1">A Tale&nbsp;of Tests</dc:title>
    <dc:creator id="c1">Jane Doe</dc:creator>
    <meta refines="#c1" property="role" scheme="marc:relators">aut</meta>
    <meta refines="#c1" property="file-as">Doe, Jane</meta>
    <dc:language>en</dc:language>
    <dc:publisher>Test Press</dc:publisher>
    <dc:date>2024-01-02</dc:date>
    <dc:subject>Fiction</dc:subject>
    <dc:rights>Public domain</dc:rights>
    <meta property="dcterms:modified">2024-01-02T03:04:05Z</meta>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch3" href="text/notes.xhtml" media-type="application/xhtml+xml"/>
    <item id="img" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
  <spine toc="ncx" page-progression-direction="ltr">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="ch3" linear="no"/>
  </spine>
</package>`

const testNav = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="text/ch1.xhtml">Chapter One</a>
        <ol><li><a href="text/ch1.xhtml#s1">Section 1.1</a></li></ol>
      </li>
      <li><a href="text/ch2.xhtml">Chapter Two</a></li>
    </ol>
  </nav>
  <nav epub:type="landmarks">
    <ol><li><a epub:type="bodymatter" href="text/ch1.xhtml">Start</a></li></ol>
  </nav>
  <nav epub:type="page-list" hidden="">
    <ol>
      <li><a href="text/ch1.xhtml#page1">1</a></li>
      <li><a href="text/ch2.xhtml#page2">2</a></li>
    </ol>
  </nav>
</body>
</html>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>NCX One</text></navLabel>
      <content src="text/ch1.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const testChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>One</title></head>
<body><h1 id="s1">Chapter One</h1><p>Hello <b>world</b>.</p></body></html>`

const testChapter2 = `<html><body><p>Second chapter.</p><pre>code()</pre></body></html>`

// testEPub3Files returns a small, complete ePub 3 book.
func testEPub3Files() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPFv3,
		"OEBPS/nav.xhtml":        testNav,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/text/ch1.xhtml":   testChapter1,
		"OEBPS/text/ch2.xhtml":   testChapter2,
		"OEBPS/text/notes.xhtml": `<html><body><p>Notes</p></body></html>`,
		"OEBPS/style.css":        `p { margin: 0 }`,
		"OEBPS/images/cover.jpg": "\xff\xd8\xff\xe0fakejpeg",
		"META-INF/apple.xml":     `<display_options/>`,
	}
}

const testOPFv2 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:opf="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Old Book</dc:title>
    <dc:creator opf:file-as="Smith, John" opf:role="aut">John Smith</dc:creator>
    <dc:identifier id="uid" opf:scheme="UUID">abc-123</dc:identifier>
    <dc:language>fr</dc:language>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="intro" href="intro.html" media-type="text/html"/>
    <item id="cover-img" href="pics/front.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="intro"/>
  </spine>
  <guide>
    <reference type="text" title="Start" href="intro.html"/>
  </guide>
</package>`

const testNCXv2 = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>Introduction</text></navLabel>
      <content src="intro.html#top"/>
    </navPoint>
  </navMap>
</ncx>`

// testEPub2Files returns an ePub 2 book whose package lives at the archive root.
func testEPub2Files() map[string]string {
	return map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"content.opf":    testOPFv2,
		"toc.ncx":        testNCXv2,
		"intro.html":     `<html><body><p id="top">Bonjour</p></body></html>`,
		"pics/front.png": "\x89PNGfake",
	}
}
