// Package epub reads ePub 2 and ePub 3 files into an in-memory [Document]
// and writes Documents back out as ePub 3 archives.
//
// Reading validates the container, rejects DRM-protected books with
// [ErrDRMProtected] (font obfuscation is allowed), and loads metadata, the
// table of contents (nav document or NCX), landmarks, the guide, the spine and
// every manifest item. XHTML items become [Chapter] values; everything else
// becomes a [Resource] whose bytes are never inspected:
//
//	doc, err := epub.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ch := range doc.Chapters {
//	    fmt.Println(ch.Href, ch.Title)
//	}
//
// Writing always produces an ePub 3 package that also carries an NCX, so
// ePub 2 reading systems keep working. Both navigation files are generated
// from [Document.TOC]; chapters, resources and extra archive files keep their
// paths. [WriteFile] replaces the destination atomically:
//
//	if err := epub.WriteFile(doc, "book_translated.epub"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - [ErrDRMProtected] – the file is DRM encrypted
//   - [ErrInvalidEPub] – structural validation failed
//   - [ErrFileNotFound] – a manifest item is missing from the archive
//   - [ErrInvalidDocument] – a Document cannot be written
package epub
