package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const (
	nsOPF = "http://www.idpf.org/2007/opf"
	nsDC  = "http://purl.org/dc/elements/1.1/"

	defaultNavID   = "nav"
	defaultNavHref = "nav.xhtml"
	defaultNCXID   = "ncx"
	defaultNCXHref = "toc.ncx"
	defaultUID     = "pub-id"

	modifiedLayout = "2006-01-02T15:04:05Z"
)

// WriteFile writes doc as an ePub 3 archive to path. The archive is built in
// a temporary file next to path and renamed into place, so path is either
// left untouched or holds a complete book.
func WriteFile(doc *Document, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".epubtranslate-*.epub")
	if err != nil {
		return fmt.Errorf("epub: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if err := Write(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("epub: close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("epub: chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("epub: rename to %s: %w", path, err)
	}
	tmpPath = ""
	return nil
}

// Write serializes doc as an ePub 3 archive. The navigation document and the
// NCX are generated from doc.TOC (or from the linear spine when the TOC is
// empty); chapters, resources and extra files are written under their
// original paths.
//
// Write returns ErrInvalidDocument when doc lacks a title, a language or an
// identifier, when ids or hrefs collide, or when the spine names an unknown
// item.
func Write(w io.Writer, doc *Document) error {
	l, err := newLayout(doc)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	if err := l.writeEntries(zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub: finish archive: %w", err)
	}
	return nil
}

// layout is the resolved placement of every archive entry of a Document.
type layout struct {
	doc     *Document
	dir     string
	opfPath string

	navID, navHref string
	ncxID, ncxHref string

	uid        string // xml id of the package identifier
	uidValue   string
	idents     []Identifier
	creatorIDs []string
	toc        []TOCItem
}

func newLayout(doc *Document) (*layout, error) {
	if doc == nil {
		return nil, fmt.Errorf("epub: nil document: %w", ErrInvalidDocument)
	}
	md := doc.Metadata
	switch {
	case len(md.Titles) == 0:
		return nil, fmt.Errorf("epub: missing title: %w", ErrInvalidDocument)
	case len(md.Language) == 0:
		return nil, fmt.Errorf("epub: missing language: %w", ErrInvalidDocument)
	case len(md.Identifiers) == 0:
		return nil, fmt.Errorf("epub: missing identifier: %w", ErrInvalidDocument)
	}

	l := &layout{doc: doc, dir: doc.Dir}
	if l.dir == "" {
		l.dir = "."
	}
	l.opfPath = path.Join(l.dir, defaultPackageFile)

	ids := make(map[string]bool)
	paths := map[string]bool{
		"mimetype":                     true,
		strings.ToLower(containerPath): true,
		strings.ToLower(l.opfPath):     true,
	}
	claim := func(id, href string) error {
		if id == "" || href == "" {
			return fmt.Errorf("epub: manifest item id=%q href=%q incomplete: %w", id, href, ErrInvalidDocument)
		}
		if ids[id] {
			return fmt.Errorf("epub: duplicate id %q: %w", id, ErrInvalidDocument)
		}
		p := strings.ToLower(zipPath(l.dir, href))
		if paths[p] {
			return fmt.Errorf("epub: duplicate path %q: %w", href, ErrInvalidDocument)
		}
		ids[id], paths[p] = true, true
		return nil
	}
	for _, ch := range doc.Chapters {
		if err := claim(ch.ID, ch.Href); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Resources {
		if err := claim(r.ID, r.Href); err != nil {
			return nil, err
		}
	}

	for _, f := range doc.Files {
		p := strings.ToLower(path.Clean(f.Path))
		if !isSafePath(p) || paths[p] {
			return nil, fmt.Errorf("epub: extra file %q clashes with another entry: %w", f.Path, ErrInvalidDocument)
		}
		paths[p] = true
	}

	l.navID, l.navHref = l.placeNavigation(ids, paths, doc.Navigation.NavID, doc.Navigation.NavHref, defaultNavID, defaultNavHref)
	l.ncxID, l.ncxHref = l.placeNavigation(ids, paths, doc.Navigation.NCXID, doc.Navigation.NCXHref, defaultNCXID, defaultNCXHref)

	for _, si := range doc.Spine.Items {
		if !ids[si.IDRef] {
			return nil, fmt.Errorf("epub: spine references unknown item %q: %w", si.IDRef, ErrInvalidDocument)
		}
	}

	l.resolveIdentifiers(ids)
	l.creatorIDs = make([]string, len(md.Authors))
	for i, a := range md.Authors {
		if a.Role != "" || a.FileAs != "" {
			l.creatorIDs[i] = uniqueID(ids, fmt.Sprintf("creator%d", i+1))
		}
	}

	l.toc = doc.TOC
	if len(l.toc) == 0 {
		l.toc = spineTOC(doc)
	}
	return l, nil
}

// placeNavigation reuses the source id and href of a navigation file when
// possible so that spine references stay valid.
func (l *layout) placeNavigation(ids, paths map[string]bool, id, href, defID, defHref string) (string, string) {
	if id == "" || ids[id] {
		id = uniqueID(ids, defID)
	} else {
		ids[id] = true
	}
	if href == "" || paths[strings.ToLower(zipPath(l.dir, href))] {
		href = defHref
		ext := path.Ext(href)
		for i := 2; paths[strings.ToLower(zipPath(l.dir, href))]; i++ {
			href = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(defHref, ext), i, ext)
		}
	}
	paths[strings.ToLower(zipPath(l.dir, href))] = true
	return id, href
}

// resolveIdentifiers picks the package unique identifier, assigning an xml
// id to it when the source did not name one.
func (l *layout) resolveIdentifiers(ids map[string]bool) {
	md := l.doc.Metadata
	l.idents = slices.Clone(md.Identifiers)
	for _, id := range l.idents {
		if id.ID != "" {
			ids[id.ID] = true
		}
	}

	pick := -1
	for i, id := range l.idents {
		if md.UniqueIdentifier != "" && id.ID == md.UniqueIdentifier {
			pick = i
			break
		}
		if pick < 0 && id.ID != "" {
			pick = i
		}
	}
	if pick < 0 {
		pick = 0
		l.idents[0].ID = uniqueID(ids, defaultUID)
	}
	l.uid, l.uidValue = l.idents[pick].ID, l.idents[pick].Value
}

func (l *layout) writeEntries(zw *zip.Writer) error {
	// The mimetype entry must come first and be stored uncompressed.
	if err := writeEntry(zw, "mimetype", []byte(expectedMimetype), zip.Store); err != nil {
		return err
	}
	container, err := marshalContainer(l.opfPath)
	if err != nil {
		return fmt.Errorf("epub: build container.xml: %w", err)
	}
	if err := writeEntry(zw, containerPath, container, zip.Deflate); err != nil {
		return err
	}

	generated := []struct {
		name string
		doc  *etree.Document
	}{
		{l.opfPath, l.packageDocument()},
		{zipPath(l.dir, l.navHref), l.navDocument()},
		{zipPath(l.dir, l.ncxHref), l.ncxDocument()},
	}
	for _, g := range generated {
		g.doc.Indent(2)
		data, err := g.doc.WriteToBytes()
		if err != nil {
			return fmt.Errorf("epub: render %s: %w", g.name, err)
		}
		if err := writeEntry(zw, g.name, data, zip.Deflate); err != nil {
			return err
		}
	}

	for _, ch := range l.doc.Chapters {
		if err := writeEntry(zw, zipPath(l.dir, ch.Href), ch.Content, zip.Deflate); err != nil {
			return err
		}
	}
	for _, r := range l.doc.Resources {
		if err := writeEntry(zw, zipPath(l.dir, r.Href), r.Data, zip.Deflate); err != nil {
			return err
		}
	}
	for _, f := range l.doc.Files {
		if err := writeEntry(zw, path.Clean(f.Path), f.Data, zip.Deflate); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, method uint16) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("epub: create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("epub: write %s: %w", name, err)
	}
	return nil
}

// packageDocument builds the OPF 3.0 package document.
func (l *layout) packageDocument() *etree.Document {
	md := l.doc.Metadata

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	pkg := x.CreateElement("package")
	pkg.CreateAttr("xmlns", nsOPF)
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", l.uid)
	pkg.CreateAttr("xml:lang", md.Language[0])

	meta := pkg.CreateElement("metadata")
	meta.CreateAttr("xmlns:dc", nsDC)
	meta.CreateAttr("xmlns:opf", nsOPF)
	for _, id := range l.idents {
		el := dcElement(meta, "identifier", id.Value)
		if id.ID != "" {
			el.CreateAttr("id", id.ID)
			if id.Scheme != "" {
				refine(meta, id.ID, "identifier-type", id.Scheme)
			}
		}
	}
	for _, t := range md.Titles {
		dcElement(meta, "title", t)
	}
	for _, lang := range md.Language {
		dcElement(meta, "language", lang)
	}
	for i, a := range md.Authors {
		el := dcElement(meta, "creator", a.Name)
		id := l.creatorIDs[i]
		if id == "" {
			continue
		}
		el.CreateAttr("id", id)
		if a.Role != "" {
			refine(meta, id, "role", a.Role).CreateAttr("scheme", "marc:relators")
		}
		if a.FileAs != "" {
			refine(meta, id, "file-as", a.FileAs)
		}
	}
	for _, field := range []struct{ name, value string }{
		{"publisher", md.Publisher},
		{"date", md.Date},
		{"description", md.Description},
		{"rights", md.Rights},
		{"source", md.Source},
	} {
		if field.value != "" {
			dcElement(meta, field.name, field.value)
		}
	}
	for _, s := range md.Subjects {
		dcElement(meta, "subject", s)
	}

	modified := md.Modified
	if modified == "" {
		modified = time.Now().UTC().Format(modifiedLayout)
	}
	mod := meta.CreateElement("meta")
	mod.CreateAttr("property", "dcterms:modified")
	mod.SetText(modified)
	if md.CoverID != "" {
		cover := meta.CreateElement("meta")
		cover.CreateAttr("name", "cover")
		cover.CreateAttr("content", md.CoverID)
	}

	manifest := pkg.CreateElement("manifest")
	writeManifestItem(manifest, l.navID, l.navHref, mediaTypeXHTML, "nav", "")
	writeManifestItem(manifest, l.ncxID, l.ncxHref, mediaTypeNCX, "", "")
	for _, ch := range l.doc.Chapters {
		writeManifestItem(manifest, ch.ID, ch.Href, ch.MediaType, ch.Properties, "")
	}
	for _, r := range l.doc.Resources {
		props := r.Properties
		if r.ID == md.CoverID && !slices.Contains(strings.Fields(props), "cover-image") {
			props = strings.TrimSpace(props + " cover-image")
		}
		writeManifestItem(manifest, r.ID, r.Href, r.MediaType, props, r.Fallback)
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", l.ncxID)
	if ppd := l.doc.Spine.PageProgressionDirection; ppd != "" {
		spine.CreateAttr("page-progression-direction", ppd)
	}
	for _, si := range l.doc.Spine.Items {
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", si.IDRef)
		if !si.Linear {
			ref.CreateAttr("linear", "no")
		}
		if si.Properties != "" {
			ref.CreateAttr("properties", si.Properties)
		}
	}

	if len(l.doc.Navigation.Guide) > 0 {
		guide := pkg.CreateElement("guide")
		for _, g := range l.doc.Navigation.Guide {
			ref := guide.CreateElement("reference")
			ref.CreateAttr("type", g.Type)
			if g.Title != "" {
				ref.CreateAttr("title", g.Title)
			}
			ref.CreateAttr("href", g.Href)
		}
	}
	return x
}

func dcElement(parent *etree.Element, name, value string) *etree.Element {
	el := parent.CreateElement("dc:" + name)
	el.SetText(value)
	return el
}

func refine(parent *etree.Element, id, property, value string) *etree.Element {
	el := parent.CreateElement("meta")
	el.CreateAttr("refines", "#"+id)
	el.CreateAttr("property", property)
	el.SetText(value)
	return el
}

func writeManifestItem(parent *etree.Element, id, href, mediaType, properties, fallback string) {
	el := parent.CreateElement("item")
	el.CreateAttr("id", id)
	el.CreateAttr("href", href)
	el.CreateAttr("media-type", mediaType)
	if properties != "" {
		el.CreateAttr("properties", properties)
	}
	if fallback != "" {
		el.CreateAttr("fallback", fallback)
	}
}

// uniqueID returns base, or base with a numeric suffix, that is not yet in
// taken, and records it.
func uniqueID(taken map[string]bool, base string) string {
	id := base
	for i := 2; taken[id]; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	taken[id] = true
	return id
}
