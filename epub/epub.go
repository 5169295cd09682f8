package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

// expectedMimetype is the required content of the "mimetype" file in a valid ePub.
const expectedMimetype = "application/epub+zip"

// Media types with special meaning in the manifest.
const (
	mediaTypeXHTML = "application/xhtml+xml"
	mediaTypeHTML  = "text/html"
	mediaTypeNCX   = "application/x-dtbncx+xml"
)

// archive is the reading state for one ePub file.
type archive struct {
	zip            *zip.Reader
	zipExact       map[string]*zip.File // exact-match ZIP file index
	zipLower       map[string]*zip.File // lowercase ZIP file index
	opfPath        string
	opfDir         string
	opf            *opfPackage
	manifestByID   map[string]*manifestItem
	manifestByHref map[string]*manifestItem
	navItem        *manifestItem
	ncxItem        *manifestItem
	warnings       []string
}

// Open reads the ePub file at path into a Document. The whole archive is
// loaded into memory and the file is closed before Open returns.
func Open(path string) (*Document, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", path, err)
	}
	defer zrc.Close()

	return readArchive(&zrc.Reader)
}

// Read reads an ePub from an io.ReaderAt with the given size.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w", err)
	}
	return readArchive(zr)
}

// readArchive validates the container, parses the package document and
// loads every manifest item.
func readArchive(zr *zip.Reader) (*Document, error) {
	a := &archive{zip: zr}
	a.buildZipIndex()
	a.validateMimetype()

	opfPath, err := parseContainer(zr)
	if err != nil {
		return nil, err
	}
	a.opfPath = opfPath
	a.opfDir = path.Dir(opfPath)

	fontObfuscation, err := checkDRM(zr)
	if err != nil {
		return nil, err
	}
	if fontObfuscation {
		a.warnings = append(a.warnings, "font obfuscation detected; encryption.xml is kept so fonts keep working")
	}

	opfFile := a.findFile(opfPath)
	if opfFile == nil {
		return nil, fmt.Errorf("epub: OPF file not found in archive: %s: %w", opfPath, ErrInvalidEPub)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF file: %w", err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}
	a.opf = pkg
	a.manifestByID, a.manifestByHref = buildManifestMaps(pkg.Manifest)
	a.navItem, a.ncxItem = a.findNavigationItems()

	doc := &Document{
		Version:  pkg.Version,
		Dir:      a.opfDir,
		Metadata: extractMetadata(pkg),
		Spine:    buildSpine(pkg.Spine),
	}
	doc.Metadata.CoverID = a.detectCover()
	nav := a.parseTOC()
	doc.TOC, doc.Navigation.Landmarks, doc.Navigation.PageList = nav.toc, nav.landmarks, nav.pageList
	doc.Navigation.Guide = buildGuide(pkg.Guide)
	if a.navItem != nil {
		doc.Navigation.NavID, doc.Navigation.NavHref = a.navItem.ID, a.navItem.Href
	}
	if a.ncxItem != nil {
		doc.Navigation.NCXID, doc.Navigation.NCXHref = a.ncxItem.ID, a.ncxItem.Href
	}

	if err := a.loadManifest(doc); err != nil {
		return nil, err
	}
	doc.Files = a.extraFiles()
	doc.warnings = a.warnings
	return doc, nil
}

// loadManifest splits the manifest into chapters and resources and reads
// their data. The navigation document and the NCX are regenerated on write
// and are therefore not loaded.
func (a *archive) loadManifest(doc *Document) error {
	titles := buildTOCTitleMap(doc.TOC)
	var lang string
	if len(doc.Metadata.Language) > 0 {
		lang = doc.Metadata.Language[0]
	}

	for _, raw := range a.opf.Manifest.Items {
		item := a.manifestByID[raw.ID]
		if item == nil || item == a.navItem || item == a.ncxItem {
			continue
		}
		data, err := a.readManifestItem(item)
		if err != nil {
			return err
		}

		if isChapterMediaType(item.MediaType) {
			title := titles[hrefWithoutFragment(item.Href)]
			if title == "" {
				title = item.Href
			}
			doc.Chapters = append(doc.Chapters, Chapter{
				ID:         item.ID,
				Href:       item.Href,
				Title:      title,
				MediaType:  item.MediaType,
				Properties: item.Properties,
				Language:   lang,
				Content:    stripBOM(data),
			})
			continue
		}

		doc.Resources = append(doc.Resources, Resource{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
			Fallback:   item.Fallback,
			Data:       data,
		})
	}
	return nil
}

func (a *archive) readManifestItem(item *manifestItem) ([]byte, error) {
	name := zipPath(a.opfDir, item.Href)
	f := a.findFile(name)
	if f == nil {
		return nil, fmt.Errorf("epub: manifest item %q (%s): %w", item.ID, name, ErrFileNotFound)
	}
	return readZipFile(f)
}

// extraFiles returns archive entries that are neither container scaffolding
// nor manifest items.
func (a *archive) extraFiles() []File {
	known := map[string]bool{
		"mimetype":                     true,
		strings.ToLower(containerPath): true,
		strings.ToLower(a.opfPath):     true,
	}
	for _, item := range a.manifestByID {
		known[strings.ToLower(zipPath(a.opfDir, item.Href))] = true
	}

	var files []File
	for _, f := range a.zip.File {
		if strings.HasSuffix(f.Name, "/") || known[strings.ToLower(f.Name)] {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			a.warnings = append(a.warnings, fmt.Sprintf("skipping archive entry %s: %v", f.Name, err))
			continue
		}
		files = append(files, File{Path: f.Name, Data: data})
	}
	return files
}

// findNavigationItems locates the ePub 3 nav document (manifest property
// "nav") and the NCX (spine toc attribute, else by media type).
func (a *archive) findNavigationItems() (nav, ncx *manifestItem) {
	// Iterate the OPF slice (not the map) to get deterministic document order.
	for _, raw := range a.opf.Manifest.Items {
		if slices.Contains(strings.Fields(raw.Properties), "nav") {
			nav = a.manifestByID[raw.ID]
			break
		}
	}

	if id := a.opf.Spine.Toc; id != "" {
		ncx = a.manifestByID[id]
	}
	if ncx == nil {
		for _, raw := range a.opf.Manifest.Items {
			if strings.EqualFold(raw.MediaType, mediaTypeNCX) {
				ncx = a.manifestByID[raw.ID]
				break
			}
		}
	}
	return nav, ncx
}

// validateMimetype checks that the first ZIP entry is named "mimetype" and
// contains "application/epub+zip". Deviations are recorded as warnings.
func (a *archive) validateMimetype() {
	if len(a.zip.File) == 0 {
		a.warnings = append(a.warnings, "empty ZIP archive; mimetype entry missing")
		return
	}

	first := a.zip.File[0]
	if first.Name != "mimetype" {
		a.warnings = append(a.warnings, "first ZIP entry is not \"mimetype\"")
		return
	}

	data, err := readZipFile(first)
	if err != nil {
		a.warnings = append(a.warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}

	if strings.TrimSpace(string(data)) != expectedMimetype {
		a.warnings = append(a.warnings, fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
}

// buildZipIndex builds exact-match and lowercase ZIP file indexes for O(1) lookups.
func (a *archive) buildZipIndex() {
	a.zipExact = make(map[string]*zip.File, len(a.zip.File))
	a.zipLower = make(map[string]*zip.File, len(a.zip.File))
	for _, f := range a.zip.File {
		if _, exists := a.zipExact[f.Name]; !exists {
			a.zipExact[f.Name] = f // first match wins for exact
		}
		lower := strings.ToLower(f.Name)
		if _, exists := a.zipLower[lower]; !exists {
			a.zipLower[lower] = f // first match wins for case-insensitive
		}
	}
}

// findFile looks up a ZIP entry by path using the pre-built index.
// It tries an exact match first, then falls back to a case-insensitive match.
func (a *archive) findFile(name string) *zip.File {
	if f, ok := a.zipExact[name]; ok {
		return f
	}
	if f, ok := a.zipLower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// readFile reads an archive entry by its ZIP-internal path.
func (a *archive) readFile(name string) ([]byte, error) {
	f := a.findFile(name)
	if f == nil {
		return nil, ErrFileNotFound
	}
	return readZipFile(f)
}

func isChapterMediaType(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(mt))
	return mt == mediaTypeXHTML || mt == mediaTypeHTML
}

// buildTOCTitleMap flattens the TOC tree and builds a map from
// href (without fragment) → title. The first matching entry wins.
func buildTOCTitleMap(items []TOCItem) map[string]string {
	m := make(map[string]string)
	var visit func([]TOCItem)
	visit = func(items []TOCItem) {
		for _, item := range items {
			if item.Href != "" {
				href := hrefWithoutFragment(item.Href)
				if _, exists := m[href]; !exists && item.Title != "" {
					m[href] = item.Title
				}
			}
			visit(item.Children)
		}
	}
	visit(items)
	return m
}
