package epub

// Document is an ePub publication held in memory: metadata, the XHTML
// chapters, every other manifest resource, and the navigation structure.
// Open and Read produce a Document; Write and WriteFile serialize one.
type Document struct {
	// Version is the package version of the source (e.g., "2.0", "3.0").
	// Written documents are always ePub 3.0.
	Version string

	// Dir is the directory of the package document inside the archive
	// ("." for the archive root). All hrefs in the Document are relative to it.
	Dir string

	Metadata Metadata

	// Chapters are the XHTML content documents in manifest order,
	// excluding the navigation document.
	Chapters []Chapter

	// Resources are all other manifest items (images, stylesheets, fonts,
	// ...) in manifest order, excluding the navigation document and the NCX.
	Resources []Resource

	// Files are archive entries outside the manifest that must survive a
	// rewrite, such as META-INF/encryption.xml. Paths are archive paths.
	Files []File

	// TOC is the table of contents tree.
	TOC []TOCItem

	// Spine is the linear reading order.
	Spine Spine

	Navigation Navigation

	warnings []string
}

// Metadata holds the Dublin Core and other metadata of the package document.
type Metadata struct {
	// Titles contains all dc:title values. The first entry is the primary title.
	Titles []string

	// Authors contains all dc:creator entries with their roles and file-as values.
	Authors []Author

	// Language contains all dc:language values (BCP 47 tags, e.g., "en", "zh-CN").
	Language []string

	// Identifiers contains all dc:identifier entries (ISBN, UUID, URI, etc.).
	Identifiers []Identifier

	// UniqueIdentifier is the id of the identifier named by the package's
	// unique-identifier attribute.
	UniqueIdentifier string

	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Source      string

	// CoverID is the manifest id of the cover image, empty if none was found.
	CoverID string

	// Modified is the dcterms:modified timestamp.
	Modified string
}

// Author represents a dc:creator entry with optional file-as and role attributes.
type Author struct {
	// Name is the display name of the author (dc:creator text content).
	Name string

	// FileAs is the file-as value (e.g., "Dickens, Charles").
	FileAs string

	// Role is the MARC relator code (e.g., "aut", "edt", "trl").
	Role string
}

// Identifier represents a dc:identifier entry.
type Identifier struct {
	// Value is the identifier text content (e.g., ISBN, UUID, URI).
	Value string

	// Scheme is the identifier scheme (e.g., "ISBN", "UUID").
	Scheme string

	// ID is the xml id attribute of this identifier element.
	ID string
}

// Chapter is an XHTML content document.
type Chapter struct {
	// ID is the manifest item id.
	ID string

	// Href is the file name relative to Document.Dir. The TOC and the spine
	// refer to chapters through it, so it must not change.
	Href string

	// Title is the display name: the TOC label pointing at the chapter, or
	// the file name when the TOC does not mention it.
	Title string

	MediaType  string
	Properties string

	// Language is the chapter's language tag. It is not written into the
	// markup; Content is stored exactly as given.
	Language string

	// Content is the raw XHTML.
	Content []byte
}

// Resource is a non-chapter manifest item. Its data is never inspected.
type Resource struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
	Fallback   string
	Data       []byte
}

// File is an archive entry outside the manifest.
type File struct {
	// Path is the archive path (e.g., "META-INF/encryption.xml").
	Path string
	Data []byte
}

// TOCItem represents a single entry in the table of contents.
// TOC is a tree structure; each item may have nested children.
type TOCItem struct {
	// Title is the display text of the TOC entry.
	Title string

	// Href is relative to Document.Dir and may include a fragment
	// (e.g., "chapter01.xhtml#section2").
	Href string

	// Type is the epub:type of a landmarks entry (e.g., "bodymatter").
	Type string

	// Children contains nested TOC entries under this item.
	Children []TOCItem
}

// Spine is the package's linear reading order.
type Spine struct {
	Items []SpineItem

	// PageProgressionDirection is "ltr", "rtl" or empty.
	PageProgressionDirection string
}

// SpineItem is an entry of the spine.
type SpineItem struct {
	// IDRef is the manifest id of the referenced item.
	IDRef string

	// Linear is false for items marked linear="no".
	Linear bool

	Properties string
}

// Navigation holds the navigation scaffolding of the package.
type Navigation struct {
	// NavID and NavHref locate the ePub 3 navigation document. When the
	// source has none they are empty and the writer picks defaults.
	NavID   string
	NavHref string

	// NCXID and NCXHref locate the ePub 2 NCX.
	NCXID   string
	NCXHref string

	// Landmarks are the ePub 3 landmarks entries.
	Landmarks []TOCItem

	// PageList maps print page numbers to locations (ePub 3 page-list).
	PageList []TOCItem

	// Guide holds the ePub 2 guide references.
	Guide []GuideReference
}

// GuideReference is an ePub 2 <guide> entry.
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// Warnings returns the non-fatal problems found while reading the document.
func (d *Document) Warnings() []string {
	return append([]string(nil), d.warnings...)
}

// manifestItem represents an entry in the OPF <manifest> element.
type manifestItem struct {
	// ID is the unique identifier of this manifest item.
	ID string

	// Href is the file path relative to the OPF file location.
	Href string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties contains space-separated property values (ePub 3, e.g., "nav", "cover-image").
	Properties string

	Fallback string
}
