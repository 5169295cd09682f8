package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// navLists are the lists read from an ePub 3 nav document.
type navLists struct {
	toc, landmarks, pageList []TOCItem
}

// parseTOC reads the table of contents: the nav document for ePub 3 (falling
// back to the NCX), the NCX for ePub 2. Hrefs are made relative to the OPF
// directory. Unreadable navigation files are recorded as warnings.
func (a *archive) parseTOC() navLists {
	var lists navLists
	if strings.HasPrefix(a.opf.Version, "3") && a.navItem != nil {
		navPath := zipPath(a.opfDir, a.navItem.Href)
		data, err := a.readFile(navPath)
		if err == nil {
			lists, err = parseNavDocument(data, path.Dir(navPath), a.opfDir)
		}
		if err == nil && len(lists.toc) > 0 {
			return lists
		}
		if err != nil {
			a.warnings = append(a.warnings, fmt.Sprintf("nav document unusable: %v", err))
		}
	}

	if a.ncxItem != nil {
		ncxPath := zipPath(a.opfDir, a.ncxItem.Href)
		data, err := a.readFile(ncxPath)
		if err == nil {
			var ncx []TOCItem
			if ncx, err = parseNCX(data, path.Dir(ncxPath), a.opfDir); err == nil {
				lists.toc = ncx
				return lists
			}
		}
		a.warnings = append(a.warnings, fmt.Sprintf("NCX unusable: %v", err))
	}
	return lists
}

// ncxNavPoint is a <navPoint> of an NCX navMap.
type ncxNavPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// parseNCX decodes the navMap of an ePub 2 NCX. ncxDir is the archive
// directory of the NCX; hrefs come out relative to opfDir.
func parseNCX(data []byte, ncxDir, opfDir string) ([]TOCItem, error) {
	var doc struct {
		XMLName xml.Name      `xml:"ncx"`
		Points  []ncxNavPoint `xml:"navMap>navPoint"`
	}
	if err := xml.Unmarshal(preprocessHTMLEntities(stripBOM(data)), &doc); err != nil {
		return nil, fmt.Errorf("epub: parse NCX: %w", err)
	}

	var convert func([]ncxNavPoint) []TOCItem
	convert = func(points []ncxNavPoint) []TOCItem {
		if len(points) == 0 {
			return nil
		}
		items := make([]TOCItem, len(points))
		for i, np := range points {
			items[i] = TOCItem{
				Title:    strings.TrimSpace(np.Label),
				Href:     resolveHref(ncxDir, opfDir, np.Content.Src),
				Children: convert(np.Children),
			}
		}
		return items
	}
	return convert(doc.Points), nil
}

// parseNavDocument reads the toc, landmarks and page-list lists of an ePub 3
// nav document. navDir is the archive directory of the document.
func parseNavDocument(data []byte, navDir, opfDir string) (navLists, error) {
	var lists navLists
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return lists, fmt.Errorf("epub: parse nav document: %w", err)
	}

	p := navParser{navDir: navDir, opfDir: opfDir}
	for n := range doc.Descendants() {
		if !isElement(n, "nav") {
			continue
		}
		var dst *[]TOCItem
		switch types := strings.Fields(attr(n, "epub:type")); {
		case slices.Contains(types, "toc"):
			dst = &lists.toc
		case slices.Contains(types, "landmarks"):
			dst = &lists.landmarks
		case slices.Contains(types, "page-list"):
			dst = &lists.pageList
		default:
			continue
		}
		for d := range n.Descendants() {
			if isElement(d, "ol") {
				*dst = p.list(d)
				break
			}
		}
	}
	return lists, nil
}

type navParser struct {
	navDir, opfDir string
}

// list converts the <li> children of an <ol>.
func (p navParser) list(ol *html.Node) []TOCItem {
	var items []TOCItem
	for c := range ol.ChildNodes() {
		if isElement(c, "li") {
			items = append(items, p.item(c))
		}
	}
	return items
}

// item reads one <li>: its first <a> gives the label and target, a <span>
// labels a heading without a target, and a nested <ol> holds the children.
func (p navParser) item(li *html.Node) TOCItem {
	var item TOCItem
	linked := false
	for c := range li.ChildNodes() {
		switch {
		case isElement(c, "a") && !linked:
			linked = true
			item.Title = strings.TrimSpace(textOf(c))
			item.Href = resolveHref(p.navDir, p.opfDir, attr(c, "href"))
			item.Type = attr(c, "epub:type")
		case isElement(c, "span") && !linked && item.Title == "":
			item.Title = strings.TrimSpace(textOf(c))
		case isElement(c, "ol"):
			item.Children = p.list(c)
		}
	}
	return item
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}
