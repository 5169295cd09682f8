package epub

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsXHTML = "http://www.w3.org/1999/xhtml"
	nsOPS   = "http://www.idpf.org/2007/ops"
	nsNCX   = "http://www.daisy.org/z3986/2005/ncx/"
)

// navDocument builds the ePub 3 navigation document: a "toc" nav holding the
// TOC tree and, when present, hidden "landmarks" and "page-list" navs.
func (l *layout) navDocument() *etree.Document {
	md := l.doc.Metadata
	title, lang := md.Titles[0], md.Language[0]

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	x.CreateDirective("DOCTYPE html")
	root := x.CreateElement("html")
	root.CreateAttr("xmlns", nsXHTML)
	root.CreateAttr("xmlns:epub", nsOPS)
	root.CreateAttr("lang", lang)
	root.CreateAttr("xml:lang", lang)

	root.CreateElement("head").CreateElement("title").SetText(title)
	body := root.CreateElement("body")

	toc := body.CreateElement("nav")
	toc.CreateAttr("epub:type", "toc")
	toc.CreateAttr("id", "toc")
	toc.CreateElement("h1").SetText(title)
	l.navList(toc, l.toc)

	for _, hidden := range []struct {
		typ   string
		items []TOCItem
	}{
		{"landmarks", l.doc.Navigation.Landmarks},
		{"page-list", l.doc.Navigation.PageList},
	} {
		if len(hidden.items) == 0 {
			continue
		}
		nav := body.CreateElement("nav")
		nav.CreateAttr("epub:type", hidden.typ)
		nav.CreateAttr("hidden", "hidden")
		l.navList(nav, hidden.items)
	}
	return x
}

func (l *layout) navList(parent *etree.Element, items []TOCItem) {
	ol := parent.CreateElement("ol")
	for _, item := range items {
		li := ol.CreateElement("li")
		var label *etree.Element
		if item.Href != "" {
			label = li.CreateElement("a")
			label.CreateAttr("href", linkFrom(l.navHref, item.Href))
		} else {
			label = li.CreateElement("span")
		}
		if item.Type != "" {
			label.CreateAttr("epub:type", item.Type)
		}
		label.SetText(item.Title)
		if len(item.Children) > 0 {
			l.navList(li, item.Children)
		}
	}
}

// ncxDocument builds the ePub 2 NCX from the same TOC as the nav document.
func (l *layout) ncxDocument() *etree.Document {
	md := l.doc.Metadata

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	ncx := x.CreateElement("ncx")
	ncx.CreateAttr("xmlns", nsNCX)
	ncx.CreateAttr("version", "2005-1")
	ncx.CreateAttr("xml:lang", md.Language[0])

	head := ncx.CreateElement("head")
	for _, m := range []struct{ name, content string }{
		{"dtb:uid", l.uidValue},
		{"dtb:depth", strconv.Itoa(max(1, tocDepth(l.toc)))},
		{"dtb:totalPageCount", "0"},
		{"dtb:maxPageNumber", "0"},
	} {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", m.name)
		meta.CreateAttr("content", m.content)
	}

	ncx.CreateElement("docTitle").CreateElement("text").SetText(md.Titles[0])
	for _, a := range md.Authors {
		ncx.CreateElement("docAuthor").CreateElement("text").SetText(a.Name)
	}

	var order int
	l.navPoints(ncx.CreateElement("navMap"), l.toc, &order)
	return x
}

// navPoints appends one navPoint per TOC item. An NCX entry needs a target,
// so an item without href points at its first descendant's href; items with
// no target at all are dropped and their children promoted.
func (l *layout) navPoints(parent *etree.Element, items []TOCItem, order *int) {
	for _, item := range items {
		src := firstHref(item)
		if src == "" {
			l.navPoints(parent, item.Children, order)
			continue
		}
		*order++
		np := parent.CreateElement("navPoint")
		np.CreateAttr("id", fmt.Sprintf("navPoint-%d", *order))
		np.CreateAttr("playOrder", strconv.Itoa(*order))
		np.CreateElement("navLabel").CreateElement("text").SetText(item.Title)
		np.CreateElement("content").CreateAttr("src", linkFrom(l.ncxHref, src))
		l.navPoints(np, item.Children, order)
	}
}

func firstHref(item TOCItem) string {
	if item.Href != "" {
		return item.Href
	}
	for _, c := range item.Children {
		if h := firstHref(c); h != "" {
			return h
		}
	}
	return ""
}

func tocDepth(items []TOCItem) int {
	depth := 0
	for _, item := range items {
		depth = max(depth, 1+tocDepth(item.Children))
	}
	return depth
}

// spineTOC derives a flat TOC from the linear spine, labelled with chapter
// titles. It is used when the source book has no table of contents.
func spineTOC(doc *Document) []TOCItem {
	byID := make(map[string]*Chapter, len(doc.Chapters))
	for i := range doc.Chapters {
		byID[doc.Chapters[i].ID] = &doc.Chapters[i]
	}
	var items []TOCItem
	for _, si := range doc.Spine.Items {
		ch := byID[si.IDRef]
		if ch == nil || !si.Linear {
			continue
		}
		title := ch.Title
		if strings.TrimSpace(title) == "" {
			title = path.Base(hrefWithoutFragment(ch.Href))
		}
		items = append(items, TOCItem{Title: title, Href: ch.Href})
	}
	return items
}

// linkFrom rewrites href (relative to the OPF directory) so it can be used
// inside the document at fromHref.
func linkFrom(fromHref, href string) string {
	if hasURIScheme(href) {
		return href
	}
	file, frag := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		file, frag = href[:i], href[i:]
	}
	if file == "" {
		return href
	}
	return relativePath(path.Dir(fromHref), path.Clean(file)) + frag
}
