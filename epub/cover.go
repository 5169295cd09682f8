package epub

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// detectCover returns the manifest id of the cover image, or "" when none is
// found. Strategies are tried in priority order:
//  1. ePub 3 manifest item with properties="cover-image"
//  2. ePub 2 <meta name="cover" content="ID"/>
//  3. <guide> reference type="cover" → first <img> of that page
//  4. image manifest item whose id or href contains "cover"
//
// The writer re-emits the result both as the cover-image property and as the
// ePub 2 meta, so readers of either generation find it.
func (a *archive) detectCover() string {
	strategies := []func() *manifestItem{
		a.coverFromManifestProperties,
		a.coverFromMetaCover,
		a.coverFromGuide,
		a.coverFromManifestHeuristic,
	}
	for _, find := range strategies {
		if item := find(); item != nil {
			return item.ID
		}
	}
	return ""
}

func (a *archive) coverFromManifestProperties() *manifestItem {
	for _, raw := range a.opf.Manifest.Items {
		item := a.manifestByID[raw.ID]
		if item != nil && slices.Contains(strings.Fields(item.Properties), "cover-image") {
			return item
		}
	}
	return nil
}

// coverFromMetaCover resolves <meta name="cover">. When the referenced item
// is a cover page rather than an image, its first <img> is used.
func (a *archive) coverFromMetaCover() *manifestItem {
	for _, m := range a.opf.Metadata.Metas {
		if !strings.EqualFold(m.Name, "cover") || m.Content == "" {
			continue
		}
		item := a.manifestByID[m.Content]
		if item == nil {
			continue
		}
		if isImageMediaType(item.MediaType) {
			return item
		}
		if img := a.firstImageOf(item.Href); img != nil {
			return img
		}
	}
	return nil
}

func (a *archive) coverFromGuide() *manifestItem {
	for _, ref := range a.opf.Guide.References {
		if !strings.EqualFold(ref.Type, "cover") {
			continue
		}
		if img := a.firstImageOf(hrefWithoutFragment(ref.Href)); img != nil {
			return img
		}
	}
	return nil
}

func (a *archive) coverFromManifestHeuristic() *manifestItem {
	for _, raw := range a.opf.Manifest.Items {
		item := a.manifestByID[raw.ID]
		if item == nil || !isImageMediaType(item.MediaType) {
			continue
		}
		if containsFold(item.ID, "cover") || containsFold(item.Href, "cover") {
			return item
		}
	}
	return nil
}

// firstImageOf reads the page at the OPF-relative href and resolves its first
// image to a manifest item.
func (a *archive) firstImageOf(href string) *manifestItem {
	pagePath := zipPath(a.opfDir, href)
	data, err := a.readFile(pagePath)
	if err != nil {
		return nil
	}
	imgPath := findFirstImageInHTML(data, pagePath)
	if imgPath == "" {
		return nil
	}
	item := a.manifestByHref[relativePath(a.opfDir, imgPath)]
	if item == nil || !isImageMediaType(item.MediaType) {
		return nil
	}
	return item
}

// findFirstImageInHTML returns the archive path of the first <img src> or SVG
// <image href> in htmlData, resolved against basePath.
func findFirstImageInHTML(htmlData []byte, basePath string) string {
	z := html.NewTokenizer(bytes.NewReader(htmlData))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			var keys []string
			switch atom.Lookup(tn) {
			case atom.Img:
				keys = []string{"src"}
			case atom.Image:
				keys = []string{"href", "xlink:href"}
			default:
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if slices.Contains(keys, string(key)) && len(val) > 0 {
					return resolveRelativePath(basePath, string(val))
				}
				if !more {
					break
				}
			}
		}
	}
}

func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
