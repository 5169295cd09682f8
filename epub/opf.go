package epub

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"strings"
)

// The opf* types mirror the package document for encoding/xml. Only the
// parts the reader uses are mapped.
type (
	opfPackage struct {
		XMLName          xml.Name    `xml:"package"`
		Version          string      `xml:"version,attr"`
		UniqueIdentifier string      `xml:"unique-identifier,attr"`
		Metadata         opfMetadata `xml:"metadata"`
		Manifest         opfManifest `xml:"manifest"`
		Spine            opfSpine    `xml:"spine"`
		Guide            opfGuide    `xml:"guide"`
	}

	opfMetadata struct {
		Titles       []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Languages    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
		Identifiers  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
		Publishers   []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
		Dates        []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ date"`
		Descriptions []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ description"`
		Subjects     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ subject"`
		Rights       []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ rights"`
		Sources      []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ source"`
		Metas        []opfMeta      `xml:"meta"`
	}

	// opfDCElement is a Dublin Core element. FileAs, Role and Scheme are
	// the ePub 2 opf: attributes; ePub 3 moves them into refinements.
	opfDCElement struct {
		Value  string `xml:",chardata"`
		ID     string `xml:"id,attr"`
		FileAs string `xml:"file-as,attr"`
		Role   string `xml:"role,attr"`
		Scheme string `xml:"scheme,attr"`
	}

	// opfMeta covers both <meta name content/> (ePub 2) and
	// <meta property refines>value</meta> (ePub 3).
	opfMeta struct {
		Name     string `xml:"name,attr"`
		Content  string `xml:"content,attr"`
		Property string `xml:"property,attr"`
		Refines  string `xml:"refines,attr"`
		Scheme   string `xml:"scheme,attr"`
		Value    string `xml:",chardata"`
	}

	opfManifest struct {
		Items []opfManifestItem `xml:"item"`
	}

	opfManifestItem struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
		Fallback   string `xml:"fallback,attr"`
	}

	opfSpine struct {
		Toc                      string            `xml:"toc,attr"`
		PageProgressionDirection string            `xml:"page-progression-direction,attr"`
		ItemRefs                 []opfSpineItemRef `xml:"itemref"`
	}

	opfSpineItemRef struct {
		IDRef      string `xml:"idref,attr"`
		Linear     string `xml:"linear,attr"`
		Properties string `xml:"properties,attr"`
	}

	opfGuide struct {
		References []struct {
			Type  string `xml:"type,attr"`
			Title string `xml:"title,attr"`
			Href  string `xml:"href,attr"`
		} `xml:"reference"`
	}
)

// parseOPF decodes a package document. HTML named entities, which some
// producers leave in metadata, are rewritten as numeric references first.
// A missing version attribute is taken as 2.0.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(preprocessHTMLEntities(stripBOM(data)), &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w: %w", ErrInvalidEPub, err)
	}
	pkg.Version = cmp.Or(strings.TrimSpace(pkg.Version), "2.0")
	return &pkg, nil
}

// buildManifestMaps creates lookup maps from the parsed OPF manifest, keyed
// by id and by href. Items without an id or href are dropped.
func buildManifestMaps(manifest opfManifest) (byID, byHref map[string]*manifestItem) {
	byID = make(map[string]*manifestItem, len(manifest.Items))
	byHref = make(map[string]*manifestItem, len(manifest.Items))

	for _, item := range manifest.Items {
		if item.ID == "" || strings.TrimSpace(item.Href) == "" {
			continue
		}
		if _, dup := byID[item.ID]; dup {
			continue
		}
		mi := &manifestItem{
			ID:         item.ID,
			Href:       strings.TrimSpace(item.Href),
			MediaType:  strings.TrimSpace(item.MediaType),
			Properties: item.Properties,
			Fallback:   item.Fallback,
		}
		byID[item.ID] = mi
		byHref[mi.Href] = mi
	}

	return byID, byHref
}

// buildSpine converts the parsed OPF spine.
func buildSpine(spine opfSpine) Spine {
	s := Spine{
		Items:                    make([]SpineItem, 0, len(spine.ItemRefs)),
		PageProgressionDirection: spine.PageProgressionDirection,
	}
	for _, ref := range spine.ItemRefs {
		s.Items = append(s.Items, SpineItem{
			IDRef:      ref.IDRef,
			Linear:     ref.Linear != "no",
			Properties: ref.Properties,
		})
	}
	return s
}

// buildGuide returns the guide references with surrounding whitespace
// removed, or nil for an empty guide.
func buildGuide(guide opfGuide) []GuideReference {
	if len(guide.References) == 0 {
		return nil
	}
	refs := make([]GuideReference, len(guide.References))
	for i, r := range guide.References {
		refs[i] = GuideReference{
			Type:  strings.TrimSpace(r.Type),
			Title: strings.TrimSpace(r.Title),
			Href:  strings.TrimSpace(r.Href),
		}
	}
	return refs
}
