package epub

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// refinements indexes ePub 3 <meta refines="#id"> entries by the id they
// refine.
type refinements map[string][]opfMeta

func newRefinements(metas []opfMeta) refinements {
	r := make(refinements)
	for _, m := range metas {
		if id, ok := strings.CutPrefix(m.Refines, "#"); ok && id != "" {
			r[id] = append(r[id], m)
		}
	}
	return r
}

// get returns the first non-empty value of property refining id.
func (r refinements) get(id, property string) string {
	if id == "" {
		return ""
	}
	for _, m := range r[id] {
		if m.Property == property {
			if v := strings.TrimSpace(m.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractMetadata converts the raw OPF metadata into Metadata. Single-valued
// fields take the first non-empty element.
func extractMetadata(opf *opfPackage) Metadata {
	om := &opf.Metadata
	refs := newRefinements(om.Metas)

	md := Metadata{
		Titles:           orderTitles(om.Titles, refs),
		Language:         nonEmptyValues(om.Languages),
		UniqueIdentifier: strings.TrimSpace(opf.UniqueIdentifier),
		Publisher:        firstNonEmpty(om.Publishers),
		Date:             firstNonEmpty(om.Dates),
		Description:      firstNonEmpty(om.Descriptions),
		Subjects:         nonEmptyValues(om.Subjects),
		Rights:           firstNonEmpty(om.Rights),
		Source:           firstNonEmpty(om.Sources),
	}

	for _, c := range om.Creators {
		name := strings.TrimSpace(c.Value)
		if name == "" {
			continue
		}
		// ePub 2 carries file-as and role as attributes, ePub 3 as refinements.
		md.Authors = append(md.Authors, Author{
			Name:   name,
			FileAs: cmp.Or(c.FileAs, refs.get(c.ID, "file-as")),
			Role:   cmp.Or(c.Role, refs.get(c.ID, "role")),
		})
	}

	for _, id := range om.Identifiers {
		v := strings.TrimSpace(id.Value)
		if v == "" {
			continue
		}
		md.Identifiers = append(md.Identifiers, Identifier{
			Value:  v,
			Scheme: cmp.Or(id.Scheme, refs.get(id.ID, "identifier-type")),
			ID:     id.ID,
		})
	}

	for _, m := range om.Metas {
		if m.Property == "dcterms:modified" && m.Refines == "" {
			md.Modified = strings.TrimSpace(m.Value)
			break
		}
	}
	return md
}

// orderTitles returns the non-empty titles. Titles with a display-seq
// refinement come first in sequence order; the rest keep document order.
func orderTitles(titles []opfDCElement, refs refinements) []string {
	type title struct {
		value string
		seq   int // 0 when absent
	}
	var list []title
	for _, t := range titles {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		seq, err := strconv.Atoi(refs.get(t.ID, "display-seq"))
		if err != nil || seq < 0 {
			seq = 0
		}
		list = append(list, title{v, seq})
	}

	slices.SortStableFunc(list, func(a, b title) int {
		switch {
		case a.seq == b.seq:
			return 0
		case a.seq == 0:
			return 1
		case b.seq == 0:
			return -1
		}
		return cmp.Compare(a.seq, b.seq)
	})

	var out []string
	for _, t := range list {
		out = append(out, t.value)
	}
	return out
}

func nonEmptyValues(elems []opfDCElement) []string {
	var out []string
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(elems []opfDCElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
