package epubtranslate

import (
	"fmt"

	"github.com/simp-lee/epubtranslate/epub"
	"github.com/simp-lee/epubtranslate/markup"
)

// RebuildChapter returns a copy of src whose content is the rendered tree and
// whose language is target. ID, Href and Title are kept as they are, since the
// TOC and the spine refer to the chapter through them.
func RebuildChapter(src epub.Chapter, target string, tree *markup.Element) (epub.Chapter, error) {
	content, err := markup.Bytes(tree)
	if err != nil {
		return epub.Chapter{}, fmt.Errorf("epubtranslate: render %s: %w", src.Href, err)
	}
	return epub.Chapter{
		ID:         src.ID,
		Href:       src.Href,
		Title:      src.Title,
		MediaType:  src.MediaType,
		Properties: src.Properties,
		Language:   target,
		Content:    content,
	}, nil
}
