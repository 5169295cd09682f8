package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

const (
	nsContainer        = "urn:oasis:names:tc:opendocument:xmlns:container"
	mediaTypeOPF       = "application/oebps-package+xml"
	defaultPackageFile = "content.opf"
)

// containerXML models META-INF/container.xml for both reading and writing.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	Version   string     `xml:"version,attr,omitempty"`
	XMLNS     string     `xml:"xmlns,attr,omitempty"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer locates the OPF path in the ePub ZIP archive.
//
// It reads META-INF/container.xml (case-insensitive lookup) and falls back to
// the first ".opf" entry when container.xml is missing. Returns a wrapped
// ErrInvalidEPub if no OPF path can be determined.
func parseContainer(zr *zip.Reader) (string, error) {
	if f := findFileInsensitive(zr, containerPath); f != nil {
		data, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("epub: read container.xml: %w", err)
		}
		return packagePathFromContainer(stripBOM(data))
	}

	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("epub: no OPF file found in archive: %w", ErrInvalidEPub)
}

// packagePathFromContainer returns the full-path of the rootfile declared
// with the OPF media type, or of the first non-empty rootfile otherwise.
func packagePathFromContainer(data []byte) (string, error) {
	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w: %w", ErrInvalidEPub, err)
	}

	var fallback string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), mediaTypeOPF) {
			return fullPath, nil
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("epub: container.xml has no usable rootfile: %w", ErrInvalidEPub)
	}
	return fallback, nil
}

// marshalContainer renders container.xml pointing at opfPath.
func marshalContainer(opfPath string) ([]byte, error) {
	c := containerXML{
		Version:   "1.0",
		XMLNS:     nsContainer,
		RootFiles: []rootFile{{FullPath: opfPath, MediaType: mediaTypeOPF}},
	}
	out, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
