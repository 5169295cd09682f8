package epub

import (
	"archive/zip"
	"encoding/xml"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"

	// sinfFilePath marks Apple FairPlay DRM.
	sinfFilePath = "META-INF/sinf.xml"
)

// fontObfuscationAlgorithms are the encryption methods that only scramble
// embedded fonts. Books using them remain readable and translatable, and
// their encryption.xml must be carried over unchanged.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe
}

type xmlEncryption struct {
	XMLName       xml.Name `xml:"encryption"`
	EncryptedData []struct {
		EncryptionMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
	} `xml:"EncryptedData"`
}

// checkDRM inspects META-INF/encryption.xml and reports whether the book
// uses font obfuscation. Any other encryption (Adobe ADEPT, Readium LCP,
// FairPlay, unknown methods or an unparsable descriptor) yields
// ErrDRMProtected, since encrypted chapters cannot be translated.
func checkDRM(zr *zip.Reader) (fontObfuscation bool, err error) {
	if findFileInsensitive(zr, sinfFilePath) != nil {
		return false, ErrDRMProtected
	}

	f := findFileInsensitive(zr, encryptionFilePath)
	if f == nil {
		return false, nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return false, err
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		return false, ErrDRMProtected
	}
	for _, ed := range enc.EncryptedData {
		if !fontObfuscationAlgorithms[ed.EncryptionMethod.Algorithm] {
			return false, ErrDRMProtected
		}
		fontObfuscation = true
	}
	return fontObfuscation, nil
}
