package protocol

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// PropertiesVersion is the only properties document version in use.
const PropertiesVersion = 1

// Properties is the sidecar metadata of a stored attachment.
type Properties struct {
	XMLName xml.Name `xml:"properties"`
	Version int      `xml:"version,attr"`
	MTime   int64    `xml:"mtime"`
	Hash    string   `xml:"hash"`
}

// MarshalProperties renders the properties document exactly as the
// library's client writes it. Element names, nesting and attribute are
// fixed; no whitespace or XML declaration is emitted.
func MarshalProperties(mtime int64, hash string) []byte {
	return fmt.Appendf(nil,
		`<properties version="%d"><mtime>%d</mtime><hash>%s</hash></properties>`,
		PropertiesVersion, mtime, hash)
}

// ParseProperties parses a properties document.
func ParseProperties(data []byte) (Properties, error) {
	var p Properties
	if err := xml.Unmarshal(data, &p); err != nil {
		return Properties{}, fmt.Errorf("%w: %w", domain.ErrMalformedProperties, err)
	}
	p.Hash = strings.TrimSpace(p.Hash)
	if p.Hash == "" {
		return Properties{}, fmt.Errorf("%w: missing hash", domain.ErrMalformedProperties)
	}
	return p, nil
}
