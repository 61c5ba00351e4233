package wordml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
)

const (
	documentPart = "word/document.xml"
	settingsPart = "word/settings.xml"
	corePart     = "docProps/core.xml"
	customPart   = "docProps/custom.xml"
)

// Package handles reading parts of a DOCX package
type Package struct {
	reader *zip.Reader
	closer io.Closer
	Parts  map[string]*zip.File
}

// Relationship represents a relationship in the DOCX package
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	Relationship []Relationship `xml:"Relationship"`
}

// CoreProperties holds the Dublin Core metadata from docProps/core.xml
type CoreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	LastPrinted    string `xml:"lastPrinted"`
}

// CreatedTime parses the created timestamp.
func (c *CoreProperties) CreatedTime() (time.Time, bool) { return parseW3CDTF(c.Created) }

// ModifiedTime parses the modified timestamp.
func (c *CoreProperties) ModifiedTime() (time.Time, bool) { return parseW3CDTF(c.Modified) }

// LastPrintedTime parses the last-printed timestamp.
func (c *CoreProperties) LastPrintedTime() (time.Time, bool) { return parseW3CDTF(c.LastPrinted) }

func parseW3CDTF(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CustomProperty is one entry of docProps/custom.xml.
// Type is the variant element name (lpwstr, i4, r8, bool, filetime, ...).
type CustomProperty struct {
	Name  string
	Type  string
	Value string
}

type customProperties struct {
	Property []struct {
		Name  string `xml:"name,attr"`
		Value struct {
			XMLName xml.Name
			Content string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"property"`
}

type settings struct {
	DocVars struct {
		DocVar []struct {
			Name string `xml:"name,attr"`
			Val  string `xml:"val,attr"`
		} `xml:"docVar"`
	} `xml:"docVars"`
}

// Open reads a DOCX package from r.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	pkg := &Package{
		reader: zipReader,
		Parts:  make(map[string]*zip.File),
	}
	for _, file := range zipReader.File {
		pkg.Parts[file.Name] = file
	}

	if _, ok := pkg.Parts[documentPart]; !ok {
		return nil, fmt.Errorf("not a valid DOCX file: missing %s", documentPart)
	}
	return pkg, nil
}

// OpenBytes reads a DOCX package held in memory.
func OpenBytes(data []byte) (*Package, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFile opens a DOCX package from disk. The caller must Close it.
func OpenFile(name string) (*Package, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	pkg, err := Open(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	pkg.closer = f
	return pkg, nil
}

// Close releases the underlying file, if any.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// ReadPart returns the raw bytes of a part. A missing part yields (nil, false, nil).
func (p *Package) ReadPart(name string) ([]byte, bool, error) {
	file, ok := p.Parts[name]
	if !ok {
		return nil, false, nil
	}
	rc, err := file.Open()
	if err != nil {
		return nil, true, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return content, true, nil
}

// Document parses word/document.xml.
func (p *Package) Document() (*Document, error) {
	data, _, err := p.ReadPart(documentPart)
	if err != nil {
		return nil, err
	}
	return ParseDocument(bytes.NewReader(data))
}

// CoreProperties parses docProps/core.xml. A package without the part yields empty properties.
func (p *Package) CoreProperties() (*CoreProperties, error) {
	props := &CoreProperties{}
	data, ok, err := p.ReadPart(corePart)
	if err != nil || !ok {
		return props, err
	}
	if err := xml.Unmarshal(data, props); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", corePart, err)
	}
	return props, nil
}

// CustomProperties parses docProps/custom.xml.
func (p *Package) CustomProperties() ([]CustomProperty, error) {
	data, ok, err := p.ReadPart(customPart)
	if err != nil || !ok {
		return nil, err
	}
	var raw customProperties
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", customPart, err)
	}
	props := make([]CustomProperty, 0, len(raw.Property))
	for _, prop := range raw.Property {
		props = append(props, CustomProperty{
			Name:  prop.Name,
			Type:  prop.Value.XMLName.Local,
			Value: prop.Value.Content,
		})
	}
	return props, nil
}

// DocumentVariables returns the w:docVars entries from word/settings.xml.
func (p *Package) DocumentVariables() (map[string]string, error) {
	vars := make(map[string]string)
	data, ok, err := p.ReadPart(settingsPart)
	if err != nil || !ok {
		return vars, err
	}
	var s settings
	if err := xml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", settingsPart, err)
	}
	for _, v := range s.DocVars.DocVar {
		vars[v.Name] = v.Val
	}
	return vars, nil
}

// Relationships retrieves relationships for a given part
func (p *Package) Relationships(partName string) ([]Relationship, error) {
	dir, base := path.Split(partName)
	relPath := path.Join(dir, "_rels", base+".rels")

	data, ok, err := p.ReadPart(relPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Relationship{}, nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}
	return rels.Relationship, nil
}

// HyperlinkTargets maps relationship ids of the main document to their targets.
func (p *Package) HyperlinkTargets() (map[string]string, error) {
	rels, err := p.Relationships(documentPart)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels))
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, "/hyperlink") {
			targets[rel.ID] = rel.Target
		}
	}
	return targets, nil
}
