package wordml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Document represents the root w:document element
type Document struct {
	Body *Body
}

// Body represents the document body
type Body struct {
	Elements []BodyElement
}

// Table represents a w:tbl element
type Table struct {
	Rows []*TableRow
}

func (t *Table) isBodyElement() {}

// TableRow represents a w:tr element
type TableRow struct {
	Cells []*TableCell
}

// TableCell represents a w:tc element
type TableCell struct {
	Elements []BodyElement
}

// GetText returns the plain text of the cell, paragraphs joined by newlines.
func (c *TableCell) GetText() string {
	var parts []string
	for _, el := range c.Elements {
		if p, ok := el.(*Paragraph); ok {
			parts = append(parts, p.GetText())
		}
	}
	return strings.Join(parts, "\n")
}

// ParseDocument decodes a word/document.xml part.
func ParseDocument(r io.Reader) (*Document, error) {
	d := xml.NewDecoder(r)
	doc := &Document{Body: &Body{}}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return doc, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "body" {
			continue
		}
		elements, err := parseBlocks(d, start.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document body: %w", err)
		}
		doc.Body.Elements = elements
		return doc, nil
	}
}

// ParseDocumentString is a convenience wrapper around ParseDocument.
func ParseDocumentString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

// parseBlocks reads block-level content until the end element matching end.
func parseBlocks(d *xml.Decoder, end xml.Name) ([]BodyElement, error) {
	var elements []BodyElement
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := parseParagraph(d, t)
				if err != nil {
					return nil, err
				}
				elements = append(elements, p)
			case "tbl":
				tbl, err := parseTable(d, t)
				if err != nil {
					return nil, err
				}
				elements = append(elements, tbl)
			case "sdt", "sdtContent", "customXml":
				inner, err := parseBlocks(d, t.Name)
				if err != nil {
					return nil, err
				}
				elements = append(elements, inner...)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name == end {
				return elements, nil
			}
		}
	}
}

func parseTable(d *xml.Decoder, start xml.StartElement) (*Table, error) {
	tbl := &Table{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if err := d.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			row, err := parseRow(d, t)
			if err != nil {
				return nil, err
			}
			tbl.Rows = append(tbl.Rows, row)
		case xml.EndElement:
			if t.Name == start.Name {
				return tbl, nil
			}
		}
	}
}

func parseRow(d *xml.Decoder, start xml.StartElement) (*TableRow, error) {
	row := &TableRow{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tc" {
				if err := d.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			elements, err := parseBlocks(d, t.Name)
			if err != nil {
				return nil, err
			}
			row.Cells = append(row.Cells, &TableCell{Elements: elements})
		case xml.EndElement:
			if t.Name == start.Name {
				return row, nil
			}
		}
	}
}

func parseParagraph(d *xml.Decoder, start xml.StartElement) (*Paragraph, error) {
	p := &Paragraph{}
	content, err := parseInline(d, start.Name, false, p)
	if err != nil {
		return nil, err
	}
	p.Content = content
	return p, nil
}

// parseInline reads paragraph-level content in document order until end.
// Revision wrappers (w:ins, w:del) and content controls are flattened.
func parseInline(d *xml.Decoder, end xml.Name, deleted bool, p *Paragraph) ([]ParagraphContent, error) {
	var content []ParagraphContent
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if p == nil {
					if err := d.Skip(); err != nil {
						return nil, err
					}
					continue
				}
				var props ParagraphProperties
				if err := d.DecodeElement(&props, &t); err != nil {
					return nil, err
				}
				p.Properties = &props
			case "r":
				run, err := parseRun(d, t)
				if err != nil {
					return nil, err
				}
				run.Deleted = deleted
				content = append(content, run)
			case "hyperlink":
				link := &Hyperlink{ID: attrValue(t, "id"), Anchor: attrValue(t, "anchor")}
				if link.Content, err = parseInline(d, t.Name, deleted, nil); err != nil {
					return nil, err
				}
				content = append(content, link)
			case "fldSimple":
				field := &SimpleField{Instruction: attrValue(t, "instr")}
				if field.Content, err = parseInline(d, t.Name, deleted, nil); err != nil {
					return nil, err
				}
				content = append(content, field)
			case "bookmarkStart":
				content = append(content, &BookmarkStart{ID: attrInt(t, "id"), Name: attrValue(t, "name")})
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "bookmarkEnd":
				content = append(content, &BookmarkEnd{ID: attrInt(t, "id")})
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "ins", "smartTag", "sdt", "sdtContent", "customXml":
				inner, err := parseInline(d, t.Name, deleted, nil)
				if err != nil {
					return nil, err
				}
				content = append(content, inner...)
			case "del":
				inner, err := parseInline(d, t.Name, true, nil)
				if err != nil {
					return nil, err
				}
				content = append(content, inner...)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name == end {
				return content, nil
			}
		}
	}
}

type textElement struct {
	Space   string `xml:"space,attr"`
	Content string `xml:",chardata"`
}

func parseRun(d *xml.Decoder, start xml.StartElement) (*Run, error) {
	run := &Run{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var c RunContent
			switch t.Name.Local {
			case "rPr":
				var props RunProperties
				if err := d.DecodeElement(&props, &t); err != nil {
					return nil, err
				}
				run.Properties = &props
				continue
			case "t", "delText", "instrText", "delInstrText":
				var te textElement
				if err := d.DecodeElement(&te, &t); err != nil {
					return nil, err
				}
				switch t.Name.Local {
				case "t":
					c = &Text{Space: te.Space, Content: te.Content}
				case "delText":
					c = &DeletedText{Content: te.Content}
				default:
					c = &InstrText{Content: te.Content}
				}
				run.Content = append(run.Content, c)
				continue
			case "tab":
				c = &Tab{}
			case "br":
				c = &Break{Type: attrValue(t, "type")}
			case "cr":
				c = &CarriageReturn{}
			case "noBreakHyphen":
				c = &NoBreakHyphen{}
			case "fldChar":
				c = &FieldChar{Type: FieldCharType(attrValue(t, "fldCharType"))}
			}
			if c != nil {
				run.Content = append(run.Content, c)
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return run, nil
			}
		}
	}
}
