package wordml

import (
	"strconv"
	"strings"
)

// Paragraph represents a paragraph in the document
type Paragraph struct {
	Properties *ParagraphProperties
	// Content maintains the order of runs, hyperlinks, simple fields and bookmarks
	Content []ParagraphContent
}

func (p *Paragraph) isBodyElement() {}

// GetText returns the visible text of the paragraph, including cached field results.
func (p *Paragraph) GetText() string {
	var sb strings.Builder
	writeContentText(&sb, p.Content)
	return sb.String()
}

func writeContentText(sb *strings.Builder, content []ParagraphContent) {
	for _, c := range content {
		switch v := c.(type) {
		case *Run:
			if !v.Deleted {
				sb.WriteString(v.GetText())
			}
		case *Hyperlink:
			writeContentText(sb, v.Content)
		case *SimpleField:
			writeContentText(sb, v.Content)
		}
	}
}

// ParagraphProperties represents paragraph formatting that matters to fields
type ParagraphProperties struct {
	Style        *Style         `xml:"pStyle"`
	OutlineLevel *DecimalNumber `xml:"outlineLvl"`
	// MarkProperties are the paragraph mark's run properties (w:pPr/w:rPr)
	MarkProperties *RunProperties `xml:"rPr"`
}

// HeadingLevel returns the 1-based heading level of the paragraph, or 0 for body text.
// An explicit outline level wins over a "HeadingN" style name.
func (p *ParagraphProperties) HeadingLevel() int {
	if p == nil {
		return 0
	}
	if p.OutlineLevel != nil && p.OutlineLevel.Val >= 0 && p.OutlineLevel.Val < 9 {
		return p.OutlineLevel.Val + 1
	}
	if p.Style != nil {
		name := strings.ToLower(strings.ReplaceAll(p.Style.Val, " ", ""))
		if strings.HasPrefix(name, "heading") {
			if n, err := strconv.Atoi(name[len("heading"):]); err == nil && n >= 1 && n <= 9 {
				return n
			}
		}
		if name == "title" {
			return 1
		}
	}
	return 0
}

// LanguageTag returns the paragraph mark's language tag, or "".
func (p *ParagraphProperties) LanguageTag() string {
	if p == nil {
		return ""
	}
	return p.MarkProperties.LanguageTag()
}

// Hyperlink represents a hyperlink in the document
type Hyperlink struct {
	// ID is the relationship id of an external target
	ID string
	// Anchor is the bookmark name of an internal target
	Anchor  string
	Content []ParagraphContent
}

func (h *Hyperlink) isParagraphContent() {}

// SimpleField represents a w:fldSimple element
type SimpleField struct {
	Instruction string
	Content     []ParagraphContent
}

func (f *SimpleField) isParagraphContent() {}

// BookmarkStart marks the beginning of a named range
type BookmarkStart struct {
	ID   int
	Name string
}

func (b *BookmarkStart) isParagraphContent() {}

// BookmarkEnd marks the end of a named range
type BookmarkEnd struct {
	ID int
}

func (b *BookmarkEnd) isParagraphContent() {}
