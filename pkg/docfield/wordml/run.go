package wordml

import (
	"reflect"
	"strings"
)

// Run represents a run of content with common properties
type Run struct {
	Properties *RunProperties
	Content    []RunContent
	// Deleted is set for runs inside a w:del revision.
	Deleted bool
}

func (r *Run) isParagraphContent() {}

// GetText returns the visible text content of a run
func (r *Run) GetText() string {
	var sb strings.Builder
	for _, c := range r.Content {
		switch v := c.(type) {
		case *Text:
			sb.WriteString(v.Content)
		case *Tab:
			sb.WriteByte('\t')
		case *Break, *CarriageReturn:
			sb.WriteByte('\n')
		case *NoBreakHyphen:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// RunProperties represents run formatting properties
type RunProperties struct {
	Bold          *Toggle         `xml:"b"`
	Italic        *Toggle         `xml:"i"`
	Underline     *UnderlineStyle `xml:"u"`
	Strike        *Toggle         `xml:"strike"`
	VerticalAlign *VerticalAlign  `xml:"vertAlign"`
	Color         *Color          `xml:"color"`
	Size          *Size           `xml:"sz"`
	Lang          *Lang           `xml:"lang"`
	Font          *Font           `xml:"rFonts"`
	Style         *Style          `xml:"rStyle"`
}

// Clone returns a deep copy of the properties. A nil receiver yields nil.
func (p *RunProperties) Clone() *RunProperties {
	if p == nil {
		return nil
	}
	c := &RunProperties{}
	if p.Bold != nil {
		v := *p.Bold
		c.Bold = &v
	}
	if p.Italic != nil {
		v := *p.Italic
		c.Italic = &v
	}
	if p.Underline != nil {
		v := *p.Underline
		c.Underline = &v
	}
	if p.Strike != nil {
		v := *p.Strike
		c.Strike = &v
	}
	if p.VerticalAlign != nil {
		v := *p.VerticalAlign
		c.VerticalAlign = &v
	}
	if p.Color != nil {
		v := *p.Color
		c.Color = &v
	}
	if p.Size != nil {
		v := *p.Size
		c.Size = &v
	}
	if p.Lang != nil {
		v := *p.Lang
		c.Lang = &v
	}
	if p.Font != nil {
		v := *p.Font
		c.Font = &v
	}
	if p.Style != nil {
		v := *p.Style
		c.Style = &v
	}
	return c
}

// Equal checks if two run properties are equivalent.
func (p *RunProperties) Equal(other *RunProperties) bool {
	if p == nil && other == nil {
		return true
	}
	if (p == nil) != (other == nil) {
		return false
	}
	return reflect.DeepEqual(p, other)
}

// LanguageTag returns the run's primary language tag, or "" when none is set.
func (p *RunProperties) LanguageTag() string {
	if p == nil || p.Lang == nil {
		return ""
	}
	return p.Lang.Val
}

// IsBold reports whether bold is switched on.
func (p *RunProperties) IsBold() bool { return p != nil && p.Bold.On() }

// IsItalic reports whether italic is switched on.
func (p *RunProperties) IsItalic() bool { return p != nil && p.Italic.On() }

// IsStrike reports whether strike-through is switched on.
func (p *RunProperties) IsStrike() bool { return p != nil && p.Strike.On() }

// Text represents text content
type Text struct {
	Space   string
	Content string
}

// DeletedText represents w:delText content inside a deleted run
type DeletedText struct {
	Content string
}

// InstrText represents field instruction text (w:instrText)
type InstrText struct {
	Content string
}

// Tab represents a w:tab character
type Tab struct{}

// Break represents a line break
type Break struct {
	Type string
}

// CarriageReturn represents a w:cr element
type CarriageReturn struct{}

// NoBreakHyphen represents a w:noBreakHyphen element
type NoBreakHyphen struct{}

// FieldCharType is the kind of a w:fldChar element
type FieldCharType string

const (
	FieldCharBegin    FieldCharType = "begin"
	FieldCharSeparate FieldCharType = "separate"
	FieldCharEnd      FieldCharType = "end"
)

// FieldChar represents a complex field boundary
type FieldChar struct {
	Type FieldCharType
}

func (*Text) isRunContent()           {}
func (*DeletedText) isRunContent()    {}
func (*InstrText) isRunContent()      {}
func (*Tab) isRunContent()            {}
func (*Break) isRunContent()          {}
func (*CarriageReturn) isRunContent() {}
func (*NoBreakHyphen) isRunContent()  {}
func (*FieldChar) isRunContent()      {}

// Color represents text color
type Color struct {
	Val string `xml:"val,attr"`
}

// Size represents font size in half-points
type Size struct {
	Val int `xml:"val,attr"`
}

// Lang represents language settings
type Lang struct {
	Val      string `xml:"val,attr,omitempty"`
	EastAsia string `xml:"eastAsia,attr,omitempty"`
	Bidi     string `xml:"bidi,attr,omitempty"`
}

// Font represents font information
type Font struct {
	ASCII string `xml:"ascii,attr"`
}

// UnderlineStyle represents underline formatting
type UnderlineStyle struct {
	Val string `xml:"val,attr"`
}

// VerticalAlign represents vertical text alignment (superscript/subscript)
type VerticalAlign struct {
	Val string `xml:"val,attr"`
}
