package wordml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// BodyElement represents any element that can appear in a document body
type BodyElement interface {
	isBodyElement()
}

// ParagraphContent represents any content that can appear in a paragraph
type ParagraphContent interface {
	isParagraphContent()
}

// RunContent represents any content that can appear in a run
type RunContent interface {
	isRunContent()
}

// Toggle represents an on/off property such as w:b or w:i.
// An element without a value attribute is on.
type Toggle struct {
	Val string `xml:"val,attr"`
}

// On reports whether the toggle is set.
func (t *Toggle) On() bool {
	if t == nil {
		return false
	}
	switch strings.ToLower(t.Val) {
	case "0", "false", "off", "none":
		return false
	default:
		return true
	}
}

// Style represents a style reference
type Style struct {
	Val string `xml:"val,attr"`
}

// DecimalNumber represents a w:val integer attribute
type DecimalNumber struct {
	Val int `xml:"val,attr"`
}

// attrValue returns the value of the first attribute with the given local name.
func attrValue(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func attrInt(start xml.StartElement, local string) int {
	n, _ := strconv.Atoi(attrValue(start, local))
	return n
}
