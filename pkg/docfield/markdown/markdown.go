// Package markdown renders the visitor event stream as CommonMark with the
// GitHub table extension. It sits at the end of a docfield pipeline:
//
//	r := markdown.NewRenderer()
//	mw := docfield.NewMiddleware(r, docfield.NewEvaluator(ec))
//	err := walk.Walk(ctx, doc, mw)
//	fmt.Print(r.Markdown())
package markdown

import (
	"context"
	"strings"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// Renderer is a docfield.Visitor that builds a Markdown document.
// Field events are ignored, so without middleware cached results are shown.
type Renderer struct {
	docfield.NopVisitor

	blocks []string
	para   *paragraph
	runs   []*wordml.RunProperties
	tables []*table
}

// NewRenderer creates an empty renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Markdown returns everything rendered so far.
func (r *Renderer) Markdown() string {
	if len(r.blocks) == 0 {
		return ""
	}
	return strings.Join(r.blocks, "\n\n") + "\n"
}

type paragraph struct {
	heading   int
	sb        strings.Builder
	marker    string
	pendingWS string
	// pendingBreak is written only once more content follows
	pendingBreak string
	links        []string
}

type table struct {
	rows [][]string
	cell []string
}

func (r *Renderer) BeginParagraph(_ context.Context, props *wordml.ParagraphProperties) error {
	r.para = &paragraph{heading: props.HeadingLevel()}
	return nil
}

func (r *Renderer) EndParagraph(context.Context) error {
	p := r.current()
	r.para = nil
	p.closeMarker()
	text := strings.TrimSpace(p.sb.String())
	if text == "" {
		return nil
	}
	if p.heading > 0 && len(r.tables) == 0 {
		text = strings.Repeat("#", p.heading) + " " + text
	}
	if n := len(r.tables); n > 0 {
		t := r.tables[n-1]
		t.cell = append(t.cell, text)
		return nil
	}
	r.blocks = append(r.blocks, text)
	return nil
}

// current returns the open paragraph, opening an implicit one for content
// that arrives outside any paragraph.
func (r *Renderer) current() *paragraph {
	if r.para == nil {
		r.para = &paragraph{}
	}
	return r.para
}

func (r *Renderer) BeginRun(_ context.Context, props *wordml.RunProperties) error {
	r.runs = append(r.runs, props)
	return nil
}

func (r *Renderer) EndRun(context.Context) error {
	if n := len(r.runs); n > 0 {
		r.runs = r.runs[:n-1]
	}
	return nil
}

func (r *Renderer) marker() string {
	if len(r.runs) == 0 {
		return ""
	}
	return emphasis(r.runs[len(r.runs)-1])
}

// emphasis returns the opening delimiters for props. Closing delimiters are
// the same string reversed.
func emphasis(props *wordml.RunProperties) string {
	var m string
	if props.IsStrike() {
		m += "~~"
	}
	if props.IsBold() {
		m += "**"
	}
	if props.IsItalic() {
		m += "*"
	}
	return m
}

func (r *Renderer) Text(_ context.Context, text string) error {
	r.current().write(text, r.marker(), len(r.tables) > 0)
	return nil
}

func (r *Renderer) Tab(context.Context) error {
	p := r.current()
	p.pendingWS += "\t"
	return nil
}

func (r *Renderer) Break(context.Context) error {
	r.current().hardBreak(len(r.tables) > 0)
	return nil
}

func (r *Renderer) CarriageReturn(context.Context) error {
	r.current().hardBreak(len(r.tables) > 0)
	return nil
}

func (r *Renderer) NoBreakHyphen(context.Context) error {
	r.current().write("-", r.marker(), len(r.tables) > 0)
	return nil
}

func (r *Renderer) BeginHyperlink(_ context.Context, link docfield.Hyperlink) error {
	p := r.current()
	dest := link.Target
	if dest == "" && link.Anchor != "" {
		dest = "#" + link.Anchor
	}
	if dest != "" {
		p.closeMarker()
		p.flushWS()
		p.sb.WriteString("[")
	}
	p.links = append(p.links, dest)
	return nil
}

func (r *Renderer) EndHyperlink(context.Context) error {
	p := r.current()
	n := len(p.links)
	if n == 0 {
		return nil
	}
	dest := p.links[n-1]
	p.links = p.links[:n-1]
	if dest != "" {
		p.closeMarker()
		p.sb.WriteString("](" + strings.ReplaceAll(dest, " ", "%20") + ")")
	}
	return nil
}

func (r *Renderer) BeginTable(context.Context, *wordml.Table) error {
	r.tables = append(r.tables, &table{})
	return nil
}

func (r *Renderer) BeginTableRow(context.Context) error {
	if t := r.table(); t != nil {
		t.rows = append(t.rows, nil)
	}
	return nil
}

func (r *Renderer) BeginTableCell(context.Context) error {
	if t := r.table(); t != nil {
		t.cell = nil
	}
	return nil
}

func (r *Renderer) EndTableCell(context.Context) error {
	t := r.table()
	if t == nil || len(t.rows) == 0 {
		return nil
	}
	last := len(t.rows) - 1
	t.rows[last] = append(t.rows[last], strings.Join(t.cell, "<br>"))
	t.cell = nil
	return nil
}

func (r *Renderer) EndTable(context.Context) error {
	n := len(r.tables)
	if n == 0 {
		return nil
	}
	t := r.tables[n-1]
	r.tables = r.tables[:n-1]
	if n > 1 {
		// nested tables collapse into the enclosing cell
		parent := r.tables[n-2]
		for _, row := range t.rows {
			parent.cell = append(parent.cell, strings.Join(row, " / "))
		}
		return nil
	}
	if md := t.markdown(); md != "" {
		r.blocks = append(r.blocks, md)
	}
	return nil
}

func (r *Renderer) table() *table {
	if n := len(r.tables); n > 0 {
		return r.tables[n-1]
	}
	return nil
}

// markdown lays the table out with its first row as the header.
func (t *table) markdown() string {
	cols := 0
	for _, row := range t.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(t.rows[0])
	sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
	for _, row := range t.rows[1:] {
		writeRow(row)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// write appends text with the emphasis marker. Whitespace at the edges is
// kept outside the delimiters so they stay left- and right-flanking.
func (p *paragraph) write(text, marker string, inTable bool) {
	core := strings.TrimSpace(text)
	if core == "" {
		p.pendingWS += text
		return
	}
	lead := text[:strings.Index(text, core)]
	trail := text[len(lead)+len(core):]

	if marker != p.marker {
		p.closeMarker()
		p.pendingWS += lead
		p.flushWS()
		p.sb.WriteString(marker)
		p.marker = marker
	} else {
		p.pendingWS += lead
		p.flushWS()
	}
	p.sb.WriteString(escape(core, inTable))
	p.pendingWS = trail
}

func (p *paragraph) closeMarker() {
	if p.marker == "" {
		return
	}
	p.sb.WriteString(reverse(p.marker))
	p.marker = ""
}

func (p *paragraph) flushWS() {
	if p.pendingBreak != "" {
		p.sb.WriteString(p.pendingBreak)
		p.pendingBreak = ""
		p.pendingWS = strings.TrimLeft(p.pendingWS, " \t")
	}
	p.sb.WriteString(p.pendingWS)
	p.pendingWS = ""
}

func (p *paragraph) hardBreak(inTable bool) {
	p.closeMarker()
	p.pendingWS = ""
	if inTable {
		p.pendingBreak = "<br>"
	} else {
		p.pendingBreak = "\\\n"
	}
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

var escaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`,
)

var tableEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`, "|", `\|`,
)

func escape(s string, inTable bool) string {
	if inTable {
		return tableEscaper.Replace(s)
	}
	return escaper.Replace(s)
}
