package walk

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// corePropertyNames maps core.xml entries to their DOCPROPERTY names.
var corePropertyNames = []struct {
	name  string
	value func(*wordml.CoreProperties) string
}{
	{"Title", func(c *wordml.CoreProperties) string { return c.Title }},
	{"Subject", func(c *wordml.CoreProperties) string { return c.Subject }},
	{"Author", func(c *wordml.CoreProperties) string { return c.Creator }},
	{"Keywords", func(c *wordml.CoreProperties) string { return c.Keywords }},
	{"Comments", func(c *wordml.CoreProperties) string { return c.Description }},
	{"LastSavedBy", func(c *wordml.CoreProperties) string { return c.LastModifiedBy }},
	{"RevisionNumber", func(c *wordml.CoreProperties) string { return c.Revision }},
	{"Category", func(c *wordml.CoreProperties) string { return c.Category }},
}

// Prepopulate loads document properties, custom properties, doc-variables,
// timestamps and bookmark contents into ec. pkg may be nil when only a
// document is at hand; doc may be nil to read it from pkg.
//
// Unreadable parts are reported together after everything readable was loaded.
func Prepopulate(ctx context.Context, ec *docfield.EvalContext, pkg *wordml.Package, doc *wordml.Document) error {
	errs := docfield.NewMultiError()

	if pkg != nil {
		errs.Add(loadCoreProperties(ec, pkg))
		errs.Add(loadCustomProperties(ec, pkg))
		errs.Add(loadDocumentVariables(ec, pkg))
		if doc == nil {
			var err error
			if doc, err = pkg.Document(); err != nil {
				errs.Add(docfield.WithContext(err, "read document", nil))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc != nil && doc.Body != nil {
		c := newBookmarkCollector()
		c.blocks(doc.Body.Elements)
		c.store(ec)
	}
	return errs.Err()
}

func loadCoreProperties(ec *docfield.EvalContext, pkg *wordml.Package) error {
	core, err := pkg.CoreProperties()
	if err != nil {
		return docfield.WithContext(err, "read core properties", nil)
	}
	for _, p := range corePropertyNames {
		if v := p.value(core); v != "" {
			ec.SetProperty(p.name, docfield.StringValue(v))
		}
	}

	var created, saved, printed *time.Time
	if t, ok := core.CreatedTime(); ok {
		created = &t
		ec.SetProperty("CreateTime", docfield.DateTimeValue(t))
	}
	if t, ok := core.ModifiedTime(); ok {
		saved = &t
		ec.SetProperty("LastSavedTime", docfield.DateTimeValue(t))
	}
	if t, ok := core.LastPrintedTime(); ok {
		printed = &t
		ec.SetProperty("LastPrinted", docfield.DateTimeValue(t))
	}
	ec.SetTimestamps(created, saved, printed)
	return nil
}

func loadCustomProperties(ec *docfield.EvalContext, pkg *wordml.Package) error {
	props, err := pkg.CustomProperties()
	if err != nil {
		return docfield.WithContext(err, "read custom properties", nil)
	}
	for _, p := range props {
		ec.SetProperty(p.Name, customValue(ec, p))
	}
	return nil
}

// customValue types a custom property by its variant element.
func customValue(ec *docfield.EvalContext, p wordml.CustomProperty) docfield.FieldValue {
	switch p.Type {
	case "i1", "i2", "i4", "i8", "int", "ui1", "ui2", "ui4", "ui8", "uint", "r4", "r8", "decimal":
		if n, err := cast.ToFloat64E(strings.TrimSpace(p.Value)); err == nil {
			return docfield.NumberValue(n)
		}
	case "bool":
		if b, err := cast.ToBoolE(strings.TrimSpace(p.Value)); err == nil {
			if b {
				return docfield.StringValue("Y")
			}
			return docfield.StringValue("N")
		}
	case "filetime", "date":
		if t, err := cast.ToTimeE(strings.TrimSpace(p.Value)); err == nil {
			return docfield.DateTimeValue(t)
		}
	default:
		return docfield.StringValue(p.Value)
	}
	ec.Logger().WithFields(docfield.Fields{"property": p.Name, "type": p.Type}).
		Warn("custom property value %q does not match its type", p.Value)
	return docfield.StringValue(p.Value)
}

func loadDocumentVariables(ec *docfield.EvalContext, pkg *wordml.Package) error {
	vars, err := pkg.DocumentVariables()
	if err != nil {
		return docfield.WithContext(err, "read document variables", nil)
	}
	for name, value := range vars {
		ec.SetDocVariable(name, value)
	}
	return nil
}

// bookmark accumulates the visible content between a bookmarkStart and its end.
type bookmark struct {
	name      string
	position  int
	buf       *docfield.NodeBuffer
	inRun     bool
	needBreak bool
}

type bookmarkCollector struct {
	paragraph int
	active    map[int]*bookmark
	done      []*bookmark
	// fields holds one entry per open complex field; true while in its instruction
	fields []bool
}

func newBookmarkCollector() *bookmarkCollector {
	return &bookmarkCollector{active: make(map[int]*bookmark)}
}

func (c *bookmarkCollector) blocks(elements []wordml.BodyElement) {
	for _, el := range elements {
		switch b := el.(type) {
		case *wordml.Paragraph:
			c.paragraph++
			c.inline(b.Content)
			for _, bm := range c.active {
				if !bm.buf.IsEmpty() {
					bm.needBreak = true
				}
			}
		case *wordml.Table:
			for _, row := range b.Rows {
				for _, cell := range row.Cells {
					c.blocks(cell.Elements)
				}
			}
		}
	}
}

func (c *bookmarkCollector) inline(content []wordml.ParagraphContent) {
	for _, item := range content {
		switch x := item.(type) {
		case *wordml.BookmarkStart:
			c.active[x.ID] = &bookmark{name: x.Name, position: c.paragraph, buf: docfield.NewNodeBuffer()}
		case *wordml.BookmarkEnd:
			if bm, ok := c.active[x.ID]; ok {
				delete(c.active, x.ID)
				c.done = append(c.done, bm)
			}
		case *wordml.Run:
			c.run(x)
		case *wordml.Hyperlink:
			c.inline(x.Content)
		case *wordml.SimpleField:
			c.inline(x.Content)
		}
	}
}

func (c *bookmarkCollector) inInstruction() bool {
	return len(c.fields) > 0 && c.fields[len(c.fields)-1]
}

func (c *bookmarkCollector) run(r *wordml.Run) {
	for _, content := range r.Content {
		if fc, ok := content.(*wordml.FieldChar); ok {
			c.fieldChar(fc)
			continue
		}
		if r.Deleted || c.inInstruction() {
			continue
		}
		for _, bm := range c.active {
			c.add(bm, r.Properties, content)
		}
	}
	for _, bm := range c.active {
		if bm.inRun {
			bm.buf.EndRun()
			bm.inRun = false
		}
	}
}

func (c *bookmarkCollector) fieldChar(fc *wordml.FieldChar) {
	switch fc.Type {
	case wordml.FieldCharBegin:
		c.fields = append(c.fields, true)
	case wordml.FieldCharSeparate:
		if n := len(c.fields); n > 0 {
			c.fields[n-1] = false
		}
	case wordml.FieldCharEnd:
		if n := len(c.fields); n > 0 {
			c.fields = c.fields[:n-1]
		}
	}
}

func (c *bookmarkCollector) add(bm *bookmark, props *wordml.RunProperties, content wordml.RunContent) {
	var add func()
	switch x := content.(type) {
	case *wordml.Text:
		add = func() { bm.buf.AddText(x.Content) }
	case *wordml.Tab:
		add = bm.buf.AddTab
	case *wordml.Break:
		add = bm.buf.AddBreak
	case *wordml.CarriageReturn:
		add = bm.buf.AddCarriageReturn
	case *wordml.NoBreakHyphen:
		add = bm.buf.AddNoBreakHyphen
	default:
		return
	}
	if !bm.inRun {
		bm.buf.BeginRun(props)
		bm.inRun = true
	}
	if bm.needBreak {
		bm.buf.AddBreak()
		bm.needBreak = false
	}
	add()
}

// store hands every bookmark to ec; bookmarks never closed end with the document.
func (c *bookmarkCollector) store(ec *docfield.EvalContext) {
	all := c.done
	for _, bm := range c.active {
		all = append(all, bm)
	}
	for _, bm := range all {
		if bm.name == "" {
			continue
		}
		ec.SetBookmark(bm.name, bm.buf)
		ec.SetBookmarkPosition(bm.name, bm.position)
	}
}
