package docfield

import (
	"context"
	"errors"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// Hyperlink describes the target of a hyperlink scope.
type Hyperlink struct {
	// Target is an external URL
	Target string
	// Anchor is an internal bookmark name
	Anchor string
}

// FieldBegin describes the start of a field occurrence.
type FieldBegin struct {
	// Simple is set for w:fldSimple, whose instruction is known up front
	Simple      bool
	Instruction string
}

// Visitor receives the streaming document walk. Begin/End calls always come
// in matched pairs; use WithRun, WithHyperlink and WithParagraph to keep them so.
type Visitor interface {
	BeginParagraph(ctx context.Context, props *wordml.ParagraphProperties) error
	EndParagraph(ctx context.Context) error
	BeginTable(ctx context.Context, table *wordml.Table) error
	EndTable(ctx context.Context) error
	BeginTableRow(ctx context.Context) error
	EndTableRow(ctx context.Context) error
	BeginTableCell(ctx context.Context) error
	EndTableCell(ctx context.Context) error
	BeginRun(ctx context.Context, props *wordml.RunProperties) error
	EndRun(ctx context.Context) error
	Text(ctx context.Context, text string) error
	DeletedText(ctx context.Context, text string) error
	Break(ctx context.Context) error
	Tab(ctx context.Context) error
	CarriageReturn(ctx context.Context) error
	NoBreakHyphen(ctx context.Context) error
	BeginHyperlink(ctx context.Context, link Hyperlink) error
	EndHyperlink(ctx context.Context) error
	BeginField(ctx context.Context, field FieldBegin) error
	FieldCode(ctx context.Context, text string) error
	FieldSeparator(ctx context.Context) error
	EndField(ctx context.Context) error
}

// NopVisitor ignores every call. With a Logger set, ignored calls are logged at debug level.
type NopVisitor struct {
	Logger *Logger
}

func (n NopVisitor) ignore(call string) error {
	if n.Logger != nil {
		n.Logger.Debug("visitor ignored %s", call)
	}
	return nil
}

func (n NopVisitor) BeginParagraph(context.Context, *wordml.ParagraphProperties) error {
	return n.ignore("BeginParagraph")
}
func (n NopVisitor) EndParagraph(context.Context) error { return n.ignore("EndParagraph") }
func (n NopVisitor) BeginTable(context.Context, *wordml.Table) error {
	return n.ignore("BeginTable")
}
func (n NopVisitor) EndTable(context.Context) error       { return n.ignore("EndTable") }
func (n NopVisitor) BeginTableRow(context.Context) error  { return n.ignore("BeginTableRow") }
func (n NopVisitor) EndTableRow(context.Context) error    { return n.ignore("EndTableRow") }
func (n NopVisitor) BeginTableCell(context.Context) error { return n.ignore("BeginTableCell") }
func (n NopVisitor) EndTableCell(context.Context) error   { return n.ignore("EndTableCell") }
func (n NopVisitor) BeginRun(context.Context, *wordml.RunProperties) error {
	return n.ignore("BeginRun")
}
func (n NopVisitor) EndRun(context.Context) error                { return n.ignore("EndRun") }
func (n NopVisitor) Text(context.Context, string) error          { return n.ignore("Text") }
func (n NopVisitor) DeletedText(context.Context, string) error   { return n.ignore("DeletedText") }
func (n NopVisitor) Break(context.Context) error                 { return n.ignore("Break") }
func (n NopVisitor) Tab(context.Context) error                   { return n.ignore("Tab") }
func (n NopVisitor) CarriageReturn(context.Context) error        { return n.ignore("CarriageReturn") }
func (n NopVisitor) NoBreakHyphen(context.Context) error         { return n.ignore("NoBreakHyphen") }
func (n NopVisitor) BeginHyperlink(context.Context, Hyperlink) error {
	return n.ignore("BeginHyperlink")
}
func (n NopVisitor) EndHyperlink(context.Context) error           { return n.ignore("EndHyperlink") }
func (n NopVisitor) BeginField(context.Context, FieldBegin) error { return n.ignore("BeginField") }
func (n NopVisitor) FieldCode(context.Context, string) error      { return n.ignore("FieldCode") }
func (n NopVisitor) FieldSeparator(context.Context) error         { return n.ignore("FieldSeparator") }
func (n NopVisitor) EndField(context.Context) error               { return n.ignore("EndField") }

// Passthrough forwards every call to Next. Middleware embeds it and
// overrides only the calls it cares about.
type Passthrough struct {
	Next Visitor
}

func (p Passthrough) BeginParagraph(ctx context.Context, props *wordml.ParagraphProperties) error {
	return p.Next.BeginParagraph(ctx, props)
}
func (p Passthrough) EndParagraph(ctx context.Context) error { return p.Next.EndParagraph(ctx) }
func (p Passthrough) BeginTable(ctx context.Context, table *wordml.Table) error {
	return p.Next.BeginTable(ctx, table)
}
func (p Passthrough) EndTable(ctx context.Context) error       { return p.Next.EndTable(ctx) }
func (p Passthrough) BeginTableRow(ctx context.Context) error  { return p.Next.BeginTableRow(ctx) }
func (p Passthrough) EndTableRow(ctx context.Context) error    { return p.Next.EndTableRow(ctx) }
func (p Passthrough) BeginTableCell(ctx context.Context) error { return p.Next.BeginTableCell(ctx) }
func (p Passthrough) EndTableCell(ctx context.Context) error   { return p.Next.EndTableCell(ctx) }
func (p Passthrough) BeginRun(ctx context.Context, props *wordml.RunProperties) error {
	return p.Next.BeginRun(ctx, props)
}
func (p Passthrough) EndRun(ctx context.Context) error { return p.Next.EndRun(ctx) }
func (p Passthrough) Text(ctx context.Context, text string) error {
	return p.Next.Text(ctx, text)
}
func (p Passthrough) DeletedText(ctx context.Context, text string) error {
	return p.Next.DeletedText(ctx, text)
}
func (p Passthrough) Break(ctx context.Context) error          { return p.Next.Break(ctx) }
func (p Passthrough) Tab(ctx context.Context) error            { return p.Next.Tab(ctx) }
func (p Passthrough) CarriageReturn(ctx context.Context) error { return p.Next.CarriageReturn(ctx) }
func (p Passthrough) NoBreakHyphen(ctx context.Context) error  { return p.Next.NoBreakHyphen(ctx) }
func (p Passthrough) BeginHyperlink(ctx context.Context, link Hyperlink) error {
	return p.Next.BeginHyperlink(ctx, link)
}
func (p Passthrough) EndHyperlink(ctx context.Context) error { return p.Next.EndHyperlink(ctx) }
func (p Passthrough) BeginField(ctx context.Context, field FieldBegin) error {
	return p.Next.BeginField(ctx, field)
}
func (p Passthrough) FieldCode(ctx context.Context, text string) error {
	return p.Next.FieldCode(ctx, text)
}
func (p Passthrough) FieldSeparator(ctx context.Context) error { return p.Next.FieldSeparator(ctx) }
func (p Passthrough) EndField(ctx context.Context) error       { return p.Next.EndField(ctx) }

// WithRun brackets body in BeginRun/EndRun. EndRun fires on every exit path
// once BeginRun succeeded; its error is joined with body's.
func WithRun(ctx context.Context, v Visitor, props *wordml.RunProperties, body func() error) (err error) {
	if err := v.BeginRun(ctx, props); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, v.EndRun(ctx))
	}()
	return body()
}

// WithHyperlink brackets body in BeginHyperlink/EndHyperlink.
func WithHyperlink(ctx context.Context, v Visitor, link Hyperlink, body func() error) (err error) {
	if err := v.BeginHyperlink(ctx, link); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, v.EndHyperlink(ctx))
	}()
	return body()
}

// WithParagraph brackets body in BeginParagraph/EndParagraph.
func WithParagraph(ctx context.Context, v Visitor, props *wordml.ParagraphProperties, body func() error) (err error) {
	if err := v.BeginParagraph(ctx, props); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, v.EndParagraph(ctx))
	}()
	return body()
}
