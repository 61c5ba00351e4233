// Package walk turns a parsed WordprocessingML document into the event stream
// of a docfield.Visitor and prepares an EvalContext from a .docx package.
package walk

import (
	"context"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// Option configures Walk.
type Option func(*walker)

// WithHyperlinkTargets resolves the relationship ids of external hyperlinks.
// See wordml.Package.HyperlinkTargets.
func WithHyperlinkTargets(targets map[string]string) Option {
	return func(w *walker) {
		w.targets = targets
	}
}

// WithLogger sets the logger for walk diagnostics
func WithLogger(l *docfield.Logger) Option {
	return func(w *walker) {
		w.logger = l
	}
}

type walker struct {
	v         docfield.Visitor
	targets   map[string]string
	logger    *docfield.Logger
	paragraph int
}

// Walk visits every block of doc in document order. Complex fields become
// BeginField/FieldCode/FieldSeparator/EndField, simple fields BeginField with
// the instruction set, followed by their cached content and EndField.
// A panicking visitor is reported as an error.
func Walk(ctx context.Context, doc *wordml.Document, v docfield.Visitor, opts ...Option) (err error) {
	w := &walker{v: v, logger: docfield.GetLogger()}
	for _, opt := range opts {
		opt(w)
	}
	if doc == nil || doc.Body == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = docfield.RecoverError(r)
			w.logger.WithField("paragraph", w.paragraph).Error("walk aborted: %v", err)
		}
	}()
	return w.blocks(ctx, doc.Body.Elements)
}

func (w *walker) blocks(ctx context.Context, elements []wordml.BodyElement) error {
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch b := el.(type) {
		case *wordml.Paragraph:
			err = w.paragraphBlock(ctx, b)
		case *wordml.Table:
			err = w.table(ctx, b)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) paragraphBlock(ctx context.Context, p *wordml.Paragraph) error {
	w.paragraph++
	err := docfield.WithParagraph(ctx, w.v, p.Properties, func() error {
		return w.inline(ctx, p.Content)
	})
	if err != nil {
		return docfield.WithContext(err, "walk paragraph", map[string]interface{}{
			"paragraph": w.paragraph,
		})
	}
	return nil
}

// bracket calls end on every exit path once begin succeeded.
func bracket(begin, end func() error, body func() error) (err error) {
	if err := begin(); err != nil {
		return err
	}
	defer func() {
		if endErr := end(); err == nil {
			err = endErr
		}
	}()
	return body()
}

func (w *walker) table(ctx context.Context, t *wordml.Table) error {
	return bracket(
		func() error { return w.v.BeginTable(ctx, t) },
		func() error { return w.v.EndTable(ctx) },
		func() error {
			for _, row := range t.Rows {
				err := bracket(
					func() error { return w.v.BeginTableRow(ctx) },
					func() error { return w.v.EndTableRow(ctx) },
					func() error { return w.cells(ctx, row) },
				)
				if err != nil {
					return err
				}
			}
			return nil
		},
	)
}

func (w *walker) cells(ctx context.Context, row *wordml.TableRow) error {
	for _, cell := range row.Cells {
		err := bracket(
			func() error { return w.v.BeginTableCell(ctx) },
			func() error { return w.v.EndTableCell(ctx) },
			func() error { return w.blocks(ctx, cell.Elements) },
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) inline(ctx context.Context, content []wordml.ParagraphContent) error {
	for _, c := range content {
		var err error
		switch x := c.(type) {
		case *wordml.Run:
			err = w.run(ctx, x)
		case *wordml.Hyperlink:
			err = w.hyperlink(ctx, x)
		case *wordml.SimpleField:
			err = w.simpleField(ctx, x)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) hyperlink(ctx context.Context, h *wordml.Hyperlink) error {
	link := docfield.Hyperlink{Anchor: h.Anchor}
	if h.ID != "" {
		target, ok := w.targets[h.ID]
		if !ok {
			w.logger.WithField("id", h.ID).Debug("hyperlink relationship not found")
		}
		link.Target = target
	}
	return docfield.WithHyperlink(ctx, w.v, link, func() error {
		return w.inline(ctx, h.Content)
	})
}

func (w *walker) simpleField(ctx context.Context, f *wordml.SimpleField) error {
	return bracket(
		func() error {
			return w.v.BeginField(ctx, docfield.FieldBegin{Simple: true, Instruction: f.Instruction})
		},
		func() error { return w.v.EndField(ctx) },
		func() error { return w.inline(ctx, f.Content) },
	)
}

func (w *walker) run(ctx context.Context, r *wordml.Run) error {
	return docfield.WithRun(ctx, w.v, r.Properties, func() error {
		for _, c := range r.Content {
			if err := w.runContent(ctx, r, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walker) runContent(ctx context.Context, r *wordml.Run, c wordml.RunContent) error {
	switch x := c.(type) {
	case *wordml.Text:
		if r.Deleted {
			return w.v.DeletedText(ctx, x.Content)
		}
		return w.v.Text(ctx, x.Content)
	case *wordml.DeletedText:
		return w.v.DeletedText(ctx, x.Content)
	case *wordml.InstrText:
		return w.v.FieldCode(ctx, x.Content)
	case *wordml.Tab:
		return w.v.Tab(ctx)
	case *wordml.Break:
		return w.v.Break(ctx)
	case *wordml.CarriageReturn:
		return w.v.CarriageReturn(ctx)
	case *wordml.NoBreakHyphen:
		return w.v.NoBreakHyphen(ctx)
	case *wordml.FieldChar:
		switch x.Type {
		case wordml.FieldCharBegin:
			return w.v.BeginField(ctx, docfield.FieldBegin{})
		case wordml.FieldCharSeparate:
			return w.v.FieldSeparator(ctx)
		case wordml.FieldCharEnd:
			return w.v.EndField(ctx)
		}
		w.logger.Warn("unknown fldChar type %q", x.Type)
	}
	return nil
}
