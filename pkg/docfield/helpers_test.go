package docfield

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

// newTestContext builds a context with default config, a silent logger and a fixed clock.
func newTestContext(t *testing.T, opts ...Option) *EvalContext {
	t.Helper()
	base := []Option{
		WithConfig(DefaultConfig()),
		WithLogger(NopLogger()),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewEvalContext(append(base, opts...)...)
}

func evalText(t *testing.T, ev *Evaluator, instruction string) string {
	t.Helper()
	res, err := ev.Eval(context.Background(), NewFieldInstruction(instruction))
	require.NoError(t, err)
	return res.DisplayText(Parse(instruction).FieldType)
}

var bold = &wordml.RunProperties{Bold: &wordml.Toggle{}}
var italic = &wordml.RunProperties{Italic: &wordml.Toggle{}}

func propsName(p *wordml.RunProperties) string {
	var parts []string
	if p.IsBold() {
		parts = append(parts, "b")
	}
	if p.IsItalic() {
		parts = append(parts, "i")
	}
	if tag := p.LanguageTag(); tag != "" {
		parts = append(parts, tag)
	}
	return strings.Join(parts, ",")
}

// callRecorder is a Visitor that logs every call as a short string.
type callRecorder struct {
	calls []string
}

func (r *callRecorder) add(format string, args ...interface{}) error {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return nil
}

// text joins the Text calls.
func (r *callRecorder) text() string {
	var sb strings.Builder
	for _, c := range r.calls {
		if strings.HasPrefix(c, "Text(") {
			sb.WriteString(strings.TrimSuffix(strings.TrimPrefix(c, "Text("), ")"))
		}
	}
	return sb.String()
}

func (r *callRecorder) BeginParagraph(context.Context, *wordml.ParagraphProperties) error {
	return r.add("BeginParagraph")
}
func (r *callRecorder) EndParagraph(context.Context) error { return r.add("EndParagraph") }
func (r *callRecorder) BeginTable(context.Context, *wordml.Table) error {
	return r.add("BeginTable")
}
func (r *callRecorder) EndTable(context.Context) error       { return r.add("EndTable") }
func (r *callRecorder) BeginTableRow(context.Context) error  { return r.add("BeginTableRow") }
func (r *callRecorder) EndTableRow(context.Context) error    { return r.add("EndTableRow") }
func (r *callRecorder) BeginTableCell(context.Context) error { return r.add("BeginTableCell") }
func (r *callRecorder) EndTableCell(context.Context) error   { return r.add("EndTableCell") }
func (r *callRecorder) BeginRun(_ context.Context, props *wordml.RunProperties) error {
	return r.add("BeginRun(%s)", propsName(props))
}
func (r *callRecorder) EndRun(context.Context) error { return r.add("EndRun") }
func (r *callRecorder) Text(_ context.Context, text string) error {
	return r.add("Text(%s)", text)
}
func (r *callRecorder) DeletedText(_ context.Context, text string) error {
	return r.add("DeletedText(%s)", text)
}
func (r *callRecorder) Break(context.Context) error          { return r.add("Break") }
func (r *callRecorder) Tab(context.Context) error            { return r.add("Tab") }
func (r *callRecorder) CarriageReturn(context.Context) error { return r.add("CarriageReturn") }
func (r *callRecorder) NoBreakHyphen(context.Context) error  { return r.add("NoBreakHyphen") }
func (r *callRecorder) BeginHyperlink(_ context.Context, link Hyperlink) error {
	return r.add("BeginHyperlink(%s#%s)", link.Target, link.Anchor)
}
func (r *callRecorder) EndHyperlink(context.Context) error { return r.add("EndHyperlink") }
func (r *callRecorder) BeginField(_ context.Context, f FieldBegin) error {
	return r.add("BeginField(%s)", f.Instruction)
}
func (r *callRecorder) FieldCode(_ context.Context, text string) error {
	return r.add("FieldCode(%s)", text)
}
func (r *callRecorder) FieldSeparator(context.Context) error { return r.add("FieldSeparator") }
func (r *callRecorder) EndField(context.Context) error       { return r.add("EndField") }
