package docfield

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

type scopeKind int

const (
	scopeRun scopeKind = iota
	scopeHyperlink
)

// scope is a run or hyperlink of the walked document. It is opened on the
// next visitor only once content is forwarded into it.
type scope struct {
	kind   scopeKind
	props  *wordml.RunProperties
	link   Hyperlink
	opened bool
}

// Middleware sits between the document walker and a renderer. It tracks
// fields, evaluates them and forwards either the document's cached results
// (cache mode) or synthesized results (evaluate mode). Field events are
// consumed; everything else reaches Next.
//
// It also keeps the EvalContext in step with the walk: culture scopes,
// outline level, document order and the table cursor.
type Middleware struct {
	Passthrough

	ec     *EvalContext
	eval   *Evaluator
	mode   Mode
	frames []*fieldFrame
	scopes []*scope
}

// NewMiddleware wraps next. The mode comes from the evaluator's config.
func NewMiddleware(next Visitor, eval *Evaluator) *Middleware {
	mode := eval.Context().Config().Mode
	if mode == "" {
		mode = ModeEvaluate
	}
	return &Middleware{
		Passthrough: Passthrough{Next: next},
		ec:          eval.Context(),
		eval:        eval,
		mode:        mode,
	}
}

// Mode returns the mode the middleware runs in
func (m *Middleware) Mode() Mode { return m.mode }

func (m *Middleware) BeginParagraph(ctx context.Context, props *wordml.ParagraphProperties) error {
	m.ec.PushCulture(props.LanguageTag())
	m.ec.EnterParagraph(props.HeadingLevel())
	return m.Next.BeginParagraph(ctx, props)
}

func (m *Middleware) EndParagraph(ctx context.Context) error {
	defer m.ec.PopCulture()
	return m.Next.EndParagraph(ctx)
}

func (m *Middleware) BeginTable(ctx context.Context, table *wordml.Table) error {
	m.ec.EnterTable(table)
	return m.Next.BeginTable(ctx, table)
}

func (m *Middleware) EndTable(ctx context.Context) error {
	defer m.ec.LeaveTable()
	return m.Next.EndTable(ctx)
}

func (m *Middleware) BeginTableRow(ctx context.Context) error {
	m.ec.EnterTableRow()
	return m.Next.BeginTableRow(ctx)
}

func (m *Middleware) BeginTableCell(ctx context.Context) error {
	m.ec.EnterTableCell()
	return m.Next.BeginTableCell(ctx)
}

func (m *Middleware) BeginRun(_ context.Context, props *wordml.RunProperties) error {
	m.ec.PushCulture(props.LanguageTag())
	m.scopes = append(m.scopes, &scope{kind: scopeRun, props: props})
	return nil
}

func (m *Middleware) EndRun(ctx context.Context) error {
	defer m.ec.PopCulture()
	for _, f := range m.frames {
		f.closeRuns()
	}
	return m.popScope(ctx, scopeRun)
}

func (m *Middleware) BeginHyperlink(_ context.Context, link Hyperlink) error {
	m.scopes = append(m.scopes, &scope{kind: scopeHyperlink, link: link})
	return nil
}

func (m *Middleware) EndHyperlink(ctx context.Context) error {
	return m.popScope(ctx, scopeHyperlink)
}

func (m *Middleware) popScope(ctx context.Context, kind scopeKind) error {
	n := len(m.scopes)
	if n == 0 {
		m.ec.logger.Warn("unbalanced end of scope")
		return nil
	}
	s := m.scopes[n-1]
	m.scopes = m.scopes[:n-1]
	if s.kind != kind {
		m.ec.logger.Warn("scope closed out of order")
	}
	if !s.opened {
		return nil
	}
	if s.kind == scopeRun {
		return m.Next.EndRun(ctx)
	}
	return m.Next.EndHyperlink(ctx)
}

// materialize opens every pending scope from the outside in. Without runs
// it stops at the first pending run.
func (m *Middleware) materialize(ctx context.Context, runs bool) error {
	for _, s := range m.scopes {
		if s.opened {
			continue
		}
		var err error
		switch s.kind {
		case scopeRun:
			if !runs {
				return nil
			}
			err = m.Next.BeginRun(ctx, s.props)
		case scopeHyperlink:
			err = m.Next.BeginHyperlink(ctx, s.link)
		}
		if err != nil {
			return err
		}
		s.opened = true
	}
	return nil
}

// suspendRuns closes the innermost opened runs so synthesized runs are not
// nested in them. They reopen on the next forwarded content.
func (m *Middleware) suspendRuns(ctx context.Context) error {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		s := m.scopes[i]
		if s.kind != scopeRun {
			if s.opened {
				return nil
			}
			continue
		}
		if !s.opened {
			continue
		}
		if err := m.Next.EndRun(ctx); err != nil {
			return err
		}
		s.opened = false
	}
	return nil
}

func (m *Middleware) currentProps() *wordml.RunProperties {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if m.scopes[i].kind == scopeRun {
			return m.scopes[i].props
		}
	}
	return nil
}

func (m *Middleware) top() *fieldFrame {
	if n := len(m.frames); n > 0 {
		return m.frames[n-1]
	}
	return nil
}

// route decides where content goes: into a recorder, to Next, or nowhere.
func (m *Middleware) route() (rec *runRecorder, forward bool) {
	f := m.top()
	if f == nil {
		return nil, true
	}

	if m.mode == ModeCache {
		for _, fr := range m.frames {
			if !fr.inResult() || fr.suppress {
				return nil, false
			}
		}
		return nil, true
	}

	switch f.state {
	case stateInstruction, stateCapturingTrueBranch, stateCapturingFalseBranch:
		if f.ifc != nil {
			if rec := f.ifc.recorder(); rec != nil {
				return rec, false
			}
		}
	case stateResult:
		for i := len(m.frames) - 1; i >= 0 && m.frames[i].inResult(); i-- {
			if m.frames[i].deferred {
				return &m.frames[i].result, false
			}
		}
	}
	for _, fr := range m.frames {
		if !fr.inResult() || !fr.useCache {
			return nil, false
		}
	}
	return nil, true
}

func (m *Middleware) content(ctx context.Context, record func(*NodeBuffer), forward func() error) error {
	rec, fwd := m.route()
	if rec != nil {
		rec.leaf(m.currentProps(), record)
		return nil
	}
	if !fwd {
		return nil
	}
	if err := m.materialize(ctx, true); err != nil {
		return err
	}
	return forward()
}

func (m *Middleware) Text(ctx context.Context, text string) error {
	return m.content(ctx,
		func(b *NodeBuffer) { b.AddText(text) },
		func() error { return m.Next.Text(ctx, text) })
}

func (m *Middleware) DeletedText(ctx context.Context, text string) error {
	return m.content(ctx,
		func(b *NodeBuffer) { b.AddDeletedText(text) },
		func() error { return m.Next.DeletedText(ctx, text) })
}

func (m *Middleware) Break(ctx context.Context) error {
	return m.content(ctx, (*NodeBuffer).AddBreak, func() error { return m.Next.Break(ctx) })
}

func (m *Middleware) Tab(ctx context.Context) error {
	return m.content(ctx, (*NodeBuffer).AddTab, func() error { return m.Next.Tab(ctx) })
}

func (m *Middleware) CarriageReturn(ctx context.Context) error {
	return m.content(ctx, (*NodeBuffer).AddCarriageReturn, func() error { return m.Next.CarriageReturn(ctx) })
}

func (m *Middleware) NoBreakHyphen(ctx context.Context) error {
	return m.content(ctx, (*NodeBuffer).AddNoBreakHyphen, func() error { return m.Next.NoBreakHyphen(ctx) })
}

func (m *Middleware) BeginField(ctx context.Context, field FieldBegin) error {
	parent := m.top()
	f := newFieldFrame(parent, field.Simple)
	if m.mode == ModeCache && parent != nil && parent.inResult() {
		f.suppress = true
	}
	m.frames = append(m.frames, f)

	if !field.Simple {
		return nil
	}
	f.instruction.WriteString(field.Instruction)
	f.codeProps = m.currentProps()
	f.state = transition(f.state, eventSeparator)
	return m.resolveFrame(ctx, f)
}

func (m *Middleware) FieldCode(_ context.Context, text string) error {
	f := m.top()
	if f == nil || f.inResult() {
		return nil
	}
	props := m.currentProps()
	if f.codeProps == nil {
		f.codeProps = props
	}
	f.instruction.WriteString(text)
	if m.mode == ModeEvaluate {
		m.captureIf(f, text, props)
	}
	return nil
}

// captureIf starts branch capture once an outermost instruction is known to
// be an IF, and feeds it afterwards.
func (m *Middleware) captureIf(f *fieldFrame, text string, props *wordml.RunProperties) {
	if f.ifc != nil {
		f.ifc.feed(f, text, props)
		return
	}
	if f.ifChecked || f.parent != nil {
		return
	}
	sofar := f.instruction.String()
	trimmed := strings.TrimLeft(sofar, " \t\r\n")
	if len(trimmed) < 3 {
		return
	}
	f.ifChecked = true
	if strings.EqualFold(trimmed[:2], "IF") && isSpaceByte(trimmed[2]) {
		f.ifc = newIfCapture()
		f.ifc.feed(f, sofar, props)
	}
}

func (m *Middleware) FieldSeparator(ctx context.Context) error {
	f := m.top()
	if f == nil {
		m.ec.logger.Warn("field separator outside a field")
		return nil
	}
	if f.inResult() {
		return nil
	}
	f.closeRuns()
	f.state = transition(f.state, eventSeparator)
	return m.resolveFrame(ctx, f)
}

func (m *Middleware) EndField(ctx context.Context) error {
	n := len(m.frames)
	if n == 0 {
		m.ec.logger.Warn("field end outside a field")
		return nil
	}
	f := m.frames[n-1]
	m.frames = m.frames[:n-1]

	if !f.inResult() {
		f.closeRuns()
		f.state = transition(f.state, eventSeparator)
		if err := m.resolveFrame(ctx, f); err != nil {
			return err
		}
	}
	if f.deferred {
		return m.finishDeferred(ctx, f)
	}
	return nil
}

// resolveFrame runs once per frame, when its instruction is complete.
func (m *Middleware) resolveFrame(ctx context.Context, f *fieldFrame) error {
	if f.evaluated {
		return nil
	}
	f.evaluated = true
	text := f.instruction.String()

	if m.mode == ModeCache {
		if Parse(text).FieldType != "SET" {
			return nil
		}
		f.suppress = true
		_, err := m.eval.Eval(ctx, NewFieldInstruction(text))
		return err
	}

	if f.parent != nil {
		if !f.parent.inResult() {
			return m.inject(ctx, f, text)
		}
		f.useCache = f.parent.useCache
		return nil
	}

	if f.ifc != nil {
		return m.resolveIf(ctx, f)
	}

	ast := Parse(text)
	switch ast.FieldType {
	case "REF", "DOCVARIABLE":
		if len(ast.Formats) > 0 && ast.OnlyMergeFormats() {
			f.deferred = true
			return nil
		}
		buf, ok, err := m.storedBuffer(ctx, f, ast)
		if err != nil {
			return err
		}
		if ok {
			return m.emit(ctx, buf, Hyperlink{}, false)
		}
	case "SET":
		_, err := m.eval.Eval(ctx, NewFieldInstruction(text))
		return err
	}

	res, err := m.eval.Eval(ctx, NewFieldInstruction(text))
	if err != nil {
		return err
	}
	return m.emitResult(ctx, f, ast.FieldType, res)
}

// inject evaluates a field nested in its parent's instruction and writes the
// value into the parent as a literal token.
func (m *Middleware) inject(ctx context.Context, f *fieldFrame, text string) error {
	res, err := m.eval.Eval(ctx, NewFieldInstruction(text))
	if err != nil {
		return err
	}
	m.ec.TakePendingHyperlink()
	fieldType := Parse(text).FieldType
	if fieldType == "SET" {
		return nil
	}
	value := res.DisplayText(fieldType)

	p := f.parent
	if insideQuotes(p.instruction.String()) {
		p.instruction.WriteString(strings.ReplaceAll(value, `"`, `\"`))
	} else {
		p.instruction.WriteString(quoteToken(value))
	}
	if p.ifc != nil {
		p.ifc.inject(p, value, m.currentProps())
	}
	return nil
}

// resolveIf replays the captured branch chosen by the condition. Branch
// formatting survives unless the IF carries switches other than CHARFORMAT
// or MERGEFORMAT, in which case the branch text is formatted and flattened.
func (m *Middleware) resolveIf(ctx context.Context, f *fieldFrame) error {
	f.closeRuns()
	text := f.instruction.String()
	positional := ifPositional(text)
	n, ok := comparisonLength(positional)
	if !ok || n >= len(positional) {
		return m.evalIf(ctx, f, text)
	}
	cond, ok, err := m.eval.EvaluateIfCondition(ctx, text)
	if err != nil {
		return err
	}
	if !ok {
		return m.evalIf(ctx, f, text)
	}

	// tokens count the IF keyword, positional arguments do not
	i := n + 1
	if !cond {
		if len(positional) <= n+1 {
			return nil
		}
		i = n + 2
	}
	branch, ok := f.ifc.branch(i)
	if !ok {
		return m.evalIf(ctx, f, text)
	}
	if branch.IsEmpty() {
		return nil
	}
	if ast := Parse(text); !ast.OnlyMergeFormats() {
		props, found := branch.FirstRunProperties()
		if !found {
			props = f.codeProps
		}
		formatted := m.ec.FormatValue(StringValue(branch.ToPlainText()), ast.Formats, "")
		if formatted == "" {
			return nil
		}
		branch = NodeBufferFromText(formatted, props)
	}
	return m.emit(ctx, branch, Hyperlink{}, false)
}

// evalIf renders an IF whose branches could not be captured as plain text.
func (m *Middleware) evalIf(ctx context.Context, f *fieldFrame, text string) error {
	res, err := m.eval.Eval(ctx, NewFieldInstruction(text))
	if err != nil {
		return err
	}
	return m.emitResult(ctx, f, "IF", res)
}

// storedBuffer returns the recorded content of a REF or DOCVARIABLE that
// names a single bookmark or variable with no switches.
func (m *Middleware) storedBuffer(ctx context.Context, f *fieldFrame, ast FieldAst) (*NodeBuffer, bool, error) {
	if len(ast.Formats) > 0 {
		return nil, false, nil
	}
	tokens := tokenizeArgs(ast.Arguments)
	if len(tokens) != 1 || tokens[0].IsSwitch() || strings.Contains(tokens[0].Text, "{") {
		return nil, false, nil
	}
	name := tokens[0].Text

	var buf *NodeBuffer
	var ok bool
	if ast.FieldType == "REF" {
		buf, ok = m.ec.Bookmark(name)
	} else {
		if _, err := m.eval.Eval(ctx, NewFieldInstruction(f.instruction.String())); err != nil {
			return nil, false, err
		}
		buf, ok = m.ec.DocVariable(name)
	}
	if !ok || buf == nil {
		return nil, false, nil
	}
	return withCodeProps(buf, f.codeProps), true, nil
}

// withCodeProps gives unformatted buffers the formatting of the field code.
func withCodeProps(buf *NodeBuffer, props *wordml.RunProperties) *NodeBuffer {
	if props == nil {
		return buf
	}
	segments, ok := buf.RunSegments()
	if !ok {
		return buf
	}
	for _, s := range segments {
		if s.Properties != nil {
			return buf
		}
	}
	return NodeBufferFromText(buf.ToPlainText(), props)
}

func (m *Middleware) emitResult(ctx context.Context, f *fieldFrame, fieldType string, res FieldEvalResult) error {
	link, hasLink := m.ec.TakePendingHyperlink()
	if res.Status == StatusSkipped {
		if fieldType != "SKIPIF" && fieldType != "NEXTIF" {
			f.useCache = true
		}
		return nil
	}
	text := res.DisplayText(fieldType)
	if text == "" {
		return nil
	}
	return m.emit(ctx, NodeBufferFromText(text, f.codeProps), link, hasLink)
}

func (m *Middleware) emit(ctx context.Context, buf *NodeBuffer, link Hyperlink, hasLink bool) error {
	if err := m.suspendRuns(ctx); err != nil {
		return err
	}
	if err := m.materialize(ctx, false); err != nil {
		return err
	}
	if hasLink {
		return WithHyperlink(ctx, m.Next, link, func() error {
			return buf.Replay(ctx, m.Next)
		})
	}
	return buf.Replay(ctx, m.Next)
}

// finishDeferred evaluates a CHARFORMAT or MERGEFORMAT field against its
// recorded cached result and lays the new text over the recorded formatting.
func (m *Middleware) finishDeferred(ctx context.Context, f *fieldFrame) error {
	f.closeRuns()
	recorded := f.result.buf
	instr := NewFieldInstruction(f.instruction.String()).WithCachedResult(recorded.ToPlainText())
	ast := Parse(instr.Text)

	res, err := m.eval.Eval(ctx, instr)
	if err != nil {
		return err
	}
	link, hasLink := m.ec.TakePendingHyperlink()
	if res.Status == StatusSkipped {
		return m.emit(ctx, recorded, link, hasLink)
	}
	text := res.DisplayText(ast.FieldType)
	if text == "" {
		return nil
	}

	var out *NodeBuffer
	if ast.HasTransform(TransformMergeFormat) {
		out = mergeFormat(text, recorded, f.codeProps)
	} else {
		props, ok := recorded.FirstRunProperties()
		if !ok {
			props = f.codeProps
		}
		out = NodeBufferFromText(text, props)
	}
	return m.emit(ctx, out, link, hasLink)
}

// mergeFormat splits text across the recorded runs in proportion to the
// length of each run's cached text.
func mergeFormat(text string, recorded *NodeBuffer, fallback *wordml.RunProperties) *NodeBuffer {
	segments, ok := recorded.RunSegments()
	if !ok {
		props, found := recorded.FirstRunProperties()
		if !found {
			props = fallback
		}
		return NodeBufferFromText(text, props)
	}

	total := 0
	for _, s := range segments {
		total += utf8.RuneCountInString(s.Text)
	}
	if total == 0 || len(segments) == 1 {
		return NodeBufferFromText(text, segments[0].Properties)
	}

	runes := []rune(text)
	out := NewNodeBuffer()
	seen, start := 0, 0
	for i, s := range segments {
		seen += utf8.RuneCountInString(s.Text)
		end := len(runes)
		if i < len(segments)-1 {
			end = (seen*len(runes) + total/2) / total
		}
		if end <= start {
			continue
		}
		part := string(runes[start:end])
		out.BeginRun(s.Properties)
		out.AddText(part)
		out.EndRun()
		if needsPreserveSpace(part) {
			out.PreserveSpace = true
		}
		start = end
	}
	return out
}
