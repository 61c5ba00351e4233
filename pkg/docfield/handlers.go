package docfield

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/formula"
)

func (e *Evaluator) evalFormula(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	culture := e.ec.Culture()
	decimal := '.'
	if culture.DecimalSeparator != "" {
		decimal = []rune(culture.DecimalSeparator)[0]
	}
	invariant := e.ec.config.InvariantNumberFallback

	ev := formula.New(formula.Env{
		ListSeparator:    e.ec.ListSeparator(),
		DecimalSeparator: decimal,
		Functions:        e.ec.functions,
		NestedField: func(ctx context.Context, instruction string) (float64, error) {
			text, err := e.evalNested(ctx, instruction)
			if err != nil {
				return 0, err
			}
			n, ok := ParseNumberWithFallback(strings.TrimSpace(text), e.ec.Culture(), invariant)
			if !ok {
				return 0, fmt.Errorf("%w: {%s} is not a number", formula.ErrUndefined, instruction)
			}
			return n, nil
		},
		Identifier: func(ctx context.Context, name string) (float64, bool, error) {
			v, ok, err := e.ec.resolve(ctx, name, ResolveAny)
			if err != nil || !ok {
				return 0, false, err
			}
			n, ok := e.ec.formatter().number(v)
			return n, ok, nil
		},
		Tables: e.ec.formulaTables(),
	})

	n, err := ev.EvaluateString(ctx, ast.Arguments)
	if err != nil {
		if IsResolverError(err) || ctx.Err() != nil {
			return FieldEvalResult{}, err
		}
		e.ec.logger.Debug("formula %q: %v", ast.Arguments, err)
		return Resolved(FormulaErrorText), nil
	}
	return Resolved(e.ec.FormatValue(NumberValue(n), ast.Formats, "")), nil
}

// evalDate serves DATE and TIME from the injected clock.
func (e *Evaluator) evalDate(_ context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	picture := e.ec.Culture().ShortDate
	if ast.FieldType == "TIME" {
		picture = e.ec.Culture().ShortTime
	}
	return Resolved(e.ec.FormatValue(DateTimeValue(e.ec.Now()), ast.Formats, picture)), nil
}

// evalStoredDate serves CREATEDATE, SAVEDATE and PRINTDATE. The first two
// decline without a stored timestamp; PRINTDATE falls back to the clock.
func (e *Evaluator) evalStoredDate(_ context.Context, ast FieldAst, instr FieldInstruction) (FieldEvalResult, error) {
	stored := e.ec.created
	switch ast.FieldType {
	case "SAVEDATE":
		stored = e.ec.saved
	case "PRINTDATE":
		stored = e.ec.printed
	}

	if stored == nil {
		if ast.FieldType != "PRINTDATE" {
			return e.fallback(instr), nil
		}
		now := e.ec.Now()
		stored = &now
	}
	return Resolved(e.ec.FormatValue(DateTimeValue(*stored), ast.Formats, e.ec.Culture().ShortDate)), nil
}

func (e *Evaluator) evalSet(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, _ := splitSwitches(tokenizeArgs(ast.Arguments), "")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("SET", 2, 0))
		return Resolved(""), nil
	}

	name, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}
	value := StringValue("")
	if len(positional) > 1 {
		if value, err = e.resolveValue(ctx, positional[1]); err != nil {
			return FieldEvalResult{}, err
		}
	}

	text := e.ec.FormatValue(value, ast.Formats, "")
	e.ec.SetBookmarkText(name, text)
	return Resolved(text), nil
}

func (e *Evaluator) evalRef(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, sw := splitSwitches(tokenizeArgs(ast.Arguments), "d")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("REF", 1, 0))
		return Resolved(RefErrorText), nil
	}
	name, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}

	req := RefRequest{
		Bookmark:           name,
		Separator:          sw['d'],
		Footnote:           sw.has('f'),
		Hyperlink:          sw.has('h'),
		ParagraphNumber:    sw.has('n'),
		RelativeNumber:     sw.has('r'),
		FullContext:        sw.has('w'),
		RelativePosition:   sw.has('p'),
		SuppressNonNumeric: sw.has('t'),
	}

	text, found := "", false
	if e.ec.refResolver != nil {
		r, err := e.ec.refResolver.ResolveRef(ctx, req, e.ec)
		if err != nil {
			err = NewResolverError("ref", name, err)
			e.ec.logger.WithField("bookmark", name).Error("ref resolver failed: %v", err)
			return FieldEvalResult{}, err
		}
		if r.Found {
			text, found = r.Text, true
			if req.SuppressNonNumeric {
				text = stripNonNumeric(text)
			}
		}
	}
	if !found {
		buf, ok := e.ec.Bookmark(name)
		if !ok {
			return Resolved(RefErrorText), nil
		}
		text = buf.ToPlainText()
		if req.RelativePosition {
			pos := e.relativePosition(name)
			if req.ParagraphNumber || req.RelativeNumber || req.FullContext {
				text += " " + pos
			} else {
				text = pos
			}
		}
	}

	if req.Hyperlink {
		e.ec.pendingHyperlink = &Hyperlink{Anchor: name}
	}
	if req.Footnote {
		e.ec.footnoteRefs = append(e.ec.footnoteRefs, name)
	}
	return Resolved(e.ec.FormatValue(StringValue(text), ast.Formats, "")), nil
}

// relativePosition says whether a bookmark lies above or below the current paragraph.
func (e *Evaluator) relativePosition(name string) string {
	if pos, ok := e.ec.bookmarkPosition(name); ok && pos > e.ec.docOrder {
		return "below"
	}
	return "above"
}

// stripNonNumeric keeps digits and the delimiters used in paragraph numbers.
func stripNonNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || strings.ContainsRune(".-:,()", r) {
			return r
		}
		return -1
	}, s)
}

func (e *Evaluator) evalDocVariable(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, _ := splitSwitches(tokenizeArgs(ast.Arguments), "")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("DOCVARIABLE", 1, 0))
		return Resolved(DocVariableErrorText), nil
	}
	name, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}

	if src := e.ec.docVariableSource; src != nil {
		buf, ok, err := src.DocVariableBuffer(ctx, name)
		if err != nil {
			err = NewResolverError("docvariable", name, err)
			e.ec.logger.WithField("variable", name).Error("doc-variable source failed: %v", err)
			return FieldEvalResult{}, err
		}
		if ok {
			e.ec.setDocVariableBuffer(name, buf)
			return Resolved(e.ec.FormatValue(StringValue(buf.ToPlainText()), ast.Formats, "")), nil
		}
	}

	v, ok, err := e.ec.resolve(ctx, name, ResolveDocVariable)
	if err != nil {
		return FieldEvalResult{}, err
	}
	text := DocVariableErrorText
	if ok {
		text = e.ec.FormatValue(v, ast.Formats, "")
	}
	e.ec.setDocVariableBuffer(name, NodeBufferFromText(text, nil))
	return Resolved(text), nil
}

func (e *Evaluator) evalDocProperty(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, _ := splitSwitches(tokenizeArgs(ast.Arguments), "")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("DOCPROPERTY", 1, 0))
		return Resolved(DocPropertyErrorText), nil
	}
	name, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}

	v, ok, err := e.ec.resolve(ctx, name, ResolveDocumentProperty)
	if err != nil {
		return FieldEvalResult{}, err
	}
	if !ok {
		return Resolved(DocPropertyErrorText), nil
	}
	return Resolved(e.ec.FormatValue(v, ast.Formats, e.ec.Culture().ShortDate)), nil
}

func (e *Evaluator) evalMergeField(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, sw := splitSwitches(tokenizeArgs(ast.Arguments), "bf")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("MERGEFIELD", 1, 0))
		return Resolved(""), nil
	}
	name, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}
	if sw.has('m') {
		if column, ok := e.ec.MergeAlias(name); ok {
			name = column
		}
	}

	v, ok, err := e.ec.resolve(ctx, name, ResolveMergeField)
	if err != nil {
		return FieldEvalResult{}, err
	}
	if !ok {
		return Resolved(""), nil
	}

	text := e.ec.FormatValue(v, ast.Formats, "")
	if sw.has('v') {
		text = vertical(text)
	}
	if text != "" {
		text = sw['b'] + text + sw['f']
	}
	return Resolved(text), nil
}

// vertical stacks the characters of s one per line.
func vertical(s string) string {
	runes := []rune(s)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, "\n")
}

func (e *Evaluator) evalSeq(ctx context.Context, ast FieldAst, instr FieldInstruction) (FieldEvalResult, error) {
	positional, sw := splitSwitches(tokenizeArgs(ast.Arguments), "rs")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("SEQ", 1, 0))
		return Resolved(""), nil
	}
	id, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}

	seqs := e.ec.sequences
	var value int
	switch {
	case sw.has('c'):
		value = seqs.Get(id)
	case sw.has('r'):
		if n, err := strconv.Atoi(strings.TrimSpace(sw['r'])); err == nil {
			seqs.Set(id, n)
			value = n
		} else {
			value = seqs.Next(id)
		}
	default:
		resynced := false
		if len(positional) > 1 {
			bookmark, err := e.resolveName(ctx, positional[1])
			if err != nil {
				return FieldEvalResult{}, err
			}
			if buf, ok := e.ec.Bookmark(bookmark); ok {
				text := strings.TrimSpace(buf.ToPlainText())
				if n, ok := ParseNumberWithFallback(text, e.ec.Culture(), e.ec.config.InvariantNumberFallback); ok {
					value = int(math.Floor(n))
					seqs.Set(id, value)
					resynced = true
				}
			}
		}
		if !resynced {
			if level, err := strconv.Atoi(strings.TrimSpace(sw['s'])); sw.has('s') && err == nil {
				seqs.resetForHeading(id, level, e.ec.headingMark(level))
			}
			value = seqs.Next(id)
		}
	}
	e.ec.setNumberedItem(id, value)

	// \h hides the number unless a \* switch asks for it to be shown.
	if sw.has('h') && !strings.Contains(instr.Text, `\*`) {
		return Resolved(""), nil
	}
	return Resolved(e.ec.FormatValue(NumberValue(float64(value)), ast.Formats, "")), nil
}

func (e *Evaluator) evalAsk(ctx context.Context, ast FieldAst, _ FieldInstruction) (FieldEvalResult, error) {
	positional, sw := splitSwitches(tokenizeArgs(ast.Arguments), "d")
	if len(positional) == 0 {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError("ASK", 2, 0))
		return Resolved(""), nil
	}
	bookmark, err := e.resolveName(ctx, positional[0])
	if err != nil {
		return FieldEvalResult{}, err
	}
	if sw.has('o') {
		if _, ok := e.ec.Bookmark(bookmark); ok {
			return Resolved(""), nil
		}
	}

	prompt := ""
	if len(positional) > 1 {
		if prompt, err = e.resolveName(ctx, positional[1]); err != nil {
			return FieldEvalResult{}, err
		}
	}
	def, err := e.expandNested(ctx, sw['d'])
	if err != nil {
		return FieldEvalResult{}, err
	}

	response := def
	if p := e.ec.prompter; p != nil {
		answer, ok, err := p.Prompt(ctx, bookmark, prompt, def)
		if err != nil {
			err = NewResolverError("prompt", bookmark, err)
			e.ec.logger.WithField("bookmark", bookmark).Error("prompt failed: %v", err)
			return FieldEvalResult{}, err
		}
		if ok {
			response = answer
		}
	}
	e.ec.SetBookmarkText(bookmark, response)
	return Resolved(""), nil
}
