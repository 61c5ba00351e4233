package docfield

import (
	"context"
	"strings"
	"time"
)

type handlerFunc func(ctx context.Context, ast FieldAst, instr FieldInstruction) (FieldEvalResult, error)

// Evaluator evaluates field instructions against an EvalContext. Like the
// context it is owned by a single walk.
type Evaluator struct {
	ec       *EvalContext
	depth    int
	handlers map[string]handlerFunc
}

// NewEvaluator creates an evaluator bound to ec
func NewEvaluator(ec *EvalContext) *Evaluator {
	e := &Evaluator{ec: ec}
	e.handlers = map[string]handlerFunc{
		"=":           e.evalFormula,
		"DATE":        e.evalDate,
		"TIME":        e.evalDate,
		"CREATEDATE":  e.evalStoredDate,
		"SAVEDATE":    e.evalStoredDate,
		"PRINTDATE":   e.evalStoredDate,
		"SET":         e.evalSet,
		"REF":         e.evalRef,
		"DOCVARIABLE": e.evalDocVariable,
		"DOCPROPERTY": e.evalDocProperty,
		"MERGEFIELD":  e.evalMergeField,
		"SEQ":         e.evalSeq,
		"ASK":         e.evalAsk,
	}
	return e
}

// Context returns the evaluation context
func (e *Evaluator) Context() *EvalContext { return e.ec }

// Eval evaluates one instruction. Field-level problems become results: error
// texts, Skipped or Failed. A non-nil error means a pluggable resolver failed
// or ctx was cancelled, and the walk should stop.
func (e *Evaluator) Eval(ctx context.Context, instr FieldInstruction) (FieldEvalResult, error) {
	start := time.Now()
	ast := Parse(instr.Text)
	res, err := e.dispatch(ctx, ast, instr)

	status := res.Status.String()
	if err != nil {
		status = "error"
	}
	e.ec.metrics.observe(ast.FieldType, status, time.Since(start))
	e.ec.logger.DebugField(instr.Text, res)
	return res, err
}

func (e *Evaluator) dispatch(ctx context.Context, ast FieldAst, instr FieldInstruction) (FieldEvalResult, error) {
	if err := ctx.Err(); err != nil {
		return FieldEvalResult{}, err
	}

	switch ast.FieldType {
	case "IF":
		return e.evalIf(ctx, ast)
	case "COMPARE", "SKIPIF", "NEXTIF":
		return e.evalCompare(ctx, ast)
	}

	handler, ok := e.handlers[ast.FieldType]
	if !ok {
		if e.ec.config.ErrorOnUnsupported {
			return Failed(NewUnsupportedFieldError(ast.FieldType)), nil
		}
		e.ec.logger.Warn("unsupported field type %q, keeping cached result", ast.FieldType)
		return e.fallback(instr), nil
	}
	return handler(ctx, ast, instr)
}

// fallback keeps the cached result when there is one.
func (e *Evaluator) fallback(instr FieldInstruction) FieldEvalResult {
	if instr.CachedResult != nil {
		return UsedCache(*instr.CachedResult)
	}
	return Skipped()
}

// expandNested replaces every balanced {...} in s with the result of
// evaluating its inside as an instruction.
func (e *Evaluator) expandNested(ctx context.Context, s string) (string, error) {
	if !strings.Contains(s, "{") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '{' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			e.ec.logger.Warn("%v", NewUnbalancedBracesError(s))
			sb.WriteString(s[i:])
			break
		}
		text, err := e.evalNested(ctx, s[i+1:end])
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		i = end + 1
	}
	return sb.String(), nil
}

// evalNested evaluates an inner instruction and returns its text, empty
// when it does not resolve. Nesting deeper than MaxNestingDepth yields "".
func (e *Evaluator) evalNested(ctx context.Context, instruction string) (string, error) {
	if limit := e.ec.config.MaxNestingDepth; limit > 0 && e.depth >= limit {
		e.ec.logger.Warn("nested field depth %d exceeded at %q", limit, instruction)
		return "", nil
	}
	e.depth++
	defer func() { e.depth-- }()

	pending := e.ec.pendingHyperlink
	res, err := e.Eval(ctx, NewFieldInstruction(instruction))
	e.ec.pendingHyperlink = pending
	if err != nil {
		return "", err
	}
	switch res.Status {
	case StatusResolved, StatusUsedCache:
		return res.Text, nil
	default:
		return "", nil
	}
}

// resolveName expands nested fields in a name argument.
func (e *Evaluator) resolveName(ctx context.Context, tok argToken) (string, error) {
	s, err := e.expandNested(ctx, tok.Text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// resolveValue turns an argument into a value. Quotes were stripped by the
// tokenizer; nested fields are expanded; a bare name is then looked up
// through the resolver chain and kept literally on a miss.
func (e *Evaluator) resolveValue(ctx context.Context, tok argToken) (FieldValue, error) {
	expanded, err := e.expandNested(ctx, tok.Text)
	if err != nil {
		return FieldValue{}, err
	}
	if tok.Quoted || strings.Contains(tok.Text, "{") {
		return StringValue(expanded), nil
	}
	v, ok, err := e.ec.resolve(ctx, expanded, ResolveAny)
	if err != nil {
		return FieldValue{}, err
	}
	if ok {
		return v, nil
	}
	return StringValue(expanded), nil
}
