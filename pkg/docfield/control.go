package docfield

import (
	"context"
	"strings"
	"unicode/utf8"
)

// comparisonOperators are the operators IF and COMPARE understand.
var comparisonOperators = []string{"<=", ">=", "<>", "=", "<", ">"}

func isComparisonOperator(s string) bool {
	for _, op := range comparisonOperators {
		if s == op {
			return true
		}
	}
	return false
}

// operand is one side of a comparison, with its numeric reading if any.
type operand struct {
	text  string
	num   float64
	isNum bool
}

func textOperand(s string, c *Culture, invariant bool) operand {
	n, ok := ParseNumberWithFallback(s, c, invariant)
	return operand{text: s, num: n, isNum: ok}
}

func (e *Evaluator) operand(v FieldValue) operand {
	if n, ok := v.Number(); ok {
		return operand{text: e.ec.formatter().text(v, ""), num: n, isNum: true}
	}
	if s, ok := v.Text(); ok {
		return textOperand(s, e.ec.Culture(), e.ec.config.InvariantNumberFallback)
	}
	return operand{text: e.ec.formatter().text(v, "")}
}

// CompareText evaluates `left op right` the way IF and COMPARE do. ok is
// false when op is not a comparison operator.
func CompareText(left, op, right string, c *Culture, invariant bool) (result, ok bool) {
	return compareOperands(textOperand(left, c, invariant), op, textOperand(right, c, invariant))
}

func compareOperands(l operand, op string, r operand) (bool, bool) {
	if !isComparisonOperator(op) {
		return false, false
	}

	if op == "=" || op == "<>" {
		matched, wildcard := false, false
		switch {
		case hasWildcard(r.text):
			matched, wildcard = MatchWildcard(l.text, r.text), true
		case hasWildcard(l.text):
			matched, wildcard = MatchWildcard(r.text, l.text), true
		}
		if wildcard {
			return matched == (op == "="), true
		}
	}

	var cmp int
	if l.isNum && r.isNum {
		switch {
		case l.num < r.num:
			cmp = -1
		case l.num > r.num:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(l.text, r.text)
	}

	switch op {
	case "=":
		return cmp == 0, true
	case "<>":
		return cmp != 0, true
	case "<":
		return cmp < 0, true
	case "<=":
		return cmp <= 0, true
	case ">":
		return cmp > 0, true
	default:
		return cmp >= 0, true
	}
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// MatchWildcard reports whether s matches pattern, where * matches any run
// of characters and ? exactly one. Matching is case-sensitive.
func MatchWildcard(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	p, rest := utf8.DecodeRuneInString(pattern)
	switch p {
	case '*':
		for i := 0; ; {
			if MatchWildcard(s[i:], pattern[rest:]) {
				return true
			}
			if i >= len(s) {
				return false
			}
			_, n := utf8.DecodeRuneInString(s[i:])
			i += n
		}
	case '?':
		if s == "" {
			return false
		}
		_, n := utf8.DecodeRuneInString(s)
		return MatchWildcard(s[n:], pattern[rest:])
	default:
		c, n := utf8.DecodeRuneInString(s)
		if s == "" || c != p {
			return false
		}
		return MatchWildcard(s[n:], pattern[rest:])
	}
}

// splitComparison finds `left op right` at the start of tokens. The operator
// may be glued to an operand, as in `x=1` or `x =1`. An unquoted second token
// that is not a known operator is still taken as the operator, so the
// comparison fails instead of shifting the branches. The split depends only on
// the first three tokens.
func splitComparison(tokens []argToken) (left argToken, op string, right argToken, rest []argToken, ok bool) {
	if len(tokens) >= 3 && !tokens[1].Quoted && isComparisonOperator(tokens[1].Text) {
		return tokens[0], tokens[1].Text, tokens[2], tokens[3:], true
	}
	if len(tokens) >= 1 && !tokens[0].Quoted {
		t := tokens[0].Text
		if i, o := findOperator(t); i > 0 {
			left = argToken{Text: t[:i]}
			if tail := t[i+len(o):]; tail != "" {
				return left, o, argToken{Text: tail}, tokens[1:], true
			}
			if len(tokens) >= 2 {
				return left, o, tokens[1], tokens[2:], true
			}
			return argToken{}, "", argToken{}, nil, false
		}
	}
	if len(tokens) >= 2 && !tokens[1].Quoted {
		t := tokens[1].Text
		if i, o := findOperator(t); i == 0 && len(t) > len(o) {
			return tokens[0], o, argToken{Text: t[len(o):]}, tokens[2:], true
		}
	}
	if len(tokens) >= 3 && !tokens[1].Quoted {
		return tokens[0], tokens[1].Text, tokens[2], tokens[3:], true
	}
	return argToken{}, "", argToken{}, nil, false
}

// comparisonLength reports how many tokens the comparison at the start of
// tokens spans.
func comparisonLength(tokens []argToken) (int, bool) {
	_, _, _, rest, ok := splitComparison(tokens)
	if !ok {
		return 0, false
	}
	return len(tokens) - len(rest), true
}

func isOperatorByte(c byte) bool {
	return c == '<' || c == '>' || c == '='
}

// findOperator returns the index of the first run of operator characters
// outside braces, and the run itself. The run may not be a known operator,
// as in `=<`.
func findOperator(s string) (int, string) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '<', '>', '=':
			if depth != 0 {
				continue
			}
			j := i + 1
			for j < len(s) && isOperatorByte(s[j]) {
				j++
			}
			return i, s[i:j]
		}
	}
	return -1, ""
}

// ifPositional returns the positional tokens of an IF instruction, the way
// evalIf sees them.
func ifPositional(text string) []argToken {
	positional, _ := splitSwitches(tokenizeArgs(Parse(text).Arguments), "")
	return positional
}

// condition evaluates the comparison at the start of tokens.
func (e *Evaluator) condition(ctx context.Context, fieldType string, tokens []argToken) (cond bool, rest []argToken, ok bool, err error) {
	left, op, right, rest, ok := splitComparison(tokens)
	if !ok {
		e.ec.logger.Warn("%v", NewMalformedArgumentsError(fieldType, 3, len(tokens)))
		return false, nil, false, nil
	}
	lv, err := e.resolveValue(ctx, left)
	if err != nil {
		return false, nil, false, err
	}
	rv, err := e.resolveValue(ctx, right)
	if err != nil {
		return false, nil, false, err
	}
	result, known := compareOperands(e.operand(lv), op, e.operand(rv))
	if !known {
		e.ec.logger.Warn("unknown comparison operator %q in %s", op, fieldType)
	}
	return result, rest, true, nil
}

// EvaluateIfCondition evaluates only the comparison of an IF instruction.
// ok is false when the instruction has no usable comparison.
func (e *Evaluator) EvaluateIfCondition(ctx context.Context, text string) (cond, ok bool, err error) {
	if Parse(text).FieldType != "IF" {
		return false, false, nil
	}
	cond, _, ok, err = e.condition(ctx, "IF", ifPositional(text))
	return cond, ok, err
}

func (e *Evaluator) evalIf(ctx context.Context, ast FieldAst) (FieldEvalResult, error) {
	positional, _ := splitSwitches(tokenizeArgs(ast.Arguments), "")
	cond, rest, ok, err := e.condition(ctx, "IF", positional)
	if err != nil {
		return FieldEvalResult{}, err
	}
	if !ok || len(rest) == 0 {
		if ok {
			e.ec.logger.Warn("%v", NewMalformedArgumentsError("IF", 4, len(positional)))
		}
		return Resolved(IfErrorText), nil
	}

	branch := argToken{Quoted: true}
	if cond {
		branch = rest[0]
	} else if len(rest) > 1 {
		branch = rest[1]
	}
	v, err := e.resolveValue(ctx, branch)
	if err != nil {
		return FieldEvalResult{}, err
	}
	return Resolved(e.ec.FormatValue(v, ast.Formats, "")), nil
}

func (e *Evaluator) evalCompare(ctx context.Context, ast FieldAst) (FieldEvalResult, error) {
	positional, _ := splitSwitches(tokenizeArgs(ast.Arguments), "")
	cond, _, ok, err := e.condition(ctx, ast.FieldType, positional)
	if err != nil {
		return FieldEvalResult{}, err
	}
	if !ok {
		return Resolved(""), nil
	}

	switch ast.FieldType {
	case "COMPARE":
		n := 0.0
		if cond {
			n = 1
		}
		return Resolved(e.ec.FormatValue(NumberValue(n), ast.Formats, "")), nil
	default:
		// SKIPIF and NEXTIF
		if cond {
			return Skipped(), nil
		}
		return Resolved(""), nil
	}
}
