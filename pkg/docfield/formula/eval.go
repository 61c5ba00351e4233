package formula

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSyntax reports a formula that cannot be tokenized or parsed
	ErrSyntax = errors.New("syntax error")
	// ErrUndefined reports a name, bookmark or function that has no value
	ErrUndefined = errors.New("undefined")
	// ErrDivideByZero reports division by zero
	ErrDivideByZero = errors.New("divide by zero")
)

// Env connects a formula to the document it is evaluated in.
type Env struct {
	// ListSeparator separates function arguments; defaults to ','
	ListSeparator rune
	// DecimalSeparator marks fractions in numeric literals; defaults to '.'
	DecimalSeparator rune
	// Functions defaults to DefaultRegistry()
	Functions *Registry
	// NestedField evaluates a {field} embedded in the formula
	NestedField func(ctx context.Context, instruction string) (float64, error)
	// Identifier resolves a bookmark name to a number
	Identifier func(ctx context.Context, name string) (float64, bool, error)
	// Tables resolves ABOVE, LEFT, A1 and A1:B3 references when set
	Tables TableResolver
}

// Evaluator parses and evaluates formulas against an Env
type Evaluator struct {
	env Env
}

// New creates an evaluator, filling in Env defaults
func New(env Env) *Evaluator {
	if env.ListSeparator == 0 {
		env.ListSeparator = ','
	}
	if env.DecimalSeparator == 0 {
		env.DecimalSeparator = '.'
	}
	if env.Functions == nil {
		env.Functions = DefaultRegistry()
	}
	return &Evaluator{env: env}
}

// Parse parses a formula into an expression tree
func (e *Evaluator) Parse(text string) (Expr, error) {
	tokens, err := Tokenize(text, e.env.ListSeparator, e.env.DecimalSeparator)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, fmt.Errorf("%w: empty formula", ErrSyntax)
	}

	parser := &Parser{tokens: tokens}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := parser.current(); tok.Type != TokenEOF {
		return nil, fmt.Errorf("%w: unexpected %s %q at position %d", ErrSyntax, tok.Type, tok.Value, tok.Pos)
	}
	return expr, nil
}

// Evaluate computes the value of a parsed expression
func (e *Evaluator) Evaluate(ctx context.Context, expr Expr) (float64, error) {
	values, err := expr.eval(ctx, e)
	if err != nil {
		return 0, err
	}
	result, err := scalar(values)
	if err != nil {
		return 0, err
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrUndefined)
	}
	return result, nil
}

// EvaluateString parses and evaluates text in one step
func (e *Evaluator) EvaluateString(ctx context.Context, text string) (float64, error) {
	expr, err := e.Parse(text)
	if err != nil {
		return 0, err
	}
	return e.Evaluate(ctx, expr)
}

func (n *NumberNode) eval(context.Context, *Evaluator) ([]float64, error) {
	return []float64{n.Value}, nil
}

func (n *IdentifierNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	if e.env.Identifier == nil {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, n.Name)
	}
	v, ok, err := e.env.Identifier(ctx, n.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, n.Name)
	}
	return []float64{v}, nil
}

func (n *CellNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	if e.env.Tables != nil {
		return e.env.Tables.ResolveTable(ctx, TableRef{From: n.Cell, To: n.Cell})
	}
	return (&IdentifierNode{Name: n.Name}).eval(ctx, e)
}

func (n *RangeNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	if e.env.Tables == nil {
		return nil, fmt.Errorf("%w: %s:%s outside a table", ErrUndefined, n.From, n.To)
	}
	return e.env.Tables.ResolveTable(ctx, TableRef{From: n.From, To: n.To})
}

func (n *DirectionNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	if e.env.Tables == nil {
		return nil, fmt.Errorf("%w: %s outside a table", ErrUndefined, n.Direction)
	}
	return e.env.Tables.ResolveTable(ctx, TableRef{Direction: n.Direction})
}

func (n *FieldNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	if e.env.NestedField == nil {
		return nil, fmt.Errorf("%w: nested field {%s}", ErrUndefined, n.Instruction)
	}
	v, err := e.env.NestedField(ctx, n.Instruction)
	if err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

func (n *UnaryOpNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	values, err := n.Operand.eval(ctx, e)
	if err != nil {
		return nil, err
	}
	x, err := scalar(values)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		return []float64{-x}, nil
	case "%":
		return []float64{x / 100}, nil
	default:
		return []float64{x}, nil
	}
}

func (n *BinaryOpNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	lv, err := n.Left.eval(ctx, e)
	if err != nil {
		return nil, err
	}
	rv, err := n.Right.eval(ctx, e)
	if err != nil {
		return nil, err
	}
	l, err := scalar(lv)
	if err != nil {
		return nil, err
	}
	r, err := scalar(rv)
	if err != nil {
		return nil, err
	}

	var result float64
	switch n.Operator {
	case "+":
		result = l + r
	case "-":
		result = l - r
	case "*":
		result = l * r
	case "/":
		if r == 0 {
			return nil, ErrDivideByZero
		}
		result = l / r
	case "^":
		result = math.Pow(l, r)
	case "=":
		result = boolValue(l == r)
	case "<>":
		result = boolValue(l != r)
	case "<":
		result = boolValue(l < r)
	case "<=":
		result = boolValue(l <= r)
	case ">":
		result = boolValue(l > r)
	case ">=":
		result = boolValue(l >= r)
	default:
		return nil, fmt.Errorf("%w: unknown operator %s", ErrSyntax, n.Operator)
	}
	return []float64{result}, nil
}

func (n *FunctionCallNode) eval(ctx context.Context, e *Evaluator) ([]float64, error) {
	fn, ok := e.env.Functions.Get(n.Name)
	if !ok {
		return nil, fmt.Errorf("%w: function %s", ErrUndefined, n.Name)
	}

	args := make([][]float64, len(n.Args))
	for i, arg := range n.Args {
		values, err := arg.eval(ctx, e)
		if err != nil {
			if n.Name == "DEFINED" && ctx.Err() == nil {
				return []float64{0}, nil
			}
			return nil, err
		}
		args[i] = values
	}

	result, err := fn.Call(args)
	if err != nil {
		return nil, err
	}
	return []float64{result}, nil
}
