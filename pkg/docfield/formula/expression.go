package formula

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expr represents a node in the formula AST
type Expr interface {
	String() string
	eval(ctx context.Context, e *Evaluator) ([]float64, error)
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value float64
}

func (n *NumberNode) String() string {
	return fmt.Sprintf("Number(%s)", strconv.FormatFloat(n.Value, 'f', -1, 64))
}

// IdentifierNode represents a bookmark reference
type IdentifierNode struct {
	Name string
}

func (n *IdentifierNode) String() string {
	return fmt.Sprintf("Identifier(%s)", n.Name)
}

// CellNode represents a name that is also a valid cell reference, such as B2.
// With a table resolver it reads the cell; otherwise it is a bookmark.
type CellNode struct {
	Name string
	Cell Cell
}

func (n *CellNode) String() string {
	return fmt.Sprintf("Cell(%s)", n.Name)
}

// RangeNode represents a rectangular cell range such as A1:B3
type RangeNode struct {
	From Cell
	To   Cell
}

func (n *RangeNode) String() string {
	return fmt.Sprintf("Range(%s:%s)", n.From, n.To)
}

// DirectionNode represents ABOVE, BELOW, LEFT or RIGHT
type DirectionNode struct {
	Direction Direction
}

func (n *DirectionNode) String() string {
	return fmt.Sprintf("Direction(%s)", n.Direction)
}

// FieldNode represents a nested {field} inside the formula
type FieldNode struct {
	Instruction string
}

func (n *FieldNode) String() string {
	return fmt.Sprintf("Field(%q)", n.Instruction)
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

// UnaryOpNode represents a prefix minus/plus or a postfix percent
type UnaryOpNode struct {
	Operator string
	Operand  Expr
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

// FunctionCallNode represents a function call
type FunctionCallNode struct {
	Name string
	Args []Expr
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

var cellRegex = regexp.MustCompile(`^([A-Za-z]{1,2})([0-9]{1,4})$`)

// parseCell interprets names like "B3" as a 0-based cell position.
func parseCell(name string) (Cell, bool) {
	m := cellRegex.FindStringSubmatch(name)
	if m == nil {
		return Cell{}, false
	}
	col := 0
	for _, r := range strings.ToUpper(m[1]) {
		col = col*26 + int(r-'A'+1)
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row == 0 {
		return Cell{}, false
	}
	return Cell{Row: row - 1, Col: col - 1}, true
}

// Parser parses formula tokens into AST nodes
type Parser struct {
	tokens []Token
	pos    int
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *Parser) isOperator(ops ...string) bool {
	tok := p.current()
	if tok.Type != TokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.Value == op {
			return true
		}
	}
	return false
}

// parseExpression parses a complete expression
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseComparison()
}

// parseComparison parses comparisons (lowest precedence)
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.isOperator("=", "<>", "<", "<=", ">", ">=") {
		op := p.current().Value
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseTerm parses addition and subtraction
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.isOperator("+", "-") {
		op := p.current().Value
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseFactor parses multiplication and division
func (p *Parser) parseFactor() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.isOperator("*", "/") {
		op := p.current().Value
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parsePower parses exponentiation, which is right associative
func (p *Parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.isOperator("^") {
		p.advance()
		exponent, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryOpNode{Left: base, Operator: "^", Right: exponent}, nil
	}
	return base, nil
}

// parseUnary parses prefix minus and plus
func (p *Parser) parseUnary() (Expr, error) {
	if p.isOperator("-", "+") {
		op := p.current().Value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses trailing percent signs
func (p *Parser) parsePostfix() (Expr, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOperator("%") {
		p.advance()
		node = &UnaryOpNode{Operator: "%", Operand: node}
	}
	return node, nil
}

// parsePrimary parses numbers, names, ranges, nested fields and parentheses
func (p *Parser) parsePrimary() (Expr, error) {
	token := p.current()

	switch token.Type {
	case TokenNumber:
		p.advance()
		value, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %s", ErrSyntax, token.Value)
		}
		return &NumberNode{Value: value}, nil

	case TokenField:
		p.advance()
		return &FieldNode{Instruction: token.Value}, nil

	case TokenIdentifier:
		p.advance()
		if p.current().Type == TokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}
		if dir, ok := parseDirection(token.Value); ok {
			return &DirectionNode{Direction: dir}, nil
		}
		if cell, ok := parseCell(token.Value); ok {
			if p.current().Type == TokenColon {
				p.advance()
				end := p.current()
				to, ok := parseCell(end.Value)
				if end.Type != TokenIdentifier || !ok {
					return nil, fmt.Errorf("%w: expected cell after ':' at position %d", ErrSyntax, end.Pos)
				}
				p.advance()
				return &RangeNode{From: cell, To: to}, nil
			}
			return &CellNode{Name: token.Value, Cell: cell}, nil
		}
		return &IdentifierNode{Name: token.Value}, nil

	case TokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRightParen {
			return nil, fmt.Errorf("%w: expected ')' at position %d", ErrSyntax, p.current().Pos)
		}
		p.advance()
		return expr, nil

	default:
		return nil, fmt.Errorf("%w: unexpected %s at position %d", ErrSyntax, token.Type, token.Pos)
	}
}

// parseFunctionCall parses a function call
func (p *Parser) parseFunctionCall(name string) (Expr, error) {
	if p.current().Type != TokenLeftParen {
		return nil, fmt.Errorf("%w: expected '(' after function name", ErrSyntax)
	}
	p.advance()

	var args []Expr

	if p.current().Type == TokenRightParen {
		p.advance()
		return &FunctionCallNode{Name: strings.ToUpper(name), Args: args}, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Type == TokenSeparator {
			p.advance()
			continue
		}

		if p.current().Type == TokenRightParen {
			p.advance()
			break
		}

		return nil, fmt.Errorf("%w: expected separator or ')' in arguments of %s", ErrSyntax, name)
	}

	return &FunctionCallNode{Name: strings.ToUpper(name), Args: args}, nil
}
