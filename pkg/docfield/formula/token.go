package formula

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token represents a token in a formula
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

type TokenType int

const (
	TokenIdentifier TokenType = iota
	TokenNumber
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenSeparator
	TokenColon
	TokenField
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenIdentifier:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	case TokenLeftParen:
		return "("
	case TokenRightParen:
		return ")"
	case TokenSeparator:
		return "separator"
	case TokenColon:
		return ":"
	case TokenField:
		return "field"
	default:
		return "EOF"
	}
}

var twoCharOperators = []string{"<=", ">=", "<>"}

// Tokenize splits a formula into tokens. listSep separates function
// arguments and decimalSep marks fractions in numbers.
func Tokenize(text string, listSep, decimalSep rune) ([]Token, error) {
	var tokens []Token
	pos := 0

	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])

		if unicode.IsSpace(r) {
			pos += size
			continue
		}

		switch {
		case r == '{':
			end := matchingBrace(text, pos)
			if end < 0 {
				return nil, fmt.Errorf("%w: unbalanced '{' at position %d", ErrSyntax, pos)
			}
			tokens = append(tokens, Token{Type: TokenField, Value: text[pos+1 : end], Pos: pos})
			pos = end + 1
			continue

		case unicode.IsDigit(r) || (r == decimalSep && pos+size < len(text) && isDigitByte(text[pos+size])):
			start := pos
			seenDecimal := false
			for pos < len(text) {
				c, n := utf8.DecodeRuneInString(text[pos:])
				if unicode.IsDigit(c) {
					pos += n
					continue
				}
				if c == decimalSep && !seenDecimal {
					seenDecimal = true
					pos += n
					continue
				}
				break
			}
			value := text[start:pos]
			if decimalSep != '.' {
				value = strings.Replace(value, string(decimalSep), ".", 1)
			}
			tokens = append(tokens, Token{Type: TokenNumber, Value: value, Pos: start})
			continue

		case unicode.IsLetter(r) || r == '_':
			start := pos
			for pos < len(text) {
				c, n := utf8.DecodeRuneInString(text[pos:])
				if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
					break
				}
				pos += n
			}
			tokens = append(tokens, Token{Type: TokenIdentifier, Value: text[start:pos], Pos: start})
			continue

		case r == listSep:
			tokens = append(tokens, Token{Type: TokenSeparator, Value: string(r), Pos: pos})

		case r == '(':
			tokens = append(tokens, Token{Type: TokenLeftParen, Value: "(", Pos: pos})

		case r == ')':
			tokens = append(tokens, Token{Type: TokenRightParen, Value: ")", Pos: pos})

		case r == ':':
			tokens = append(tokens, Token{Type: TokenColon, Value: ":", Pos: pos})

		default:
			matched := false
			for _, op := range twoCharOperators {
				if strings.HasPrefix(text[pos:], op) {
					tokens = append(tokens, Token{Type: TokenOperator, Value: op, Pos: pos})
					pos += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.ContainsRune("+-*/^=<>%", r) {
				tokens = append(tokens, Token{Type: TokenOperator, Value: string(r), Pos: pos})
			} else {
				return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, r, pos)
			}
		}
		pos += size
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: len(text)})
	return tokens, nil
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

// matchingBrace returns the index of the brace closing the one at open, or -1.
func matchingBrace(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
