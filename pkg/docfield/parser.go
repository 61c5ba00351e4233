package docfield

import (
	"strings"
)

// FieldAst is the parsed form of an instruction. It is rebuilt on every
// evaluation; nothing caches it.
type FieldAst struct {
	// FieldType is the upper-cased first token, "=" for formulas, "" for an empty instruction
	FieldType string
	// Arguments is the rest of the main segment plus every switch that is not \*, \# or \@
	Arguments string
	Formats   []FormatSpec
}

// TextTransforms returns the \* switches in order.
func (a FieldAst) TextTransforms() []TextTransform {
	var out []TextTransform
	for _, f := range a.Formats {
		if t, ok := f.(TextTransform); ok {
			out = append(out, t)
		}
	}
	return out
}

// HasTransform reports whether a \* switch of the given kind is present.
func (a FieldAst) HasTransform(kind TextTransformKind) bool {
	for _, t := range a.TextTransforms() {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

// OnlyMergeFormats reports whether every format switch is CHARFORMAT or MERGEFORMAT.
func (a FieldAst) OnlyMergeFormats() bool {
	for _, f := range a.Formats {
		t, ok := f.(TextTransform)
		if !ok || !t.IsMergeFormat() {
			return false
		}
	}
	return true
}

// Parse splits an instruction into field type, arguments and format switches.
// Parse never fails: malformed input degrades to whatever could be recognised.
func Parse(text string) FieldAst {
	segments := splitSwitchSegments(text)
	ast := FieldAst{}

	main := strings.TrimSpace(segments[0])
	switch {
	case main == "":
	case strings.HasPrefix(main, "="):
		ast.FieldType = "="
		ast.Arguments = strings.TrimSpace(main[1:])
	default:
		end := strings.IndexFunc(main, isSpaceRune)
		if end < 0 {
			ast.FieldType = strings.ToUpper(main)
		} else {
			ast.FieldType = strings.ToUpper(main[:end])
			ast.Arguments = strings.TrimSpace(main[end:])
		}
	}

	var extra []string
	for _, seg := range segments[1:] {
		body := strings.TrimRight(seg[1:], " \t\r\n")
		if body == "" {
			continue
		}
		switch body[0] {
		case '*':
			ast.Formats = append(ast.Formats, NewTextTransform(body[1:]))
		case '#':
			ast.Formats = append(ast.Formats, NewNumericFormat(body[1:]))
		case '@':
			ast.Formats = append(ast.Formats, NewDateTimeFormat(body[1:]))
		default:
			extra = append(extra, `\`+body)
		}
	}
	if len(extra) > 0 {
		parts := append([]string{}, extra...)
		if ast.Arguments != "" {
			parts = append([]string{ast.Arguments}, extra...)
		}
		ast.Arguments = strings.Join(parts, " ")
	}
	return ast
}

// splitSwitchSegments cuts text at every backslash that is outside quotes and braces.
// The first segment is the main one; every further segment starts with its backslash.
func splitSwitchSegments(text string) []string {
	var segments []string
	start := 0
	inQuote := false
	depth := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inQuote:
			if c == '\\' && i+1 < len(text) && text[i+1] == '"' {
				i++
			} else if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case c == '\\' && depth == 0:
			segments = append(segments, text[start:i])
			start = i
		}
	}
	return append(segments, text[start:])
}

// argToken is one argument produced by tokenizeArgs.
type argToken struct {
	Text string
	// Quoted is set when the token started with a double quote
	Quoted bool
}

// IsSwitch reports whether the token is an unquoted backslash switch such as \h.
func (t argToken) IsSwitch() bool {
	return !t.Quoted && len(t.Text) >= 2 && t.Text[0] == '\\'
}

// tokenizeArgs splits arguments on whitespace. Quoted runs (with \" escapes)
// and balanced {...} runs are kept as single tokens; quotes are removed,
// braces are kept. "" yields an explicit empty token.
func tokenizeArgs(s string) []argToken {
	var tokens []argToken
	var cur strings.Builder
	has := false
	quoted := false

	emit := func() {
		if has {
			tokens = append(tokens, argToken{Text: cur.String(), Quoted: quoted})
		}
		cur.Reset()
		has = false
		quoted = false
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpaceByte(c):
			emit()
			i++
		case c == '"':
			if !has {
				quoted = true
			}
			has = true
			i++
			for i < len(s) {
				if s[i] == '\\' && i+1 < len(s) && s[i+1] == '"' {
					cur.WriteByte('"')
					i += 2
					continue
				}
				if s[i] == '"' {
					i++
					break
				}
				cur.WriteByte(s[i])
				i++
			}
		case c == '{':
			end := matchBrace(s, i)
			if end < 0 {
				end = len(s) - 1
			}
			cur.WriteString(s[i : end+1])
			has = true
			i = end + 1
		default:
			cur.WriteByte(c)
			has = true
			i++
		}
	}
	emit()
	return tokens
}

// matchBrace returns the index of the brace closing the one at open, or -1.
// Quotes inside the braces are opaque.
func matchBrace(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '\\' && i+1 < len(s) && s[i+1] == '"' {
				i++
			} else if c == '"' {
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

// switchSet holds the switches of an instruction keyed by lower-case letter.
type switchSet map[byte]string

func (s switchSet) has(key byte) bool {
	_, ok := s[key]
	return ok
}

// splitSwitches separates positional tokens from switches. A switch whose
// letter appears in valued consumes the following non-switch token as its
// argument; later duplicates win.
func splitSwitches(tokens []argToken, valued string) ([]argToken, switchSet) {
	var positional []argToken
	switches := switchSet{}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !tok.IsSwitch() {
			positional = append(positional, tok)
			continue
		}
		key := lowerByte(tok.Text[1])
		value := ""
		if len(tok.Text) > 2 {
			value = tok.Text[2:]
		} else if strings.IndexByte(valued, key) >= 0 && i+1 < len(tokens) && !tokens[i+1].IsSwitch() {
			value = tokens[i+1].Text
			i++
		}
		switches[key] = value
	}
	return positional, switches
}

// unquote strips one layer of surrounding double quotes and unescapes \".
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}

// quoteToken wraps s in quotes when it would not survive tokenizeArgs as one token.
func quoteToken(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\r\n\"{}\\") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f' || r == '\u00a0'
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
