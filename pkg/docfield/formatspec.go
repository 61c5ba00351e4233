package docfield

import (
	"fmt"
	"strings"
)

// FormatSpec is one \*, \# or \@ switch of an instruction.
// Implementations: TextTransform, NumericFormat, DateTimeFormat.
type FormatSpec interface {
	formatSpec()
	fmt.Stringer
}

// TextTransformKind enumerates the \* switch arguments.
type TextTransformKind int

const (
	TransformCaps TextTransformKind = iota
	TransformFirstCap
	TransformUpper
	TransformLower
	TransformAlphabetic
	TransformArabic
	TransformArabicDash
	TransformCardText
	TransformDollarText
	TransformHex
	TransformOrdText
	TransformOrdinal
	TransformRoman
	TransformCharFormat
	TransformMergeFormat
)

var transformNames = map[string]TextTransformKind{
	"caps":        TransformCaps,
	"firstcap":    TransformFirstCap,
	"upper":       TransformUpper,
	"lower":       TransformLower,
	"alphabetic":  TransformAlphabetic,
	"arabic":      TransformArabic,
	"arabicdash":  TransformArabicDash,
	"cardtext":    TransformCardText,
	"dollartext":  TransformDollarText,
	"hex":         TransformHex,
	"ordtext":     TransformOrdText,
	"ordinal":     TransformOrdinal,
	"roman":       TransformRoman,
	"charformat":  TransformCharFormat,
	"mergeformat": TransformMergeFormat,
}

func (k TextTransformKind) String() string {
	for name, kind := range transformNames {
		if kind == k {
			return strings.ToUpper(name)
		}
	}
	return "CAPS"
}

// TextTransform is a \* switch. Name keeps the spelling used in the
// instruction, which decides letter case for ALPHABETIC, ROMAN and HEX.
type TextTransform struct {
	Kind TextTransformKind
	Name string
}

func (TextTransform) formatSpec() {}

func (t TextTransform) String() string {
	return `\* ` + t.Name
}

// UpperVariant reports whether the switch was spelled in upper case (ROMAN vs roman).
func (t TextTransform) UpperVariant() bool {
	for _, r := range t.Name {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return true
}

// IsMergeFormat reports whether the transform only controls result formatting.
func (t TextTransform) IsMergeFormat() bool {
	return t.Kind == TransformCharFormat || t.Kind == TransformMergeFormat
}

// NewTextTransform maps a switch argument to its transform; unknown names yield Caps.
func NewTextTransform(arg string) TextTransform {
	name := strings.TrimSpace(unquote(strings.TrimSpace(arg)))
	kind, ok := transformNames[strings.ToLower(name)]
	if !ok {
		kind = TransformCaps
	}
	return TextTransform{Kind: kind, Name: name}
}

// NumericTokenKind enumerates the elements of a \# picture.
type NumericTokenKind int

const (
	NumLiteral NumericTokenKind = iota
	NumItemRef
	NumZero
	NumDigit
	NumDrop
	NumDecimal
	NumGroup
	NumMinus
	NumPlus
	NumPercent
)

// NumericToken is one element of a numeric picture section.
type NumericToken struct {
	Kind NumericTokenKind
	Text string
}

// NumericFormat is a \# switch with up to three sections.
// Negative and Zero are nil when the picture does not define them.
type NumericFormat struct {
	Picture  string
	Positive []NumericToken
	Negative []NumericToken
	Zero     []NumericToken
}

func (NumericFormat) formatSpec() {}

func (n NumericFormat) String() string {
	return `\# "` + n.Picture + `"`
}

// NewNumericFormat tokenizes a numeric picture.
func NewNumericFormat(arg string) NumericFormat {
	picture := unquote(strings.TrimSpace(arg))
	sections := splitUnquoted(picture, ';', 3)
	nf := NumericFormat{Picture: picture}
	for i, sec := range sections {
		tokens := tokenizeNumericSection(sec)
		switch i {
		case 0:
			nf.Positive = tokens
		case 1:
			nf.Negative = tokens
		case 2:
			nf.Zero = tokens
		}
	}
	return nf
}

func tokenizeNumericSection(s string) []NumericToken {
	tokens := []NumericToken{}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, NumericToken{Kind: NumLiteral, Text: literal.String()})
			literal.Reset()
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch r {
		case '\'', '"', '`':
			end := indexRune(rs, i+1, r)
			if end < 0 {
				end = len(rs)
			}
			text := string(rs[i+1 : min(end, len(rs))])
			flush()
			if r == '`' {
				tokens = append(tokens, NumericToken{Kind: NumItemRef, Text: text})
			} else {
				tokens = append(tokens, NumericToken{Kind: NumLiteral, Text: text})
			}
			i = end
			continue
		case '0':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumZero, Text: "0"})
		case '#':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumDigit, Text: "#"})
		case 'x', 'X':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumDrop, Text: string(r)})
		case '.':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumDecimal, Text: "."})
		case ',':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumGroup, Text: ","})
		case '-':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumMinus, Text: "-"})
		case '+':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumPlus, Text: "+"})
		case '%':
			flush()
			tokens = append(tokens, NumericToken{Kind: NumPercent, Text: "%"})
		default:
			literal.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// DateTokenKind enumerates the elements of a \@ picture.
type DateTokenKind int

const (
	DateLiteral DateTokenKind = iota
	DateItemRef
	DateMonth
	DateDay
	DateYear
	DateHour12
	DateHour24
	DateMinute
	DateSecond
	DateAMPM
)

// DateToken is one element of a date-time picture. Width is the run length
// (MMMM has width 4); Text holds literals, item labels and the AM/PM spelling.
type DateToken struct {
	Kind  DateTokenKind
	Width int
	Text  string
}

// DateTimeFormat is a \@ switch.
type DateTimeFormat struct {
	Picture string
	Tokens  []DateToken
}

func (DateTimeFormat) formatSpec() {}

func (d DateTimeFormat) String() string {
	return `\@ "` + d.Picture + `"`
}

// NewDateTimeFormat tokenizes a date-time picture.
func NewDateTimeFormat(arg string) DateTimeFormat {
	picture := unquote(strings.TrimSpace(arg))
	return DateTimeFormat{Picture: picture, Tokens: tokenizeDatePicture(picture)}
}

func tokenizeDatePicture(s string) []DateToken {
	tokens := []DateToken{}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, DateToken{Kind: DateLiteral, Text: literal.String()})
			literal.Reset()
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		if r == '\'' || r == '`' {
			end := indexRune(rs, i+1, r)
			if end < 0 {
				end = len(rs)
			}
			flush()
			text := string(rs[i+1 : end])
			if r == '`' {
				tokens = append(tokens, DateToken{Kind: DateItemRef, Text: text})
			} else {
				tokens = append(tokens, DateToken{Kind: DateLiteral, Text: text})
			}
			i = end + 1
			continue
		}
		if i+5 <= len(rs) && strings.EqualFold(string(rs[i:i+5]), "AM/PM") {
			flush()
			tokens = append(tokens, DateToken{Kind: DateAMPM, Width: 5, Text: string(rs[i : i+5])})
			i += 5
			continue
		}
		j := i
		for j < len(rs) && rs[j] == r {
			j++
		}
		width := j - i
		var kind DateTokenKind
		switch r {
		case 'M':
			kind = DateMonth
		case 'd':
			kind = DateDay
		case 'y', 'Y':
			kind = DateYear
		case 'h':
			kind = DateHour12
		case 'H':
			kind = DateHour24
		case 'm':
			kind = DateMinute
		case 's', 'S':
			kind = DateSecond
		default:
			literal.WriteString(string(rs[i:j]))
			i = j
			continue
		}
		flush()
		switch kind {
		case DateMonth, DateDay:
			width = min(width, 4)
		case DateYear:
			if width <= 2 {
				width = 2
			} else {
				width = 4
			}
		default:
			width = min(width, 2)
		}
		tokens = append(tokens, DateToken{Kind: kind, Width: width})
		i = j
	}
	flush()
	return tokens
}

func indexRune(rs []rune, from int, r rune) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// splitUnquoted splits s on sep outside single or double quotes, into at most n parts.
func splitUnquoted(s string, sep rune, n int) []string {
	var parts []string
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == sep && len(parts) < n-1:
			parts = append(parts, s[start:i])
			start = i + len(string(sep))
		}
	}
	return append(parts, s[start:])
}
