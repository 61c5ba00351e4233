package docfield

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatter applies format switches to field values under one culture.
type formatter struct {
	culture   *Culture
	invariant bool
	// item resolves `label` references to numbered items
	item func(label string) (int, bool)
}

// FormatValue renders v through formats. datePicture is the default picture
// for date-time values when no \@ switch is given.
func (ec *EvalContext) FormatValue(v FieldValue, formats []FormatSpec, datePicture string) string {
	return ec.formatter().format(v, formats, datePicture)
}

func (ec *EvalContext) formatter() formatter {
	return formatter{
		culture:   ec.Culture(),
		invariant: ec.config.InvariantNumberFallback,
		item:      ec.NumberedItem,
	}
}

func (f formatter) format(v FieldValue, formats []FormatSpec, datePicture string) string {
	cur := v
	for _, spec := range formats {
		switch s := spec.(type) {
		case NumericFormat:
			if n, ok := f.number(cur); ok {
				cur = StringValue(f.formatNumber(n, s))
			}
		case DateTimeFormat:
			if t, ok := f.dateTime(cur); ok {
				cur = StringValue(f.formatDate(t, s.Tokens))
			}
		case TextTransform:
			cur = StringValue(f.transform(f.text(cur, datePicture), cur, s))
		}
	}
	return f.text(cur, datePicture)
}

// text renders a value with the culture defaults.
func (f formatter) text(v FieldValue, datePicture string) string {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		return f.defaultNumber(n)
	case KindDateTime:
		t, _ := v.Time()
		if datePicture == "" {
			datePicture = f.culture.ShortDate
		}
		return f.formatDate(t, tokenizeDatePicture(datePicture))
	default:
		s, _ := v.Text()
		return s
	}
}

func (f formatter) defaultNumber(n float64) string {
	n = math.Round(n*1e10) / 1e10
	if n == 0 {
		n = 0
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if f.culture.DecimalSeparator != "." {
		s = strings.Replace(s, ".", f.culture.DecimalSeparator, 1)
	}
	return s
}

func (f formatter) number(v FieldValue) (float64, bool) {
	switch v.Kind() {
	case KindNumber:
		return v.Number()
	case KindString:
		s, _ := v.Text()
		return ParseNumberWithFallback(s, f.culture, f.invariant)
	default:
		return 0, false
	}
}

func (f formatter) transform(text string, v FieldValue, t TextTransform) string {
	tag := f.culture.Tag
	switch t.Kind {
	case TransformUpper:
		return cases.Upper(tag).String(text)
	case TransformLower:
		return cases.Lower(tag).String(text)
	case TransformCaps:
		return cases.Title(tag, cases.NoLower).String(text)
	case TransformFirstCap:
		return firstCap(text, tag)
	case TransformCharFormat, TransformMergeFormat:
		return text
	}

	n, ok := f.number(v)
	if !ok {
		return text
	}
	whole := int64(math.Trunc(n))
	switch t.Kind {
	case TransformArabic:
		return strconv.FormatInt(whole, 10)
	case TransformArabicDash:
		return "- " + strconv.FormatInt(whole, 10) + " -"
	case TransformCardText:
		return cardinalWords(whole)
	case TransformOrdText:
		return ordinalWords(whole)
	case TransformOrdinal:
		return ordinalSuffix(whole)
	case TransformDollarText:
		return dollarWords(n)
	case TransformHex:
		if whole < 0 {
			return text
		}
		s := strconv.FormatInt(whole, 16)
		if t.UpperVariant() {
			return strings.ToUpper(s)
		}
		return s
	case TransformRoman:
		s, ok := romanNumeral(whole)
		if !ok {
			return text
		}
		if t.UpperVariant() {
			return s
		}
		return strings.ToLower(s)
	case TransformAlphabetic:
		s, ok := alphabeticNumeral(whole)
		if !ok {
			return text
		}
		if t.UpperVariant() {
			return s
		}
		return strings.ToLower(s)
	}
	return text
}

func firstCap(text string, tag language.Tag) string {
	for i, r := range text {
		if unicode.IsLetter(r) {
			upper := cases.Upper(tag).String(string(r))
			return text[:i] + upper + text[i+utf8.RuneLen(r):]
		}
	}
	return text
}
