package docfield

import (
	"fmt"
	"strconv"
	"strings"
)

var smallNumbers = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tensNames = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

var scaleNames = []string{"", "thousand", "million", "billion", "trillion", "quadrillion"}

var ordinalIrregular = map[string]string{
	"one": "first", "two": "second", "three": "third", "five": "fifth",
	"eight": "eighth", "nine": "ninth", "twelve": "twelfth",
}

// cardinalWords spells n in English, e.g. 123 -> "one hundred twenty-three".
func cardinalWords(n int64) string {
	if n < 0 {
		return "minus " + cardinalWords(-n)
	}
	if n < 20 {
		return smallNumbers[n]
	}
	var groups []string
	for scale := 0; n > 0; scale++ {
		chunk := n % 1000
		n /= 1000
		if chunk == 0 {
			continue
		}
		words := hundredsWords(chunk)
		if scale > 0 && scale < len(scaleNames) {
			words += " " + scaleNames[scale]
		}
		groups = append([]string{words}, groups...)
	}
	return strings.Join(groups, " ")
}

func hundredsWords(n int64) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, smallNumbers[n/100]+" hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, smallNumbers[n])
	case n%10 == 0:
		parts = append(parts, tensNames[n/10])
	default:
		parts = append(parts, tensNames[n/10]+"-"+smallNumbers[n%10])
	}
	return strings.Join(parts, " ")
}

// ordinalWords spells n as an English ordinal, e.g. 21 -> "twenty-first".
func ordinalWords(n int64) string {
	words := cardinalWords(n)
	cut := strings.LastIndexAny(words, " -")
	head, last := "", words
	if cut >= 0 {
		head, last = words[:cut+1], words[cut+1:]
	}
	if irregular, ok := ordinalIrregular[last]; ok {
		return head + irregular
	}
	if strings.HasSuffix(last, "y") {
		return head + strings.TrimSuffix(last, "y") + "ieth"
	}
	return head + last + "th"
}

// ordinalSuffix returns n with its English ordinal suffix, e.g. 22 -> "22nd".
func ordinalSuffix(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	suffix := "th"
	if abs%100 < 11 || abs%100 > 13 {
		switch abs % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.FormatInt(n, 10) + suffix
}

// dollarWords spells an amount the way cheques do: "one hundred and 05/100".
func dollarWords(f float64) string {
	cents := int64(f*100 + 0.5)
	if f < 0 {
		cents = int64(f*100 - 0.5)
	}
	whole := cents / 100
	frac := cents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%s and %02d/100", cardinalWords(whole), frac)
}

var romanTable = []struct {
	value  int64
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// romanNumeral renders n (1..32767) in upper-case Roman numerals.
func romanNumeral(n int64) (string, bool) {
	if n <= 0 || n > 32767 {
		return "", false
	}
	var sb strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			sb.WriteString(r.symbol)
			n -= r.value
		}
	}
	return sb.String(), true
}

// alphabeticNumeral renders n as A..Z, AA..ZZ, AAA..., repeating the letter.
func alphabeticNumeral(n int64) (string, bool) {
	if n <= 0 || n > 780 {
		return "", false
	}
	letter := byte('A' + (n-1)%26)
	return strings.Repeat(string(letter), int((n-1)/26)+1), true
}
