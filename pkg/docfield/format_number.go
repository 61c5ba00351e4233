package docfield

import (
	"math"
	"strconv"
	"strings"
)

// formatNumber applies a \# picture to n.
func (f formatter) formatNumber(n float64, nf NumericFormat) string {
	section := nf.Positive
	explicitNegative := false
	switch {
	case n < 0 && nf.Negative != nil:
		section = nf.Negative
		explicitNegative = true
	case n == 0 && nf.Zero != nil:
		section = nf.Zero
	}

	intSlots, fracSlots, grouped := pictureShape(section)
	scale := math.Pow(10, float64(len(fracSlots)))
	abs := math.Round(math.Abs(n)*scale) / scale
	digits := strconv.FormatFloat(abs, 'f', len(fracSlots), 64)
	intDigits, fracDigits, _ := strings.Cut(digits, ".")
	if intDigits == "0" {
		intDigits = ""
	}
	negative := n < 0 && strings.Trim(intDigits+fracDigits, "0") != ""

	hasSign := false
	for _, tok := range section {
		if tok.Kind == NumMinus || tok.Kind == NumPlus {
			hasSign = true
		}
	}

	intOut := f.assignIntegerDigits(intDigits, intSlots, grouped)
	fracOut := assignFractionDigits(fracDigits, fracSlots)

	var sb strings.Builder
	if negative && !explicitNegative && !hasSign {
		sb.WriteByte('-')
	}

	intIndex := 0
	fracIndex := 0
	seenDecimal := false
	groupedWritten := false
	for _, tok := range section {
		switch tok.Kind {
		case NumZero, NumDigit, NumDrop:
			if seenDecimal {
				sb.WriteString(fracOut[fracIndex])
				fracIndex++
				continue
			}
			if grouped {
				if !groupedWritten {
					sb.WriteString(strings.Join(intOut, ""))
					groupedWritten = true
				}
				continue
			}
			sb.WriteString(intOut[intIndex])
			intIndex++
		case NumDecimal:
			if seenDecimal {
				continue
			}
			seenDecimal = true
			if strings.Join(fracOut, "") != "" {
				sb.WriteString(f.culture.DecimalSeparator)
			}
		case NumGroup:
			// rendered together with the integer digits
		case NumMinus:
			if negative {
				sb.WriteByte('-')
			} else {
				sb.WriteByte(' ')
			}
		case NumPlus:
			switch {
			case negative:
				sb.WriteByte('-')
			case n > 0:
				sb.WriteByte('+')
			default:
				sb.WriteByte(' ')
			}
		case NumPercent:
			sb.WriteByte('%')
		case NumItemRef:
			if v, ok := f.item(tok.Text); ok {
				sb.WriteString(strconv.Itoa(v))
			}
		default:
			sb.WriteString(tok.Text)
		}
	}
	return sb.String()
}

// pictureShape returns the integer and fraction placeholder runes and whether grouping is on.
func pictureShape(section []NumericToken) (intSlots, fracSlots []NumericToken, grouped bool) {
	seenDecimal := false
	for _, tok := range section {
		switch tok.Kind {
		case NumZero, NumDigit, NumDrop:
			if seenDecimal {
				fracSlots = append(fracSlots, tok)
			} else {
				intSlots = append(intSlots, tok)
			}
		case NumDecimal:
			seenDecimal = true
		case NumGroup:
			if !seenDecimal {
				grouped = true
			}
		}
	}
	return intSlots, fracSlots, grouped
}

// assignIntegerDigits maps digits onto placeholders from the right. Digits that
// do not fit go to the leftmost placeholder, unless it is an x which drops them.
// With grouping the result is a single element holding the grouped digits.
func (f formatter) assignIntegerDigits(digits string, slots []NumericToken, grouped bool) []string {
	out := make([]string, len(slots))
	di := len(digits) - 1
	for si := len(slots) - 1; si >= 0; si-- {
		switch {
		case di >= 0:
			out[si] = string(digits[di])
			di--
		case slots[si].Kind == NumZero:
			out[si] = "0"
		}
	}
	if di >= 0 && len(slots) > 0 && slots[0].Kind != NumDrop {
		out[0] = digits[:di+1] + out[0]
	}
	if !grouped {
		return out
	}
	joined := strings.Join(out, "")
	return []string{groupDigits(joined, f.culture.GroupSeparator)}
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

// assignFractionDigits maps digits onto placeholders from the left; trailing
// zeros under # placeholders are dropped.
func assignFractionDigits(digits string, slots []NumericToken) []string {
	out := make([]string, len(slots))
	for i := range slots {
		if i < len(digits) {
			out[i] = string(digits[i])
		}
	}
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Kind == NumZero || out[i] != "0" {
			break
		}
		out[i] = ""
	}
	return out
}
