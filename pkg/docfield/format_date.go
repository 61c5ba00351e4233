package docfield

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common date layouts tried when a string value meets a \@ switch
var commonDateFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
	"Mon, 02 Jan 2006 15:04:05",
	"Monday, January 2, 2006",
	"Monday, 02 January 2006",
}

var monthFirstFormats = []string{
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/06",
}

var dayFirstFormats = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2.1.2006",
	"2.1.2006 15:04",
	"2.1.06",
	"2-1-2006",
}

// parseDate parses s with the common layouts, preferring the culture's day/month order.
func parseDate(s string, c *Culture) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("cannot parse empty string as date")
	}

	layouts := append([]string{}, commonDateFormats...)
	if strings.HasPrefix(c.ShortDate, "d") {
		layouts = append(layouts, dayFirstFormats...)
		layouts = append(layouts, monthFirstFormats...)
	} else {
		layouts = append(layouts, monthFirstFormats...)
		layouts = append(layouts, dayFirstFormats...)
	}

	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date string: %s", s)
}

func (f formatter) dateTime(v FieldValue) (time.Time, bool) {
	switch v.Kind() {
	case KindDateTime:
		return v.Time()
	case KindString:
		s, _ := v.Text()
		t, err := parseDate(s, f.culture)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// formatDate renders t through a tokenized \@ picture using culture names.
func (f formatter) formatDate(t time.Time, tokens []DateToken) string {
	c := f.culture
	var sb strings.Builder
	for _, tok := range tokens {
		switch tok.Kind {
		case DateLiteral:
			sb.WriteString(tok.Text)
		case DateItemRef:
			if v, ok := f.item(tok.Text); ok {
				sb.WriteString(strconv.Itoa(v))
			}
		case DateMonth:
			sb.WriteString(namedOrNumber(int(t.Month()), tok.Width, c.MonthAbbrev[t.Month()-1], c.MonthNames[t.Month()-1]))
		case DateDay:
			sb.WriteString(namedOrNumber(t.Day(), tok.Width, c.DayAbbrev[t.Weekday()], c.DayNames[t.Weekday()]))
		case DateYear:
			if tok.Width == 2 {
				fmt.Fprintf(&sb, "%02d", t.Year()%100)
			} else {
				fmt.Fprintf(&sb, "%04d", t.Year())
			}
		case DateHour12:
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			sb.WriteString(padded(h, tok.Width))
		case DateHour24:
			sb.WriteString(padded(t.Hour(), tok.Width))
		case DateMinute:
			sb.WriteString(padded(t.Minute(), tok.Width))
		case DateSecond:
			sb.WriteString(padded(t.Second(), tok.Width))
		case DateAMPM:
			marker := c.AM
			if t.Hour() >= 12 {
				marker = c.PM
			}
			if tok.Text == strings.ToLower(tok.Text) {
				marker = strings.ToLower(marker)
			} else if tok.Text == strings.ToUpper(tok.Text) {
				marker = strings.ToUpper(marker)
			}
			sb.WriteString(marker)
		}
	}
	return sb.String()
}

func namedOrNumber(n, width int, abbrev, full string) string {
	switch width {
	case 1:
		return strconv.Itoa(n)
	case 2:
		return padded(n, 2)
	case 3:
		return abbrev
	default:
		return full
	}
}

func padded(n, width int) string {
	if width >= 2 {
		return fmt.Sprintf("%02d", n)
	}
	return strconv.Itoa(n)
}
