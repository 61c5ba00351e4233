package docfield

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Culture carries the locale data used to parse and format field values.
// Cultures returned by LookupCulture are shared and must not be modified.
type Culture struct {
	Tag              language.Tag
	DecimalSeparator string
	GroupSeparator   string
	ListSeparator    string
	// ShortDate, LongDate and ShortTime are date-time pictures in \@ syntax
	ShortDate   string
	LongDate    string
	ShortTime   string
	MonthNames  [12]string
	MonthAbbrev [12]string
	// DayNames and DayAbbrev start on Sunday, matching time.Weekday
	DayNames  [7]string
	DayAbbrev [7]string
	AM        string
	PM        string
}

// Name returns the BCP-47 form of the culture tag.
func (c *Culture) Name() string {
	return c.Tag.String()
}

var englishMonths = [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
var englishMonthAbbrev = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
var englishDays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var englishDayAbbrev = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// InvariantCulture is used for machine-readable parsing.
var InvariantCulture = &Culture{
	Tag:              language.Und,
	DecimalSeparator: ".",
	GroupSeparator:   ",",
	ListSeparator:    ",",
	ShortDate:        "MM/dd/yyyy",
	LongDate:         "dddd, dd MMMM yyyy",
	ShortTime:        "HH:mm",
	MonthNames:       englishMonths,
	MonthAbbrev:      englishMonthAbbrev,
	DayNames:         englishDays,
	DayAbbrev:        englishDayAbbrev,
	AM:               "AM",
	PM:               "PM",
}

var cultures = []*Culture{
	{
		Tag:              language.AmericanEnglish,
		DecimalSeparator: ".",
		GroupSeparator:   ",",
		ListSeparator:    ",",
		ShortDate:        "M/d/yyyy",
		LongDate:         "dddd, MMMM d, yyyy",
		ShortTime:        "h:mm AM/PM",
		MonthNames:       englishMonths,
		MonthAbbrev:      englishMonthAbbrev,
		DayNames:         englishDays,
		DayAbbrev:        englishDayAbbrev,
		AM:               "AM",
		PM:               "PM",
	},
	{
		Tag:              language.BritishEnglish,
		DecimalSeparator: ".",
		GroupSeparator:   ",",
		ListSeparator:    ",",
		ShortDate:        "dd/MM/yyyy",
		LongDate:         "dd MMMM yyyy",
		ShortTime:        "HH:mm",
		MonthNames:       englishMonths,
		MonthAbbrev:      englishMonthAbbrev,
		DayNames:         englishDays,
		DayAbbrev:        englishDayAbbrev,
		AM:               "am",
		PM:               "pm",
	},
	{
		Tag:              language.MustParse("de-DE"),
		DecimalSeparator: ",",
		GroupSeparator:   ".",
		ListSeparator:    ";",
		ShortDate:        "dd.MM.yyyy",
		LongDate:         "dddd, d. MMMM yyyy",
		ShortTime:        "HH:mm",
		MonthNames:       [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
		MonthAbbrev:      [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
		DayNames:         [7]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		DayAbbrev:        [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
		AM:               "AM",
		PM:               "PM",
	},
	{
		Tag:              language.MustParse("fr-FR"),
		DecimalSeparator: ",",
		GroupSeparator:   "\u00a0",
		ListSeparator:    ";",
		ShortDate:        "dd/MM/yyyy",
		LongDate:         "dddd d MMMM yyyy",
		ShortTime:        "HH:mm",
		MonthNames:       [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
		MonthAbbrev:      [12]string{"jan", "fév", "mar", "avr", "mai", "juin", "juil", "août", "sep", "oct", "nov", "déc"},
		DayNames:         [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
		DayAbbrev:        [7]string{"dim", "lun", "mar", "mer", "jeu", "ven", "sam"},
		AM:               "AM",
		PM:               "PM",
	},
	{
		Tag:              language.MustParse("es-ES"),
		DecimalSeparator: ",",
		GroupSeparator:   ".",
		ListSeparator:    ";",
		ShortDate:        "dd/MM/yyyy",
		LongDate:         "dddd, d' de 'MMMM' de 'yyyy",
		ShortTime:        "H:mm",
		MonthNames:       [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		MonthAbbrev:      [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"},
		DayNames:         [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
		DayAbbrev:        [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
		AM:               "a. m.",
		PM:               "p. m.",
	},
	{
		Tag:              language.MustParse("it-IT"),
		DecimalSeparator: ",",
		GroupSeparator:   ".",
		ListSeparator:    ";",
		ShortDate:        "dd/MM/yyyy",
		LongDate:         "dddd d MMMM yyyy",
		ShortTime:        "HH:mm",
		MonthNames:       [12]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
		MonthAbbrev:      [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
		DayNames:         [7]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"},
		DayAbbrev:        [7]string{"dom", "lun", "mar", "mer", "gio", "ven", "sab"},
		AM:               "AM",
		PM:               "PM",
	},
}

var cultureMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(cultures))
	for i, c := range cultures {
		tags[i] = c.Tag
	}
	return language.NewMatcher(tags)
}()

// LookupCulture returns the closest supported culture for a BCP-47 tag.
// Empty or unparsable tags and unsupported languages fall back to en-US.
func LookupCulture(tag string) *Culture {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return cultures[0]
	}
	t, err := language.Parse(tag)
	if err != nil {
		return cultures[0]
	}
	_, idx, conf := cultureMatcher.Match(t)
	if conf == language.No {
		return cultures[0]
	}
	return cultures[idx]
}

// ParseNumber parses s using the culture's separators.
// Group separators are only accepted between groups of three integer digits.
func (c *Culture) ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	intPart, fracPart, hasFrac := strings.Cut(s, c.DecimalSeparator)
	if hasFrac && strings.Contains(fracPart, c.DecimalSeparator) {
		return 0, false
	}
	if c.GroupSeparator != "" && c.GroupSeparator != c.DecimalSeparator {
		sep := c.GroupSeparator
		if sep == "\u00a0" {
			intPart = strings.ReplaceAll(intPart, "\u202f", sep)
			intPart = strings.ReplaceAll(intPart, " ", sep)
		}
		if strings.Contains(intPart, sep) {
			groups := strings.Split(intPart, sep)
			first := strings.TrimLeft(groups[0], "+-")
			if len(first) == 0 || len(first) > 3 {
				return 0, false
			}
			for _, g := range groups[1:] {
				if len(g) != 3 {
					return 0, false
				}
			}
			intPart = strings.Join(groups, "")
		}
	}
	if strings.ContainsAny(intPart, ".,") || (hasFrac && strings.ContainsAny(fracPart, ".,")) {
		return 0, false
	}
	if hasFrac {
		return parsePlainNumber(intPart + "." + fracPart)
	}
	return parsePlainNumber(intPart)
}

// parsePlainNumber accepts an optionally signed decimal with an optional exponent.
func parsePlainNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == 'e' || r == 'E':
		case (r == '+' || r == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		default:
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseNumberWithFallback tries the culture first and then the invariant form when allowed.
func ParseNumberWithFallback(s string, c *Culture, invariant bool) (float64, bool) {
	if c == nil {
		c = InvariantCulture
	}
	if f, ok := c.ParseNumber(s); ok {
		return f, true
	}
	if invariant && c != InvariantCulture {
		return InvariantCulture.ParseNumber(s)
	}
	return 0, false
}
