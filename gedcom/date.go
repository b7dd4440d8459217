package gedcom

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rlch/lineage"
)

var months = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Qualifiers that mark a date as approximate. Ranges (BET/AND, FROM/TO) are
// handled separately.
var qualifiers = map[string]bool{
	"ABT":   true,
	"ABOUT": true,
	"EST":   true,
	"CAL":   true,
	"INT":   true,
	"BEF":   true,
	"AFT":   true,
}

// ParseDate reads a GEDCOM date value into a concrete date. Any qualifier or
// range makes the result estimated. A range resolves to its lower bound, or
// to whichever bound is present.
//
// On failure the date is nil, estimated still reflects any qualifier seen,
// and the error wraps ErrDateParse.
func ParseDate(s string) (*lineage.Date, bool, error) {
	fields := strings.Fields(strings.ToUpper(s))

	if len(fields) > 0 && strings.HasPrefix(fields[0], "@#D") {
		if fields[0] != "@#DGREGORIAN@" {
			return nil, false, fmt.Errorf("%w: unsupported calendar in %q", ErrDateParse, s)
		}

		fields = fields[1:]
	}

	if len(fields) == 0 {
		return nil, false, fmt.Errorf("%w: empty date", ErrDateParse)
	}

	switch head := fields[0]; {
	case head == "BET":
		lo, hi := splitAt(fields[1:], "AND")
		return parseRange(s, lo, hi)
	case head == "FROM":
		lo, hi := splitAt(fields[1:], "TO")
		return parseRange(s, lo, hi)
	case head == "TO":
		return parseRange(s, nil, fields[1:])
	case qualifiers[head]:
		rest := fields[1:]
		if head == "INT" {
			rest = dropPhrase(rest)
		}

		d, err := parseExact(rest)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %q", ErrDateParse, s)
		}

		return d, true, nil
	}

	d, err := parseExact(fields)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q", ErrDateParse, s)
	}

	return d, false, nil
}

func parseRange(s string, lo, hi []string) (*lineage.Date, bool, error) {
	if d, err := parseExact(lo); err == nil {
		return d, true, nil
	}

	if d, err := parseExact(hi); err == nil {
		return d, true, nil
	}

	return nil, true, fmt.Errorf("%w: %q", ErrDateParse, s)
}

// parseExact reads [[DAY] MONTH] YEAR.
func parseExact(fields []string) (*lineage.Date, error) {
	switch len(fields) {
	case 1:
		year, err := parseYear(fields[0])
		if err != nil {
			return nil, err
		}

		return &lineage.Date{Year: year, Precision: lineage.PrecisionYear}, nil
	case 2: //nolint:mnd // MON YYYY
		month, err := parseMonth(fields[0])
		if err != nil {
			return nil, err
		}

		year, err := parseYear(fields[1])
		if err != nil {
			return nil, err
		}

		return &lineage.Date{Year: year, Month: month, Precision: lineage.PrecisionMonth}, nil
	case 3: //nolint:mnd // D MON YYYY
		day, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, err
		}

		month, err := parseMonth(fields[1])
		if err != nil {
			return nil, err
		}

		year, err := parseYear(fields[2])
		if err != nil {
			return nil, err
		}

		if day < 1 || day > daysIn(year, month) {
			return nil, fmt.Errorf("day %d out of range", day)
		}

		return lineage.NewDate(year, month, day), nil
	default:
		return nil, fmt.Errorf("want [[DAY] MONTH] YEAR, got %d fields", len(fields))
	}
}

func parseYear(s string) (int, error) {
	// Dual years such as 1699/00 keep the first year.
	if i := strings.IndexByte(s, '/'); i > 0 {
		s = s[:i]
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if year < 1 || year > 9999 {
		return 0, fmt.Errorf("year %d out of range", year)
	}

	return year, nil
}

func parseMonth(s string) (time.Month, error) {
	for i, m := range months {
		if s == m || s == strings.ToUpper(time.Month(i+1).String()) {
			return time.Month(i + 1), nil
		}
	}

	return 0, fmt.Errorf("unknown month %q", s)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// splitAt splits fields around the first occurrence of sep.
func splitAt(fields []string, sep string) ([]string, []string) {
	for i, f := range fields {
		if f == sep {
			return fields[:i], fields[i+1:]
		}
	}

	return fields, nil
}

// dropPhrase removes a trailing (date phrase).
func dropPhrase(fields []string) []string {
	for i, f := range fields {
		if strings.HasPrefix(f, "(") {
			return fields[:i]
		}
	}

	return fields
}

// FormatDate writes d as a GEDCOM date value, prefixed with ABT when
// estimated. A nil date formats as "".
func FormatDate(d *lineage.Date, estimated bool) string {
	if d == nil {
		return ""
	}

	var s string

	switch {
	case d.Precision == lineage.PrecisionYear, d.Month < time.January, d.Month > time.December:
		s = strconv.Itoa(d.Year)
	case d.Precision == lineage.PrecisionMonth, d.Day == 0:
		s = fmt.Sprintf("%s %d", months[d.Month-1], d.Year)
	default:
		s = fmt.Sprintf("%d %s %d", d.Day, months[d.Month-1], d.Year)
	}

	if estimated {
		return "ABT " + s
	}

	return s
}
