package lineage

import (
	"fmt"
	"time"
)

// Precision records how much of a Date is known.
type Precision string

// Date precisions.
const (
	PrecisionDay   Precision = "day"
	PrecisionMonth Precision = "month"
	PrecisionYear  Precision = "year"
)

// Date is a concrete calendar date with a precision. Parts below the
// precision are zero.
type Date struct {
	Year      int        `json:"year"`
	Month     time.Month `json:"month,omitempty"`
	Day       int        `json:"day,omitempty"`
	Precision Precision  `json:"precision"`
}

// NewDate returns a day-precision date.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Year: year, Month: month, Day: day, Precision: PrecisionDay}
}

// Time returns the earliest instant d can denote, in UTC.
func (d Date) Time() time.Time {
	month, day := d.Month, d.Day
	if month == 0 {
		month = time.January
	}

	if day == 0 {
		day = 1
	}

	return time.Date(d.Year, month, day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d sorts before o.
func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

// String formats d as YYYY, YYYY-MM or YYYY-MM-DD depending on precision.
func (d Date) String() string {
	switch d.Precision {
	case PrecisionYear:
		return fmt.Sprintf("%04d", d.Year)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
}
