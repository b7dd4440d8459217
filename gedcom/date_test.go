package gedcom_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rlch/lineage"
	"github.com/rlch/lineage/gedcom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	year := func(y int) *lineage.Date {
		return &lineage.Date{Year: y, Precision: lineage.PrecisionYear}
	}
	month := func(y int, m time.Month) *lineage.Date {
		return &lineage.Date{Year: y, Month: m, Precision: lineage.PrecisionMonth}
	}

	tests := []struct {
		input     string
		want      *lineage.Date
		estimated bool
	}{
		{"01 JAN 2000", lineage.NewDate(2000, time.January, 1), false},
		{"1 jan 2000", lineage.NewDate(2000, time.January, 1), false},
		{"29 FEB 2000", lineage.NewDate(2000, time.February, 29), false},
		{"MAR 1850", month(1850, time.March), false},
		{"1850", year(1850), false},
		{"12 DECEMBER 1901", lineage.NewDate(1901, time.December, 12), false},
		{"11 FEB 1699/00", lineage.NewDate(1699, time.February, 11), false},
		{"@#DGREGORIAN@ 5 MAY 1920", lineage.NewDate(1920, time.May, 5), false},
		{"ABT 1900", year(1900), true},
		{"ABOUT 1900", year(1900), true},
		{"EST 3 JUN 1777", lineage.NewDate(1777, time.June, 3), true},
		{"CAL 1800", year(1800), true},
		{"BEF 1910", year(1910), true},
		{"AFT SEP 1899", month(1899, time.September), true},
		{"INT 1861 (from census)", year(1861), true},
		{"BET 1900 AND 1910", year(1900), true},
		{"BET JUNK AND 1910", year(1910), true},
		{"FROM 1 APR 1920 TO 1925", lineage.NewDate(1920, time.April, 1), true},
		{"TO 1925", year(1925), true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, estimated, err := gedcom.ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.estimated, estimated)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("date mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDateFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input     string
		estimated bool
	}{
		{"", false},
		{"yesterday", false},
		{"31 FEB 1900", false},
		{"0 JAN 1900", false},
		{"1 2 3 4", false},
		{"@#DJULIAN@ 1700", false},
		{"ABT", true},
		{"ABT sometime", true},
		{"BET AND", true},
		{"(unknown)", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, estimated, err := gedcom.ParseDate(tt.input)
			require.ErrorIs(t, err, gedcom.ErrDateParse)
			assert.Nil(t, got)
			assert.Equal(t, tt.estimated, estimated)
		})
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		date      *lineage.Date
		estimated bool
		want      string
	}{
		{"day", lineage.NewDate(2000, time.January, 1), false, "1 JAN 2000"},
		{"estimated day", lineage.NewDate(1890, time.October, 12), true, "ABT 12 OCT 1890"},
		{"month", &lineage.Date{Year: 1850, Month: time.March, Precision: lineage.PrecisionMonth}, false, "MAR 1850"},
		{"year", &lineage.Date{Year: 1700, Precision: lineage.PrecisionYear}, true, "ABT 1700"},
		{"missing month", &lineage.Date{Year: 1700, Precision: lineage.PrecisionDay}, false, "1700"},
		{"nil", nil, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, gedcom.FormatDate(tt.date, tt.estimated))
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"1 JAN 2000", "ABT 12 OCT 1890", "MAR 1850", "ABT 1700"} {
		d, estimated, err := gedcom.ParseDate(in)
		require.NoError(t, err)
		assert.Equal(t, in, gedcom.FormatDate(d, estimated))
	}
}
