package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Code is a survey answer code normalized once at ingestion. Every rule
// compares Value, never the raw text.
type Code struct {
	Raw   string
	Value int
	Valid bool
}

// ParseCode trims the raw text and parses it as an integer. Integral float
// text ("1.0") is accepted since some tools re-export integer columns that way.
func ParseCode(raw string) Code {
	raw = strings.TrimSpace(raw)
	c := Code{Raw: raw}
	if raw == "" {
		return c
	}
	if v, err := strconv.Atoi(raw); err == nil {
		c.Value, c.Valid = v, true
		return c
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) {
		c.Value, c.Valid = int(f), true
	}
	return c
}

// Empty reports whether the source cell was blank.
func (c Code) Empty() bool {
	return c.Raw == ""
}

// Is reports whether the code parsed and equals one of values.
func (c Code) Is(values ...int) bool {
	if !c.Valid {
		return false
	}
	for _, v := range values {
		if c.Value == v {
			return true
		}
	}
	return false
}

// Number is a numeric cell; unparseable text is null, never zero.
type Number struct {
	Value float64
	Valid bool
}

// ParseNumber parses a numeric cell. Both "." and "," decimal separators are
// accepted because EPH extracts use the comma for PONDERA-like columns.
func ParseNumber(raw string) Number {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the number is null.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Period is one survey quarter.
type Period struct {
	Year    int `json:"year" csv:"year"`
	Quarter int `json:"quarter" csv:"quarter"`
}

// ParsePeriod parses ANO4/TRIMESTRE cells. The second result is false when the
// pair is not a well-formed period.
func ParsePeriod(year, quarter string) (Period, bool) {
	y, q := ParseCode(year), ParseCode(quarter)
	if !y.Valid || !q.Valid || q.Value < 1 || q.Value > 4 || y.Value <= 0 {
		return Period{}, false
	}
	return Period{Year: y.Value, Quarter: q.Value}, true
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Quarter < o.Quarter
}

// Compare returns -1, 0 or 1, for use with slices.SortFunc.
func (p Period) Compare(o Period) int {
	switch {
	case p.Before(o):
		return -1
	case o.Before(p):
		return 1
	}
	return 0
}

// Months returns the first and last calendar month covered by the quarter.
func (p Period) Months() (int, int) {
	return p.Quarter*3 - 2, p.Quarter * 3
}

func (p Period) String() string {
	return fmt.Sprintf("%d T%d", p.Year, p.Quarter)
}

// Round2 rounds a percentage to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds a proportion to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
