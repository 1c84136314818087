package datamodel

// convert.go holds the default coercion rules used by Row.GetColumnAs*.
//
//   - strings are parsed leniently: whitespace inside numbers is dropped, several date layouts
//     are accepted, and table JSON is decoded.
//   - failed numeric coercions yield NaN, failed date coercions the zero time, and failed
//     table coercions an empty table.

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const dateStringLayout = "2006-01-02T15:04:05.000Z07:00"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// DefaultConverter implements Converter.
type DefaultConverter struct{}

// AsBoolean treats "", "0" and "false" as false and every other string as true. Other values
// are true when their numeric form is non-zero.
func (c DefaultConverter) AsBoolean(v Value) bool {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case String:
		s := string(val)
		return s != "" && s != "0" && s != "false"
	default:
		n := c.AsNumber(v)
		return n != 0 && !math.IsNaN(n)
	}
}

// AsNumber returns NaN for null, undefined and unparsable strings. Dates become epoch
// milliseconds and tables their row count.
func (c DefaultConverter) AsNumber(v Value) float64 {
	switch val := v.(type) {
	case Number:
		return float64(val)
	case Bool:
		if val {
			return 1
		}
		return 0
	case String:
		s := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, string(val))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case Date:
		return float64(val.UnixMilli())
	case *Table:
		if val == nil {
			return math.NaN()
		}
		return float64(val.RowCount())
	default:
		return math.NaN()
	}
}

// AsString returns "" for null and undefined. Tables are rendered as their JSON text.
func (c DefaultConverter) AsString(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Date:
		return val.UTC().Format(dateStringLayout)
	case *Table:
		if val == nil {
			return ""
		}
		b, err := json.Marshal(val.ToJSON())
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// AsDate reads numbers as epoch milliseconds and parses strings with the known layouts.
// Anything else yields the zero time.
func (c DefaultConverter) AsDate(v Value) time.Time {
	switch val := v.(type) {
	case Date:
		return val.Time
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}
		}
		return time.UnixMilli(int64(f)).UTC()
	case String:
		s := strings.TrimSpace(string(val))
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// AsTable returns tables as is and decodes strings holding table JSON. Anything else yields a
// new empty table.
func (c DefaultConverter) AsTable(v Value) *Table {
	switch val := v.(type) {
	case *Table:
		if val != nil {
			return val
		}
	case String:
		if t, err := ParseTable([]byte(val)); err == nil {
			return t
		}
	}
	return NewTable()
}
