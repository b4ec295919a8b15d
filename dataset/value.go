package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the scalar type of a cell.
type Kind int

const (
	Missing Kind = iota
	Int
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return "unknown"
}

// DefaultMissingMarkers are the raw cell values read as missing.
var DefaultMissingMarkers = []string{"", "NA", "NaN"}

// Value is a single table cell. Raw keeps the text the value was parsed from.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	Raw  string
}

// MissingValue returns a missing cell.
func MissingValue() Value { return Value{Kind: Missing} }

// IntValue returns an integer cell.
func IntValue(i int64) Value {
	return Value{Kind: Int, I: i, Raw: strconv.FormatInt(i, 10)}
}

// FloatValue returns a floating-point cell.
func FloatValue(f float64) Value {
	return Value{Kind: Float, F: f, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// StringValue returns a string cell.
func StringValue(s string) Value {
	return Value{Kind: String, S: s, Raw: s}
}

// Parse converts raw cell text into a Value. Markers equal to raw (after
// trimming surrounding space) yield a missing value, as does any spelling of
// NaN. Infinite numbers stay strings so they never reach a numeric column.
func Parse(raw string, markers []string) Value {
	trimmed := strings.TrimSpace(raw)
	for _, m := range markers {
		if trimmed == m {
			return Value{Kind: Missing, Raw: raw}
		}
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Value{Kind: Int, I: i, Raw: raw}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		switch {
		case math.IsNaN(f):
			return Value{Kind: Missing, Raw: raw}
		case !math.IsInf(f, 0):
			return Value{Kind: Float, F: f, Raw: raw}
		}
	}
	return Value{Kind: String, S: trimmed, Raw: raw}
}

func (v Value) IsMissing() bool { return v.Kind == Missing }

func (v Value) IsNumeric() bool { return v.Kind == Int || v.Kind == Float }

// Float64 returns the numeric value of an Int or Float cell.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case Int:
		return float64(v.I), true
	case Float:
		return v.F, true
	}
	return 0, false
}

// Text is the category key of the value: the string for String cells and the
// canonical number formatting otherwise.
func (v Value) Text() string {
	switch v.Kind {
	case String:
		return v.S
	case Int:
		return strconv.FormatInt(v.I, 10)
	case Float:
		return strconv.FormatFloat(v.F, 'f', -1, 64)
	}
	return ""
}

// String renders the value for output, preferring the original text.
func (v Value) String() string {
	if v.Raw != "" || v.Kind == Missing {
		return v.Raw
	}
	return v.Text()
}

// Less orders values: missing first, numbers numerically, numbers before
// strings, strings lexically.
func Less(a, b Value) bool {
	if a.IsMissing() || b.IsMissing() {
		return a.IsMissing() && !b.IsMissing()
	}
	af, aNum := a.Float64()
	bf, bNum := b.Float64()
	switch {
	case aNum && bNum:
		return af < bf
	case aNum != bNum:
		return aNum
	}
	return a.S < b.S
}
