package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"empty is missing", "", Missing},
		{"NA marker", "NA", Missing},
		{"padded marker", " NaN ", Missing},
		{"lowercase nan", "nan", Missing},
		{"uppercase NAN", "NAN", Missing},
		{"infinity is text", "Inf", String},
		{"signed infinity is text", "-Infinity", String},
		{"integer", "22", Int},
		{"negative integer", "-3", Int},
		{"float", "7.25", Float},
		{"string", "male", String},
		{"mixed", "A/5 21171", String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Parse(tt.raw, DefaultMissingMarkers)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.raw, v.Raw)
		})
	}
}

func TestValueFloat64(t *testing.T) {
	f, ok := IntValue(3).Float64()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = StringValue("S").Float64()
	assert.False(t, ok)
	_, ok = MissingValue().Float64()
	assert.False(t, ok)
}

func TestLess(t *testing.T) {
	assert.True(t, Less(MissingValue(), IntValue(1)))
	assert.False(t, Less(IntValue(1), MissingValue()))
	assert.True(t, Less(IntValue(2), FloatValue(2.5)))
	assert.True(t, Less(FloatValue(10), StringValue("A")))
	assert.True(t, Less(StringValue("C"), StringValue("Q")))
	assert.False(t, Less(StringValue("S"), StringValue("S")))
}

func TestParseTrimsStrings(t *testing.T) {
	v := Parse(" male ", DefaultMissingMarkers)
	assert.Equal(t, String, v.Kind)
	assert.Equal(t, "male", v.Text())
	assert.Equal(t, " male ", v.Raw)

	inf := Parse("+Inf", nil)
	_, ok := inf.Float64()
	assert.False(t, ok)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "892", Parse("892", nil).String())
	assert.Equal(t, "28.5", FloatValue(28.5).String())
	assert.Equal(t, "", MissingValue().String())
}
