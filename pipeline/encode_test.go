package pipeline

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanicml/config"
	"titanicml/logging"
)

var sexRule = config.BinaryRule{Column: "Sex", Mapping: map[string]int{"male": 0, "female": 1}}

func TestBinaryEncoderRoundTrip(t *testing.T) {
	enc, err := NewBinaryEncoder(sexRule)
	require.NoError(t, err)

	tbl := table(t, "Id,Sex", "1,male", "2,female", "3,male")
	out, err := enc.Encode(tbl, "train")
	require.NoError(t, err)
	codes := texts(t, out, "Sex")
	assert.Equal(t, []string{"0", "1", "0"}, codes)

	for i, want := range []string{"male", "female", "male"} {
		col, _ := out.Column("Sex")
		got, ok := enc.Decode(int(col[i].I))
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := enc.Decode(2)
	assert.False(t, ok)
}

func TestBinaryEncoderIgnoresPadding(t *testing.T) {
	enc, err := NewBinaryEncoder(sexRule)
	require.NoError(t, err)

	out, err := enc.Encode(table(t, "Sex", " male", "female "), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, texts(t, out, "Sex"))
}

func TestBinaryEncoderUnknownCategory(t *testing.T) {
	enc, err := NewBinaryEncoder(sexRule)
	require.NoError(t, err)

	for _, raw := range []string{"unknown", ""} {
		_, err = enc.Encode(table(t, "Sex", "male", raw), "test")
		var catErr *UnknownCategoryError
		require.True(t, errors.As(err, &catErr), "value %q", raw)
		assert.Equal(t, "Sex", catErr.Column)
		assert.Equal(t, "test", catErr.Table)
		assert.Equal(t, 1, catErr.Row)
	}
}

func TestNewBinaryEncoderRejectsNonBijection(t *testing.T) {
	_, err := NewBinaryEncoder(config.BinaryRule{Column: "Sex", Mapping: map[string]int{"male": 1, "female": 1}})
	assert.Error(t, err)
	_, err = NewBinaryEncoder(config.BinaryRule{Column: "Sex", Mapping: map[string]int{"male": 0}})
	assert.Error(t, err)
}

func TestIndicatorEncoder(t *testing.T) {
	train := table(t, "Fare,Embarked,Age", "7,S,22", "71,C,38", "8,Q,26", "53,S,35")
	enc, err := FitIndicator(train, config.IndicatorRule{Column: "Embarked", Prefix: "Embarked"}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "C", enc.Reference())
	assert.Equal(t, []string{"Embarked_Q", "Embarked_S"}, enc.Columns())

	out, err := enc.Encode(train, "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fare", "Embarked_Q", "Embarked_S", "Age"}, out.Columns())
	assert.Equal(t, []string{"0", "0", "1", "0"}, texts(t, out, "Embarked_Q"))
	assert.Equal(t, []string{"1", "0", "0", "1"}, texts(t, out, "Embarked_S"))

	for i, want := range []string{"S", "C", "Q", "S"} {
		q, _ := out.Cell(i, "Embarked_Q")
		s, _ := out.Cell(i, "Embarked_S")
		got, err := enc.Decode([]int{int(q.I), int(s.I)})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIndicatorEncoderUnseen(t *testing.T) {
	train := table(t, "Embarked", "S", "C")
	test := table(t, "Embarked", "S", "Q")

	fold, err := FitIndicator(train, config.IndicatorRule{Column: "Embarked", Unseen: config.UnseenReference}, logging.Nop())
	require.NoError(t, err)
	out, err := fold.Encode(test, "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0"}, texts(t, out, "Embarked_S"))

	strict, err := FitIndicator(train, config.IndicatorRule{Column: "Embarked", Unseen: config.UnseenError}, logging.Nop())
	require.NoError(t, err)
	_, err = strict.Encode(test, "test")
	var catErr *UnknownCategoryError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "Q", catErr.Value)
}

func TestFitIndicatorReference(t *testing.T) {
	train := table(t, "Embarked", "S", "C", "Q")

	enc, err := FitIndicator(train, config.IndicatorRule{Column: "Embarked", Reference: "S"}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"Embarked_C", "Embarked_Q"}, enc.Columns())

	_, err = FitIndicator(train, config.IndicatorRule{Column: "Embarked", Reference: "X"}, logging.Nop())
	assert.Error(t, err)
}

func TestEncoderAppliesSameColumnsToBothTables(t *testing.T) {
	cfg := config.Default().Encode
	train := table(t, "Sex,Embarked", "male,S", "female,C", "male,Q")
	test := table(t, "Sex,Embarked", "female,S")

	enc, err := FitEncoder(train, cfg, logging.Nop())
	require.NoError(t, err)
	train, err = enc.Apply(train, "train")
	require.NoError(t, err)
	test, err = enc.Apply(test, "test")
	require.NoError(t, err)
	assert.Equal(t, train.Columns(), test.Columns())
	assert.Equal(t, []string{"1"}, texts(t, test, "Embarked_S"))
	assert.Equal(t, []string{"1"}, texts(t, test, "Sex"))
}
