package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadParsesCells(t *testing.T) {
	tbl, err := Read(strings.NewReader("PassengerId,Name,Age,Fare\n1,\"Braund, Mr. Owen\",22,7.25\n2,Cumings,,71.28\n"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 4, tbl.Width())

	name, _ := tbl.Cell(0, "Name")
	assert.Equal(t, "Braund, Mr. Owen", name.S)
	age, _ := tbl.Cell(1, "Age")
	assert.True(t, age.IsMissing())
	fare, _ := tbl.Cell(0, "Fare")
	assert.Equal(t, Float, fare.Kind)
}

func TestReadMatchesParseBeyondCacheSize(t *testing.T) {
	var b strings.Builder
	b.WriteString("Id,Embarked\n")
	n := parseCacheSize*2 + 10
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%s\n", i, []string{"S", " C", "nan"}[i%3])
	}
	tbl, err := Read(strings.NewReader(b.String()), Options{})
	require.NoError(t, err)
	require.Equal(t, n, tbl.Len())

	ids, _ := tbl.Column("Id")
	embarked, _ := tbl.Column("Embarked")
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(i), ids[i].I)
		assert.Equal(t, Parse([]string{"S", " C", "nan"}[i%3], DefaultMissingMarkers), embarked[i])
	}
	assert.Equal(t, "C", embarked[1].Text())
	assert.True(t, embarked[2].IsMissing())
}

func TestReadStripsBOMAndDecodesLatin1(t *testing.T) {
	tbl, err := Read(strings.NewReader("\ufeffid,name\n1,x\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, tbl.Columns())

	tbl, err = Read(strings.NewReader("id;name\n1;Jos\xe9\n"), Options{Delimiter: ';', Encoding: "latin1"})
	require.NoError(t, err)
	name, _ := tbl.Cell(0, "name")
	assert.Equal(t, "José", name.S)
}

func TestReadCustomMissingMarkers(t *testing.T) {
	tbl, err := Read(strings.NewReader("a\n?\nNA\n"), Options{MissingMarkers: []string{"?"}})
	require.NoError(t, err)
	first, _ := tbl.Cell(0, "a")
	second, _ := tbl.Cell(1, "a")
	assert.True(t, first.IsMissing())
	assert.Equal(t, String, second.Kind)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""), Options{})
	assert.Error(t, err)

	_, err = Read(strings.NewReader("a,b\n1\n"), Options{})
	assert.Error(t, err)

	_, err = Read(strings.NewReader("a\n1\n"), Options{Encoding: "ebcdic"})
	assert.Error(t, err)
}

func TestLoadPairMissingInput(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "train.csv", "a\n1\n")

	_, _, err := LoadPair(train, filepath.Join(dir, "test.csv"), Options{})
	require.Error(t, err)

	var missing *MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "test", missing.Role)
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, _, err = LoadPair(filepath.Join(dir, "nope.csv"), train, Options{})
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "train", missing.Role)
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "train.csv", "id,y\n1,0\n2,1\n")
	test := writeFile(t, dir, "test.csv", "id\n3\n")

	tr, te, err := LoadPair(train, test, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, 1, te.Len())
}
