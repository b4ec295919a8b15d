package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// parseCacheSize bounds the distinct cell texts remembered per column.
const parseCacheSize = 256

// MissingInputError reports an input file that does not exist.
type MissingInputError struct {
	Role string
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s file not found at %s", e.Role, e.Path)
}

// Options controls how delimited files are read.
type Options struct {
	// Delimiter between fields; 0 means ','.
	Delimiter rune
	// Encoding of the file: utf-8 (default), latin1, windows-1252 or gbk.
	Encoding string
	// MissingMarkers are cell values read as missing; nil means DefaultMissingMarkers.
	MissingMarkers []string
}

var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8BOM,
	"utf8":         unicode.UTF8BOM,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"gbk":          simplifiedchinese.GBK,
}

// LookupEncoding resolves an encoding name. The empty name is utf-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8BOM, nil
	}
	enc, ok := encodings[strings.ToLower(name)]
	if !ok {
		return nil, errors.WithHint(
			errors.Newf("unsupported encoding %q", name),
			"use one of utf-8, latin1, windows-1252, gbk")
	}
	return enc, nil
}

// LoadPair loads the training and test files. Both paths are checked before
// either file is read, so a missing test file fails without parsing train.
func LoadPair(trainPath, testPath string, opts Options) (train, test *Table, err error) {
	for _, in := range []struct{ role, path string }{{"train", trainPath}, {"test", testPath}} {
		if err := checkExists(in.role, in.path); err != nil {
			return nil, nil, err
		}
	}
	if train, err = Load(trainPath, opts); err != nil {
		return nil, nil, errors.Wrap(err, "load train")
	}
	if test, err = Load(testPath, opts); err != nil {
		return nil, nil, errors.Wrap(err, "load test")
	}
	return train, test, nil
}

func checkExists(role, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WithHintf(&MissingInputError{Role: role, Path: path},
				"make sure the %s file is located at %s", role, path)
		}
		return errors.Wrapf(err, "stat %s file", role)
	}
	if info.IsDir() {
		return errors.Newf("%s path %s is a directory", role, path)
	}
	return nil
}

// Load reads a delimited file with a header row into a Table.
func Load(path string, opts Options) (*Table, error) {
	if err := checkExists("input", path); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	t, err := Read(file, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// Read parses delimited text with a header row into a Table.
func Read(r io.Reader, opts Options) (*Table, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	markers := opts.MissingMarkers
	if markers == nil {
		markers = DefaultMissingMarkers
	}

	reader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty file: header row required")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	// one cache per column: categorical columns repeat a few values on every
	// row, so their cells share one parsed Value
	caches := make([]*lru.Cache[string, Value], len(columns))
	for i := range caches {
		if caches[i], err = lru.New[string, Value](parseCacheSize); err != nil {
			return nil, errors.Wrap(err, "create parse cache")
		}
	}

	var rows [][]Value
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", len(rows)+1)
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			v, ok := caches[i].Get(cell)
			if !ok {
				v = Parse(cell, markers)
				caches[i].Add(cell, v)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return NewTable(columns, rows)
}
