package pipeline

import (
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"titanicml/config"
	"titanicml/dataset"
)

// BinaryEncoder maps a two-category column onto 0 and 1 with a fixed lookup.
type BinaryEncoder struct {
	column  string
	mapping map[string]int
	inverse [2]string
}

func NewBinaryEncoder(rule config.BinaryRule) (*BinaryEncoder, error) {
	if len(rule.Mapping) != 2 {
		return nil, errors.Newf("binary lookup for %q needs two categories, has %d", rule.Column, len(rule.Mapping))
	}
	e := &BinaryEncoder{column: rule.Column, mapping: make(map[string]int, 2)}
	seen := [2]bool{}
	for cat, code := range rule.Mapping {
		if code != 0 && code != 1 {
			return nil, errors.Newf("binary lookup for %q maps %q to %d", rule.Column, cat, code)
		}
		if seen[code] {
			return nil, errors.Newf("binary lookup for %q maps two categories to %d", rule.Column, code)
		}
		seen[code] = true
		e.mapping[cat] = code
		e.inverse[code] = cat
	}
	return e, nil
}

func (e *BinaryEncoder) Column() string { return e.column }

// Encode replaces the column with its 0/1 codes.
func (e *BinaryEncoder) Encode(t *dataset.Table, table string) (*dataset.Table, error) {
	values, ok := t.Column(e.column)
	if !ok {
		return nil, errors.Newf("column %q not found in %s table", e.column, table)
	}
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		code, ok := e.mapping[v.Text()]
		if v.IsMissing() || !ok {
			return nil, errors.WithHintf(
				&UnknownCategoryError{Table: table, Column: e.column, Value: v.String(), Row: i},
				"known categories for %s are %q and %q", e.column, e.inverse[0], e.inverse[1])
		}
		out[i] = dataset.IntValue(int64(code))
	}
	return t.WithColumn(e.column, out)
}

// Decode returns the category of a code.
func (e *BinaryEncoder) Decode(code int) (string, bool) {
	if code != 0 && code != 1 {
		return "", false
	}
	return e.inverse[code], true
}

// IndicatorEncoder expands a categorical column into one 0/1 column per
// category except the reference, which is encoded as all zeros. The category
// set is fixed when the encoder is fitted on the training table.
type IndicatorEncoder struct {
	column     string
	prefix     string
	reference  string
	categories []string
	unseen     string
	logger     *zap.SugaredLogger
}

// FitIndicator derives the sorted category set of rule.Column from train.
func FitIndicator(train *dataset.Table, rule config.IndicatorRule, logger *zap.SugaredLogger) (*IndicatorEncoder, error) {
	values, ok := train.Column(rule.Column)
	if !ok {
		return nil, errors.Newf("indicator column %q not found in train table", rule.Column)
	}

	seen := make(map[string]dataset.Value)
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		if _, ok := seen[v.Text()]; !ok {
			seen[v.Text()] = v
		}
	}
	if len(seen) == 0 {
		return nil, errors.Newf("indicator column %q has no categories in train table", rule.Column)
	}
	reps := make([]dataset.Value, 0, len(seen))
	for _, v := range seen {
		reps = append(reps, v)
	}
	sort.Slice(reps, func(i, j int) bool { return dataset.Less(reps[i], reps[j]) })

	reference := rule.Reference
	if reference == "" {
		reference = reps[0].Text()
	}
	if _, ok := seen[reference]; !ok {
		return nil, errors.WithHintf(
			errors.Newf("reference category %q of %q not present in train table", reference, rule.Column),
			"pick a reference category that occurs in the training data")
	}

	e := &IndicatorEncoder{
		column:    rule.Column,
		prefix:    rule.Prefix,
		reference: reference,
		unseen:    rule.Unseen,
		logger:    logger,
	}
	if e.prefix == "" {
		e.prefix = rule.Column
	}
	if e.unseen == "" {
		e.unseen = config.UnseenReference
	}
	for _, v := range reps {
		if v.Text() != reference {
			e.categories = append(e.categories, v.Text())
		}
	}
	return e, nil
}

func (e *IndicatorEncoder) Column() string { return e.column }

func (e *IndicatorEncoder) Reference() string { return e.reference }

// Categories returns the non-reference categories in column order.
func (e *IndicatorEncoder) Categories() []string { return append([]string(nil), e.categories...) }

// Columns returns the indicator column names.
func (e *IndicatorEncoder) Columns() []string {
	names := make([]string, len(e.categories))
	for i, c := range e.categories {
		names[i] = e.prefix + "_" + c
	}
	return names
}

// Encode swaps the column for its indicator columns. Categories unknown to
// the encoder fold into the reference or fail, depending on the unseen policy.
func (e *IndicatorEncoder) Encode(t *dataset.Table, table string) (*dataset.Table, error) {
	values, ok := t.Column(e.column)
	if !ok {
		return nil, errors.Newf("column %q not found in %s table", e.column, table)
	}
	names := e.Columns()
	for _, n := range names {
		if t.HasColumn(n) {
			return nil, errors.Newf("indicator column %q already exists in %s table", n, table)
		}
	}

	pos := make(map[string]int, len(e.categories))
	for i, c := range e.categories {
		pos[c] = i
	}
	cols := make([][]dataset.Value, len(e.categories))
	for j := range cols {
		cols[j] = make([]dataset.Value, len(values))
	}

	folded := 0
	for i, v := range values {
		if v.IsMissing() {
			return nil, errors.WithHintf(
				&UnknownCategoryError{Table: table, Column: e.column, Value: v.String(), Row: i},
				"impute %s before encoding it", e.column)
		}
		hot := -1
		if j, ok := pos[v.Text()]; ok {
			hot = j
		} else if v.Text() != e.reference {
			if e.unseen == config.UnseenError {
				return nil, errors.WithHintf(
					&UnknownCategoryError{Table: table, Column: e.column, Value: v.String(), Row: i},
					"category not seen in the train table; set unseen: reference to fold it into %q", e.reference)
			}
			folded++
		}
		for j := range cols {
			code := int64(0)
			if j == hot {
				code = 1
			}
			cols[j][i] = dataset.IntValue(code)
		}
	}
	if folded > 0 {
		e.logger.Warnw("unseen categories folded into reference",
			"table", table, "column", e.column, "reference", e.reference, "rows", folded)
	}
	return t.ReplaceColumn(e.column, names, cols)
}

// Decode maps a row of indicator values back to its category.
func (e *IndicatorEncoder) Decode(indicators []int) (string, error) {
	if len(indicators) != len(e.categories) {
		return "", errors.Newf("got %d indicators, want %d", len(indicators), len(e.categories))
	}
	category := e.reference
	hot := 0
	for j, v := range indicators {
		switch v {
		case 0:
		case 1:
			hot++
			category = e.categories[j]
		default:
			return "", errors.Newf("indicator %d has value %d", j, v)
		}
	}
	if hot > 1 {
		return "", errors.New("more than one indicator set")
	}
	return category, nil
}

// Encoder holds the encoders fitted on the training table and applies them
// identically to every table.
type Encoder struct {
	binary    []*BinaryEncoder
	indicator []*IndicatorEncoder
	logger    *zap.SugaredLogger
}

func FitEncoder(train *dataset.Table, cfg config.EncodeConfig, logger *zap.SugaredLogger) (*Encoder, error) {
	enc := &Encoder{logger: logger}
	for _, rule := range cfg.Binary {
		b, err := NewBinaryEncoder(rule)
		if err != nil {
			return nil, err
		}
		enc.binary = append(enc.binary, b)
	}
	for _, rule := range cfg.Indicator {
		ind, err := FitIndicator(train, rule, logger)
		if err != nil {
			return nil, err
		}
		logger.Infow("fitted indicator encoding",
			"column", ind.Column(), "reference", ind.Reference(), "columns", ind.Columns())
		enc.indicator = append(enc.indicator, ind)
	}
	return enc, nil
}

// Apply encodes every configured column present in t.
func (e *Encoder) Apply(t *dataset.Table, table string) (*dataset.Table, error) {
	var err error
	for _, b := range e.binary {
		if !t.HasColumn(b.Column()) {
			e.logger.Warnw("binary column not in table, skipping", "table", table, "column", b.Column())
			continue
		}
		if t, err = b.Encode(t, table); err != nil {
			return nil, err
		}
	}
	for _, ind := range e.indicator {
		if !t.HasColumn(ind.Column()) {
			e.logger.Warnw("indicator column not in table, skipping", "table", table, "column", ind.Column())
			continue
		}
		if t, err = ind.Encode(t, table); err != nil {
			return nil, err
		}
	}
	e.logger.Infow("encoding completed", "table", table, "columns", t.Width())
	return t, nil
}
