package pipeline

import (
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"titanicml/config"
	"titanicml/dataset"
)

var errNoObserved = errors.New("column has no observed values")

// Fill records how one column of one table was imputed.
type Fill struct {
	Table    string
	Column   string
	Strategy string
	Value    dataset.Value
	Filled   int
	Fallback bool
}

// Imputer applies imputation rules to a table. Statistics are always computed
// from the table being imputed, never shared between tables.
type Imputer struct {
	rules  []config.ImputeRule
	logger *zap.SugaredLogger
}

func NewImputer(rules []config.ImputeRule, logger *zap.SugaredLogger) *Imputer {
	return &Imputer{rules: rules, logger: logger}
}

// Apply runs every rule in order. Rules naming a column the table lacks are
// skipped with a warning.
func (im *Imputer) Apply(t *dataset.Table, table string) (*dataset.Table, []Fill, error) {
	var fills []Fill
	for _, rule := range im.rules {
		if !t.HasColumn(rule.Column) {
			im.logger.Warnw("impute column not in table, skipping", "table", table, "column", rule.Column)
			continue
		}
		out, fill, err := Impute(t, table, rule)
		if err != nil {
			return nil, nil, err
		}
		if fill.Filled > 0 {
			im.logger.Infow("imputed missing values",
				"table", table, "column", fill.Column, "strategy", fill.Strategy,
				"value", fill.Value.String(), "filled", fill.Filled, "fallback", fill.Fallback)
		}
		t = out
		fills = append(fills, fill)
	}
	return t, fills, nil
}

// Impute fills the missing cells of one column with the statistic of its
// observed cells. A column with no observed values uses rule.Fallback, or
// fails with an ImputationError when no fallback is configured.
func Impute(t *dataset.Table, table string, rule config.ImputeRule) (*dataset.Table, Fill, error) {
	fill := Fill{Table: table, Column: rule.Column, Strategy: rule.Strategy}
	values, ok := t.Column(rule.Column)
	if !ok {
		return nil, fill, &ImputationError{Table: table, Column: rule.Column, Reason: "column not found"}
	}

	stat, err := Statistic(values, rule.Strategy, rule.Value)
	switch {
	case errors.Is(err, errNoObserved) && rule.Fallback != "":
		stat = dataset.Parse(rule.Fallback, nil)
		fill.Fallback = true
	case errors.Is(err, errNoObserved):
		return nil, fill, errors.WithHintf(
			&ImputationError{Table: table, Column: rule.Column, Reason: "every value is missing"},
			"set a fallback for %s in the impute rules", rule.Column)
	case err != nil:
		return nil, fill, &ImputationError{Table: table, Column: rule.Column, Reason: err.Error()}
	}
	fill.Value = stat

	out := make([]dataset.Value, len(values))
	for i, v := range values {
		if v.IsMissing() {
			out[i] = stat
			fill.Filled++
			continue
		}
		out[i] = v
	}
	if fill.Filled == 0 {
		return t, fill, nil
	}
	imputed, err := t.WithColumn(rule.Column, out)
	if err != nil {
		return nil, fill, err
	}
	return imputed, fill, nil
}

// Statistic computes the fill value of values under strategy.
func Statistic(values []dataset.Value, strategy, constant string) (dataset.Value, error) {
	if strategy == config.StrategyConstant {
		return dataset.Parse(constant, nil), nil
	}

	observed := make([]dataset.Value, 0, len(values))
	for _, v := range values {
		if !v.IsMissing() {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return dataset.Value{}, errNoObserved
	}

	switch strategy {
	case config.StrategyMedian, config.StrategyMean:
		nums := make([]float64, len(observed))
		for i, v := range observed {
			f, ok := v.Float64()
			if !ok {
				return dataset.Value{}, errors.Newf("%s needs numeric values, found %q", strategy, v.String())
			}
			nums[i] = f
		}
		if strategy == config.StrategyMean {
			return dataset.FloatValue(calculateMean(nums)), nil
		}
		return dataset.FloatValue(calculateMedian(nums)), nil
	case config.StrategyMode:
		return calculateMode(observed), nil
	}
	return dataset.Value{}, errors.Newf("unknown strategy %q", strategy)
}

func calculateMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateMedian averages the two middle values of an even count.
func calculateMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}

// calculateMode returns the most frequent value; ties go to the smallest.
func calculateMode(values []dataset.Value) dataset.Value {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range values {
		key := v.Text()
		if _, ok := first[key]; !ok {
			first[key] = v
		}
		counts[key]++
	}

	var best dataset.Value
	bestCount := 0
	for key, n := range counts {
		v := first[key]
		if n > bestCount || (n == bestCount && dataset.Less(v, best)) {
			best, bestCount = v, n
		}
	}
	return best
}
