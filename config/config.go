// Package config holds the explicit configuration of a pipeline run.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v2"
)

// Imputation strategies.
const (
	StrategyMedian   = "median"
	StrategyMean     = "mean"
	StrategyMode     = "mode"
	StrategyConstant = "constant"
)

// Policies for categories absent from the training table.
const (
	UnseenReference = "reference"
	UnseenError     = "error"
)

type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Schema   SchemaConfig   `yaml:"schema"`
	Impute   []ImputeRule   `yaml:"impute"`
	Encode   EncodeConfig   `yaml:"encode"`
	Drop     []string       `yaml:"drop"`
	Split    SplitConfig    `yaml:"split"`
	Training TrainingConfig `yaml:"training"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

type InputConfig struct {
	TrainPath      string   `yaml:"train"`
	TestPath       string   `yaml:"test"`
	Delimiter      string   `yaml:"delimiter"`
	Encoding       string   `yaml:"encoding"`
	MissingMarkers []string `yaml:"missing_markers"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type SchemaConfig struct {
	IDColumn    string `yaml:"id_column"`
	LabelColumn string `yaml:"label_column"`
}

// ImputeRule fills the missing values of one column. Value is used by the
// constant strategy; Fallback replaces the statistic when the column has no
// observed values at all.
type ImputeRule struct {
	Column   string `yaml:"column"`
	Strategy string `yaml:"strategy"`
	Value    string `yaml:"value"`
	Fallback string `yaml:"fallback"`
}

type EncodeConfig struct {
	Binary    []BinaryRule    `yaml:"binary"`
	Indicator []IndicatorRule `yaml:"indicator"`
}

// BinaryRule maps the categories of a two-valued column onto 0 and 1.
type BinaryRule struct {
	Column  string         `yaml:"column"`
	Mapping map[string]int `yaml:"mapping"`
}

// IndicatorRule expands a multi-valued column into k-1 indicator columns.
// An empty Reference selects the first category in sorted order.
type IndicatorRule struct {
	Column    string `yaml:"column"`
	Prefix    string `yaml:"prefix"`
	Reference string `yaml:"reference"`
	Unseen    string `yaml:"unseen"`
}

type SplitConfig struct {
	ValidationFraction float64 `yaml:"validation_fraction"`
	Seed               int64   `yaml:"seed"`
}

type TrainingConfig struct {
	MaxIter              int     `yaml:"max_iter"`
	LearningRate         float64 `yaml:"learning_rate"`
	C                    float64 `yaml:"c"`
	Tolerance            float64 `yaml:"tolerance"`
	Threshold            float64 `yaml:"threshold"`
	FailOnNonConvergence bool    `yaml:"fail_on_non_convergence"`
}

// StoreConfig enables the SQLite run log when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	JSON       bool   `yaml:"json"`
}

// Default returns the passenger survival configuration.
func Default() Config {
	return Config{
		Input: InputConfig{
			TrainPath: filepath.Join("data", "train.csv"),
			TestPath:  filepath.Join("data", "test.csv"),
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Output: OutputConfig{Path: filepath.Join("data", "predictions.csv")},
		Schema: SchemaConfig{IDColumn: "PassengerId", LabelColumn: "Survived"},
		Impute: []ImputeRule{
			{Column: "Age", Strategy: StrategyMedian},
			{Column: "Fare", Strategy: StrategyMedian},
			{Column: "Embarked", Strategy: StrategyMode},
		},
		Encode: EncodeConfig{
			Binary: []BinaryRule{
				{Column: "Sex", Mapping: map[string]int{"male": 0, "female": 1}},
			},
			Indicator: []IndicatorRule{
				{Column: "Embarked", Prefix: "Embarked", Unseen: UnseenReference},
			},
		},
		Drop:  []string{"Name", "Ticket", "Cabin"},
		Split: SplitConfig{ValidationFraction: 0.2, Seed: 42},
		Training: TrainingConfig{
			MaxIter:      1000,
			LearningRate: 0.5,
			C:            1.0,
			Tolerance:    1e-4,
			Threshold:    0.5,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// Load reads a YAML file over Default; keys absent from the file keep their
// default values. Relative paths are resolved against the file's directory.
// An empty path returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "open config %s", path)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.SetStrict(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Input.TrainPath,
		&c.Input.TestPath,
		&c.Output.Path,
		&c.Store.Path,
		&c.Log.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// DelimiterRune returns the field delimiter; "\t" and "tab" select a tab.
func (c Config) DelimiterRune() rune {
	switch c.Input.Delimiter {
	case "", ",":
		return ','
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.Input.Delimiter)[0]
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Input.TrainPath == "":
		return errors.New("input.train is required")
	case c.Input.TestPath == "":
		return errors.New("input.test is required")
	case c.Output.Path == "":
		return errors.New("output.path is required")
	case c.Schema.IDColumn == "":
		return errors.New("schema.id_column is required")
	case c.Schema.LabelColumn == "":
		return errors.New("schema.label_column is required")
	case c.Schema.IDColumn == c.Schema.LabelColumn:
		return errors.New("schema.id_column and schema.label_column must differ")
	}
	if d := c.Input.Delimiter; d != "" && d != `\t` && d != "tab" && len([]rune(d)) != 1 {
		return errors.Newf("input.delimiter %q must be a single character", d)
	}
	switch strings.ToLower(c.Input.Encoding) {
	case "", "utf-8", "utf8", "latin1", "iso-8859-1", "windows-1252", "gbk":
	default:
		return errors.WithHint(errors.Newf("input.encoding %q is not supported", c.Input.Encoding),
			"use one of utf-8, latin1, windows-1252, gbk")
	}

	for i, r := range c.Impute {
		if r.Column == "" {
			return errors.Newf("impute[%d].column is required", i)
		}
		switch r.Strategy {
		case StrategyMedian, StrategyMean, StrategyMode:
		case StrategyConstant:
			if r.Value == "" {
				return errors.Newf("impute[%d] (%s): constant strategy needs a value", i, r.Column)
			}
		default:
			return errors.WithHint(errors.Newf("impute[%d] (%s): unknown strategy %q", i, r.Column, r.Strategy),
				"use one of median, mean, mode, constant")
		}
	}

	for i, r := range c.Encode.Binary {
		if r.Column == "" {
			return errors.Newf("encode.binary[%d].column is required", i)
		}
		if len(r.Mapping) != 2 {
			return errors.Newf("encode.binary[%d] (%s): mapping needs exactly two categories", i, r.Column)
		}
		seen := map[int]bool{}
		for cat, code := range r.Mapping {
			if code != 0 && code != 1 {
				return errors.Newf("encode.binary[%d] (%s): category %q maps to %d, want 0 or 1", i, r.Column, cat, code)
			}
			seen[code] = true
		}
		if len(seen) != 2 {
			return errors.Newf("encode.binary[%d] (%s): mapping must use both 0 and 1", i, r.Column)
		}
	}
	for i, r := range c.Encode.Indicator {
		if r.Column == "" {
			return errors.Newf("encode.indicator[%d].column is required", i)
		}
		switch r.Unseen {
		case "", UnseenReference, UnseenError:
		default:
			return errors.WithHint(errors.Newf("encode.indicator[%d] (%s): unknown unseen policy %q", i, r.Column, r.Unseen),
				"use reference or error")
		}
	}

	if f := c.Split.ValidationFraction; f <= 0 || f >= 1 {
		return errors.Newf("split.validation_fraction %v must be in (0, 1)", f)
	}
	switch {
	case c.Training.MaxIter <= 0:
		return errors.New("training.max_iter must be positive")
	case c.Training.LearningRate <= 0:
		return errors.New("training.learning_rate must be positive")
	case c.Training.C <= 0:
		return errors.New("training.c must be positive")
	case c.Training.Tolerance <= 0:
		return errors.New("training.tolerance must be positive")
	case c.Training.Threshold <= 0 || c.Training.Threshold >= 1:
		return errors.New("training.threshold must be in (0, 1)")
	}
	return nil
}
