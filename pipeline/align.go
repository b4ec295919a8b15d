package pipeline

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"titanicml/config"
	"titanicml/dataset"
)

// Alignment is the outcome of reconciling the train and test schemas.
type Alignment struct {
	// Features are the shared feature columns in training order.
	Features []string
	// TrainOnly and TestOnly are columns excluded from Features because the
	// other table lacks them.
	TrainOnly []string
	TestOnly  []string
	Train     *dataset.Table
	Test      *dataset.Table
}

// Aligner drops non-predictive columns and restricts both tables to the
// feature columns they share.
type Aligner struct {
	drop   []string
	schema config.SchemaConfig
	logger *zap.SugaredLogger
}

func NewAligner(drop []string, schema config.SchemaConfig, logger *zap.SugaredLogger) *Aligner {
	return &Aligner{drop: drop, schema: schema, logger: logger}
}

func (a *Aligner) Align(train, test *dataset.Table) (*Alignment, error) {
	if !train.HasColumn(a.schema.LabelColumn) {
		return nil, errors.Newf("label column %q not found in train table", a.schema.LabelColumn)
	}

	train, absentTrain, err := train.Drop(a.drop...)
	if err != nil {
		return nil, err
	}
	test, absentTest, err := test.Drop(a.drop...)
	if err != nil {
		return nil, err
	}
	if len(absentTrain) > 0 || len(absentTest) > 0 {
		a.logger.Warnw("drop columns not present", "train", absentTrain, "test", absentTest)
	}
	a.logger.Infow("dropped columns", "columns", a.drop,
		"train_shape", shape(train), "test_shape", shape(test))

	reserved := func(c string) bool { return c == a.schema.LabelColumn || c == a.schema.IDColumn }

	al := &Alignment{}
	for _, c := range train.Columns() {
		switch {
		case reserved(c):
		case test.HasColumn(c):
			al.Features = append(al.Features, c)
		default:
			al.TrainOnly = append(al.TrainOnly, c)
		}
	}
	for _, c := range test.Columns() {
		if !reserved(c) && !train.HasColumn(c) {
			al.TestOnly = append(al.TestOnly, c)
		}
	}

	if len(al.TrainOnly) > 0 {
		a.logger.Warnw("train columns missing from test, excluded from features", "columns", al.TrainOnly)
	}
	if len(al.TestOnly) > 0 {
		a.logger.Warnw("test columns missing from train, ignored", "columns", al.TestOnly)
	}
	if len(al.Features) == 0 {
		return nil, errors.WithHint(errors.New("train and test share no feature columns"),
			"check that both files use the same header names")
	}

	if al.Train, err = train.Select(append(append([]string(nil), al.Features...), a.schema.LabelColumn)); err != nil {
		return nil, err
	}
	if al.Test, err = test.Select(al.Features); err != nil {
		return nil, err
	}
	return al, nil
}

func shape(t *dataset.Table) [2]int { return [2]int{t.Len(), t.Width()} }
