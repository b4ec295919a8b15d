// Package pipeline turns a labeled training table and an unlabeled test table
// into per-passenger survival predictions.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"titanicml/config"
	"titanicml/dataset"
	"titanicml/db"
	"titanicml/ml"
)

const modelName = "logistic_regression"

// RunRecorder persists a finished run.
type RunRecorder interface {
	SaveRun(ctx context.Context, run db.TrainingLog, predictions []db.Prediction) error
}

// Result summarizes one pipeline run.
type Result struct {
	RunID             string
	TrainShape        [2]int
	TestShape         [2]int
	Features          []string
	TrainMetrics      ml.Metrics
	ValidationMetrics ml.Metrics
	Iterations        int
	Converged         bool
	Predictions       []db.Prediction
	OutputPath        string
}

// Pipeline runs the stages in order: load, impute, encode, align, split,
// train, predict, write. Every stage failure is returned as a *StageError.
type Pipeline struct {
	cfg      config.Config
	logger   *zap.SugaredLogger
	recorder RunRecorder
}

func New(cfg config.Config, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// WithRecorder sets the run recorder. Without one, a store is opened at
// store.path for each run when that path is configured.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	res := &Result{RunID: uuid.NewString(), OutputPath: p.cfg.Output.Path}
	log := p.logger.With("run_id", res.RunID)
	start := time.Now()
	schema := p.cfg.Schema

	// load
	train, test, err := dataset.LoadPair(p.cfg.Input.TrainPath, p.cfg.Input.TestPath, dataset.Options{
		Delimiter:      p.cfg.DelimiterRune(),
		Encoding:       p.cfg.Input.Encoding,
		MissingMarkers: p.cfg.Input.MissingMarkers,
	})
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	res.TrainShape, res.TestShape = shape(train), shape(test)
	log.Infow("loaded input", "train_shape", res.TrainShape, "test_shape", res.TestShape)
	logMissing(log, "train", train)
	logMissing(log, "test", test)

	rawIDs, ok := test.Column(schema.IDColumn)
	if !ok {
		return nil, stageErr(StageLoad, errors.WithHintf(
			errors.Newf("id column %q not found in test table", schema.IDColumn),
			"set schema.id_column to the identifier column of %s", p.cfg.Input.TestPath))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// impute
	imputer := NewImputer(p.cfg.Impute, log.Named("impute"))
	if train, _, err = imputer.Apply(train, "train"); err != nil {
		return nil, stageErr(StageImpute, err)
	}
	if test, _, err = imputer.Apply(test, "test"); err != nil {
		return nil, stageErr(StageImpute, err)
	}

	// encode
	encoder, err := FitEncoder(train, p.cfg.Encode, log.Named("encode"))
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	if train, err = encoder.Apply(train, "train"); err != nil {
		return nil, stageErr(StageEncode, err)
	}
	if test, err = encoder.Apply(test, "test"); err != nil {
		return nil, stageErr(StageEncode, err)
	}

	// align
	aligned, err := NewAligner(p.cfg.Drop, schema, log.Named("align")).Align(train, test)
	if err != nil {
		return nil, stageErr(StageAlign, err)
	}
	res.Features = aligned.Features
	log.Infow("aligned features", "features", aligned.Features)

	trainX, err := ml.FeatureMatrix(aligned.Train, aligned.Features)
	if err != nil {
		return nil, stageErr(StageAlign, errors.Wrap(err, "train features"))
	}
	trainY, err := ml.Labels(aligned.Train, schema.LabelColumn)
	if err != nil {
		return nil, stageErr(StageAlign, errors.Wrap(err, "train labels"))
	}
	testX, err := ml.FeatureMatrix(aligned.Test, aligned.Features)
	if err != nil {
		return nil, stageErr(StageAlign, errors.Wrap(err, "test features"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// split
	part, err := Split(len(trainX), p.cfg.Split.ValidationFraction, p.cfg.Split.Seed)
	if err != nil {
		return nil, stageErr(StageSplit, err)
	}
	fitX, fitY := SelectRows(trainX, trainY, part.Train)
	valX, valY := SelectRows(trainX, trainY, part.Validation)
	log.Infow("split training data", "train_rows", len(fitX), "validation_rows", len(valX),
		"seed", p.cfg.Split.Seed)

	// train
	tc := p.cfg.Training
	model := ml.NewLogisticRegression(ml.TrainingConfig{
		MaxIter:      tc.MaxIter,
		LearningRate: tc.LearningRate,
		C:            tc.C,
		Tolerance:    tc.Tolerance,
		Threshold:    tc.Threshold,
	})
	if err := model.Train(fitX, fitY); err != nil {
		var convErr *ml.ConvergenceError
		if !errors.As(err, &convErr) || tc.FailOnNonConvergence {
			return nil, stageErr(StageTrain, err)
		}
		if convErr.Unusable() {
			return nil, stageErr(StageTrain, errors.WithHint(err,
				"check the training features for extreme values or lower training.learning_rate"))
		}
		log.Warnw("model did not converge, using best iterate",
			"iterations", convErr.Iterations, "grad_norm", convErr.GradNorm, "diverged", convErr.Diverged)
	}
	res.Iterations, res.Converged = model.Iterations(), model.Converged()

	if res.TrainMetrics, err = ml.EvaluateModel(model, fitX, fitY); err != nil {
		return nil, stageErr(StageTrain, err)
	}
	if res.ValidationMetrics, err = ml.EvaluateModel(model, valX, valY); err != nil {
		return nil, stageErr(StageTrain, err)
	}
	log.Infow("model trained",
		"iterations", res.Iterations, "converged", res.Converged, "loss", model.Loss(),
		"train_accuracy", res.TrainMetrics.Accuracy,
		"validation_accuracy", res.ValidationMetrics.Accuracy,
		"validation_precision", res.ValidationMetrics.Precision,
		"validation_recall", res.ValidationMetrics.Recall,
		"validation_f1", res.ValidationMetrics.F1)

	// predict
	labels, err := model.Predict(testX)
	if err != nil {
		return nil, stageErr(StagePredict, err)
	}
	if len(labels) != len(rawIDs) {
		return nil, stageErr(StagePredict, errors.AssertionFailedf(
			"%d predictions for %d test ids", len(labels), len(rawIDs)))
	}
	res.Predictions = make([]db.Prediction, len(labels))
	rows := make([][]string, len(labels))
	for i, label := range labels {
		id := rawIDs[i].String()
		res.Predictions[i] = db.Prediction{EntityID: id, Label: label}
		rows[i] = []string{id, strconv.Itoa(label)}
	}

	// write
	if err := dataset.WriteCSV(res.OutputPath, []string{schema.IDColumn, schema.LabelColumn}, rows); err != nil {
		return nil, stageErr(StageWrite, err)
	}
	log.Infow("predictions written", "path", res.OutputPath, "rows", len(rows),
		"duration", time.Since(start))

	p.record(ctx, log, res, start)
	return res, nil
}

func logMissing(log *zap.SugaredLogger, table string, t *dataset.Table) {
	counts := t.MissingCounts()
	if len(counts) > 5 {
		counts = counts[:5]
	}
	for _, c := range counts {
		if c.Missing == 0 {
			break
		}
		log.Infow("missing values", "table", table, "column", c.Column, "missing", c.Missing)
	}
}

// record saves the run when a recorder or store path is configured. The
// predictions file is already written, so failures are only logged.
func (p *Pipeline) record(ctx context.Context, log *zap.SugaredLogger, res *Result, trainedAt time.Time) {
	recorder := p.recorder
	if recorder == nil {
		if p.cfg.Store.Path == "" {
			return
		}
		store, err := db.Open(p.cfg.Store.Path)
		if err != nil {
			log.Errorw("open run store failed", "path", p.cfg.Store.Path, "error", err)
			return
		}
		defer store.Close()
		recorder = store
	}

	run := db.TrainingLog{
		RunID:              res.RunID,
		ModelName:          modelName,
		Accuracy:           res.TrainMetrics.Accuracy,
		ValidationAccuracy: res.ValidationMetrics.Accuracy,
		Precision:          res.ValidationMetrics.Precision,
		Recall:             res.ValidationMetrics.Recall,
		Iterations:         res.Iterations,
		Converged:          res.Converged,
		TrainRows:          res.TrainShape[0],
		TestRows:           res.TestShape[0],
		Features:           res.Features,
		TrainedAt:          trainedAt,
	}
	if err := recorder.SaveRun(ctx, run, res.Predictions); err != nil {
		log.Errorw("save run failed", "error", err)
		return
	}
	log.Infow("run recorded")
}
