package pipeline

import "fmt"

// Stage names a pipeline step in errors and logs.
type Stage string

const (
	StageLoad    Stage = "load"
	StageImpute  Stage = "impute"
	StageEncode  Stage = "encode"
	StageAlign   Stage = "align"
	StageSplit   Stage = "split"
	StageTrain   Stage = "train"
	StagePredict Stage = "predict"
	StageWrite   Stage = "write"
)

// StageError wraps the failure of one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// ImputationError reports a column whose fill value cannot be computed.
type ImputationError struct {
	Table  string
	Column string
	Reason string
}

func (e *ImputationError) Error() string {
	return fmt.Sprintf("cannot impute column %q of %s table: %s", e.Column, e.Table, e.Reason)
}

// UnknownCategoryError reports a categorical value outside the fixed lookup.
type UnknownCategoryError struct {
	Table  string
	Column string
	Value  string
	Row    int
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q in column %q of %s table at row %d", e.Value, e.Column, e.Table, e.Row)
}
