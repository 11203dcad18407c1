package domain

import (
	"errors"
	"fmt"
)

// Stage identifies where a run aborted.
type Stage string

const (
	StageOpen     Stage = "open"
	StageRead     Stage = "read"
	StageDecode   Stage = "decode"
	StageDispatch Stage = "dispatch"
)

// StageError is the single fatal outcome of a follow run. It names the failing
// stage and file so an operator can tell a vanished file from a malformed
// stream from a rejected write.
type StageError struct {
	Stage Stage
	Path  string
	Line  int64
	Err   error
}

func (e *StageError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s %s (line %d): %v", e.Stage, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage Stage, path string, line int64, err error) *StageError {
	return &StageError{Stage: stage, Path: path, Line: line, Err: err}
}

// StageOf reports the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
