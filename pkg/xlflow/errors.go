package xlflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/workpool"
)

// ErrUnreadableWorkbook indicates the workbook could not be opened.
var ErrUnreadableWorkbook = errors.New("workbook cannot be read")

// ErrNothingToProcess indicates the filter selected no sheet.
var ErrNothingToProcess = errors.New("no sheets selected for analysis")

// Whole-job error kinds reported in WorkbookResult.ErrorKind.
const (
	KindUnreadableWorkbook = "unreadable_workbook"
	KindNothingToProcess   = "nothing_to_process"
	KindCanceled           = "canceled"
)

// Cause tags why a stage failed.
type Cause string

const (
	CauseFailed   Cause = "failed"
	CauseTimeout  Cause = "timeout"
	CauseCanceled Cause = "canceled"
	CausePanic    Cause = "panic"
)

// StageError is the failure of one pipeline stage for one sheet. It never
// crosses the sheet boundary: it ends up in SheetResult.Error.
type StageError struct {
	SheetIndex int
	SheetName  string
	Stage      State
	Cause      Cause
	Err        error
}

func (e *StageError) Error() string {
	if e.Cause == CauseFailed {
		return fmt.Sprintf("sheet %q: %s failed: %v", e.SheetName, e.Stage, e.Err)
	}
	return fmt.Sprintf("sheet %q: %s failed (%s): %v", e.SheetName, e.Stage, e.Cause, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// newStageError classifies err and wraps it for the given sheet and stage.
func newStageError(idx int, name string, stage State, err error) *StageError {
	return &StageError{
		SheetIndex: idx,
		SheetName:  name,
		Stage:      stage,
		Cause:      classify(err),
		Err:        err,
	}
}

func classify(err error) Cause {
	var pe *workpool.PanicError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	case errors.As(err, &pe), errors.Is(err, errPanic):
		return CausePanic
	default:
		return CauseFailed
	}
}

var errPanic = errors.New("panic")

// reportedFailure converts a collaborator result with Success=false into
// an error.
func reportedFailure(msg string) error {
	if msg == "" {
		msg = "collaborator reported failure"
	}
	return errors.New(msg)
}
