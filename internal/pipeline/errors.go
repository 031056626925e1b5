package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLedgerFetch means the ledger could not be read after all retries.
	ErrLedgerFetch = errors.New("ledger fetch failed")
	// ErrCompose means no response could be generated.
	ErrCompose = errors.New("response composition failed")
	// ErrCanceled means the caller abandoned the run.
	ErrCanceled = errors.New("pipeline run canceled")
	// ErrTimeout means the run exceeded its deadline.
	ErrTimeout = errors.New("pipeline run timed out")
	// ErrInvalidState means a stage ran without the facts it depends on.
	ErrInvalidState = errors.New("invalid pipeline state")
)

// RunError is the terminal failure of a run.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// FailureKind returns a short label for err suitable for audit records.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrLedgerFetch):
		return "ledger_fetch"
	case errors.Is(err, ErrCompose):
		return "compose"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "internal"
	}
}

// contextErr maps a finished context to ErrTimeout or ErrCanceled.
func contextErr(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrCanceled, err)
}
