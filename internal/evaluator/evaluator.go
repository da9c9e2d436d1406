package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// FunctionEvaluationError reports an installed function failing at one frame.
type FunctionEvaluationError struct {
	Role  splat.Role
	Name  string
	Index int
	T     float64
	Cause error
}

func (e *FunctionEvaluationError) Error() string {
	return fmt.Sprintf("%s function %q failed at frame %d (t=%g): %v", e.Role, e.Name, e.Index, e.T, e.Cause)
}

func (e *FunctionEvaluationError) Unwrap() error { return e.Cause }

// Evaluator turns a baseline and a function triple into frames.
type Evaluator struct {
	// Timeout bounds each function call. Zero disables the limit.
	Timeout time.Duration
}

// New creates an evaluator with the given per-call timeout.
func New(timeout time.Duration) *Evaluator {
	return &Evaluator{Timeout: timeout}
}

// Evaluate materialises the frame at (index, t). At t == 0 the baseline is
// returned as-is and no function runs.
func (e *Evaluator) Evaluate(ctx context.Context, index int, t float64, set *splat.AttributeSet, tr timefn.Triple) (*splat.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if t == 0 {
		return splat.BaselineFrame(index, t, set), nil
	}
	if err := tr.Check(); err != nil {
		return nil, err
	}

	frame := &splat.Frame{Index: index, T: t}
	for _, role := range splat.Roles {
		fn := tr.Get(role)
		col, err := timefn.Call(ctx, fn, t, set.Column(role), e.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &FunctionEvaluationError{Role: role, Name: fn.Name(), Index: index, T: t, Cause: err}
		}
		switch role {
		case splat.Position:
			frame.Positions = col
		case splat.Color:
			frame.Colors = col
		default:
			frame.Opacities = col
		}
	}
	return frame, nil
}
