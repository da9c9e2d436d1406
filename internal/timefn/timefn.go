package timefn

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mertkiray/promptvfx/internal/splat"
)

var (
	ErrTimeout = errors.New("evaluation timed out")
	ErrNilFunc = errors.New("nil time function")
)

// TimeFunction maps (t, baseline column) to a column of the same shape.
// Implementations may be called any number of times, concurrently, and with
// t values in any order.
type TimeFunction interface {
	Name() string
	Role() splat.Role
	Apply(ctx context.Context, t float64, column splat.Column) (splat.Column, error)
}

// GoFunc is the signature of a native time function.
type GoFunc func(t float64, column splat.Column) (splat.Column, error)

type nativeFunc struct {
	name string
	role splat.Role
	fn   GoFunc
}

// Func wraps a Go function as a TimeFunction.
func Func(role splat.Role, name string, fn GoFunc) TimeFunction {
	return &nativeFunc{name: name, role: role, fn: fn}
}

func (f *nativeFunc) Name() string     { return f.name }
func (f *nativeFunc) Role() splat.Role { return f.role }

func (f *nativeFunc) Apply(_ context.Context, t float64, column splat.Column) (splat.Column, error) {
	return f.fn(t, column)
}

// Identity returns a native function that copies its input.
func Identity(role splat.Role) TimeFunction {
	return Func(role, "identity_"+role.String(), func(_ float64, c splat.Column) (splat.Column, error) {
		return c.Clone(), nil
	})
}

// Triple is the active set of three functions, one per role.
type Triple struct {
	Position TimeFunction
	Color    TimeFunction
	Opacity  TimeFunction
}

// IdentityTriple leaves every attribute unchanged.
func IdentityTriple() Triple {
	return Triple{
		Position: Identity(splat.Position),
		Color:    Identity(splat.Color),
		Opacity:  Identity(splat.Opacity),
	}
}

// Get returns the function installed for role.
func (tr Triple) Get(role splat.Role) TimeFunction {
	switch role {
	case splat.Position:
		return tr.Position
	case splat.Color:
		return tr.Color
	default:
		return tr.Opacity
	}
}

// With returns a copy of the triple with the role's function replaced.
func (tr Triple) With(fn TimeFunction) Triple {
	switch fn.Role() {
	case splat.Position:
		tr.Position = fn
	case splat.Color:
		tr.Color = fn
	default:
		tr.Opacity = fn
	}
	return tr
}

// Check verifies every slot is filled by a function of the matching role.
func (tr Triple) Check() error {
	for _, role := range splat.Roles {
		fn := tr.Get(role)
		if fn == nil {
			return fmt.Errorf("%s slot: %w", role, ErrNilFunc)
		}
		if fn.Role() != role {
			return fmt.Errorf("%s slot holds %s function %q", role, fn.Role(), fn.Name())
		}
	}
	return nil
}

// Call runs fn on a private copy of in, bounded by timeout, and checks that the
// result has the input's shape and only finite values. A timeout yields
// ErrTimeout; cancellation of ctx yields ctx.Err(). Panics become errors.
func Call(ctx context.Context, fn TimeFunction, t float64, in splat.Column, timeout time.Duration) (splat.Column, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		col splat.Column
		err error
	}
	done := make(chan result, 1)
	arg := in.Clone()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
			}
		}()
		col, err := fn.Apply(runCtx, t, arg)
		done <- result{col: col, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		return nil, res.err
	}
	if err := res.col.CheckShape(in.Len(), fn.Role().Width()); err != nil {
		return nil, err
	}
	if err := res.col.CheckFinite(); err != nil {
		return nil, err
	}
	return res.col, nil
}
