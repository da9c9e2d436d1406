package timefn

import (
	"context"
	"fmt"
	"time"

	"github.com/mertkiray/promptvfx/internal/splat"
)

const (
	StageCompile = "compile"
	StageProbe   = "probe"
)

// DefaultProbeT is the probe time used when none is configured.
const DefaultProbeT = 0.25

// ValidationError rejects a candidate function before it is installed.
type ValidationError struct {
	Role  splat.Role
	Name  string
	Stage string
	T     float64
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Stage == StageCompile {
		return fmt.Sprintf("invalid %s function %q: compile: %v", e.Role, e.Name, e.Cause)
	}
	return fmt.Sprintf("invalid %s function %q at t=%g: %v", e.Role, e.Name, e.T, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// ValidateOptions configures the probe run.
type ValidateOptions struct {
	ProbeT  float64       // non-zero probe time, DefaultProbeT if zero
	Timeout time.Duration // per-call wall clock limit, none if zero
}

// Validate runs fn once at the probe time against sample's column for role
// and rejects errors, timeouts, shape mismatches and non-finite output.
// A single probe does not prove the function safe over its whole domain.
func Validate(ctx context.Context, fn TimeFunction, role splat.Role, sample *splat.AttributeSet, opts ValidateOptions) error {
	probe := opts.ProbeT
	if probe == 0 {
		probe = DefaultProbeT
	}
	if fn == nil {
		return &ValidationError{Role: role, Stage: StageProbe, T: probe, Cause: ErrNilFunc}
	}
	if fn.Role() != role {
		return &ValidationError{Role: role, Name: fn.Name(), Stage: StageProbe, T: probe,
			Cause: fmt.Errorf("function is for role %s", fn.Role())}
	}
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("validation sample: %w", err)
	}

	if _, err := Call(ctx, fn, probe, sample.Column(role), opts.Timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ValidationError{Role: role, Name: fn.Name(), Stage: StageProbe, T: probe, Cause: err}
	}
	return nil
}

// ValidateTriple validates all three functions, stopping at the first failure.
func ValidateTriple(ctx context.Context, tr Triple, sample *splat.AttributeSet, opts ValidateOptions) error {
	for _, role := range splat.Roles {
		if err := Validate(ctx, tr.Get(role), role, sample, opts); err != nil {
			return err
		}
	}
	return nil
}
