package timefn

import (
	"context"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// ScriptOptions bounds what a generated script may do.
type ScriptOptions struct {
	Modules   []string // stdlib modules the script may import
	MaxAllocs int64    // VM object allocation cap per call, <= 0 for unlimited
}

// DefaultScriptOptions allows only numeric modules.
func DefaultScriptOptions() ScriptOptions {
	return ScriptOptions{
		Modules:   []string{"math", "rand"},
		MaxAllocs: 50_000_000,
	}
}

// FunctionName is the global a script must define for role.
func FunctionName(role splat.Role) string {
	switch role {
	case splat.Position:
		return "compute_positions"
	case splat.Color:
		return "compute_colors"
	default:
		return "compute_opacities"
	}
}

// IdentitySource is the default script body for role.
func IdentitySource(role splat.Role) string {
	name := FunctionName(role)
	arg := strings.TrimPrefix(name, "compute_")
	return fmt.Sprintf("%s := func(t, %s) {\n\treturn copy(%s)\n}", name, arg, arg)
}

const scriptDispatch = "\n__out := %s(__t, __in)\n"

// ScriptFunc is a TimeFunction backed by a compiled tengo script.
// The script runs in its own VM with no host bindings beyond the allowed
// stdlib modules.
type ScriptFunc struct {
	name     string
	role     splat.Role
	source   string
	compiled *tengo.Compiled
}

// CompileScript compiles source, which must define FunctionName(role).
// Failures are reported as *ValidationError with Stage "compile".
func CompileScript(role splat.Role, name, source string, opts ScriptOptions) (*ScriptFunc, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &ValidationError{Role: role, Name: name, Stage: StageCompile, Cause: fmt.Errorf("empty source")}
	}

	src := source + fmt.Sprintf(scriptDispatch, FunctionName(role))
	script := tengo.NewScript([]byte(src))
	_ = script.Add("__t", 0.0)
	_ = script.Add("__in", &tengo.Array{})
	script.SetImports(stdlib.GetModuleMap(opts.Modules...))
	if opts.MaxAllocs > 0 {
		script.SetMaxAllocs(opts.MaxAllocs)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, &ValidationError{Role: role, Name: name, Stage: StageCompile, Cause: err}
	}

	return &ScriptFunc{
		name:     name,
		role:     role,
		source:   source,
		compiled: compiled,
	}, nil
}

func (s *ScriptFunc) Name() string     { return s.name }
func (s *ScriptFunc) Role() splat.Role { return s.role }

// Source returns the script body as supplied.
func (s *ScriptFunc) Source() string { return s.source }

// Apply runs the script on a clone of the compiled program, so calls may
// proceed concurrently.
func (s *ScriptFunc) Apply(ctx context.Context, t float64, column splat.Column) (splat.Column, error) {
	c := s.compiled.Clone()
	if err := c.Set("__t", t); err != nil {
		return nil, err
	}
	if err := c.Set("__in", columnToObject(column)); err != nil {
		return nil, err
	}
	if err := c.RunContext(ctx); err != nil {
		return nil, err
	}
	return objectToColumn(c.Get("__out").Object())
}

func columnToObject(c splat.Column) *tengo.Array {
	rows := make([]tengo.Object, len(c))
	for i, row := range c {
		vals := make([]tengo.Object, len(row))
		for j, v := range row {
			vals[j] = &tengo.Float{Value: v}
		}
		rows[i] = &tengo.Array{Value: vals}
	}
	return &tengo.Array{Value: rows}
}

func objectToColumn(obj tengo.Object) (splat.Column, error) {
	rows, ok := arrayValues(obj)
	if !ok {
		return nil, fmt.Errorf("%w: result is %s, want array", splat.ErrShape, typeName(obj))
	}
	out := make(splat.Column, len(rows))
	for i, r := range rows {
		vals, ok := arrayValues(r)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is %s, want array", splat.ErrShape, i, typeName(r))
		}
		row := make([]float64, len(vals))
		for j, v := range vals {
			switch n := v.(type) {
			case *tengo.Float:
				row[j] = n.Value
			case *tengo.Int:
				row[j] = float64(n.Value)
			default:
				return nil, fmt.Errorf("%w: value [%d][%d] is %s, want number", splat.ErrShape, i, j, typeName(v))
			}
		}
		out[i] = row
	}
	return out, nil
}

func arrayValues(obj tengo.Object) ([]tengo.Object, bool) {
	switch v := obj.(type) {
	case *tengo.Array:
		return v.Value, true
	case *tengo.ImmutableArray:
		return v.Value, true
	default:
		return nil, false
	}
}

func typeName(obj tengo.Object) string {
	if obj == nil {
		return "nil"
	}
	return obj.TypeName()
}
