package director

import (
	"fmt"
	"strings"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// DefaultFPS is the preview frame rate when an animation names none.
const DefaultFPS = 8

// Animation is a complete generated animation, as stored on disk.
type Animation struct {
	Version         string    `yaml:"version"`
	Title           string    `yaml:"title"`
	Description     string    `yaml:"description"`
	Duration        int       `yaml:"duration"` // seconds
	FPS             int       `yaml:"fps,omitempty"`
	AbstractSummary string    `yaml:"abstract_summary,omitempty"`
	Behaviors       RoleTexts `yaml:"behaviors,omitempty"`
	Code            RoleTexts `yaml:"code"`
	Score           int       `yaml:"score"`
	Feedback        []string  `yaml:"feedback,omitempty"` // applied in order
}

// RoleTexts holds one text per attribute role.
type RoleTexts struct {
	Positions string `yaml:"positions,omitempty"`
	Colors    string `yaml:"colors,omitempty"`
	Opacities string `yaml:"opacities,omitempty"`
}

// Get returns the text for role.
func (r RoleTexts) Get(role splat.Role) string {
	switch role {
	case splat.Position:
		return r.Positions
	case splat.Color:
		return r.Colors
	default:
		return r.Opacities
	}
}

// Set replaces the text for role.
func (r *RoleTexts) Set(role splat.Role, text string) {
	switch role {
	case splat.Position:
		r.Positions = text
	case splat.Color:
		r.Colors = text
	default:
		r.Opacities = text
	}
}

// DefaultAnimation leaves the object untouched for one second.
func DefaultAnimation() *Animation {
	a := &Animation{
		Version:  "1.0",
		Title:    "identity",
		Duration: 1,
		FPS:      DefaultFPS,
		Score:    -1,
	}
	for _, role := range splat.Roles {
		a.Code.Set(role, timefn.IdentitySource(role))
	}
	return a
}

// Descriptor returns the sampling schedule, falling back to DefaultFPS.
func (a *Animation) Descriptor() (clock.Descriptor, error) {
	fps := a.FPS
	if fps == 0 {
		fps = DefaultFPS
	}
	return clock.NewDescriptor(a.Duration, fps)
}

// Clone returns an independent copy.
func (a *Animation) Clone() *Animation {
	c := *a
	c.Feedback = append([]string(nil), a.Feedback...)
	return &c
}

// Compile turns the three code bodies into a function triple. Missing code
// falls back to identity.
func Compile(a *Animation, opts timefn.ScriptOptions) (timefn.Triple, error) {
	var tr timefn.Triple
	for _, role := range splat.Roles {
		src := a.Code.Get(role)
		if strings.TrimSpace(src) == "" {
			src = timefn.IdentitySource(role)
		}
		fn, err := timefn.CompileScript(role, fmt.Sprintf("%s/%s", slug(a.Title), role), src, opts)
		if err != nil {
			return timefn.Triple{}, err
		}
		tr = tr.With(fn)
	}
	return tr, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "untitled"
	}
	return strings.Join(strings.Fields(s), "_")
}
