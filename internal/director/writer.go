package director

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// WriteAnimation writes an animation to a YAML file
func WriteAnimation(anim *Animation, path string) error {
	data, err := yaml.Marshal(anim)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// ReadAnimation reads an animation from a YAML file, or from a .tengo script
// defining any of the three compute functions.
func ReadAnimation(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".tengo") {
		return animationFromScript(path, string(data)), nil
	}

	anim := DefaultAnimation()
	anim.Title = ""
	if err := yaml.Unmarshal(data, anim); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if anim.Title == "" {
		anim.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return anim, nil
}

func animationFromScript(path, src string) *Animation {
	anim := DefaultAnimation()
	anim.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, role := range splat.Roles {
		if strings.Contains(src, timefn.FunctionName(role)) {
			anim.Code.Set(role, src)
		}
	}
	return anim
}
