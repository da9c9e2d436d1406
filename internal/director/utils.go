package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mertkiray/promptvfx/internal/system"
)

// GenerateAnimationPath creates a timestamped animation filename in dir
func GenerateAnimationPath(dir, title string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", slug(title), timestamp))
}

// FindLatestAnimation finds the most recently modified animation file in dir
func FindLatestAnimation(dir string) (string, error) {
	path, err := system.FindLatestFile(dir, system.AnimationExtensions...)
	if err != nil {
		return "", fmt.Errorf("find animation: %w", err)
	}
	return path, nil
}
