package director

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

func TestGenerateAnimationPath(t *testing.T) {
	path := GenerateAnimationPath("animations", "Melting Ice")

	if !strings.HasPrefix(filepath.Base(path), "melting_ice_") {
		t.Errorf("Unexpected file name: %s", path)
	}
	if filepath.Dir(path) != "animations" || filepath.Ext(path) != ".yaml" {
		t.Errorf("Unexpected path: %s", path)
	}
	t.Logf("Generated path: %s", path)
}

func TestFindLatestAnimation(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.tengo"),
		filepath.Join(dir, "c.yml"),
	}
	for i, f := range files {
		os.WriteFile(f, []byte("title: x"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	latest, err := FindLatestAnimation(dir)
	if err != nil {
		t.Fatalf("FindLatestAnimation failed: %v", err)
	}
	if latest != files[2] {
		t.Errorf("Expected %s, got %s", files[2], latest)
	}

	if _, err := FindLatestAnimation(t.TempDir()); err == nil {
		t.Error("Expected an error for an empty directory")
	}
}

func TestReadTengoAnimation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.tengo")
	src := riseCode + "\n" + timefn.IdentitySource(splat.Color)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	anim, err := ReadAnimation(path)
	if err != nil {
		t.Fatalf("ReadAnimation failed: %v", err)
	}
	if anim.Title != "wave" {
		t.Errorf("Title = %q", anim.Title)
	}
	if anim.Code.Positions != src || anim.Code.Colors != src {
		t.Error("Script not used for the roles it defines")
	}
	if anim.Code.Opacities == src {
		t.Error("Opacity should fall back to identity")
	}
	if _, err := Compile(anim, timefn.DefaultScriptOptions()); err != nil {
		t.Errorf("Compile failed: %v", err)
	}
}
