package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// AnimationExtensions are the file types an animation can be read from.
var AnimationExtensions = []string{".yaml", ".yml", ".tengo"}

// ObjectExtensions are the file types a point cloud can be read from.
var ObjectExtensions = []string{".yaml", ".yml", ".splat"}

// FindLatestFile returns the most recently modified file in dir whose
// extension is one of exts (case-insensitive).
func FindLatestFile(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(f.Name()))) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one
// and falls back to libx264. The probe runs once per process.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		encoderName = "libx264"
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
			if strings.Contains(string(out), name) {
				encoderName = name
				return
			}
		}
	})
	return encoderName
}

// HostReport describes the machine a session runs on.
type HostReport struct {
	PhysicalCores int
	LogicalCores  int
	TotalMemory   uint64 // bytes
	UsedPercent   float64
	ProcessRSS    uint64 // bytes, resident set of this process
}

// Host collects a HostReport. Fields gopsutil cannot read stay zero.
func Host() HostReport {
	var r HostReport
	if n, err := cpu.Counts(false); err == nil {
		r.PhysicalCores = n
	}
	if n, err := cpu.Counts(true); err == nil {
		r.LogicalCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.TotalMemory = vm.Total
		r.UsedPercent = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			r.ProcessRSS = mi.RSS
		}
	}
	return r
}

// DefaultWorkers is the number of parallel frame evaluations to use when
// none is configured: the physical core count, or GOMAXPROCS if unknown.
func DefaultWorkers() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (r HostReport) String() string {
	return fmt.Sprintf("cores %d/%d | memory %s (%.0f%% used) | rss %s",
		r.PhysicalCores, r.LogicalCores, FormatBytes(r.TotalMemory), r.UsedPercent, FormatBytes(r.ProcessRSS))
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
