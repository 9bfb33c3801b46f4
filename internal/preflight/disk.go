package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// MinCacheSpaceBytes is the free space wanted for downloaded indexes (500MB).
const MinCacheSpaceBytes = 500 * 1024 * 1024

// CheckCacheDir checks that dir can be created and written and has room for
// a downloaded index.
func (c *Checker) CheckCacheDir(dir string) CheckResult {
	result := CheckResult{Name: "cache_dir"}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot create %s", dir)
		result.Details = err.Error()
		return result
	}
	probe := filepath.Join(dir, ".hvsearch-preflight")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is not writable", dir)
		result.Details = err.Error()
		return result
	}
	_ = os.Remove(probe)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}
	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (wanted: %s)", formatBytes(available), formatBytes(MinCacheSpaceBytes))
	if available < MinCacheSpaceBytes {
		result.Status = StatusWarn
		return result
	}
	result.Status = StatusPass
	return result
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
