package preflight

import (
	"fmt"
	"syscall"
)

const (
	// MinDiskSpaceBytes is the free space below which indexing cannot
	// complete (100 MB).
	MinDiskSpaceBytes = 100 * 1024 * 1024
	// RecommendedDiskSpaceBytes covers shallow clones of the built-in
	// catalogue plus the store and its backup (2 GB).
	RecommendedDiskSpaceBytes = 2 * 1024 * 1024 * 1024
)

// CheckDiskSpace checks the free space on the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free at %s", formatBytes(available), path)

	switch {
	case available < MinDiskSpaceBytes:
		result.Status = StatusFail
		result.Details = "At least 100 MB is needed for the store"
	case available < RecommendedDiskSpaceBytes:
		result.Status = StatusWarn
		result.Details = "The built-in catalogue needs about 2 GB for clones, store and backup"
	default:
		result.Status = StatusPass
	}
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
