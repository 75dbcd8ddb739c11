package util

import (
	"runtime"
)

// GetHeapAllocMB returns the current heap allocation in MB, logged with each run.
func GetHeapAllocMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / 1024 / 1024
}
