package cpu

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// AvailableRAMGB returns the RAM available to the current process in
// gigabytes, preferring a container's cgroup limit over the host total so a
// `--memory=1g` container reports 1 GB instead of the host's full capacity.
// Used by internal/device to pick conservative defaults (e.g. favoring f16
// over f32) on memory-constrained hosts.
//
// Detection priority:
//  1. cgroup v2 memory.max (containerized Linux)
//  2. cgroup v1 memory.limit_in_bytes (older Docker / k8s)
//  3. /proc/meminfo MemTotal (bare-metal Linux)
//  4. platform-specific probe (e.g. macOS sysctl)
//  5. Go runtime Sys bytes as a last resort
func AvailableRAMGB() float64 {
	if gb := readCgroupV2MemLimit(); gb > 0 {
		return gb
	}
	if gb := readCgroupV1MemLimit(); gb > 0 {
		return gb
	}
	if gb := readProcMeminfo(); gb > 0 {
		return gb
	}
	if gb := detectPlatformRAMGB(); gb > 0 {
		return gb
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys > 0 {
		return float64(m.Sys) / 1e9
	}
	return 8.0
}

func readCgroupV2MemLimit() float64 {
	data, err := os.ReadFile("/sys/fs/cgroup/memory.max")
	if err != nil {
		return 0
	}
	s := strings.TrimSpace(string(data))
	if s == "max" || s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return float64(v) / 1e9
}

func readCgroupV1MemLimit() float64 {
	data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes")
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	const unlimitedSentinel = 4 * 1024 * 1024 * 1024 * 1024 * 1024 // 4 PiB
	if v >= unlimitedSentinel {
		return 0
	}
	return float64(v) / 1e9
}

func readProcMeminfo() float64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return float64(kb) / 1e6
	}
	return 0
}
