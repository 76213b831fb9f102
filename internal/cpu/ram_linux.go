// Linux has no additional RAM probe beyond /proc/meminfo and cgroups,
// both handled in ram.go before this is ever reached.

//go:build linux

package cpu

func detectPlatformRAMGB() float64 { return 0 }
