// Package sysinfo captures the host hardware a benchmark ran on.
// Encode timings are meaningless without the CPU behind them.
package sysinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the benchmarking host
type HostInfo struct {
	CPUModel   string `json:"cpu_model"`
	CPUThreads int    `json:"cpu_threads"`
	RAMBytes   uint64 `json:"ram_bytes"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}

// Detect reads CPU and memory information. Detection is best effort:
// fields that cannot be read stay at their zero value rather than
// failing the run.
func Detect() HostInfo {
	info := HostInfo{
		CPUThreads: runtime.NumCPU(),
		CPUModel:   "Unknown",
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMBytes = vm.Total
	}
	return info
}
