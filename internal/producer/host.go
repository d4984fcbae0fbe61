package producer

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine doing the generation. Timings are only
// comparable between runs on similarly loaded hosts.
type HostInfo struct {
	Hostname       string  `json:"hostname"`
	OS             string  `json:"os"`
	Platform       string  `json:"platform"`
	CPUs           int     `json:"cpus"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemTotal       uint64  `json:"memTotal"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	Load1          float64 `json:"load1"`
	UptimeSeconds  uint64  `json:"uptimeSeconds"`
	ActiveStreams  int     `json:"activeStreams"`
}

// collectHost gathers what gopsutil can report. Individual probes that are
// unsupported on the platform are left at their zero value.
func collectHost(ctx context.Context) HostInfo {
	info := HostInfo{OS: runtime.GOOS, CPUs: runtime.NumCPU()}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.UptimeSeconds = h.Uptime
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.CPUs = n
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotal = vm.Total
		info.MemUsedPercent = vm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.Load1 = avg.Load1
	}
	return info
}
