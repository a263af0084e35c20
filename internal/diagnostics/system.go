// Package diagnostics probes host capacity for the doctor command.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot is a point-in-time picture of host capacity.
type SystemSnapshot struct {
	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	GPUs []string `json:"gpus,omitempty"`
}

// Snapshot collects host capacity numbers. Every probe is best-effort: a
// failing source leaves its fields zero instead of failing the call.
func Snapshot(ctx context.Context) SystemSnapshot {
	var snap SystemSnapshot

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		snap.CPUCores = cores
	}
	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUThreads = threads
	}
	if percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemTotalMB = float64(vm.Total) / 1024 / 1024
		snap.MemUsedMB = float64(vm.Used) / 1024 / 1024
		snap.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, rootDiskPath()); err == nil {
		snap.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		snap.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.LoadAvg1 = avg.Load1
		snap.LoadAvg5 = avg.Load5
		snap.LoadAvg15 = avg.Load15
	}

	snap.GPUs = gpuNames()
	return snap
}

// Summary renders the snapshot as human-readable lines.
func (s SystemSnapshot) Summary() []string {
	model := s.CPUModel
	if model == "" {
		model = "unknown CPU"
	}
	lines := []string{
		fmt.Sprintf("CPU: %s (%d cores, %d threads), %.0f%% busy", model, s.CPUCores, s.CPUThreads, s.CPUPercent),
		fmt.Sprintf("Memory: %.0f MB used of %.0f MB (%.0f%%)", s.MemUsedMB, s.MemTotalMB, s.MemPercent),
		fmt.Sprintf("Disk: %.1f GB free of %.1f GB", s.DiskFreeGB, s.DiskTotalGB),
		fmt.Sprintf("Load average: %.2f %.2f %.2f", s.LoadAvg1, s.LoadAvg5, s.LoadAvg15),
	}
	if len(s.GPUs) > 0 {
		lines = append(lines, "GPU: "+strings.Join(s.GPUs, ", "))
	}
	return lines
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		if drive := os.Getenv("SystemDrive"); drive != "" {
			return drive + `\`
		}
		return `C:\`
	}
	return "/"
}

// gpuNames lists GPU products through ghw. PCI databases are not present
// on every host, so failures and empty inventories are tolerated.
func gpuNames() []string {
	info, err := ghw.GPU()
	if err != nil || info == nil {
		return nil
	}
	names := make([]string, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			if card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			} else if card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		names = append(names, name)
	}
	return names
}
