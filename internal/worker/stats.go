package worker

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a resource sample of the worker process.
type Usage struct {
	Pid        int
	CPUPercent float64
	RSS        uint64
}

// Sample reads the current CPU and memory usage of pid.
func Sample(pid int) (Usage, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Usage{}, fmt.Errorf("worker %d: %w", pid, err)
	}
	u := Usage{Pid: pid}
	if cpu, err := proc.CPUPercent(); err == nil {
		u.CPUPercent = cpu
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return u, fmt.Errorf("worker %d memory: %w", pid, err)
	}
	u.RSS = mem.RSS
	return u, nil
}

// HumanRSS formats the resident set size in KiB or MiB.
func (u Usage) HumanRSS() string {
	switch {
	case u.RSS >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(u.RSS)/(1<<20))
	default:
		return fmt.Sprintf("%dK", u.RSS>>10)
	}
}
