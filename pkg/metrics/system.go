package metrics

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SampleSystem refreshes the system gauges. It is run from the scheduler.
func (m *Metrics) SampleSystem(ctx context.Context) error {
	m.systemGoroutines.Set(float64(runtime.NumGoroutine()))

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	m.systemMemoryUsage.WithLabelValues("used").Set(float64(vm.Used))
	m.systemMemoryUsage.WithLabelValues("available").Set(float64(vm.Available))

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}
	if len(percents) > 0 {
		m.systemCPUUsage.Set(percents[0])
	}
	return nil
}
