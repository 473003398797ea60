package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type perfGauges struct {
	cpuPercent metric.Float64Gauge
	rssMb      metric.Int64Gauge
	heapMb     metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() (perfGauges, error) {
	meter := otel.Meter("elms.perf_stats")
	var g perfGauges
	var err error
	if g.cpuPercent, err = meter.Float64Gauge("host_cpu_percent"); err != nil {
		return g, err
	}
	if g.rssMb, err = meter.Int64Gauge("process_rss_mb"); err != nil {
		return g, err
	}
	if g.heapMb, err = meter.Int64Gauge("heap_alloc_mb"); err != nil {
		return g, err
	}
	g.goroutines, err = meter.Int64Gauge("goroutines")
	return g, err
}

func (g perfGauges) record(ctx context.Context, proc *process.Process) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	g.heapMb.Record(ctx, int64(mem.HeapAlloc>>20))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

	// a zero interval compares against the previous call instead of blocking
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		slog.Debug("read cpu usage", "err", err)
	} else if len(usage) > 0 {
		g.cpuPercent.Record(ctx, usage[0])
	}

	if proc == nil {
		return
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		slog.Debug("read process memory", "err", err)
		return
	}
	g.rssMb.Record(ctx, int64(info.RSS>>20))
}

// InstrumentPerfStats records cpu, memory and goroutine gauges every
// interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	gauges, err := newPerfGauges()
	if err != nil {
		slog.Warn("create perf stat gauges", "err", err)
		return
	}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Warn("inspect own process", "err", err)
		proc = nil
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				gauges.record(ctx, proc)
			}
		}
	}()
}
