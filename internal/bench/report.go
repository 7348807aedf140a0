package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/vango-dev/retain/pkg/protocol"
)

// Report is the result of one run.
type Report struct {
	Version    string         `json:"version"`
	Run        RunInfo        `json:"run"`
	Workload   WorkloadInfo   `json:"workload"`
	LatencyMS  LatencyInfo    `json:"latency_ms"`
	Throughput ThroughputInfo `json:"throughput"`
	GC         GCInfo         `json:"gc"`
	Protocol   ProtocolInfo   `json:"protocol"`
	Errors     ErrorInfo      `json:"errors"`
}

// ReportVersion is the current Report layout.
const ReportVersion = "1"

type RunInfo struct {
	Timestamp       string `json:"timestamp"`
	Go              string `json:"go"`
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	CPUCount        int    `json:"cpu_count"`
	ProtocolVersion string `json:"protocol_version"`
}

type WorkloadInfo struct {
	Profile        string  `json:"profile"`
	Clients        int     `json:"clients"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client"`
	ListSize       int     `json:"list_size"`
	PayloadBytes   int     `json:"payload_bytes"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
}

type LatencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type ThroughputInfo struct {
	EventsTotal        uint64  `json:"events_total"`
	EventsPerSec       float64 `json:"events_per_sec"`
	EventsPerSecClient float64 `json:"events_per_sec_per_client"`
}

type GCInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type ProtocolInfo struct {
	EventBytesTotal uint64            `json:"event_bytes_total"`
	OpsBytesTotal   uint64            `json:"ops_bytes_total"`
	OpsFrames       uint64            `json:"ops_frames_total"`
	OpsTotal        uint64            `json:"ops_total"`
	AvgEventBytes   float64           `json:"avg_event_bytes"`
	AvgOpsBytes     float64           `json:"avg_ops_bytes"`
	OpsPerEvent     float64           `json:"ops_per_event"`
	OpCounts        map[string]uint64 `json:"op_counts"`
}

type ErrorInfo struct {
	TotalErrors         uint64 `json:"total_errors"`
	HandshakeFailures   uint64 `json:"handshake_failures"`
	EventWriteFailures  uint64 `json:"event_write_failures"`
	FrameDecodeFailures uint64 `json:"frame_decode_failures"`
	OpsDecodeFailures   uint64 `json:"ops_decode_failures"`
	ServerErrorFrames   uint64 `json:"server_error_frames"`
	TokenMissing        uint64 `json:"token_missing"`
}

type runtimeSnapshot struct {
	cpuTotalSeconds   float64
	cpuGCSeconds      float64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeSnapshot
	for _, s := range samples {
		if s.Value.Kind() == metrics.KindBad {
			continue
		}
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if total <= 0 || gc < 0 {
		return 0
	}
	return gc / total
}

// percentile returns the nearest-rank percentile of sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	n := after.NumGC - before.NumGC
	if n == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(n))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func buildReport(
	cfg Config,
	elapsed time.Duration,
	latencies []time.Duration,
	st *stats,
	before, after runtime.MemStats,
	beforeMetrics, afterMetrics runtimeSnapshot,
) Report {
	eventsTotal := st.eventsComplete.Load()
	eventsSent := st.eventsSent.Load()
	opsTotal := st.opsTotal.Load()
	eventBytes := st.eventBytes.Load()
	opsBytes := st.opsBytes.Load()

	eventsPerSec := float64(eventsTotal) / math.Max(0.001, elapsed.Seconds())

	var latency LatencyInfo
	if len(latencies) > 0 {
		latency = LatencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	return Report{
		Version: ReportVersion,
		Run: RunInfo{
			Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
			Go:              runtime.Version(),
			OS:              runtime.GOOS,
			Arch:            runtime.GOARCH,
			CPUCount:        runtime.NumCPU(),
			ProtocolVersion: fmt.Sprintf("%d.%d", protocol.CurrentVersion.Major, protocol.CurrentVersion.Minor),
		},
		Workload: WorkloadInfo{
			Profile:        cfg.Profile,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			ListSize:       cfg.ListSize,
			PayloadBytes:   cfg.PayloadBytes,
			EventTimeoutMS: cfg.eventTimeout().Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: ThroughputInfo{
			EventsTotal:        eventsTotal,
			EventsPerSec:       eventsPerSec,
			EventsPerSecClient: eventsPerSec / float64(cfg.Clients),
		},
		GC: GCInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Protocol: ProtocolInfo{
			EventBytesTotal: eventBytes,
			OpsBytesTotal:   opsBytes,
			OpsFrames:       st.opsFrames.Load(),
			OpsTotal:        opsTotal,
			AvgEventBytes:   ratio(eventBytes, eventsSent),
			AvgOpsBytes:     ratio(opsBytes, eventsTotal),
			OpsPerEvent:     ratio(opsTotal, eventsTotal),
			OpCounts:        st.ops.snapshot(),
		},
		Errors: ErrorInfo{
			TotalErrors:         st.errs.totalErrors.Load(),
			HandshakeFailures:   st.errs.handshakeFailures.Load(),
			EventWriteFailures:  st.errs.eventWriteFailures.Load(),
			FrameDecodeFailures: st.errs.frameDecodeFailures.Load(),
			OpsDecodeFailures:   st.errs.opsDecodeFailures.Load(),
			ServerErrorFrames:   st.errs.serverErrorFrames.Load(),
			TokenMissing:        st.errs.tokenMissing.Load(),
		},
	}
}

// WriteSummary writes a human-readable summary.
func WriteSummary(w io.Writer, r *Report) {
	fmt.Fprintln(w, "=== retain load benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", r.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", r.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(r.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f events/s\n", r.Workload.RPSPerClient)
	fmt.Fprintf(w, "List size: %d\n", r.Workload.ListSize)
	fmt.Fprintf(w, "Payload bytes: %d\n", r.Workload.PayloadBytes)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total events: %d\n", r.Throughput.EventsTotal)
	fmt.Fprintf(w, "Throughput: %.1f events/s (%.2f per client)\n", r.Throughput.EventsPerSec, r.Throughput.EventsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", r.Errors.TotalErrors)
	fmt.Fprintln(w)

	if r.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (event write -> update -> ops decoded):")
		fmt.Fprintf(w, "  min: %.2f ms\n", r.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", r.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", r.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", r.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", r.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol (avg per event):")
	fmt.Fprintf(w, "  event bytes: %.1f\n", r.Protocol.AvgEventBytes)
	fmt.Fprintf(w, "  ops bytes:   %.1f\n", r.Protocol.AvgOpsBytes)
	fmt.Fprintf(w, "  ops/event:   %.2f\n", r.Protocol.OpsPerEvent)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", r.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", r.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", r.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", r.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", r.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", r.GC.GCCPUFraction*100)
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
