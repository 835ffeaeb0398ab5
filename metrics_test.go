package vtestd

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.CommandsDispatched != 0 {
		t.Errorf("Expected 0 initial commands, got %d", snap.CommandsDispatched)
	}

	m.RecordCommand(1_000_000, true)
	m.RecordCommand(2_000_000, true)
	m.RecordCommand(500_000, false)

	snap = m.Snapshot()
	if snap.CommandsDispatched != 3 {
		t.Errorf("Expected 3 commands, got %d", snap.CommandsDispatched)
	}
	if snap.CommandErrors != 1 {
		t.Errorf("Expected 1 command error, got %d", snap.CommandErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueSubmit(10)
	m.RecordQueueSubmit(20)
	m.RecordQueueSubmit(15)

	snap := m.Snapshot()

	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("Expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand(1_000_000, true)
	m.RecordCommand(2_000_000, true)

	snap := m.Snapshot()

	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand(1_000_000, true)
	m.RecordQueueSubmit(10)

	snap := m.Snapshot()
	if snap.CommandsDispatched == 0 {
		t.Error("Expected some commands before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.CommandsDispatched != 0 {
		t.Errorf("Expected 0 commands after reset, got %d", snap.CommandsDispatched)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("Expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveCommand(1_000_000, true)
	observer.ObserveWaitRegistered(true)
	observer.ObserveWaitResolved()
	observer.ObserveWaitExpired()
	observer.ObserveQueueSubmit(3)
	observer.ObserveQueueFenceComplete()
	observer.ObserveTransfer(1024, 0)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveCommand(1_000_000, true)
	metricsObserver.ObserveWaitRegistered(false)
	metricsObserver.ObserveWaitResolved()

	snap := m.Snapshot()
	if snap.CommandsDispatched != 1 {
		t.Errorf("Expected 1 command from observer, got %d", snap.CommandsDispatched)
	}
	if snap.WaitsRegistered != 1 {
		t.Errorf("Expected 1 wait registered from observer, got %d", snap.WaitsRegistered)
	}
	if snap.WaitsResolved != 1 {
		t.Errorf("Expected 1 wait resolved from observer, got %d", snap.WaitsResolved)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordCommand(1_000_000, true)
	m.RecordCommand(2_000_000, true)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.CommandsPerSecond < 1.9 || snap.CommandsPerSecond > 2.1 {
		t.Errorf("Expected CommandsPerSecond ~2.0, got %.2f", snap.CommandsPerSecond)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordCommand(500_000, true) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordCommand(5_000_000, true) // 5ms
	}
	m.RecordCommand(50_000_000, true) // 50ms (P99)

	snap := m.Snapshot()

	if snap.CommandsDispatched != 100 {
		t.Errorf("Expected 100 total commands, got %d", snap.CommandsDispatched)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
