package vtestd

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the command-latency histogram buckets in
// nanoseconds, from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks dispatch and sync-subsystem statistics for one server.
type Metrics struct {
	// Command dispatch counters.
	CommandsDispatched atomic.Uint64
	CommandErrors       atomic.Uint64

	// Sync-wait engine counters.
	WaitsRegistered  atomic.Uint64 // register_wait calls
	WaitsResolved    atomic.Uint64 // resolved via signal_sync
	WaitsPreSignaled atomic.Uint64 // resolved immediately at registration
	WaitsExpired     atomic.Uint64 // garbage-collected past deadline

	// Sync-queue engine counters.
	QueueSubmits       atomic.Uint64 // SyncQueueSubmits appended
	QueueFenceComplete atomic.Uint64 // context fence completions processed

	// Sync-queue depth statistics (depth at submit time, across all queues).
	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	// Transfer engine byte counters.
	TransferReadBytes  atomic.Uint64
	TransferWriteBytes atomic.Uint64

	// Per-command latency tracking.
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts): bucket[i] holds the
	// count of commands with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a fresh metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordCommand records one dispatched command's outcome and latency.
func (m *Metrics) RecordCommand(latencyNs uint64, success bool) {
	m.CommandsDispatched.Add(1)
	if !success {
		m.CommandErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWaitRegistered records a SYNC_WAIT registration, noting whether it
// resolved immediately (pre-signaled) or was queued.
func (m *Metrics) RecordWaitRegistered(preSignaled bool) {
	m.WaitsRegistered.Add(1)
	if preSignaled {
		m.WaitsPreSignaled.Add(1)
	}
}

// RecordWaitResolved records a queued wait resolving via signal_sync.
func (m *Metrics) RecordWaitResolved() {
	m.WaitsResolved.Add(1)
}

// RecordWaitExpired records a wait garbage-collected past its deadline.
func (m *Metrics) RecordWaitExpired() {
	m.WaitsExpired.Add(1)
}

// RecordQueueSubmit records a SyncQueueSubmit appended to a sync queue,
// along with the queue's depth immediately after the append.
func (m *Metrics) RecordQueueSubmit(depthAfter int) {
	m.QueueSubmits.Add(1)
	m.QueueDepthTotal.Add(uint64(depthAfter))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if uint32(depthAfter) <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, uint32(depthAfter)) {
			break
		}
	}
}

// RecordQueueFenceComplete records one context-fence completion callback
// having drained some number of queue entries.
func (m *Metrics) RecordQueueFenceComplete() {
	m.QueueFenceComplete.Add(1)
}

// RecordTransfer records bytes moved by a TRANSFER_GET/PUT command.
func (m *Metrics) RecordTransfer(readBytes, writeBytes uint64) {
	if readBytes > 0 {
		m.TransferReadBytes.Add(readBytes)
	}
	if writeBytes > 0 {
		m.TransferWriteBytes.Add(writeBytes)
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the server as stopped, fixing UptimeNs in future snapshots.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, race-free copy of Metrics.
type MetricsSnapshot struct {
	CommandsDispatched uint64
	CommandErrors      uint64

	WaitsRegistered  uint64
	WaitsResolved    uint64
	WaitsPreSignaled uint64
	WaitsExpired     uint64

	QueueSubmits       uint64
	QueueFenceComplete uint64
	AvgQueueDepth      float64
	MaxQueueDepth      uint32

	TransferReadBytes  uint64
	TransferWriteBytes uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	CommandsPerSecond float64
	ErrorRate         float64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CommandsDispatched: m.CommandsDispatched.Load(),
		CommandErrors:      m.CommandErrors.Load(),
		WaitsRegistered:    m.WaitsRegistered.Load(),
		WaitsResolved:      m.WaitsResolved.Load(),
		WaitsPreSignaled:   m.WaitsPreSignaled.Load(),
		WaitsExpired:       m.WaitsExpired.Load(),
		QueueSubmits:       m.QueueSubmits.Load(),
		QueueFenceComplete: m.QueueFenceComplete.Load(),
		MaxQueueDepth:      m.MaxQueueDepth.Load(),
		TransferReadBytes:  m.TransferReadBytes.Load(),
		TransferWriteBytes: m.TransferWriteBytes.Load(),
	}

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.CommandsPerSecond = float64(snap.CommandsDispatched) / uptimeSeconds
	}

	if snap.CommandsDispatched > 0 {
		snap.ErrorRate = float64(snap.CommandErrors) / float64(snap.CommandsDispatched) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters (used by tests).
func (m *Metrics) Reset() {
	m.CommandsDispatched.Store(0)
	m.CommandErrors.Store(0)
	m.WaitsRegistered.Store(0)
	m.WaitsResolved.Store(0)
	m.WaitsPreSignaled.Store(0)
	m.WaitsExpired.Store(0)
	m.QueueSubmits.Store(0)
	m.QueueFenceComplete.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TransferReadBytes.Store(0)
	m.TransferWriteBytes.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection. The session manager
// reports the wait and queue events; the dispatcher does not call
// ObserveCommand or ObserveTransfer.
type Observer interface {
	ObserveCommand(latencyNs uint64, success bool)
	ObserveWaitRegistered(preSignaled bool)
	ObserveWaitResolved()
	ObserveWaitExpired()
	ObserveQueueSubmit(depthAfter int)
	ObserveQueueFenceComplete()
	ObserveTransfer(readBytes, writeBytes uint64)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(uint64, bool)    {}
func (NoOpObserver) ObserveWaitRegistered(bool)     {}
func (NoOpObserver) ObserveWaitResolved()           {}
func (NoOpObserver) ObserveWaitExpired()            {}
func (NoOpObserver) ObserveQueueSubmit(int)         {}
func (NoOpObserver) ObserveQueueFenceComplete()      {}
func (NoOpObserver) ObserveTransfer(uint64, uint64) {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveCommand(latencyNs uint64, success bool) {
	o.metrics.RecordCommand(latencyNs, success)
}

func (o *MetricsObserver) ObserveWaitRegistered(preSignaled bool) {
	o.metrics.RecordWaitRegistered(preSignaled)
}

func (o *MetricsObserver) ObserveWaitResolved() {
	o.metrics.RecordWaitResolved()
}

func (o *MetricsObserver) ObserveWaitExpired() {
	o.metrics.RecordWaitExpired()
}

func (o *MetricsObserver) ObserveQueueSubmit(depthAfter int) {
	o.metrics.RecordQueueSubmit(depthAfter)
}

func (o *MetricsObserver) ObserveQueueFenceComplete() {
	o.metrics.RecordQueueFenceComplete()
}

func (o *MetricsObserver) ObserveTransfer(readBytes, writeBytes uint64) {
	o.metrics.RecordTransfer(readBytes, writeBytes)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
