package aesd

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
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

// Metrics tracks operational statistics for a Store and the connections
// driving it.
type Metrics struct {
	// I/O operation counters
	ReadOps    atomic.Uint64 // Total read operations
	WriteOps   atomic.Uint64 // Total write operations
	SeekOps    atomic.Uint64 // Total seek operations
	ControlOps atomic.Uint64 // Total control operations (SEEK_TO_COMMAND)

	// Log engine counters
	AppendOps    atomic.Uint64 // Entries appended to the circular log
	OverwriteOps atomic.Uint64 // Appends that evicted the oldest entry

	// Byte counters
	ReadBytes  atomic.Uint64 // Total bytes read
	WriteBytes atomic.Uint64 // Total bytes written

	// Error counters
	ReadErrors    atomic.Uint64 // Read operation errors
	WriteErrors   atomic.Uint64 // Write operation errors
	SeekErrors    atomic.Uint64 // Seek operation errors
	ControlErrors atomic.Uint64 // Control operation errors

	// Connection statistics
	ConnectionsAccepted atomic.Uint64 // Total connections accepted
	ConnectionsRejected atomic.Uint64 // Connections rejected (e.g. during shutdown)
	ConnectionsActive   atomic.Int64  // Currently open connections

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative operation latency in nanoseconds
	OpCount        atomic.Uint64 // Total timed operations (for average latency)

	// Latency histogram buckets (cumulative counts).
	// Each bucket[i] contains the count of operations with latency <= LatencyBuckets[i]
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Server lifecycle
	StartTime atomic.Int64 // Server start timestamp (UnixNano)
	StopTime  atomic.Int64 // Server stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a read operation.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a write operation.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordSeek records a seek operation.
func (m *Metrics) RecordSeek(success bool) {
	m.SeekOps.Add(1)
	if !success {
		m.SeekErrors.Add(1)
	}
}

// RecordControl records a control operation (e.g. SEEK_TO_COMMAND).
func (m *Metrics) RecordControl(success bool) {
	m.ControlOps.Add(1)
	if !success {
		m.ControlErrors.Add(1)
	}
}

// RecordAppend records a command appended to the circular log, noting
// whether it evicted the oldest entry.
func (m *Metrics) RecordAppend(overwrote bool) {
	m.AppendOps.Add(1)
	if overwrote {
		m.OverwriteOps.Add(1)
	}
}

// RecordConnectionAccepted records a newly accepted TCP connection.
func (m *Metrics) RecordConnectionAccepted() {
	m.ConnectionsAccepted.Add(1)
	m.ConnectionsActive.Add(1)
}

// RecordConnectionClosed records a connection's worker exiting.
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsActive.Add(-1)
}

// RecordConnectionRejected records a connection turned away, e.g. during
// shutdown drain.
func (m *Metrics) RecordConnectionRejected() {
	m.ConnectionsRejected.Add(1)
}

// recordLatency records operation latency and updates the histogram.
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the server as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	// I/O operations
	ReadOps    uint64
	WriteOps   uint64
	SeekOps    uint64
	ControlOps uint64

	// Log engine
	AppendOps    uint64
	OverwriteOps uint64

	// Bytes transferred
	ReadBytes  uint64
	WriteBytes uint64

	// Error counts
	ReadErrors    uint64
	WriteErrors   uint64
	SeekErrors    uint64
	ControlErrors uint64

	// Connections
	ConnectionsAccepted uint64
	ConnectionsRejected uint64
	ConnectionsActive   int64

	// Performance
	AvgLatencyNs uint64
	UptimeNs     uint64

	// Latency percentiles (in nanoseconds)
	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	// Histogram bucket counts (cumulative)
	LatencyHistogram [numLatencyBuckets]uint64

	// Computed statistics
	ReadIOPS       float64
	WriteIOPS      float64
	ReadBandwidth  float64
	WriteBandwidth float64
	TotalOps       uint64
	TotalBytes     uint64
	ErrorRate      float64 // Percentage of failed operations
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:             m.ReadOps.Load(),
		WriteOps:            m.WriteOps.Load(),
		SeekOps:             m.SeekOps.Load(),
		ControlOps:          m.ControlOps.Load(),
		AppendOps:           m.AppendOps.Load(),
		OverwriteOps:        m.OverwriteOps.Load(),
		ReadBytes:           m.ReadBytes.Load(),
		WriteBytes:          m.WriteBytes.Load(),
		ReadErrors:          m.ReadErrors.Load(),
		WriteErrors:         m.WriteErrors.Load(),
		SeekErrors:          m.SeekErrors.Load(),
		ControlErrors:       m.ControlErrors.Load(),
		ConnectionsAccepted: m.ConnectionsAccepted.Load(),
		ConnectionsRejected: m.ConnectionsRejected.Load(),
		ConnectionsActive:   m.ConnectionsActive.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.SeekOps + snap.ControlOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

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
		snap.ReadIOPS = float64(snap.ReadOps) / uptimeSeconds
		snap.WriteIOPS = float64(snap.WriteOps) / uptimeSeconds
		snap.ReadBandwidth = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors + snap.SeekErrors + snap.ControlErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
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

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.SeekOps.Store(0)
	m.ControlOps.Store(0)
	m.AppendOps.Store(0)
	m.OverwriteOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.SeekErrors.Store(0)
	m.ControlErrors.Store(0)
	m.ConnectionsAccepted.Store(0)
	m.ConnectionsRejected.Store(0)
	m.ConnectionsActive.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver is a no-op implementation of interfaces.Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveSeek(bool)                  {}
func (NoOpObserver) ObserveControl(bool)               {}
func (NoOpObserver) ObserveConnection(bool)            {}

// MetricsObserver implements interfaces.Observer by recording into Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveSeek(success bool) {
	o.metrics.RecordSeek(success)
}

func (o *MetricsObserver) ObserveControl(success bool) {
	o.metrics.RecordControl(success)
}

func (o *MetricsObserver) ObserveConnection(accepted bool) {
	if accepted {
		o.metrics.RecordConnectionAccepted()
	} else {
		o.metrics.RecordConnectionRejected()
	}
}

// Compile-time interface check
var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
