package ttyio

import (
	"sync/atomic"
)

// RegistryMetrics contains atomic counters for a Registry.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type RegistryMetrics struct {
	// PairCreateCount indicates the number of socket pairs created.
	PairCreateCount atomic.Uint64
	// CloseCount indicates the number of managed descriptors closed.
	CloseCount atomic.Uint64
	// CloseErrCount indicates the number of managed closes that failed at the OS level.
	CloseErrCount atomic.Uint64
	// ShortWriteCount indicates the number of writes that did not fit in the peer's buffer.
	ShortWriteCount atomic.Uint64
	// BlockedReadCount indicates the number of reads that had to wait for their minimum.
	BlockedReadCount atomic.Uint64
	// DrainWaitCount indicates the number of drains that had to wait.
	DrainWaitCount atomic.Uint64
	// BrokenPipeCount indicates the number of writes rejected because the peer was closed.
	BrokenPipeCount atomic.Uint64
	// ManagedGauge indicates the number of managed descriptors currently open.
	ManagedGauge atomic.Int64
}

func (m *RegistryMetrics) incPairCreateCount() {
	m.PairCreateCount.Add(1)
	m.ManagedGauge.Add(2)
}

func (m *RegistryMetrics) incCloseCount() {
	m.CloseCount.Add(1)
	m.ManagedGauge.Add(-1)
}

func (m *RegistryMetrics) incCloseErrCount() {
	m.CloseErrCount.Add(1)
}

func (m *RegistryMetrics) incShortWriteCount() {
	m.ShortWriteCount.Add(1)
}

func (m *RegistryMetrics) incBlockedReadCount() {
	m.BlockedReadCount.Add(1)
}

func (m *RegistryMetrics) incDrainWaitCount() {
	m.DrainWaitCount.Add(1)
}

func (m *RegistryMetrics) incBrokenPipeCount() {
	m.BrokenPipeCount.Add(1)
}

// DescriptorMetrics contains atomic counters for one managed descriptor.
type DescriptorMetrics struct {
	// BytesIn indicates the number of bytes the peer wrote into this descriptor's buffer.
	BytesIn atomic.Uint64
	// BytesOut indicates the number of bytes read from this descriptor.
	BytesOut atomic.Uint64
	// BacklogGauge mirrors the coordinator's signed byte counter: positive values are
	// unread bytes, negative values are bytes a blocked reader is still waiting for.
	BacklogGauge atomic.Int64
}

func (m *DescriptorMetrics) addBytesIn(n int) {
	m.BytesIn.Add(uint64(n)) //nolint:gosec // n is a non-negative copy count
}

func (m *DescriptorMetrics) addBytesOut(n int) {
	m.BytesOut.Add(uint64(n)) //nolint:gosec // n is a non-negative copy count
}

func (m *DescriptorMetrics) setBacklog(b backlog) {
	m.BacklogGauge.Store(int64(b))
}
