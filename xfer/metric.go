package xfer

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a Sender or Receiver.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// BlockSendCount indicates the number of blocks sent and acknowledged.
	BlockSendCount atomic.Uint64
	// BlockRecvCount indicates the number of new blocks accepted.
	BlockRecvCount atomic.Uint64
	// BlockRetryCount indicates the number of blocks resent, or rejected on receive.
	BlockRetryCount atomic.Uint64
	// DuplicateBlockCount indicates the number of repeated blocks acknowledged and dropped.
	DuplicateBlockCount atomic.Uint64
	// ByteCount indicates the number of payload bytes delivered, padding excluded.
	ByteCount atomic.Uint64
	// AbortCount indicates the number of transfers that ended with an error.
	AbortCount atomic.Uint64
}

func (m *Metrics) incBlockSendCount() {
	m.BlockSendCount.Add(1)
}

func (m *Metrics) incBlockRecvCount() {
	m.BlockRecvCount.Add(1)
}

func (m *Metrics) incBlockRetryCount() {
	m.BlockRetryCount.Add(1)
}

func (m *Metrics) incDuplicateBlockCount() {
	m.DuplicateBlockCount.Add(1)
}

func (m *Metrics) addByteCount(n int) {
	m.ByteCount.Add(uint64(n)) //nolint:gosec // n is a non-negative length
}

func (m *Metrics) incAbortCount() {
	m.AbortCount.Add(1)
}
