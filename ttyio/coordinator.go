package ttyio

import (
	"fmt"
	"sync"

	"github.com/arloliu/go-ttypair/internal/ringbuf"
	"github.com/arloliu/go-ttypair/logger"
)

// closedPeer is stored in coordinator.peer once the other end of the pair is closed.
const closedPeer = -1

// staleFill overwrites bytes once they have been read out of a ring buffer.
const staleFill byte = 0xFF

// WaitMode carries the TIME and TIMEOUT arguments of readcond(3), both in tenths of
// a second. Only the zero value is supported on managed descriptors.
type WaitMode struct {
	Time    int
	Timeout int
}

// NoTimeout waits without a timer until the minimum is met or the peer closes.
var NoTimeout = WaitMode{}

func (m WaitMode) supported() bool {
	return m.Time == 0 && m.Timeout == 0
}

// backlog is the coordinator's signed byte counter.
//
//	> 0  bytes in the ring buffer that no reader has claimed yet
//	  0  buffer empty and nobody waiting
//	< 0  a blocked reader still needs -backlog bytes to reach its minimum
//
// Writes add, reads subtract, and a reader that has to wait subtracts its minimum
// up front. A drain waits for backlog <= 0; a blocked reader waits for backlog >= 0.
type backlog int

// owed returns how many more bytes the blocked reader needs, or 0.
func (b backlog) owed() int { return max(-int(b), 0) }

func (b backlog) readerWaiting() bool { return b < 0 }

func (b backlog) drained() bool { return b <= 0 }

// coordinator is the state behind one end of a pair. Bytes written on the other end
// land in buf; reads and drains of the other end's writes synchronize on mu.
type coordinator struct {
	mu        sync.Mutex
	readCond  sync.Cond // backlog >= 0 or peer closed
	drainCond sync.Cond // backlog <= 0

	des    int
	peer   int // written with both the registry mutex and mu held
	closed bool

	buffered backlog
	buf      *ringbuf.Buffer[byte]

	logger     logger.Logger
	metrics    *DescriptorMetrics
	regMetrics *RegistryMetrics
}

func newCoordinator(des, peer int, cfg *Config, l logger.Logger, rm *RegistryMetrics) *coordinator {
	c := &coordinator{
		des:        des,
		peer:       peer,
		buf:        ringbuf.New(staleFill),
		logger:     l.With("des", des, "peer", peer),
		metrics:    &DescriptorMetrics{},
		regMetrics: rm,
	}
	c.buf.Reserve(cfg.bufferSize, cfg.blockSize)
	c.readCond.L = &c.mu
	c.drainCond.L = &c.mu

	return c
}

// write stores as much of p as fits and returns the count. It never blocks.
func (c *coordinator) write(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.buf.Write(p)
	c.buffered += backlog(n)
	c.metrics.addBytesIn(n)
	c.metrics.setBacklog(c.buffered)

	if n < len(p) {
		c.regMetrics.incShortWriteCount()
		c.logger.Debug("ttyio: short write", "requested", len(p), "written", n)
	}

	if c.buffered >= 0 {
		c.readCond.Signal()
	}

	return n
}

// read returns once at least minimum bytes are buffered or the peer has closed, then
// copies up to len(p) bytes. minimum must already be clamped to [0, len(p)].
func (c *coordinator) read(p []byte, minimum int, mode WaitMode) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffered >= backlog(minimum) || c.peer == closedPeer {
		return c.consumeLocked(p, 0)
	}

	if c.buffered.readerWaiting() {
		c.misuse("only one blocking read per descriptor is supported")
	}
	if !mode.supported() {
		c.misuse("only immediate or untimed readcond is supported",
			"time", mode.Time, "timeout", mode.Timeout)
	}

	// Claim the minimum now. Every byte written so far belongs to this reader, so
	// from a drainer's point of view the buffer is already drained.
	c.buffered -= backlog(minimum)
	c.metrics.setBacklog(c.buffered)
	c.drainCond.Broadcast()
	c.regMetrics.incBlockedReadCount()
	c.logger.Debug("ttyio: read waiting", "min", minimum, "owed", c.buffered.owed())

	for c.buffered.readerWaiting() && c.peer != closedPeer {
		c.readCond.Wait()
	}
	if c.closed {
		// Own end closed under the reader: the buffered bytes were discarded.
		return 0
	}

	return c.consumeLocked(p, minimum)
}

// consumeLocked reads from the ring buffer and settles the backlog. claimed is the
// minimum already subtracted by a blocked reader.
func (c *coordinator) consumeLocked(p []byte, claimed int) int {
	n := c.buf.Read(p)
	c.buffered -= backlog(n - claimed)
	c.metrics.addBytesOut(n)
	c.metrics.setBacklog(c.buffered)

	if (n > 0 || claimed > 0) && c.buffered.drained() {
		c.drainCond.Broadcast()
	}

	return n
}

// waitForDraining blocks until every byte written into this coordinator has been
// claimed by a read or discarded by a close. release is called once mu is held, so
// the caller can drop the registry lock without missing a wakeup.
func (c *coordinator) waitForDraining(release func()) {
	c.mu.Lock()
	release()
	defer c.mu.Unlock()

	if c.buffered.drained() {
		return
	}

	c.regMetrics.incDrainWaitCount()
	c.logger.Debug("ttyio: drain waiting", "buffered", int(c.buffered))

	for !c.buffered.drained() {
		c.drainCond.Wait()
	}
}

// finishClosing releases every waiter that depends on c or on its peer after the OS
// descriptor of c has been closed. Both mutexes must be held; peer is nil when the
// other end is already gone.
func (c *coordinator) finishClosing(peer *coordinator) {
	if peer != nil {
		peer.peer = closedPeer
		switch {
		case peer.buffered < 0:
			// No more data will arrive: the reader gets what is there.
			peer.readCond.Signal()
		case peer.buffered > 0:
			peer.drainCond.Broadcast()
		}
	}

	switch {
	case c.buffered > 0:
		// Unread data is discarded, which completes the peer's drain.
		c.buffered = 0
		c.drainCond.Broadcast()
	case c.buffered < 0:
		c.buffered = 0
		c.readCond.Signal()
	}

	c.peer = closedPeer
	c.closed = true
	c.metrics.setBacklog(c.buffered)
}

// backlogValue returns the signed byte counter.
func (c *coordinator) backlogValue() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return int(c.buffered)
}

func (c *coordinator) misuse(msg string, keysAndValues ...any) {
	c.logger.Error("ttyio: "+msg, keysAndValues...)
	panic(fmt.Errorf("%w: %s", ErrMisuse, msg))
}
