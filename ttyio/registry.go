package ttyio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"

	"github.com/arloliu/go-ttypair/logger"
)

// Registry maps descriptor numbers to the coordinators of managed pairs.
//
// A nil slot means the descriptor is not part of a pair and every operation on it is
// passed to the OS. Slots are nilled on close, never removed, so the table only grows.
type Registry struct {
	// mu guards slots and every coordinator's peer field. It also serializes pair
	// creation and close, and is never held while a caller blocks.
	mu    sync.Mutex
	slots []*coordinator

	cfg    *Config
	logger logger.Logger
	sys    sysIO

	// stats is read without mu so observers never contend with blocked operations.
	stats   *xsync.MapOf[int, *DescriptorMetrics]
	metrics RegistryMetrics
}

// NewRegistry creates an empty registry. A nil cfg uses the defaults of NewConfig.
func NewRegistry(cfg *Config) *Registry {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	return &Registry{
		slots:  make([]*coordinator, cfg.initialSlots),
		cfg:    cfg,
		logger: cfg.logger,
		sys:    unixIO{},
		stats:  xsync.NewMapOf[int, *DescriptorMetrics](),
	}
}

// Config returns the registry configuration.
func (r *Registry) Config() *Config { return r.cfg }

// Metrics returns the registry counters.
func (r *Registry) Metrics() *RegistryMetrics { return &r.metrics }

// DescriptorMetrics returns the counters of a managed descriptor. It does not take
// the registry lock.
func (r *Registry) DescriptorMetrics(des int) (*DescriptorMetrics, bool) {
	return r.stats.Load(des)
}

// IsPaired reports whether des is an open end of a managed pair.
func (r *Registry) IsPaired(des int) bool {
	return r.lookup(des) != nil
}

// Buffered returns the signed byte counter of a managed descriptor: unread bytes when
// positive, bytes a blocked reader is still owed when negative.
func (r *Registry) Buffered(des int) (int, bool) {
	c := r.lookup(des)
	if c == nil {
		return 0, false
	}

	return c.backlogValue(), true
}

// Len returns the current length of the descriptor table.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.slots)
}

// Socketpair creates a connected pair of OS sockets and registers a coordinator for
// each end, pointing at the other.
func (r *Registry) Socketpair(domain, typ, proto int) ([2]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fds, err := r.sys.socketpair(domain, typ, proto)
	if err != nil {
		return fds, fmt.Errorf("ttyio: socketpair: %w", err)
	}

	r.growLocked(max(fds[0], fds[1]))

	l := r.logger.With("pair", uuid.NewString())
	a := newCoordinator(fds[0], fds[1], r.cfg, l, &r.metrics)
	b := newCoordinator(fds[1], fds[0], r.cfg, l, &r.metrics)
	r.slots[fds[0]] = a
	r.slots[fds[1]] = b
	r.stats.Store(fds[0], a.metrics)
	r.stats.Store(fds[1], b.metrics)

	r.metrics.incPairCreateCount()
	l.Debug("ttyio: pair created", "des", fds[0], "peer", fds[1])

	return fds, nil
}

// CreatePair is Socketpair(AF_UNIX, SOCK_STREAM, 0).
func (r *Registry) CreatePair() (int, int, error) {
	fds, err := r.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, -1, err
	}

	return fds[0], fds[1], nil
}

// Open opens a plain file and makes room for its descriptor in the table.
func (r *Registry) Open(path string, flags int, mode uint32) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fd, err := r.sys.open(path, flags, mode)
	if err != nil {
		return -1, fmt.Errorf("ttyio: open %s: %w", path, err)
	}
	r.growLocked(fd)

	return fd, nil
}

// Creat is Open with O_CREAT|O_WRONLY|O_TRUNC, like creat(2).
func (r *Registry) Creat(path string, mode uint32) (int, error) {
	return r.Open(path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, mode)
}

// Read reads up to len(p) bytes. On a managed descriptor it waits for at least one
// byte, and returns 0 only once the peer has closed and the buffer is empty.
func (r *Registry) Read(des int, p []byte) (int, error) {
	if r.lookup(des) == nil {
		n, err := r.sys.read(des, p)
		if err != nil {
			return n, fmt.Errorf("ttyio: read %d: %w", des, err)
		}

		return n, nil
	}

	return r.ReadCond(des, p, 1, NoTimeout)
}

// ReadCond reads up to len(p) bytes once at least minimum of them are available, or
// once the peer has closed. minimum is clamped to [0, len(p)], and on a managed
// descriptor also to the buffer capacity. A minimum of 0 never blocks.
//
// Only NoTimeout is supported. On a managed descriptor any other mode is a contract
// violation and panics; on a plain descriptor it returns ErrUnsupportedWaitMode.
func (r *Registry) ReadCond(des int, p []byte, minimum int, mode WaitMode) (int, error) {
	minimum = min(max(minimum, 0), len(p))

	c := r.lookup(des)
	if c == nil {
		r.logger.Warn("ttyio: readcond on a descriptor that is not part of a pair", "des", des)
		if !mode.supported() {
			return 0, ErrUnsupportedWaitMode
		}

		return r.readAtLeast(des, p, minimum)
	}

	// A minimum above the buffer capacity could never be met.
	return c.read(p, min(minimum, c.buf.Capacity()), mode), nil
}

// readAtLeast emulates untimed readcond on a plain descriptor: it keeps reading
// until minimum bytes arrived or the descriptor reports end of file.
func (r *Registry) readAtLeast(des int, p []byte, minimum int) (int, error) {
	n := 0
	for {
		m, err := r.sys.read(des, p[n:])
		n += m
		if err != nil {
			return n, fmt.Errorf("ttyio: read %d: %w", des, err)
		}
		if m == 0 || n >= minimum {
			return n, nil
		}
	}
}

// Write stores up to len(p) bytes in the peer's buffer and returns the count. It
// never blocks; a short count means the peer's buffer is full. Writing toward a
// closed peer fails with ErrBrokenPipe.
func (r *Registry) Write(des int, p []byte) (int, error) {
	r.mu.Lock()

	c := r.lookupLocked(des)
	if c == nil {
		r.mu.Unlock()

		n, err := r.sys.write(des, p)
		if err != nil {
			return n, fmt.Errorf("ttyio: write %d: %w", des, err)
		}

		return n, nil
	}
	defer r.mu.Unlock()

	// Holding mu keeps the peer from being closed under us.
	if c.peer == closedPeer {
		r.metrics.incBrokenPipeCount()
		return 0, ErrBrokenPipe
	}

	return r.slots[c.peer].write(p), nil
}

// Drain blocks until everything written on des has been consumed by the peer, or
// discarded by the peer's close. It returns at once if the peer is already closed.
// Plain descriptors get tcdrain(3).
func (r *Registry) Drain(des int) error {
	r.mu.Lock()

	c := r.lookupLocked(des)
	if c == nil {
		r.mu.Unlock()

		if err := r.sys.tcdrain(des); err != nil {
			return fmt.Errorf("ttyio: tcdrain %d: %w", des, err)
		}

		return nil
	}

	if c.peer == closedPeer {
		r.mu.Unlock()
		return nil
	}

	r.slots[c.peer].waitForDraining(r.mu.Unlock)

	return nil
}

// Close closes des. For a managed descriptor the OS close happens first; if it fails
// nothing else changes. Otherwise waiters on both ends are released, the peer is
// marked closed and the slot is cleared.
//
// Close must only be called after every other call on des has returned.
func (r *Registry) Close(des int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookupLocked(des)
	if c == nil {
		if err := r.sys.close(des); err != nil {
			return fmt.Errorf("ttyio: close %d: %w", des, err)
		}

		return nil
	}

	return r.closeLocked(c)
}

// Shutdown closes every managed descriptor still open. Plain descriptors are left
// alone. The registry stays usable.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, c := range r.slots {
		if c == nil {
			continue
		}
		if err := r.closeLocked(c); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) closeLocked(c *coordinator) error {
	var peer *coordinator
	if c.peer != closedPeer {
		peer = r.slots[c.peer]
	}

	unlock := lockInOrder(c, peer)
	defer unlock()

	if err := r.sys.close(c.des); err != nil {
		r.metrics.incCloseErrCount()
		c.logger.Error("ttyio: close failed", "error", err)

		return fmt.Errorf("ttyio: close %d: %w", c.des, err)
	}

	c.finishClosing(peer)
	r.slots[c.des] = nil
	r.stats.Delete(c.des)
	r.metrics.incCloseCount()
	c.logger.Debug("ttyio: descriptor closed", "peerOpen", peer != nil)

	return nil
}

// lockInOrder locks one or two coordinators in ascending descriptor order and
// returns the matching unlock.
func lockInOrder(a, b *coordinator) func() {
	if b == nil {
		a.mu.Lock()
		return a.mu.Unlock
	}

	if b.des < a.des {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()

	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}

func (r *Registry) lookup(des int) *coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lookupLocked(des)
}

func (r *Registry) lookupLocked(des int) *coordinator {
	if des < 0 || des >= len(r.slots) {
		return nil
	}

	return r.slots[des]
}

func (r *Registry) growLocked(des int) {
	if des < len(r.slots) {
		return
	}
	r.slots = append(r.slots, make([]*coordinator, des+1-len(r.slots))...)
}
