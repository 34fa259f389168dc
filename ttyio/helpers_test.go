package ttyio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ttypair/logger"
)

const waitFor = 2 * time.Second

// newTestRegistry creates a registry with a silent logger that is shut down when the
// test ends.
func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	defaults := []Option{WithLogger(logger.Nop())}

	cfg, err := NewConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	r := NewRegistry(cfg)
	t.Cleanup(func() { _ = r.Shutdown() })

	return r
}

// newTestPair creates a managed pair on r.
func newTestPair(t *testing.T, r *Registry) (int, int) {
	t.Helper()

	a, b, err := r.CreatePair()
	require.NoError(t, err)

	return a, b
}

// readResult is what a background read reports back.
type readResult struct {
	n    int
	data []byte
	err  error
}

// readCondAsync starts a ReadCond in the background and waits until it has claimed
// its minimum, so the caller can rely on the reader being blocked.
func readCondAsync(t *testing.T, r *Registry, des, size, minimum int) <-chan readResult {
	t.Helper()

	before, _ := r.Buffered(des)
	done := make(chan readResult, 1)
	go func() {
		p := make([]byte, size)
		n, err := r.ReadCond(des, p, minimum, NoTimeout)
		done <- readResult{n: n, data: p[:n], err: err}
	}()

	require.Eventually(t, func() bool {
		v, _ := r.Buffered(des)
		return v == before-minimum
	}, waitFor, time.Millisecond, "reader did not block")

	return done
}

// drainAsync starts a Drain in the background.
func drainAsync(r *Registry, des int) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Drain(des) }()

	return done
}

// mustWrite writes all of data in one call and fails on a short count.
func mustWrite(t *testing.T, r *Registry, des int, data []byte) {
	t.Helper()

	n, err := r.Write(des, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n, "short write")
}

// receive waits for a background result.
func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for background call")
	}

	var zero T
	return zero
}

// stillBlocked asserts that nothing arrives on ch for a short while.
func stillBlocked[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("call returned early with %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

// faultyIO wraps the real OS primitives and fails close for descriptors listed in
// closeErr, once per entry.
type faultyIO struct {
	unixIO

	mu       sync.Mutex
	closeErr map[int]error
}

func newFaultyIO() *faultyIO {
	return &faultyIO{closeErr: make(map[int]error)}
}

func (f *faultyIO) failCloseOnce(fd int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeErr[fd] = err
}

func (f *faultyIO) close(fd int) error {
	f.mu.Lock()
	err, ok := f.closeErr[fd]
	delete(f.closeErr, fd)
	f.mu.Unlock()

	if ok {
		return err
	}

	return f.unixIO.close(fd)
}
