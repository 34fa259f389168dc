package ttyio

import "sync/atomic"

var defaultRegistry atomic.Pointer[Registry]

func init() {
	defaultRegistry.Store(NewRegistry(nil))
}

// Default returns the process-wide registry used by the package-level functions.
func Default() *Registry {
	return defaultRegistry.Load()
}

// SetDefault replaces the process-wide registry. Descriptors created through the
// previous registry stay managed by it. A nil r is ignored.
func SetDefault(r *Registry) {
	if r == nil {
		return
	}
	defaultRegistry.Store(r)
}

// CreatePair creates a managed pair on the default registry.
func CreatePair() (int, int, error) { return Default().CreatePair() }

// Socketpair creates a managed pair on the default registry.
func Socketpair(domain, typ, proto int) ([2]int, error) {
	return Default().Socketpair(domain, typ, proto)
}

// Open opens a plain file through the default registry.
func Open(path string, flags int, mode uint32) (int, error) {
	return Default().Open(path, flags, mode)
}

// Creat creates a plain file through the default registry.
func Creat(path string, mode uint32) (int, error) { return Default().Creat(path, mode) }

// Read reads from des through the default registry.
func Read(des int, p []byte) (int, error) { return Default().Read(des, p) }

// ReadCond reads at least minimum bytes from des through the default registry.
func ReadCond(des int, p []byte, minimum int, mode WaitMode) (int, error) {
	return Default().ReadCond(des, p, minimum, mode)
}

// Write writes to des through the default registry.
func Write(des int, p []byte) (int, error) { return Default().Write(des, p) }

// Drain waits for the output of des to be consumed, through the default registry.
func Drain(des int) error { return Default().Drain(des) }

// Close closes des through the default registry.
func Close(des int) error { return Default().Close(des) }

// IsPaired reports whether des is a managed descriptor of the default registry.
func IsPaired(des int) bool { return Default().IsPaired(des) }
