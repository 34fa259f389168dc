// Package ttyio gives socket pairs the blocking behavior of a serial line.
//
// A pair created with [Registry.CreatePair] (or [Registry.Socketpair]) is backed by
// real OS descriptors, but the bytes never travel through the kernel: each end owns
// a coordinator with an in-process ring buffer, and the registry routes a write on
// one end into the buffer of the other. On top of that the coordinator provides:
//
//   - ReadCond: a read that waits until at least min bytes are available, modeled on
//     the QNX/POSIX readcond(3) call. Only the "no timeout" configuration
//     (Time == 0 and Timeout == 0) is supported.
//   - Drain: the tcdrain(3) analogue. It blocks until every byte written on this end
//     has been claimed by a read on the other end, or discarded by its close.
//   - Half-duplex close: closing one end releases a reader blocked on the other end
//     with whatever is buffered, unblocks drains, and makes later writes toward the
//     closed end fail with ErrBrokenPipe.
//
// Descriptors that were not created as a pair (files opened with Open or anything
// else) are passed straight to the OS primitives.
//
// # Contract
//
// At most one blocking read and one drain may be outstanding per descriptor, and
// Close must only be called once every other call on that descriptor has returned.
// Violations that can be detected (a second blocked reader, an unsupported timeout)
// are programming errors: the call logs and panics with an error wrapping ErrMisuse.
//
// # Locking
//
// One registry mutex guards the descriptor table and peer identities. It is never
// held while a goroutine is blocked. Each coordinator has its own mutex; when close
// needs both coordinators of a pair it locks them in ascending descriptor order.
package ttyio
