package xfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ttypair/logger"
	"github.com/arloliu/go-ttypair/ttyio"
)

// newTestConfig creates a Config with a silent logger.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithLogger(logger.Nop())}, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newTestPorts creates a managed pair on a private registry.
func newTestPorts(t *testing.T, opts ...ttyio.Option) (*ttyio.Port, *ttyio.Port) {
	t.Helper()

	cfg, err := ttyio.NewConfig(append([]ttyio.Option{ttyio.WithLogger(logger.Nop())}, opts...)...)
	require.NoError(t, err)

	reg := ttyio.NewRegistry(cfg)
	t.Cleanup(func() { _ = reg.Shutdown() })

	a, b, err := reg.OpenPair()
	require.NoError(t, err)

	return a, b
}

// testPayload returns n bytes of lowercase letters, which never include CtrlZ.
func testPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}

	return b
}

// readWire reads exactly n bytes from p.
func readWire(t *testing.T, p *ttyio.Port, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	got, err := p.ReadCond(buf, n)
	assert.NoError(t, err)

	return buf[:got]
}

// expectBytes reads len(want) bytes from p and compares them.
func expectBytes(t *testing.T, p *ttyio.Port, want ...byte) {
	t.Helper()

	assert.Equal(t, want, readWire(t, p, len(want)))
}

// send writes control bytes or a packed block to p.
func send(t *testing.T, p *ttyio.Port, data ...byte) {
	t.Helper()

	_, err := p.Write(data)
	assert.NoError(t, err)
}

// runPeer runs a scripted peer on its own goroutine. The returned channel is closed
// once the script returns; tests wait on it so the peer is done before cleanup
// closes its descriptor.
func runPeer(script func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		script()
	}()

	return done
}
