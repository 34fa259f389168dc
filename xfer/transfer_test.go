package xfer

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ttypair/ttyio"
)

func TestTransfer(t *testing.T) {
	for _, crc := range []bool{true, false} {
		for _, size := range []int{0, 1, 127, 128, 129, 1000, 4096} {
			t.Run(fmt.Sprintf("crc=%v/size=%d", crc, size), func(t *testing.T) {
				assert := assert.New(t)
				sp, rp := newTestPorts(t)
				payload := testPayload(size)

				sender := NewSender(sp, newTestConfig(t))
				receiver := NewReceiver(rp, newTestConfig(t, WithCRC(crc)))

				errCh := make(chan error, 1)
				go func() { errCh <- sender.Send(context.Background(), bytes.NewReader(payload)) }()

				var out bytes.Buffer
				require.NoError(t, receiver.Receive(context.Background(), &out))
				require.NoError(t, <-errCh)

				assert.Equal(string(payload), out.String())

				blocks := uint64((size + BlockDataSize - 1) / BlockDataSize) //nolint:gosec // small test sizes
				assert.Equal(blocks, sender.Metrics().BlockSendCount.Load())
				assert.Equal(blocks, receiver.Metrics().BlockRecvCount.Load())
				assert.EqualValues(size, sender.Metrics().ByteCount.Load())
				assert.EqualValues(size, receiver.Metrics().ByteCount.Load())
				assert.Zero(sender.Metrics().BlockRetryCount.Load())
			})
		}
	}
}

func TestTransfer_SmallLineBuffer(t *testing.T) {
	sp, rp := newTestPorts(t, ttyio.WithBufferSize(16))
	payload := testPayload(1500)

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewSender(sp, newTestConfig(t)).Send(context.Background(), bytes.NewReader(payload))
	}()

	var out bytes.Buffer
	require.NoError(t, NewReceiver(rp, newTestConfig(t)).Receive(context.Background(), &out))
	require.NoError(t, <-errCh)
	assert.Equal(t, payload, out.Bytes())
}

func TestTransfer_BackToBack(t *testing.T) {
	sp, rp := newTestPorts(t)
	payload := testPayload(777)

	for _, crc := range []bool{true, false} {
		errCh := make(chan error, 1)
		go func() {
			errCh <- NewSender(sp, newTestConfig(t)).Send(context.Background(), bytes.NewReader(payload))
		}()

		var out bytes.Buffer
		require.NoError(t, NewReceiver(rp, newTestConfig(t, WithCRC(crc))).Receive(context.Background(), &out))
		require.NoError(t, <-errCh)
		assert.Equal(t, payload, out.Bytes(), "crc=%v", crc)
	}

	require.NoError(t, sp.Close())
	require.NoError(t, rp.Close())
}

func TestSender_RetryOnNAK(t *testing.T) {
	sp, peer := newTestPorts(t)
	sender := NewSender(sp, newTestConfig(t))

	done := runPeer(func() {
		send(t, peer, CRCStart)

		first := readWire(t, peer, WireSize(true))
		send(t, peer, NAK)
		second := readWire(t, peer, WireSize(true))
		assert.Equal(t, first, second, "the same block must be resent")
		send(t, peer, ACK)

		expectBytes(t, peer, EOT)
		send(t, peer, ACK)
	})

	require.NoError(t, sender.Send(context.Background(), bytes.NewReader([]byte("retry me"))))
	<-done

	assert.EqualValues(t, 1, sender.Metrics().BlockRetryCount.Load())
	assert.EqualValues(t, 1, sender.Metrics().BlockSendCount.Load())
}

func TestSender_RetryExhausted(t *testing.T) {
	sp, peer := newTestPorts(t)
	sender := NewSender(sp, newTestConfig(t, WithRetryLimit(1)))

	done := runPeer(func() {
		send(t, peer, NAK)

		for range 2 {
			readWire(t, peer, WireSize(false))
			send(t, peer, NAK)
		}
		expectBytes(t, peer, CAN, CAN)
	})

	err := sender.Send(context.Background(), bytes.NewReader(testPayload(10)))
	assert.ErrorIs(t, err, ErrRetryExhausted)
	<-done

	assert.EqualValues(t, 1, sender.Metrics().AbortCount.Load())
	assert.Zero(t, sender.Metrics().BlockSendCount.Load())
}

func TestSender_IgnoresNoiseBeforeStart(t *testing.T) {
	sp, peer := newTestPorts(t)
	sender := NewSender(sp, newTestConfig(t))

	done := runPeer(func() {
		send(t, peer, 'x', CAN, 'y', NAK)
		readWire(t, peer, WireSize(false))
		send(t, peer, ACK)
		expectBytes(t, peer, EOT)
		send(t, peer, ACK)
	})

	assert.NoError(t, sender.Send(context.Background(), bytes.NewReader([]byte("z"))))
	<-done
}

func TestSender_Canceled(t *testing.T) {
	sp, peer := newTestPorts(t)
	sender := NewSender(sp, newTestConfig(t))

	done := runPeer(func() { send(t, peer, CAN, CAN) })

	err := sender.Send(context.Background(), bytes.NewReader(testPayload(10)))
	assert.ErrorIs(t, err, ErrCanceled)
	<-done
}

func TestSender_PeerClosed(t *testing.T) {
	sp, peer := newTestPorts(t)
	require.NoError(t, peer.Close())

	err := NewSender(sp, newTestConfig(t)).Send(context.Background(), bytes.NewReader(testPayload(10)))
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestSender_ContextCanceled(t *testing.T) {
	sp, _ := newTestPorts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSender(sp, newTestConfig(t)).Send(ctx, bytes.NewReader(testPayload(10)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReceiver_Duplicate(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t))
	first := NewBlock(1, testPayload(BlockDataSize)).Pack(true)

	done := runPeer(func() {
		expectBytes(t, peer, CRCStart)
		send(t, peer, first...)
		expectBytes(t, peer, ACK)
		send(t, peer, first...)
		expectBytes(t, peer, ACK)
		send(t, peer, NewBlock(2, []byte("xyz")).Pack(true)...)
		expectBytes(t, peer, ACK)
		send(t, peer, EOT)
		expectBytes(t, peer, ACK)
	})

	var out bytes.Buffer
	require.NoError(t, receiver.Receive(context.Background(), &out))
	<-done
	assert.Equal(t, append(testPayload(BlockDataSize), "xyz"...), out.Bytes())
	assert.EqualValues(t, 1, receiver.Metrics().DuplicateBlockCount.Load())
	assert.EqualValues(t, 2, receiver.Metrics().BlockRecvCount.Load())
}

func TestReceiver_BadChecksum(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t, WithCRC(false)))
	good := NewBlock(1, []byte("payload")).Pack(false)
	bad := bytes.Clone(good)
	bad[5] ^= 0xFF

	done := runPeer(func() {
		expectBytes(t, peer, NAK)
		send(t, peer, bad...)
		expectBytes(t, peer, NAK)
		send(t, peer, good...)
		expectBytes(t, peer, ACK)
		send(t, peer, EOT)
		expectBytes(t, peer, ACK)
	})

	var out bytes.Buffer
	require.NoError(t, receiver.Receive(context.Background(), &out))
	<-done
	assert.Equal(t, "payload", out.String())
	assert.EqualValues(t, 1, receiver.Metrics().BlockRetryCount.Load())
}

func TestReceiver_OutOfSequence(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t))

	done := runPeer(func() {
		expectBytes(t, peer, CRCStart)
		send(t, peer, NewBlock(3, []byte("late")).Pack(true)...)
		expectBytes(t, peer, CAN, CAN)
	})

	err := receiver.Receive(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrBlockSequence)
	<-done
	assert.EqualValues(t, 1, receiver.Metrics().AbortCount.Load())
}

func TestReceiver_RetryExhausted(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t, WithRetryLimit(0)))

	done := runPeer(func() {
		expectBytes(t, peer, CRCStart)
		send(t, peer, 'x')
		expectBytes(t, peer, CAN, CAN)
	})

	err := receiver.Receive(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, ErrUnexpectedByte)
	<-done
}

func TestReceiver_PeerClosed(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t))

	done := runPeer(func() {
		expectBytes(t, peer, CRCStart)
		assert.NoError(t, peer.Close())
	})

	err := receiver.Receive(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrPeerClosed)
	<-done
}

func TestReceiver_Canceled(t *testing.T) {
	rp, peer := newTestPorts(t)
	receiver := NewReceiver(rp, newTestConfig(t))

	done := runPeer(func() {
		expectBytes(t, peer, CRCStart)
		send(t, peer, CAN, CAN)
	})

	err := receiver.Receive(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrCanceled)
	<-done
}
