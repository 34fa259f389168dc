package xfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/go-ttypair/logger"
)

// Sender sends a byte stream to a Receiver on the other end of a Port.
//
// A Sender is not goroutine-safe; run one Send at a time.
type Sender struct {
	line
	cfg     *Config
	logger  logger.Logger
	metrics Metrics
}

// NewSender creates a Sender on port. A nil cfg uses the defaults of NewConfig.
func NewSender(port Port, cfg *Config) *Sender {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	return &Sender{
		line:   line{port: port},
		cfg:    cfg,
		logger: cfg.logger.With("role", "sender"),
	}
}

// Metrics returns the sender counters.
func (s *Sender) Metrics() *Metrics { return &s.metrics }

// Send waits for the receiver's start byte, sends r block by block and finishes with
// EOT. The last block is padded with CtrlZ.
func (s *Sender) Send(ctx context.Context, r io.Reader) error {
	if err := s.send(ctx, r); err != nil {
		s.metrics.incAbortCount()
		s.logger.Warn("xfer: send aborted", "error", err)

		return err
	}

	return nil
}

func (s *Sender) send(ctx context.Context, r io.Reader) error {
	crc, err := s.awaitStart(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("xfer: receiver ready", "crc", crc)

	buf := make([]byte, BlockDataSize)
	num := byte(1)
	blocks := 0

	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := s.sendBlock(ctx, NewBlock(num, buf[:n]), crc); err != nil {
				return err
			}
			s.metrics.addByteCount(n)
			num++
			blocks++
		}

		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			s.cancel()
			return fmt.Errorf("xfer: read source: %w", rerr)
		}
	}

	if err := s.sendEOT(ctx); err != nil {
		return err
	}

	s.logger.Info("xfer: send complete", "blocks", blocks, "bytes", s.metrics.ByteCount.Load(), "crc", crc)

	return nil
}

// awaitStart waits for 'C' or NAK and reports whether CRC-16 was requested.
func (s *Sender) awaitStart(ctx context.Context) (bool, error) {
	for ignored := 0; ignored <= s.cfg.retryLimit; ignored++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		b, err := s.readControl()
		if err != nil {
			return false, err
		}

		switch b {
		case CRCStart:
			return true, nil
		case NAK:
			return false, nil
		default:
			s.logger.Debug("xfer: ignoring byte while waiting for start", "byte", b)
		}
	}

	return false, fmt.Errorf("%w: no start byte", ErrRetryExhausted)
}

// sendResult classifies the outcome of a single transmit attempt.
type sendResult int

const (
	sendOK    sendResult = iota // Block sent and ACK'd.
	sendRetry                   // NAK or garbage.
	sendAbort                   // Line failure, cancel or peer gone.
)

// sendBlock sends blk and retries up to cfg.retryLimit times on NAK.
func (s *Sender) sendBlock(ctx context.Context, blk *Block, crc bool) error {
	wire := blk.Pack(crc)

	for retry := 0; retry <= s.cfg.retryLimit; retry++ {
		if err := ctx.Err(); err != nil {
			s.cancel()
			return err
		}

		if retry > 0 {
			s.metrics.incBlockRetryCount()
		}

		result, err := s.transmit(wire)
		switch result {
		case sendOK:
			s.metrics.incBlockSendCount()
			return nil

		case sendRetry:
			s.logger.Debug("xfer: send retry",
				"block", blk.Number,
				"retry", retry+1,
				"maxRetry", s.cfg.retryLimit,
				"error", err,
			)

		case sendAbort:
			return err
		}
	}

	s.cancel()

	return fmt.Errorf("%w: block %d", ErrRetryExhausted, blk.Number)
}

// transmit writes one packed block, waits for the receiver to take it and reads the
// answer.
func (s *Sender) transmit(wire []byte) (sendResult, error) {
	if err := s.writeAndDrain(wire); err != nil {
		return sendAbort, fmt.Errorf("xfer: send block: %w", err)
	}

	b, err := s.readControl()
	if err != nil {
		return sendAbort, err
	}

	switch b {
	case ACK:
		return sendOK, nil
	case NAK:
		return sendRetry, errors.New("xfer: block rejected")
	default:
		return sendRetry, fmt.Errorf("%w: 0x%02X", ErrUnexpectedByte, b)
	}
}

// sendEOT ends the transfer and waits for the receiver to acknowledge it.
func (s *Sender) sendEOT(ctx context.Context) error {
	for retry := 0; retry <= s.cfg.retryLimit; retry++ {
		if err := ctx.Err(); err != nil {
			s.cancel()
			return err
		}

		if err := s.writeAndDrain([]byte{EOT}); err != nil {
			return fmt.Errorf("xfer: send EOT: %w", err)
		}

		b, err := s.readControl()
		if err != nil {
			return err
		}
		if b == ACK {
			return nil
		}

		s.logger.Debug("xfer: EOT not acknowledged", "byte", b, "retry", retry+1)
	}

	return fmt.Errorf("%w: EOT", ErrRetryExhausted)
}
