package xfer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/arloliu/go-ttypair/logger"
)

// Receiver receives a byte stream from a Sender on the other end of a Port.
//
// A Receiver is not goroutine-safe; run one Receive at a time.
type Receiver struct {
	line
	cfg     *Config
	logger  logger.Logger
	metrics Metrics

	errCount int
}

// NewReceiver creates a Receiver on port. A nil cfg uses the defaults of NewConfig.
func NewReceiver(port Port, cfg *Config) *Receiver {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	return &Receiver{
		line:   line{port: port},
		cfg:    cfg,
		logger: cfg.logger.With("role", "receiver"),
	}
}

// Metrics returns the receiver counters.
func (r *Receiver) Metrics() *Metrics { return &r.metrics }

// Receive sends the start byte and writes every accepted block to w. Trailing CtrlZ
// padding is removed from the last block. A repeated block is acknowledged and
// dropped.
func (r *Receiver) Receive(ctx context.Context, w io.Writer) error {
	r.errCount = 0

	if err := r.receive(ctx, w); err != nil {
		r.metrics.incAbortCount()
		r.logger.Warn("xfer: receive aborted", "error", err)

		return err
	}

	return nil
}

func (r *Receiver) receive(ctx context.Context, w io.Writer) error {
	crc := r.cfg.crc

	start := NAK
	if crc {
		start = CRCStart
	}
	if err := r.writeByte(start); err != nil {
		return fmt.Errorf("xfer: send start byte: %w", err)
	}

	rest := make([]byte, WireSize(crc)-1)
	expected := byte(1)

	// The newest block is held back until the next one or EOT arrives, since only
	// the last block may carry padding.
	var held *Block

	for {
		if err := ctx.Err(); err != nil {
			r.cancel()
			return err
		}

		b, err := r.readControl()
		if err != nil {
			return err
		}

		switch b {
		case SOH:
		case EOT:
			if err := r.writeByte(ACK); err != nil {
				return fmt.Errorf("xfer: acknowledge EOT: %w", err)
			}
			if err := r.deliver(w, held, true); err != nil {
				return err
			}
			r.logger.Info("xfer: receive complete",
				"blocks", r.metrics.BlockRecvCount.Load(),
				"bytes", r.metrics.ByteCount.Load(),
				"crc", crc,
			)

			return nil
		default:
			if err := r.reject(fmt.Errorf("%w: 0x%02X", ErrUnexpectedByte, b)); err != nil {
				return err
			}

			continue
		}

		if err := r.readFull(rest); err != nil {
			return err
		}

		blk, err := ParseBlock(rest, crc)
		if err != nil {
			if err := r.reject(err); err != nil {
				return err
			}

			continue
		}

		switch {
		case blk.Number == expected:
			if err := r.deliver(w, held, false); err != nil {
				return err
			}
			held = blk
			expected++
			r.errCount = 0
			r.metrics.incBlockRecvCount()

		case held != nil && blk.Number == expected-1:
			// Our ACK was lost or late; the sender repeated the block.
			r.metrics.incDuplicateBlockCount()
			r.logger.Debug("xfer: duplicate block", "block", blk.Number)

		default:
			r.cancel()
			return fmt.Errorf("%w: got %d, want %d", ErrBlockSequence, blk.Number, expected)
		}

		if err := r.writeByte(ACK); err != nil {
			return fmt.Errorf("xfer: acknowledge block %d: %w", blk.Number, err)
		}
	}
}

// reject answers a bad block with NAK, or cancels the transfer once the retry limit
// is used up.
func (r *Receiver) reject(cause error) error {
	r.errCount++
	r.metrics.incBlockRetryCount()

	if r.errCount > r.cfg.retryLimit {
		r.cancel()
		return fmt.Errorf("%w: %w", ErrRetryExhausted, cause)
	}

	r.logger.Debug("xfer: block rejected", "error", cause, "retry", r.errCount, "maxRetry", r.cfg.retryLimit)

	if err := r.writeByte(NAK); err != nil {
		return fmt.Errorf("xfer: send NAK: %w", err)
	}

	return nil
}

// deliver writes a block's payload to w.
func (r *Receiver) deliver(w io.Writer, blk *Block, final bool) error {
	if blk == nil {
		return nil
	}

	data := blk.Data[:]
	if final {
		data = bytes.TrimRight(data, string(CtrlZ))
	}

	if _, err := w.Write(data); err != nil {
		r.cancel()
		return fmt.Errorf("xfer: write block %d: %w", blk.Number, err)
	}
	r.metrics.addByteCount(len(data))

	return nil
}
