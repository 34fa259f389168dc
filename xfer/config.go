package xfer

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-ttypair/logger"
)

const (
	// DefaultRetryLimit is the number of times a block is resent after a NAK.
	DefaultRetryLimit = 10
	// MaxRetryLimit is the largest accepted retry limit.
	MaxRetryLimit = 31
)

// Config holds the settings of a Sender or Receiver.
type Config struct {
	crc        bool
	retryLimit int
	logger     logger.Logger
}

// NewConfig returns a Config with CRC-16 enabled and the default retry limit,
// modified by opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		crc:        true,
		retryLimit: DefaultRetryLimit,
		logger:     logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// CRC reports whether a receiver asks for CRC-16. Senders ignore it and follow the
// receiver's start byte.
func (cfg *Config) CRC() bool { return cfg.crc }

// RetryLimit returns the number of retries before a transfer is aborted.
func (cfg *Config) RetryLimit() int { return cfg.retryLimit }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for NewConfig.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithCRC selects CRC-16 (true) or the 8-bit checksum (false) on the receiving side.
func WithCRC(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.crc = enabled
		return nil
	})
}

// WithRetryLimit sets the retry limit. Must be in [0, MaxRetryLimit].
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("xfer: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("xfer: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
