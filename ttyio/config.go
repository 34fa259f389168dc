package ttyio

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-ttypair/logger"
)

const (
	// DefaultBufferSize is the per-descriptor ring buffer capacity in bytes.
	DefaultBufferSize = 300
	// DefaultBlockSize keeps a one byte margin in the ring buffer.
	DefaultBlockSize = 1
	// DefaultInitialSlots covers stdin, stdout and stderr.
	DefaultInitialSlots = 3

	// Upper limits accepted by WithBufferSize and WithBlockSize.
	MaxBufferSize = 1 << 20
	MaxBlockSize  = 4096
)

// Config holds the settings of a Registry and the coordinators it creates.
type Config struct {
	bufferSize   int
	blockSize    int
	initialSlots int

	logger logger.Logger
}

// NewConfig returns a Config with defaults, modified by opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		bufferSize:   DefaultBufferSize,
		blockSize:    DefaultBlockSize,
		initialSlots: DefaultInitialSlots,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// BufferSize returns the ring buffer capacity of each managed descriptor.
func (cfg *Config) BufferSize() int { return cfg.bufferSize }

// BlockSize returns the ring buffer alignment margin.
func (cfg *Config) BlockSize() int { return cfg.blockSize }

// InitialSlots returns the initial length of the descriptor table.
func (cfg *Config) InitialSlots() int { return cfg.initialSlots }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for NewConfig.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBufferSize sets the number of bytes a descriptor can hold before writes toward
// it come back short. Must be in [1, MaxBufferSize].
func WithBufferSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 || n > MaxBufferSize {
			return fmt.Errorf("ttyio: buffer size %d out of range [1, %d]", n, MaxBufferSize)
		}
		cfg.bufferSize = n

		return nil
	})
}

// WithBlockSize sets the ring buffer alignment margin. Must be in [1, MaxBlockSize].
func WithBlockSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 || n > MaxBlockSize {
			return fmt.Errorf("ttyio: block size %d out of range [1, %d]", n, MaxBlockSize)
		}
		cfg.blockSize = n

		return nil
	})
}

// WithInitialSlots sets the initial length of the descriptor table. The table grows
// on demand, so this only avoids early reallocations.
func WithInitialSlots(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 {
			return fmt.Errorf("ttyio: initial slots %d must not be negative", n)
		}
		cfg.initialSlots = n

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("ttyio: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
