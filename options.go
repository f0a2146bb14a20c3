// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package epoll

import (
	"fmt"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// DefaultCapacity is the wait buffer capacity used if WithCapacity is not
// provided.
const DefaultCapacity = 128

// options holds configuration options for Multiplexer creation.
type options struct {
	logger      *logiface.Logger[logiface.Event]
	logLimiter  *catrate.Limiter
	kernel      kernel
	capacity    int
	closeOnExec bool
	logLimitSet bool
}

// Option configures a Multiplexer instance.
type Option interface {
	applyOption(*options) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyOptionFunc func(*options) error
}

func (o *optionImpl) applyOption(opts *options) error {
	return o.applyOptionFunc(opts)
}

// WithCloseOnExec sets whether the epoll descriptor is closed on exec
// (EPOLL_CLOEXEC). Defaults to true.
func WithCloseOnExec(enabled bool) Option {
	return &optionImpl{func(opts *options) error {
		opts.closeOnExec = enabled
		return nil
	}}
}

// WithCapacity sets the initial number of wait buffer slots, i.e. the
// maximum number of events a single Wait may return. Must be positive.
// See also Multiplexer.ResizeBuffer.
func WithCapacity(capacity int) Option {
	return &optionImpl{func(opts *options) error {
		if capacity <= 0 {
			return fmt.Errorf(`%w: %d`, ErrInvalidCapacity, capacity)
		}
		opts.capacity = capacity
		return nil
	}}
}

// WithLogger attaches a structured logger. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) error {
		opts.logger = logger
		return nil
	}}
}

// WithLogRateLimits configures the rate limits applied to repetitive log
// messages (e.g. interrupted waits, dropped events), per message category,
// as accepted by catrate.NewLimiter. A nil or empty map disables rate
// limiting. Defaults to 2 per second and 30 per minute.
func WithLogRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *options) error {
		limiter, err := newLogLimiter(rates)
		if err != nil {
			return err
		}
		opts.logLimiter = limiter
		opts.logLimitSet = true
		return nil
	}}
}

// withKernel replaces the system call implementation, for testing.
func withKernel(k kernel) Option {
	return &optionImpl{func(opts *options) error {
		opts.kernel = k
		return nil
	}}
}

// resolveOptions applies Option instances to options.
func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		capacity:    DefaultCapacity,
		closeOnExec: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.kernel == nil {
		cfg.kernel = sysKernel{}
	}
	if cfg.logger != nil && !cfg.logLimitSet {
		cfg.logLimiter, _ = newLogLimiter(defaultLogRates)
	}
	return cfg, nil
}
