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

var defaultLogRates = map[time.Duration]int{
	time.Second: 2,
	time.Minute: 30,
}

// logCategory identifies a rate limited log message.
type logCategory uint8

const (
	logCategoryInterrupted logCategory = iota + 1
	logCategoryDropped
	logCategoryUnexpected
)

// instanceLogger decorates every message with the epoll descriptor, and
// applies rate limits per category. The zero value discards everything.
type instanceLogger struct {
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
	epfd    int
}

func newLogLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter = nil
			err = fmt.Errorf(`epoll: invalid log rate limits: %v`, r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

func (x *instanceLogger) build(level logiface.Level) *logiface.Builder[logiface.Event] {
	return x.logger.Build(level).Int(`epfd`, x.epfd)
}

// limited builds a message, or returns nil if the category is over its rate
// limit. The builder methods are nil-safe.
func (x *instanceLogger) limited(level logiface.Level, category logCategory) *logiface.Builder[logiface.Event] {
	b := x.build(level)
	if !b.Enabled() {
		return nil
	}
	if _, ok := x.limiter.Allow(category); !ok {
		b.Release()
		return nil
	}
	return b
}

func (x *instanceLogger) debug() *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelDebug)
}

func (x *instanceLogger) warning() *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelWarning)
}

func (x *instanceLogger) err() *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelError)
}
