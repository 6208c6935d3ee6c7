// Package ticker drives the periodic tick(count) hook, grounded on the
// heartbeat loop in buffkit's ssr/broker.go but deliberately built on timed
// sleeps rather than time.NewTicker: a hook that runs long must not cause
// a burst of queued-up ticks once it returns (spec.md §4.6).
package ticker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/benwilber/tinysse/internal/hooks"
)

// DefaultInterval is the default tick period (spec.md §4.6).
const DefaultInterval = 500 * time.Millisecond

// Ticker calls pipeline.Tick with a strictly increasing, 1-based counter
// every interval, until its context is cancelled.
type Ticker struct {
	Interval time.Duration
	Pipeline hooks.Pipeline
	Logger   *logrus.Logger
}

// Run blocks until ctx is cancelled, calling Tick at each interval. A slow
// tick handler delays the next tick rather than firing immediately to
// catch up.
func (t *Ticker) Run(ctx context.Context) {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := t.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	var count uint64
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			count++
			if err := t.Pipeline.Tick(ctx, count); err != nil {
				log.WithError(err).WithField("count", count).Warn("tick hook error")
			}
			timer.Reset(interval)
		}
	}
}
