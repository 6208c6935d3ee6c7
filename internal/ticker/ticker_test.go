package ticker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benwilber/tinysse/internal/hooks"
)

type recordingPipeline struct {
	hooks.DefaultPipeline
	mu     sync.Mutex
	counts []uint64
}

func (p *recordingPipeline) Tick(ctx context.Context, count uint64) error {
	p.mu.Lock()
	p.counts = append(p.counts, count)
	p.mu.Unlock()
	return nil
}

// TestTickMonotonicity covers P10: successive tick(count) calls receive
// strictly increasing counts.
func TestTickMonotonicity(t *testing.T) {
	pl := &recordingPipeline{}
	tk := &Ticker{Interval: 10 * time.Millisecond, Pipeline: pl}

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	tk.Run(ctx)

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.counts) < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", len(pl.counts))
	}
	for i := 1; i < len(pl.counts); i++ {
		if pl.counts[i] != pl.counts[i-1]+1 {
			t.Fatalf("ticks not strictly increasing by one: %v", pl.counts)
		}
	}
}

// TestSlowTickDoesNotBurst ensures a tick handler that runs longer than the
// interval delays the next tick rather than firing immediately to catch up.
func TestSlowTickDoesNotBurst(t *testing.T) {
	var times []time.Time
	var mu sync.Mutex
	pl := &slowPipeline{fn: func() {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
	}}
	tk := &Ticker{Interval: 10 * time.Millisecond, Pipeline: pl}

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()
	tk.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		if gap < 25*time.Millisecond {
			t.Fatalf("tick %d fired only %v after the previous slow tick, want >= ~30ms", i, gap)
		}
	}
}

type slowPipeline struct {
	hooks.DefaultPipeline
	fn func()
}

func (p *slowPipeline) Tick(ctx context.Context, count uint64) error {
	p.fn()
	return nil
}
