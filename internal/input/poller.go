package input

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPollInterval matches how often the game can plausibly refresh the source.
const DefaultPollInterval = 100 * time.Millisecond

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	// Alternate reads only after ForceRead, waiting one interval first so the
	// writer can finish.
	Alternate bool
	Logger    *slog.Logger
}

// Poller reads a TextSource on a fixed cadence and forwards changed text.
type Poller struct {
	source    TextSource
	sink      func(context.Context, string)
	interval  time.Duration
	alternate atomic.Bool
	force     atomic.Bool
	logger    *slog.Logger
	errLog    rate.Sometimes
	last      string
}

// NewPoller builds a poller; sink receives every text that differs from the
// previous one.
func NewPoller(source TextSource, sink func(context.Context, string), opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	p := &Poller{
		source:   source,
		sink:     sink,
		interval: opts.Interval,
		logger:   opts.Logger,
		errLog:   rate.Sometimes{Interval: 10 * time.Second},
	}
	p.alternate.Store(opts.Alternate)
	return p
}

// ForceRead requests a read on the next tick, even in alternate mode.
func (p *Poller) ForceRead() { p.force.Store(true) }

// SetAlternate switches the read mode live.
func (p *Poller) SetAlternate(on bool) { p.alternate.Store(on) }

// Run polls until ctx is cancelled. The limiter wait is the only place the
// loop suspends.
func (p *Poller) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		p.Tick(ctx)
	}
}

// Tick performs one poll cycle.
func (p *Poller) Tick(ctx context.Context) {
	read := !p.alternate.Load()
	if p.force.Swap(false) && !read {
		read = true
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
	if !read {
		return
	}
	text, err := p.source.ReadText(ctx)
	if err != nil {
		p.errLog.Do(func() { p.logger.Warn("read observation source", "error", err) })
		return
	}
	if text == "" || text == p.last {
		return
	}
	p.last = text
	p.sink(ctx, text)
}
