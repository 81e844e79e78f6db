package sampler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/metrics"
)

// StatsSource fetches the backend's current counters.
type StatsSource interface {
	Stats(ctx context.Context) (StatsSnapshot, error)
}

// Poller feeds a Sampler from a StatsSource at a fixed interval.
type Poller struct {
	source   StatsSource
	sampler  *Sampler
	interval time.Duration
	logger   *zap.SugaredLogger
	onSample func(Sample)
}

func NewPoller(source StatsSource, s *Sampler, interval time.Duration, logger *zap.SugaredLogger) *Poller {
	return &Poller{
		source:   source,
		sampler:  s,
		interval: interval,
		logger:   logging.OrNop(logger),
	}
}

// OnSample registers fn to run after each recorded sample.
func (p *Poller) OnSample(fn func(Sample)) {
	p.onSample = fn
}

// Run polls until ctx is cancelled. Failed polls are logged and skipped;
// they do not record a sample.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll fetches once and records the result.
func (p *Poller) Poll(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	snap, err := p.source.Stats(reqCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.StatsPollErrors.Inc()
		p.logger.Debugw("Stats poll failed", "error", err)
		return
	}

	sample := p.sampler.AddSample(snap)
	metrics.BandwidthBytes.Set(sample.Bandwidth)
	if p.onSample != nil {
		p.onSample(sample)
	}
}
