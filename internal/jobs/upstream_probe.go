package jobs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/config"
	"aki/bff/internal/logging"
	"aki/bff/internal/metrics"
)

// Pinger is an upstream that answers a cheap health check.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type UpstreamStatus struct {
	Up        bool      `json:"up"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// UpstreamProbe remembers the outcome of the last health check per upstream.
type UpstreamProbe struct {
	upstreams []Pinger

	mu   sync.RWMutex
	last map[string]UpstreamStatus
}

func NewUpstreamProbe(upstreams ...Pinger) *UpstreamProbe {
	return &UpstreamProbe{upstreams: upstreams, last: map[string]UpstreamStatus{}}
}

// RunOnce pings every upstream in parallel, each bounded by timeout.
func (p *UpstreamProbe) RunOnce(ctx context.Context, timeout time.Duration) {
	var g errgroup.Group
	for _, upstream := range p.upstreams {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			err := upstream.Ping(pingCtx)
			cancel()

			status := UpstreamStatus{Up: err == nil, CheckedAt: time.Now().UTC()}
			if err != nil {
				status.Error = err.Error()
				logging.Warn().Err(err).Str("service", upstream.Name()).Msg("upstream probe failed")
			}
			metrics.SetUpstreamUp(upstream.Name(), status.Up)

			p.mu.Lock()
			p.last[upstream.Name()] = status
			p.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// Snapshot returns a copy of the last known status of each upstream. It is
// empty until the first probe completes.
func (p *UpstreamProbe) Snapshot() map[string]UpstreamStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]UpstreamStatus, len(p.last))
	for name, status := range p.last {
		out[name] = status
	}
	return out
}

func StartUpstreamProbeJob(ctx context.Context, cfg config.Config, probe *UpstreamProbe) {
	if !cfg.ProbeEnabled {
		return
	}
	if probe == nil || len(probe.upstreams) == 0 {
		logging.Warn().Msg("upstream probe job disabled: no upstreams configured")
		return
	}
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		probe.RunOnce(ctx, timeout)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe.RunOnce(ctx, timeout)
			}
		}
	}()
}
