// Package orchestrator loads span batches for a trace and runs them through the stack engine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"tracestack/internal/clients/collector"
	"tracestack/internal/config"
	"tracestack/internal/db"
	"tracestack/internal/metrics"
	"tracestack/internal/models"
	"tracestack/internal/stack"
)

// TraceSource fetches span batches from the trace backend.
type TraceSource interface {
	GetTrace(ctx context.Context, traceID string) ([]models.Span, error)
	SearchTraces(ctx context.Context, service string, start, end time.Time, limit int) ([]collector.TraceSummary, error)
}

// BatchCache stores fetched batches between layout passes.
type BatchCache interface {
	GetBatch(ctx context.Context, traceID string, maxAge time.Duration) ([]models.Span, error)
	PutBatch(ctx context.Context, traceID string, spans []models.Span) error
}

// Orchestrator coordinates fetching, caching and laying out trace batches
type Orchestrator struct {
	source  TraceSource
	cache   BatchCache
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	opts    []stack.Option
	fetches singleflight.Group
}

// New creates a new orchestrator. cache may be nil to always fetch.
func New(source TraceSource, cache BatchCache, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:  source,
		cache:   cache,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		opts:    stackOptions(cfg.Layout),
	}
}

func stackOptions(lc config.LayoutConfig) []stack.Option {
	opts := []stack.Option{
		stack.WithFormatter(stack.DefaultFormatter{Location: lc.GetLocation()}),
	}
	if len(lc.Palette) > 0 {
		opts = append(opts, stack.WithPalette(lc.Palette))
	}
	if lc.LaneHeight > 0 {
		opts = append(opts, stack.WithLaneHeight(lc.LaneHeight))
	}
	if lc.ProximityPx > 0 {
		opts = append(opts, stack.WithProximity(lc.ProximityPx))
	}
	return opts
}

// ResolveWidth applies the configured default for an unset width and caps it at max_width.
func (o *Orchestrator) ResolveWidth(width float64) float64 {
	if width == 0 {
		return o.cfg.Layout.DefaultWidth
	}
	if o.cfg.Layout.MaxWidth > 0 && width > o.cfg.Layout.MaxWidth {
		return o.cfg.Layout.MaxWidth
	}
	return width
}

// Build links a span batch with the configured engine options.
func (o *Orchestrator) Build(spans []models.Span) (*stack.Stack, error) {
	return stack.Build(spans, o.opts...)
}

// LoadStack fetches the batch for traceID, from cache when fresh, and links it.
func (o *Orchestrator) LoadStack(ctx context.Context, traceID string) (*stack.Stack, error) {
	spans, err := o.loadSpans(ctx, traceID)
	if err != nil {
		return nil, err
	}
	return o.Build(spans)
}

// LayoutTrace runs a full layout pass over the batch for traceID.
func (o *Orchestrator) LayoutTrace(ctx context.Context, traceID string, width float64) (*stack.Layout, error) {
	spans, err := o.loadSpans(ctx, traceID)
	if err != nil {
		o.metrics.LayoutFailed(metrics.OutcomeUpstream)
		return nil, err
	}
	return o.LayoutSpans(spans, width)
}

// LayoutSpans runs a full layout pass over a caller-supplied batch.
func (o *Orchestrator) LayoutSpans(spans []models.Span, width float64) (*stack.Layout, error) {
	start := time.Now()

	s, err := o.Build(spans)
	if err != nil {
		o.metrics.LayoutFailed(metrics.OutcomeRejected)
		return nil, err
	}
	layout, err := s.Layout(o.ResolveWidth(width))
	if err != nil {
		o.metrics.LayoutFailed(metrics.OutcomeRejected)
		return nil, err
	}

	o.metrics.ObserveLayout(s.Len(), s.Roots(), time.Since(start))
	return layout, nil
}

// SpanDetail returns the detail projection of one span of a trace.
func (o *Orchestrator) SpanDetail(ctx context.Context, traceID string, key stack.Identity) (*stack.Detail, error) {
	s, err := o.LoadStack(ctx, traceID)
	if err != nil {
		return nil, err
	}
	return s.Detail(key)
}

// SearchTraces lists traces of a service that started within lookback of now.
func (o *Orchestrator) SearchTraces(ctx context.Context, service string, lookback time.Duration) ([]collector.TraceSummary, error) {
	end := time.Now()
	return o.source.SearchTraces(ctx, service, end.Add(-lookback), end, o.cfg.Collector.SearchLimit)
}

// loadSpans returns the cached batch when fresh; otherwise one fetch per trace
// is shared by all concurrent callers and written back to the cache.
func (o *Orchestrator) loadSpans(ctx context.Context, traceID string) ([]models.Span, error) {
	if o.cache != nil {
		spans, err := o.cache.GetBatch(ctx, traceID, o.cfg.Cache.GetTTLDuration())
		switch {
		case err == nil:
			o.metrics.CacheLookup(true)
			return spans, nil
		case errors.Is(err, db.ErrCacheMiss):
			o.metrics.CacheLookup(false)
		default:
			o.logger.Warn("Cache read failed", "traceID", traceID, "error", err)
		}
	}

	// The shared fetch outlives any one caller; each caller waits on its own ctx.
	ch := o.fetches.DoChan(traceID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Collector.GetTimeoutDuration())
		defer cancel()

		spans, err := o.source.GetTrace(fetchCtx, traceID)
		if err != nil {
			return nil, err
		}
		if o.cache != nil {
			if err := o.cache.PutBatch(fetchCtx, traceID, spans); err != nil {
				o.logger.Warn("Cache write failed", "traceID", traceID, "error", err)
			}
		}
		return spans, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to load trace %s: %w", traceID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load trace %s: %w", traceID, res.Err)
		}
		if res.Shared {
			o.logger.Debug("Shared in-flight fetch", "traceID", traceID)
		}
		return res.Val.([]models.Span), nil
	}
}
