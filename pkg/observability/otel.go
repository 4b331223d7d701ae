package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelHooks records hook events as OpenTelemetry metrics. One value
// implements all three hook interfaces.
type OTelHooks struct {
	acquireDuration metric.Float64Histogram
	graphNodes      metric.Int64Histogram
	solveDuration   metric.Float64Histogram
	solveIterations metric.Int64Histogram
	solveRuns       metric.Int64Counter
	cacheOps        metric.Int64Counter
	cacheBytes      metric.Int64Counter
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
}

var (
	_ PipelineHooks = (*OTelHooks)(nil)
	_ CacheHooks    = (*OTelHooks)(nil)
	_ HTTPHooks     = (*OTelHooks)(nil)
)

// NewOTelHooks creates the metric instruments on meter.
func NewOTelHooks(meter metric.Meter) (*OTelHooks, error) {
	h := &OTelHooks{}
	var err error

	if h.acquireDuration, err = meter.Float64Histogram(
		"linkrank.acquire.duration",
		metric.WithDescription("Time to crawl or load the link graph"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create acquire histogram: %w", err)
	}
	if h.graphNodes, err = meter.Int64Histogram(
		"linkrank.graph.nodes",
		metric.WithDescription("Nodes in acquired graphs"),
		metric.WithUnit("{node}"),
	); err != nil {
		return nil, fmt.Errorf("create nodes histogram: %w", err)
	}
	if h.solveDuration, err = meter.Float64Histogram(
		"linkrank.solve.duration",
		metric.WithDescription("Power iteration wall time"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create solve histogram: %w", err)
	}
	if h.solveIterations, err = meter.Int64Histogram(
		"linkrank.solve.iterations",
		metric.WithDescription("Iterations until convergence or the cap"),
		metric.WithUnit("{iteration}"),
	); err != nil {
		return nil, fmt.Errorf("create iterations histogram: %w", err)
	}
	if h.solveRuns, err = meter.Int64Counter(
		"linkrank.solve.runs",
		metric.WithDescription("Completed solver runs"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	if h.cacheOps, err = meter.Int64Counter(
		"linkrank.cache.operations",
		metric.WithDescription("Cache hits, misses and writes"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create cache counter: %w", err)
	}
	if h.cacheBytes, err = meter.Int64Counter(
		"linkrank.cache.written",
		metric.WithDescription("Bytes written to the cache"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("create cache bytes counter: %w", err)
	}
	if h.httpRequests, err = meter.Int64Counter(
		"linkrank.http.requests",
		metric.WithDescription("Page fetch requests by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create http counter: %w", err)
	}
	if h.httpDuration, err = meter.Float64Histogram(
		"linkrank.http.duration",
		metric.WithDescription("Page fetch latency"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create http histogram: %w", err)
	}
	return h, nil
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (h *OTelHooks) OnAcquireStart(context.Context, string, string) {}

func (h *OTelHooks) OnAcquireComplete(ctx context.Context, mode string, nodes, _ int, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("error", err != nil),
	)
	h.acquireDuration.Record(ctx, ms(d), attrs)
	if err == nil {
		h.graphNodes.Record(ctx, int64(nodes), metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (h *OTelHooks) OnSolveStart(context.Context, int, string) {}

func (h *OTelHooks) OnSolveComplete(ctx context.Context, iterations int, converged bool, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Bool("converged", converged),
		attribute.Bool("error", err != nil),
	)
	h.solveRuns.Add(ctx, 1, attrs)
	h.solveDuration.Record(ctx, ms(d), attrs)
	if err == nil {
		h.solveIterations.Record(ctx, int64(iterations), attrs)
	}
}

func (h *OTelHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.cacheOps.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType), attribute.String("op", "hit")))
}

func (h *OTelHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.cacheOps.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType), attribute.String("op", "miss")))
}

func (h *OTelHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	attrs := metric.WithAttributes(attribute.String("key_type", keyType), attribute.String("op", "set"))
	h.cacheOps.Add(ctx, 1, attrs)
	h.cacheBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("key_type", keyType)))
}

func (h *OTelHooks) OnRequest(context.Context, string, string, string) {}

func (h *OTelHooks) OnResponse(ctx context.Context, method, host, _ string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("server.address", host),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	h.httpRequests.Add(ctx, 1, attrs)
	h.httpDuration.Record(ctx, ms(d), attrs)
}

func (h *OTelHooks) OnError(ctx context.Context, method, host, _ string, _ error) {
	h.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("server.address", host),
		attribute.String("http.status_code", "error"),
	))
}
