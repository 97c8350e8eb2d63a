// Package metrics implements the engine's Prometheus-backed counters
// and latency histograms: L1 search counts/cache
// hits/timeouts/fallbacks/latency, L2 parse counts/errors/quantiles,
// exposed as Prometheus text on demand. Each Engine owns its own
// registry so multiple engine instances in one process (tests) don't
// collide on global registration.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Engine holds every counter/histogram the query pipeline reports.
// Registered against its own prometheus.Registry so callers can mount
// several independent instances (one per test case) without
// duplicate-registration panics.
type Engine struct {
	registry *prometheus.Registry

	l1Searches prometheus.Counter
	l1CacheHit prometheus.Counter
	l1Timeout  prometheus.Counter
	l1Fallback prometheus.Counter
	l1Latency  prometheus.Histogram

	l2Parses  prometheus.Counter
	l2Errors  prometheus.Counter
	l2Latency prometheus.Histogram

	renamesPlanned prometheus.Counter
	renamesApplied prometheus.Counter

	symbolMapsBuilt prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default returns the process-wide Engine, constructing it on first
// use.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// New builds an Engine with its own registry. Most callers should use
// Default(); New is for tests that need isolation.
func New() *Engine {
	e := &Engine{registry: prometheus.NewRegistry()}

	e.l1Searches = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l1_searches_total", Help: "Total L1 regex searches dispatched"})
	e.l1CacheHit = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l1_cache_hits_total", Help: "L1 requests served from the result cache"})
	e.l1Timeout = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l1_timeouts_total", Help: "L1 searches that hit their wall-clock budget"})
	e.l1Fallback = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l1_fallbacks_total", Help: "L1 searches that fell back from exact to fuzzy/conceptual"})
	e.l1Latency = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ontology_l1_latency_seconds", Help: "L1 search latency", Buckets: latencyBuckets})

	e.l2Parses = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l2_parses_total", Help: "Total L2 AST validation parses"})
	e.l2Errors = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_l2_errors_total", Help: "L2 parses that errored or timed out"})
	e.l2Latency = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ontology_l2_latency_seconds", Help: "L2 parse latency", Buckets: latencyBuckets})

	e.renamesPlanned = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_renames_planned_total", Help: "WorkspaceEdits produced by rename()"})
	e.renamesApplied = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_renames_applied_total", Help: "Renames invoked with dryRun=false"})

	e.symbolMapsBuilt = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_symbolmaps_built_total", Help: "buildSymbolMap invocations"})

	e.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_cache_hits_total", Help: "Result cache hits across all operations"})
	e.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "ontology_cache_misses_total", Help: "Result cache misses across all operations"})

	e.registry.MustRegister(
		e.l1Searches, e.l1CacheHit, e.l1Timeout, e.l1Fallback, e.l1Latency,
		e.l2Parses, e.l2Errors, e.l2Latency,
		e.renamesPlanned, e.renamesApplied,
		e.symbolMapsBuilt,
		e.cacheHits, e.cacheMisses,
	)

	return e
}

// Registry exposes the underlying prometheus.Registry for promhttp.
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

func (e *Engine) RecordL1Search(seconds float64)       { e.l1Searches.Inc(); e.l1Latency.Observe(seconds) }
func (e *Engine) RecordL1CacheHit()                    { e.l1CacheHit.Inc() }
func (e *Engine) RecordL1Timeout()                     { e.l1Timeout.Inc() }
func (e *Engine) RecordL1Fallback()                    { e.l1Fallback.Inc() }
func (e *Engine) RecordL2Parse(seconds float64)        { e.l2Parses.Inc(); e.l2Latency.Observe(seconds) }
func (e *Engine) RecordL2Error()                       { e.l2Errors.Inc() }
func (e *Engine) RecordRenamePlanned()                 { e.renamesPlanned.Inc() }
func (e *Engine) RecordRenameApplied()                 { e.renamesApplied.Inc() }
func (e *Engine) RecordSymbolMapBuilt()                { e.symbolMapsBuilt.Inc() }
func (e *Engine) RecordCacheHit()                      { e.cacheHits.Inc() }
func (e *Engine) RecordCacheMiss()                     { e.cacheMisses.Inc() }
