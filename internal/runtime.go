package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var validate = validator.New()

// RuntimeOptions configures a Runtime. Zero value is valid: every field
// falls back to a sensible default.
type RuntimeOptions struct {
	// EffectBudget bounds how many effects one propagation pass will run
	// before failing with RunawayPropagationError.
	EffectBudget int `validate:"omitempty,gt=0"`

	// Shards sets the registry's lock-striping width.
	Shards int `validate:"omitempty,min=1,max=1024"`

	// ErrorSink receives errors recovered from the run functions of
	// Effects created without an error sink of their own. A nil sink
	// silently drops them.
	ErrorSink func(NodeId, error)

	// Tracer and Meter default to the global OTel providers
	// (otel.Tracer/otel.Meter) when nil, so the engine participates in
	// whatever SDK the host process wires up without forcing one.
	Tracer trace.Tracer
	Meter  metric.Meter

	// Registerer receives this Runtime's Prometheus collectors. When nil,
	// metrics are created against a private, unregistered registry so
	// that constructing a Runtime never panics on a duplicate collector.
	Registerer prometheus.Registerer
}

// Option mutates a RuntimeOptions during NewRuntime.
type Option func(*RuntimeOptions)

func WithEffectBudget(n int) Option        { return func(o *RuntimeOptions) { o.EffectBudget = n } }
func WithShards(n int) Option              { return func(o *RuntimeOptions) { o.Shards = n } }
func WithErrorSink(f func(NodeId, error)) Option {
	return func(o *RuntimeOptions) { o.ErrorSink = f }
}
func WithTracer(t trace.Tracer) Option   { return func(o *RuntimeOptions) { o.Tracer = t } }
func WithMeter(m metric.Meter) Option    { return func(o *RuntimeOptions) { o.Meter = m } }
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *RuntimeOptions) { o.Registerer = r }
}

// Runtime is the shared, Send+Sync reactive graph: a registry of Signal,
// Memo and Effect nodes plus the scheduler, batcher and tracker that
// drive propagation. Unlike the teacher's GetRuntime() (one Runtime per
// goroutine, keyed by goid), a Runtime here is a single explicit object
// constructed once and shared across every goroutine that touches the
// graph; only the Tracker's per-goroutine frame stays thread-local.
type Runtime struct {
	id  RuntimeId
	ids idAllocator

	reg       *registry
	tracker   *Tracker
	batcher   *batcher
	scheduler *scheduler
	pending   *pendingQueue
	effects   *effectQueue
	settled   *settledQueue

	errSink func(NodeId, error)

	tracer trace.Tracer

	metricWrites      metric.Int64Counter
	metricRecomputes  metric.Int64Counter
	metricEffectRuns  metric.Int64Counter
	metricDisposals   metric.Int64Counter
	metricPassSeconds metric.Float64Histogram

	promPasses   prometheus.Counter
	promNodes    prometheus.Gauge
	promPassTime prometheus.Histogram
}

// NewRuntime constructs a Runtime. It returns an error if opts fail
// struct validation (e.g. a negative EffectBudget).
func NewRuntime(opts ...Option) (*Runtime, error) {
	options := &RuntimeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("reactive: invalid runtime options: %w", err)
	}

	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/reactivecore/runtime")
	}
	meter := options.Meter
	if meter == nil {
		meter = otel.Meter("github.com/reactivecore/runtime")
	}

	reg := options.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	rt := &Runtime{
		id:        newRuntimeId(),
		reg:       newRegistry(options.Shards),
		tracker:   newTracker(),
		batcher:   newBatcher(),
		scheduler: newScheduler(options.EffectBudget),
		pending:   newPendingQueue(),
		effects:   newEffectQueue(),
		settled:   newSettledQueue(),
		errSink:   options.ErrorSink,
		tracer:    tracer,
	}

	rt.metricWrites, _ = meter.Int64Counter("reactive.signal.writes")
	rt.metricRecomputes, _ = meter.Int64Counter("reactive.memo.recomputes")
	rt.metricEffectRuns, _ = meter.Int64Counter("reactive.effect.runs")
	rt.metricDisposals, _ = meter.Int64Counter("reactive.node.disposals")
	rt.metricPassSeconds, _ = meter.Float64Histogram("reactive.pass.duration_seconds")

	rt.promPasses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reactive_propagation_passes_total",
		Help: "Number of propagation passes run by this Runtime.",
	})
	rt.promNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reactive_nodes",
		Help: "Number of nodes currently registered in this Runtime.",
	})
	rt.promPassTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reactive_propagation_pass_seconds",
		Help:    "Duration of each propagation pass.",
		Buckets: prometheus.DefBuckets,
	})
	_ = reg.Register(rt.promPasses)
	_ = reg.Register(rt.promNodes)
	_ = reg.Register(rt.promPassTime)

	return rt, nil
}

func (rt *Runtime) ID() RuntimeId { return rt.id }

// register assigns n a fresh NodeId, inserts it into the registry, and
// gives it its initial strong reference -- the one the caller's newly
// minted Handle represents.
func (rt *Runtime) register(n *node) {
	n.id = rt.ids.next()
	n.refCount = 1
	rt.reg.insert(n)
}

func (rt *Runtime) lookup(id NodeId) (*node, bool) {
	return rt.reg.lookup(id)
}

// disposeNode tears a single node down: marks it Disposed (idempotent),
// clears its source edges (releasing the strong references it held),
// disposes its evaluation scope, runs any Effect cleanup, and removes it
// from the registry. It does not touch the node's own owner -- that is
// the caller's responsibility (owner.dispose already removed n from its
// own bookkeeping before calling this).
func (rt *Runtime) disposeNode(n *node) {
	n.mu.Lock()
	if n.state == Disposed {
		n.mu.Unlock()
		return
	}
	n.state = Disposed
	scope := n.scope
	cleanup := n.cleanup
	n.scope = nil
	n.cleanup = nil
	n.mu.Unlock()

	if cleanup != nil {
		runProtected(cleanup)
	}
	n.clearSources()
	if scope != nil {
		scope.dispose(rt)
	}

	rt.pending.remove(n)
	rt.reg.remove(n.id)

	if rt.metricDisposals != nil {
		rt.metricDisposals.Add(context.Background(), 1)
	}
}

// releaseHandle drops one strong reference held on behalf of a Handle. If
// the count reaches zero, n is disposed immediately.
func (rt *Runtime) releaseHandle(n *node) {
	if n.release() <= 0 {
		rt.disposeNode(n)
	}
}

// reclaim disposes every node with zero strong references remaining.
// Run at the end of every Flush pass (the P5/P6 Reclaim phase).
func (rt *Runtime) reclaim() {
	for {
		cands := rt.reg.reclaimCandidates()
		if cands.Cardinality() == 0 {
			return
		}
		cands.Each(func(n *node) bool {
			rt.disposeNode(n)
			return false
		})
	}
}

// flush drives one propagation pass: Mark was already done eagerly by
// WriteSignal/evaluate; this runs the Drain (reconcile every pending
// Effect in height order; Memos are only marked, never queued, and
// recompute when an Effect or a caller reads them) then runs every
// Effect that turned out ready, then sweeps unreachable nodes. If a pass is already running on
// another goroutine, this just leaves the scheduled flag set; that
// goroutine's own flush loop will notice and run another pass before
// returning.
func (rt *Runtime) flush() error {
	for {
		pass, started := rt.scheduler.beginPass()
		if !started {
			return nil
		}

		start := time.Now()
		var span trace.Span
		if rt.tracer != nil {
			_, span = rt.tracer.Start(context.Background(), "reactive.flush")
		}

		rt.pending.drain(func(n *node) {
			switch n.kind {
			case memoNode:
				rt.reconcile(n)
				if rt.metricRecomputes != nil {
					rt.metricRecomputes.Add(context.Background(), 1)
				}
			case effectNode:
				rt.reconcileEffectReadiness(n)
			}
		})

		err := rt.effects.drain(rt.scheduler.budget, func(n *node) error {
			rt.runEffectNow(n, rt.errSink)
			if rt.metricEffectRuns != nil {
				rt.metricEffectRuns.Add(context.Background(), 1)
			}
			return nil
		})

		rt.reclaim()
		rt.settled.run()

		if span != nil {
			span.End()
		}
		if rt.metricPassSeconds != nil {
			rt.metricPassSeconds.Record(context.Background(), time.Since(start).Seconds())
		}
		rt.promPasses.Inc()
		rt.promNodes.Set(float64(rt.reg.size()))
		rt.promPassTime.Observe(time.Since(start).Seconds())

		_ = pass
		rt.scheduler.endPass()

		if err != nil {
			return err
		}
		if !rt.scheduler.isScheduled() {
			return nil
		}
	}
}

// reconcileEffectReadiness checks whether a Check/Dirty effect node
// actually needs to run (its sources truly changed, not just pushed a
// cheap mark) and if so hands it to the FIFO effect queue instead of
// running it inline, preserving schedule-order semantics.
func (rt *Runtime) reconcileEffectReadiness(n *node) {
	n.mu.Lock()
	state := n.state
	n.mu.Unlock()

	if state == Clean || state == Disposed {
		return
	}

	dirty := true
	if state == Check {
		d, err := rt.sourcesChanged(n)
		if err != nil {
			return
		}
		dirty = d
	}

	if !dirty {
		n.mu.Lock()
		if n.state == Check {
			n.state = Clean
		}
		n.mu.Unlock()
		return
	}

	rt.markEffectReady(n)
}

// CurrentOwner returns the owner scope in effect on the calling
// goroutine, or nil outside any Effect/Memo evaluation.
func (rt *Runtime) CurrentOwner() *OwnerHandle {
	o := rt.tracker.currentOwner()
	if o == nil {
		return nil
	}
	return &OwnerHandle{rt: rt, o: o}
}

// Batch defers propagation until fn (and any nested Batch it calls)
// returns, then applies P7 equality gating to the batch's net writes
// before flushing once.
func (rt *Runtime) Batch(fn func()) {
	rt.batcher.enter()
	var outermost bool
	defer func() {
		outermost = rt.batcher.exit()
		if outermost {
			rt.closeBatch()
		}
	}()
	fn()
}

// closeBatch applies P7: for every Signal written during the batch whose
// final value equals its pre-batch value, value and version revert to
// their pre-batch state. Subscribers already marked Check stay marked;
// when reconciled they find the version they last saw and demote back to
// Clean without running.
func (rt *Runtime) closeBatch() {
	snapshot := rt.batcher.closeOutermost()
	for n, pre := range snapshot {
		n.mu.Lock()
		if n.equal(pre.value, n.value) {
			n.value = pre.value
			n.version = pre.version
		}
		n.mu.Unlock()
	}
	if rt.scheduler.isScheduled() {
		_ = rt.flush()
	}
}

// Untrack runs fn without linking any Signal/Memo it reads as a
// dependency of the calling goroutine's current computation.
func (rt *Runtime) Untrack(fn func()) {
	rt.tracker.runUntracked(fn)
}

// OnSettled registers fn to run once the in-flight (or next) propagation
// pass fully completes, including its effects.
func (rt *Runtime) OnSettled(fn func()) {
	rt.settled.enqueue(fn)
}
