// Package reactive is a fine-grained incremental computation engine: leaf
// Signals, lazily-recomputed Memos, and eagerly-run Effects, wired together
// automatically by reading them inside a Memo or Effect body. See
// internal.Runtime for the push-pull propagation engine this package is a
// generic, type-safe facade over.
package reactive

import (
	gocontext "context"

	"github.com/reactivecore/runtime/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Runtime is a single reactive graph. The zero value is not usable; build
// one with NewRuntime. A Runtime is safe to share across goroutines.
type Runtime struct {
	rt *internal.Runtime
}

// NewRuntime constructs an independent reactive graph. Most applications
// only ever need the package-level Default Runtime; call this directly when
// you want isolated graphs (tests, multi-tenant hosts) or non-default
// options such as WithEffectBudget.
func NewRuntime(opts ...Option) (*Runtime, error) {
	rt, err := internal.NewRuntime(opts...)
	if err != nil {
		return nil, err
	}
	return &Runtime{rt: rt}, nil
}

// Default returns the package-level Runtime shared by the non-method
// constructors below (NewSignal, NewMemo, NewEffect, Batch, Untrack, ...).
func Default() *Runtime {
	return &Runtime{rt: internal.DefaultRuntime()}
}

// Option configures a Runtime built with NewRuntime.
type Option = internal.Option

var (
	WithEffectBudget = internal.WithEffectBudget
	WithShards       = internal.WithShards
	WithErrorSink    = internal.WithErrorSink
	WithTracer       = internal.WithTracer
	WithMeter        = internal.WithMeter
	WithRegisterer   = internal.WithRegisterer
)

// Signal is a leaf reactive value: reading it inside a Memo or Effect
// subscribes that computation to it, writing it propagates to every
// dependent.
type Signal[T any] struct {
	rt *internal.Runtime
	h  *internal.Handle
}

// NewSignalOn creates a type-safe Signal[T] on rt, owned by the scope current on
// the calling goroutine, or unowned if called outside any Effect/Memo/Owner.Run.
// equal, if non-nil, replaces the default equality check (comparable fast
// path, reflect.DeepEqual fallback) used to decide whether a write actually
// changed the value.
func NewSignalOn[T any](rt *Runtime, initial T, equal func(a, b T) bool) *Signal[T] {
	var eq func(a, b any) bool
	if equal != nil {
		eq = func(a, b any) bool { return equal(as[T](a), as[T](b)) }
	}
	h := rt.rt.NewSignal(initial, eq, rt.rt.CurrentOwner())
	return &Signal[T]{rt: rt.rt, h: h}
}

// NewSignal creates a Signal[T] on the Default Runtime.
func NewSignal[T any](initial T) *Signal[T] {
	return NewSignalOn[T](Default(), initial, nil)
}

// NewSignalWithEqual is NewSignal with a custom equality function.
func NewSignalWithEqual[T any](initial T, equal func(a, b T) bool) *Signal[T] {
	return NewSignalOn[T](Default(), initial, equal)
}

// Read returns the Signal's current value, tracking it as a dependency of
// whatever Memo or Effect is being evaluated on the calling goroutine.
func (s *Signal[T]) Read() T {
	v, err := s.rt.ReadSignal(s.h)
	if err != nil {
		panic(err)
	}
	return as[T](v)
}

// Write stores a new value, propagating to dependents unless it compares
// equal to the current one.
func (s *Signal[T]) Write(v T) {
	if err := s.rt.WriteSignal(s.h, v); err != nil {
		panic(err)
	}
}

// Dispose releases this Signal's strong reference early, instead of waiting
// for its owning scope (if any) to dispose.
func (s *Signal[T]) Dispose() { s.h.Release() }

// Memo is a lazily-recomputed, cached derived value.
type Memo[T any] struct {
	rt *internal.Runtime
	h  *internal.Handle
}

// NewMemoOn creates a type-safe Memo[T] on rt whose compute function is run the
// first time it's read and whenever a read finds it Dirty.
func NewMemoOn[T any](rt *Runtime, compute func() T) *Memo[T] {
	h := rt.rt.NewMemo(func() (any, error) {
		return compute(), nil
	}, nil, rt.rt.CurrentOwner())
	return &Memo[T]{rt: rt.rt, h: h}
}

// NewMemo creates a Memo[T] on the Default Runtime.
func NewMemo[T any](compute func() T) *Memo[T] {
	return NewMemoOn[T](Default(), compute)
}

// NewFallibleMemo creates a Memo[T] whose compute function may fail; the
// error is cached and re-raised by Read until an upstream dependency
// changes, matching NewMemo's semantics but surfacing failures explicitly
// instead of panicking.
func NewFallibleMemo[T any](compute func() (T, error)) *Memo[T] {
	rt := Default()
	h := rt.rt.NewMemo(func() (any, error) {
		v, err := compute()
		return v, err
	}, nil, rt.rt.CurrentOwner())
	return &Memo[T]{rt: rt.rt, h: h}
}

// Read reconciles the Memo (recomputing it if Dirty) and returns its
// current value, tracking it as a dependency of whatever Memo or Effect is
// being evaluated on the calling goroutine. Panics if the last compute
// failed; use TryRead to observe the error instead.
func (m *Memo[T]) Read() T {
	v, err := m.rt.ReadMemo(m.h)
	if err != nil {
		panic(err)
	}
	return as[T](v)
}

// TryRead is Read without the panic: it returns the cached compute error,
// if any, instead of panicking.
func (m *Memo[T]) TryRead() (T, error) {
	v, err := m.rt.ReadMemo(m.h)
	return as[T](v), err
}

// Dispose releases this Memo's strong reference early.
func (m *Memo[T]) Dispose() { m.h.Release() }

// Effect is an eagerly-run side-effecting observer. There is no exported
// struct for it: an Effect has no value to read back, so the constructors
// below return only its *internal.Handle.

// Cleanup is a function returned by an Effect's body, run right before the
// effect's next run and when its owner disposes it.
type Cleanup = internal.Cleanup

// NewEffectOn creates an eagerly-run effect on rt owned by the scope current on
// the calling goroutine. errSink, if non-nil, receives any panic or error
// the run function produces; the effect stays subscribed afterward.
func NewEffectOn(rt *Runtime, run func() Cleanup, errSink func(internal.NodeId, error)) *internal.Handle {
	return rt.rt.NewEffect(func() (Cleanup, error) {
		return run(), nil
	}, rt.rt.CurrentOwner(), errSink)
}

// NewEffect creates an effect on the Default Runtime. Any panic inside run
// is recovered rather than crashing the calling goroutine; the Default
// Runtime is built without an error sink, so the failure is not reported.
func NewEffect(run func()) *internal.Handle {
	rt := Default()
	return rt.rt.NewEffect(func() (Cleanup, error) {
		run()
		return nil, nil
	}, rt.rt.CurrentOwner(), nil)
}

// NewEffectWithCleanup is NewEffect for a run function that registers its
// own teardown, invoked before the next run and on disposal.
func NewEffectWithCleanup(run func() Cleanup) *internal.Handle {
	rt := Default()
	return rt.rt.NewEffect(func() (Cleanup, error) {
		return run(), nil
	}, rt.rt.CurrentOwner(), nil)
}

// Batch defers propagation until fn returns, then applies equality gating
// to the batch's net writes before flushing once: if a Signal's value at
// the end of the batch equals its value at the start, none of its
// dependents observe a change at all.
func (rt *Runtime) Batch(fn func()) { rt.rt.Batch(fn) }

// Batch runs fn on the Default Runtime inside a Batch.
func Batch(fn func()) { Default().Batch(fn) }

// Untrack runs fn without linking any Signal/Memo it reads as a dependency
// of the calling goroutine's current computation.
func (rt *Runtime) Untrack(fn func()) { rt.rt.Untrack(fn) }

// Untrack runs fn untracked on the Default Runtime.
func Untrack(fn func()) { Default().Untrack(fn) }

// UntrackValue runs fn untracked on the Default Runtime and returns its
// result.
func UntrackValue[T any](fn func() T) T {
	var result T
	Untrack(func() { result = fn() })
	return result
}

// OnSettled registers fn to run once the in-flight (or next) propagation
// pass fully completes, including every effect it ran.
func (rt *Runtime) OnSettled(fn func()) { rt.rt.OnSettled(fn) }

// OnSettled registers fn on the Default Runtime.
func OnSettled(fn func()) { Default().OnSettled(fn) }

// Owner is a disposal scope: Signals, Memos and Effects created while an
// Owner is current (via Run) are torn down together when it disposes.
type Owner struct {
	rt *internal.Runtime
	o  *internal.OwnerHandle
}

// NewOwner creates an owner on rt as a child of the owner current on the
// calling goroutine, so that it disposes with that owner, or a root owner
// with no parent when none is current.
func (rt *Runtime) NewOwner() *Owner {
	return &Owner{rt: rt.rt, o: rt.rt.NewOwner(rt.rt.CurrentOwner())}
}

// NewOwner creates an owner on the Default Runtime, nested the same way.
func NewOwner() *Owner { return Default().NewOwner() }

// Run evaluates fn with this owner current on the calling goroutine: every
// Signal/Memo/Effect/Owner created inside fn on this owner's Runtime is
// owned by it, and any panic fn raises is routed to its OnError catchers
// if it registered any, else propagated to the caller of Run.
func (o *Owner) Run(fn func()) { o.o.Run(fn) }

// Dispose tears this owner and its whole subtree down: children first,
// then its own cleanups in reverse registration order, then disposes every
// node it owns.
func (o *Owner) Dispose() { o.o.Dispose() }

// OnCleanup registers fn to run once, when this owner disposes.
func (o *Owner) OnCleanup(fn func()) { o.o.OnCleanup(fn) }

// OnError registers fn to receive any panic recovered from code run under
// this owner (or one of its descendants, if it registered no catcher of
// its own) via Run.
func (o *Owner) OnError(fn func(any)) { o.o.OnError(fn) }

// BindContext disposes this owner as soon as ctx is canceled, if it hasn't
// disposed on its own already. Used to tie a long-lived Effect's lifetime
// to a request- or shutdown-scoped context.Context.
func (o *Owner) BindContext(ctx gocontext.Context) { o.rt.BindContext(ctx, o.o) }

// OnCleanup registers fn against the Default Runtime's owner current on
// the calling goroutine. Panics if no such owner is current (outside any
// Owner.Run/Effect/Memo of the Default Runtime).
func OnCleanup(fn func()) {
	o := internal.DefaultRuntime().CurrentOwner()
	if o == nil {
		panic("reactive: OnCleanup called outside any owner scope")
	}
	o.OnCleanup(fn)
}
