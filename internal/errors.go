package internal

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// CycleError is returned when evaluating a Memo would require it to read
// its own output, directly or transitively.
type CycleError struct {
	Node NodeId
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reactive: cycle detected while evaluating node %d", e.Node)
}

// GoneError is returned internally when a weak reference is upgraded
// after its target was unregistered. It is never surfaced to user code --
// callers that encounter it simply treat the subscriber as dead.
type GoneError struct {
	Node NodeId
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("reactive: node %d is gone", e.Node)
}

// DisposedError is returned when an operation targets a disposed node or
// handle. dispose itself stays idempotent and never returns this.
type DisposedError struct {
	Node NodeId
}

func (e *DisposedError) Error() string {
	return fmt.Sprintf("reactive: node %d is disposed", e.Node)
}

// RunawayPropagationError is returned when a single propagation pass
// exceeds its effect-execution budget, which guards against an effect
// that keeps rescheduling itself forever.
type RunawayPropagationError struct {
	Budget int
}

func (e *RunawayPropagationError) Error() string {
	return fmt.Sprintf(
		"reactive: runaway propagation, exceeded effect-execution budget of %s iterations",
		humanize.Comma(int64(e.Budget)),
	)
}

// UserCallbackFailureError wraps a panic recovered from a Memo's compute_fn
// or an Effect's run_fn. For a Memo, it is cached in place of a value and
// re-raised until the next source change; for an Effect, it's reported to
// the effect's own error sink (the Runtime's when it has none) and the
// effect stays subscribed.
type UserCallbackFailureError struct {
	Node  NodeId
	Cause any
}

func (e *UserCallbackFailureError) Error() string {
	return fmt.Sprintf("reactive: callback for node %d failed: %v", e.Node, e.Cause)
}

func (e *UserCallbackFailureError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// WrongRuntimeError is returned when a Handle minted by one Runtime is
// used against another.
type WrongRuntimeError struct {
	Node NodeId
}

func (e *WrongRuntimeError) Error() string {
	return fmt.Sprintf("reactive: node %d belongs to a different runtime", e.Node)
}
