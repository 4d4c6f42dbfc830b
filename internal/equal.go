package internal

import "reflect"

// EqualFunc decides whether two payload values should be treated as
// equal for the purposes of equality-gated propagation (see Signal.Write).
type EqualFunc func(a, b any) bool

// defaultEqual is used whenever a node is created without an explicit
// equality predicate. It fast-paths the comparable builtin kinds (the
// common case for counters, flags and strings) and falls back to
// reflect.DeepEqual for slices, maps and structs, the same two-tier
// strategy the teacher's host-language binding layer (vango's
// defaultEquals) uses to avoid a panic from the naked `==` operator on
// non-comparable payloads.
func defaultEqual(a, b any) bool {
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int8:
		bv, ok := b.(int8)
		return ok && av == bv
	case int16:
		bv, ok := b.(int16)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint8:
		bv, ok := b.(uint8)
		return ok && av == bv
	case uint16:
		bv, ok := b.(uint16)
		return ok && av == bv
	case uint32:
		bv, ok := b.(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return reflect.DeepEqual(a, b)
	}
}
