// Package atomic_float provides a lock-free float64 for use as a
// fast-path read cache under concurrent writers, e.g. the
// shared-memory driver's best-fitness tracker.
package atomic_float

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic
// operations via CompareAndSwap on its bit pattern.
type AtomicFloat64 struct {
	val float64
}

// NewAtomicFloat64 wraps val for atomic access.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	return &AtomicFloat64{
		val: val,
	}
}

// AtomicRead returns the current value, synchronized with main memory.
func (af *AtomicFloat64) AtomicRead() (value float64) {
	uint_val := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(uint_val)
}

// AtomicAdd adds addend to the value if it has not changed between
// this call's own read and its write. succeeded is false if another
// writer raced ahead; the caller decides whether to retry.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.AtomicRead()
	newVal = old + addend
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(newVal))
	return
}

// AtomicSet sets the value with one CompareAndSwap against the bit
// pattern it has just read, returning true on success and false if
// another writer changed the value in between.
func (af *AtomicFloat64) AtomicSet(new_val float64) (succeeded bool) {
	old := af.AtomicRead()
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(new_val))
	return
}
