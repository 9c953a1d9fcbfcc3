package fas

import (
	"sync"
	"sync/atomic"
)

type futureStatus int

const (
	futureEmpty futureStatus = iota
	futureValue
	futureCanceled
)

// futureState is the shared state behind one link of a Future/Promise
// chain. Exactly one of {setValue, setCanceled} is ever called on a given
// state.
type futureState[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	status futureStatus
	value  T
	cont   func()
}

func newFutureState[T any]() *futureState[T] {
	s := &futureState[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *futureState[T]) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status != futureEmpty
}

func (s *futureState[T]) waitReady() {
	s.mu.Lock()
	for s.status == futureEmpty {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// setResult transitions the state to value or canceled and, if a
// continuation was already attached, returns it for the caller to run
// (outside the lock).
func (s *futureState[T]) setResult(status futureStatus, value T) func() {
	s.mu.Lock()
	s.status = status
	s.value = value
	cont := s.cont
	s.cont = nil
	s.mu.Unlock()
	s.cond.Broadcast()
	return cont
}

// chain attaches cont to run once the state becomes ready. If the state is
// already ready, chain returns the continuation unchanged for the caller to
// run immediately instead of storing it.
func (s *futureState[T]) chain(cont func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != futureEmpty {
		return cont
	}
	s.cont = cont
	return nil
}

func (s *futureState[T]) extractValue() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Future holds a value that will become available at some point in the
// future, produced by the matching Promise. Unlike a plain result channel,
// a Future chain carries one shared cancellation flag: resetting any handle
// in the chain (dropping it, in garbage-collected terms) prevents every
// downstream continuation's user function from ever running.
type Future[T any] struct {
	state    *futureState[T]
	canceled *atomic.Bool
}

// Promise is the producing end of a Future/Promise pair.
type Promise[T any] struct {
	state *futureState[T]
}

// NewPromise creates a connected Future/Promise pair.
func NewPromise[T any]() (Future[T], Promise[T]) {
	s := newFutureState[T]()
	return Future[T]{state: s, canceled: &atomic.Bool{}}, Promise[T]{state: s}
}

// Resolve fulfils the future with value, running any already-attached
// continuation.
func (p Promise[T]) Resolve(value T) {
	if cont := p.state.setResult(futureValue, value); cont != nil {
		cont()
	}
}

// IsValid reports whether this handle still refers to a future state.
func (f Future[T]) IsValid() bool { return f.state != nil }

// IsReady reports whether the future has a value or has been cancelled.
func (f Future[T]) IsReady() bool { return f.state != nil && f.state.isReady() }

// Reset implicitly cancels the rest of this future's chain: any
// continuation not yet running will transition straight to Canceled without
// invoking user code. Safe to call on an already-reset Future.
func (f Future[T]) Reset() {
	if f.canceled == nil {
		return
	}
	f.canceled.Store(true)
}

// Get blocks until the future is ready and returns its value. It panics if
// the future was cancelled — acceptable since cancellation is always
// caller-initiated.
func (f Future[T]) Get() T {
	f.state.waitReady()
	f.state.mu.Lock()
	status := f.state.status
	f.state.mu.Unlock()
	if status == futureCanceled {
		panic("fas: Get called on a canceled future")
	}
	return f.state.extractValue()
}

// Then attaches a continuation that runs fn(v) on exec once f resolves, and
// returns a new Future for the result. If f (or any ancestor in the chain)
// is reset before the continuation runs, fn is never called and the
// returned future resolves to Canceled instead.
//
// Then is a free function, not a method, because Go methods cannot
// introduce their own type parameters.
func Then[T, U any](f Future[T], exec Executor, fn func(T) U) Future[U] {
	childState := newFutureState[U]()
	canceled := f.canceled

	cont := func() {
		if canceled.Load() {
			if c := childState.setResult(futureCanceled, *new(U)); c != nil {
				c()
			}
			return
		}
		val := f.state.extractValue()
		exec.Spawn(func() {
			var result U
			status := futureValue
			if canceled.Load() {
				status = futureCanceled
			} else {
				result = fn(val)
			}
			if c := childState.setResult(status, result); c != nil {
				c()
			}
		})
	}

	if immediate := f.state.chain(cont); immediate != nil {
		immediate()
	}

	return Future[U]{state: childState, canceled: canceled}
}
