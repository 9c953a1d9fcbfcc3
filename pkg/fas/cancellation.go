package fas

import "sync/atomic"
import "sync"

// cancellationState is the shared state behind a CancellationSource/Token
// pair.
type cancellationState struct {
	canceled  atomic.Bool
	mu        sync.Mutex
	callbacks []func()
}

func (s *cancellationState) cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.mu.Lock()
		callbacks := s.callbacks
		s.callbacks = nil
		s.mu.Unlock()
		for _, cb := range callbacks {
			cb()
		}
	}
}

func (s *cancellationState) subscribe(exec Executor, fn func()) {
	s.mu.Lock()
	if s.canceled.Load() {
		s.mu.Unlock()
		exec.Spawn(fn)
		return
	}
	s.callbacks = append(s.callbacks, func() { exec.Spawn(fn) })
	s.mu.Unlock()
}

// CancellationToken is the read side of a cancellation flag: it can be
// queried and subscribed to, but not cancelled.
type CancellationToken struct {
	state *cancellationState
}

// IsValid reports whether the token refers to a live cancellation state.
func (t CancellationToken) IsValid() bool { return t.state != nil }

// IsCanceled reports whether the associated CancellationSource has been
// cancelled.
func (t CancellationToken) IsCanceled() bool { return t.state.canceled.Load() }

// Subscribe registers fn to run on exec when the source is cancelled. If
// the source has already been cancelled, fn is submitted to exec
// immediately.
func (t CancellationToken) Subscribe(exec Executor, fn func()) {
	t.state.subscribe(exec, fn)
}

// CancellationSource is the write side of a cancellation flag.
type CancellationSource struct {
	state *cancellationState
}

// NewCancellationSource creates a fresh, uncancelled source.
func NewCancellationSource() CancellationSource {
	return CancellationSource{state: &cancellationState{}}
}

// IsValid reports whether the source refers to a live cancellation state.
func (s CancellationSource) IsValid() bool { return s.state != nil }

// Cancel flips the shared flag and fires every callback subscribed so far,
// each on its own bound executor. Calling Cancel more than once is a no-op.
func (s CancellationSource) Cancel() { s.state.cancel() }

// Token returns the read-only view of this source.
func (s CancellationSource) Token() CancellationToken {
	return CancellationToken{state: s.state}
}
