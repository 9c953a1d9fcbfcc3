package fas

import "sync"

// streamElem is one FIFO entry. end marks the terminal sentinel; it always
// carries the zero value of T.
type streamElem[T any] struct {
	end bool
	val T
}

// streamState is the shared state behind one link of a Stream/StreamProducer
// chain.
//
// processingPoppedValue is the crux of the ordering guarantee: while it is
// set, a continuation is already mid-flight for a previously popped value.
// A push or close that arrives during that window must not dispatch a new
// continuation invocation — it just enqueues, and the in-flight callback
// re-schedules itself once done (see finishedProcessingPoppedValue). This
// keeps at most one user callback in flight per stream at any time while
// still letting that callback run on any executor goroutine.
type streamState[T any] struct {
	mu                    sync.Mutex
	cond                  *sync.Cond
	closed                bool
	processingPoppedValue bool
	queue                 []streamElem[T]
	cont                  func()
}

func newStreamState[T any]() *streamState[T] {
	s := &streamState[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *streamState[T]) readyImpl() bool {
	return s.closed || len(s.queue) > 0
}

func (s *streamState[T]) waitReady() {
	s.mu.Lock()
	for !s.readyImpl() {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *streamState[T]) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyImpl()
}

// popValue dequeues the next element, if any, and marks the state as
// processing it.
func (s *streamState[T]) popValue() (streamElem[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return streamElem[T]{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	s.processingPoppedValue = true
	return e, true
}

// finishedProcessingPoppedValue clears the in-flight flag and reports
// whether the caller must re-invoke the continuation because more items
// arrived while it was busy.
func (s *streamState[T]) finishedProcessingPoppedValue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processingPoppedValue = false
	return len(s.queue) > 0 && s.cont != nil
}

// pushValue enqueues v and reports whether the caller must dispatch the
// continuation (true only when the queue was empty, nothing was already
// in flight, and a continuation is attached).
func (s *streamState[T]) pushValue(v T) bool {
	s.mu.Lock()
	dispatch := len(s.queue) == 0 && !s.processingPoppedValue && s.cont != nil
	s.queue = append(s.queue, streamElem[T]{val: v})
	s.mu.Unlock()
	s.cond.Broadcast()
	return dispatch
}

// close enqueues the terminal sentinel, with the same dispatch contract as
// pushValue.
func (s *streamState[T]) close() bool {
	s.mu.Lock()
	s.closed = true
	dispatch := len(s.queue) == 0 && !s.processingPoppedValue && s.cont != nil
	s.queue = append(s.queue, streamElem[T]{end: true})
	s.mu.Unlock()
	s.cond.Broadcast()
	return dispatch
}

// chain attaches cont and reports whether the caller must run it
// immediately because items are already queued.
func (s *streamState[T]) chain(cont func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cont = cont
	return len(s.queue) > 0
}

func (s *streamState[T]) continuation() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cont
}

func (s *streamState[T]) detach() {
	s.mu.Lock()
	s.cont = nil
	s.mu.Unlock()
}

func dispatchStream[T any](s *streamState[T]) {
	if c := s.continuation(); c != nil {
		c()
	}
}

// Stream is a multi-value analogue of Future: an in-order sequence of
// values terminated by end-of-stream, produced by the matching
// StreamProducer.
type Stream[T any] struct {
	state *streamState[T]
}

// StreamProducer is the producing end of a Stream/StreamProducer pair.
type StreamProducer[T any] struct {
	state *streamState[T]
}

// NewStreamProducer creates a connected Stream/StreamProducer pair.
func NewStreamProducer[T any]() (Stream[T], StreamProducer[T]) {
	s := newStreamState[T]()
	return Stream[T]{state: s}, StreamProducer[T]{state: s}
}

// IsValid reports whether this handle still refers to a stream state.
func (s Stream[T]) IsValid() bool { return s.state != nil }

// IsReady reports whether a value or end-of-stream is available without
// blocking.
func (s Stream[T]) IsReady() bool { return s.state != nil && s.state.isReady() }

// Get blocks until either the next value or end-of-stream is available.
// It returns (value, true) for an item, or (zero, false) at end-of-stream.
// Once end-of-stream has been observed, further calls keep returning
// (zero, false) without blocking.
func (s Stream[T]) Get() (T, bool) {
	s.state.waitReady()
	e, ok := s.state.popValue()
	s.state.finishedProcessingPoppedValue()
	if !ok || e.end {
		var zero T
		return zero, false
	}
	return e.val, true
}

// Send pushes a value onto the producer's stream.
func (p StreamProducer[T]) Send(v T) {
	if p.state.pushValue(v) {
		dispatchStream(p.state)
	}
}

// Close terminates the stream. Consumers drain any values sent before Close
// and then observe end-of-stream. Safe to call at most once; further Sends
// after Close are a programming error.
func (p StreamProducer[T]) Close() {
	if p.state.close() {
		dispatchStream(p.state)
	}
}

// StreamThen attaches a continuation that maps each value through fn, running
// each invocation on exec, and returns the resulting Stream. Values surface
// on the returned stream in the order they were produced, even if exec runs
// continuations across multiple goroutines — see streamState's doc comment
// for how that invariant is maintained.
func StreamThen[T, U any](s Stream[T], exec Executor, fn func(T) U) Stream[U] {
	childState := newStreamState[U]()

	var cont func()
	cont = func() {
		e, ok := s.state.popValue()
		if !ok {
			return
		}
		if e.end {
			if childState.close() {
				dispatchStream(childState)
			}
			s.state.detach()
			return
		}

		exec.Spawn(func() {
			if childState.pushValue(fn(e.val)) {
				dispatchStream(childState)
			}
			if s.state.finishedProcessingPoppedValue() {
				cont()
			}
		})
	}

	if immediate := s.state.chain(cont); immediate {
		cont()
	}

	return Stream[U]{state: childState}
}
