package fas

import (
	"errors"
	"sync"
)

// Executor runs submitted work. Implementations only need to guarantee that
// spawned jobs eventually run; ThreadedExecutor and QueueExecutor additionally
// guarantee strict FIFO ordering among jobs spawned on the same handle.
type Executor interface {
	Spawn(job func())
}

// ErrExecutorStopped reports use of an executor that has been stopped. No
// function in this package returns it: ThreadedExecutor.Start has no error
// result and panics when called a second time.
var ErrExecutorStopped = errors.New("fas: executor already stopped")

// threadedExecutorState is the shared state behind a ThreadedExecutor handle.
type threadedExecutorState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []func()
	quit    bool
	started bool
	done    chan struct{}
}

// ThreadedExecutor is a sequential executor that runs on a single dedicated
// goroutine. Jobs spawned on it are drained strictly in FIFO order. It is a
// value-copyable handle: copies of a ThreadedExecutor refer to the same
// underlying worker and queue.
type ThreadedExecutor struct {
	state *threadedExecutorState
}

// NewThreadedExecutor creates a new, unstarted ThreadedExecutor.
func NewThreadedExecutor() ThreadedExecutor {
	s := &threadedExecutorState{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return ThreadedExecutor{state: s}
}

// Spawn enqueues fn to run on the executor's worker goroutine. Safe to call
// from any goroutine, including before Start.
func (e ThreadedExecutor) Spawn(fn func()) {
	s := e.state
	s.mu.Lock()
	wake := len(s.jobs) == 0
	s.jobs = append(s.jobs, fn)
	s.mu.Unlock()
	if wake {
		s.cond.Signal()
	}
}

// Start launches the worker goroutine. Calling Start twice on the same
// handle is a programming error.
func (e ThreadedExecutor) Start() {
	s := e.state
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		panic("fas: ThreadedExecutor started twice")
	}
	s.started = true
	s.mu.Unlock()
	go s.run()
}

func (s *threadedExecutorState) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for !s.quit && len(s.jobs) == 0 {
			s.cond.Wait()
		}
		if s.quit {
			s.mu.Unlock()
			return
		}
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		s.mu.Unlock()
		job()
	}
}

// Stop signals the worker to drain no further jobs beyond the one in
// flight and blocks until the goroutine has exited. Jobs still queued when
// Stop is called are dropped, matching the teacher's graceful-shutdown
// contract of finishing current work, not queued work.
func (e ThreadedExecutor) Stop() {
	s := e.state
	s.mu.Lock()
	s.quit = true
	s.mu.Unlock()
	s.cond.Signal()
	<-s.done
}

// queueExecutorState is the shared state behind a QueueExecutor handle.
type queueExecutorState struct {
	mu   sync.Mutex
	jobs []func()
}

// QueueExecutor buffers spawned jobs and only runs them when Run is called,
// which drains the queue synchronously, in FIFO order, on the calling
// goroutine. Used by the main/UI thread analogue and by tests that need
// deterministic, single-threaded draining of continuations.
type QueueExecutor struct {
	state *queueExecutorState
}

// NewQueueExecutor creates a new, empty QueueExecutor.
func NewQueueExecutor() QueueExecutor {
	return QueueExecutor{state: &queueExecutorState{}}
}

// Spawn enqueues fn. It does not run fn; call Run to drain the queue.
func (e QueueExecutor) Spawn(fn func()) {
	s := e.state
	s.mu.Lock()
	s.jobs = append(s.jobs, fn)
	s.mu.Unlock()
}

// Run synchronously executes queued jobs, in FIFO order, until the queue is
// empty. Jobs spawned by a running job (e.g. a Future continuation
// rescheduling itself) are picked up within the same Run call.
func (e QueueExecutor) Run() {
	s := e.state
	for {
		s.mu.Lock()
		if len(s.jobs) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		s.mu.Unlock()
		job()
	}
}

// RunLIFO drains the queue like Run, but takes jobs from the back instead
// of the front. It exists to test that consumers relying on Stream's
// ordering guarantee do not depend on any particular executor scheduling
// order: the in-order delivery has to come from the stream, not from FIFO
// luck.
func (e QueueExecutor) RunLIFO() {
	s := e.state
	for {
		s.mu.Lock()
		if len(s.jobs) == 0 {
			s.mu.Unlock()
			return
		}
		last := len(s.jobs) - 1
		job := s.jobs[last]
		s.jobs = s.jobs[:last]
		s.mu.Unlock()
		job()
	}
}

// JobCount returns the number of jobs currently queued, mostly useful in
// tests that assert an executor drained completely.
func (e QueueExecutor) JobCount() int {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// systemExecutor is the process-wide ThreadedExecutor handle. It is nil
// until Init is called.
var (
	systemExecutorMu sync.Mutex
	systemExecutor   *ThreadedExecutor
)

// InitSystemExecutor starts the process-wide executor. Call once at process
// startup. Prefer passing executors explicitly; SystemExecutor exists for
// tests and small tools that have no natural executor of their own to pass
// around.
func InitSystemExecutor() {
	systemExecutorMu.Lock()
	defer systemExecutorMu.Unlock()
	if systemExecutor != nil {
		panic("fas: system executor already initialized")
	}
	exec := NewThreadedExecutor()
	exec.Start()
	systemExecutor = &exec
}

// ShutdownSystemExecutor stops the process-wide executor. The caller must
// ensure all other executors have drained first; ShutdownSystemExecutor
// does not wait for unrelated in-flight work.
func ShutdownSystemExecutor() {
	systemExecutorMu.Lock()
	exec := systemExecutor
	systemExecutor = nil
	systemExecutorMu.Unlock()
	if exec == nil {
		panic("fas: system executor not initialized")
	}
	exec.Stop()
}

// SystemExecutor is a handle to the process-wide executor. It implements
// Executor so it can be passed anywhere an Executor is expected.
type SystemExecutor struct{}

// Spawn dispatches to the process-wide ThreadedExecutor. Panics if the
// system executor has not been initialized via InitSystemExecutor.
func (SystemExecutor) Spawn(fn func()) {
	systemExecutorMu.Lock()
	exec := systemExecutor
	systemExecutorMu.Unlock()
	if exec == nil {
		panic("fas: system executor not initialized")
	}
	exec.Spawn(fn)
}
