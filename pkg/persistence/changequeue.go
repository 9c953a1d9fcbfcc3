package persistence

import "sync"

// streamEntry is the type-erased view of a DataStream that ChangeQueue
// needs: enough to garbage-collect detached streams and to drive their
// drain, without knowing the entity type they carry.
type streamEntry interface {
	ID() int
	IsValid() bool
	IntegrateChanges()
}

type taskCompletion struct {
	taskID  int
	results []OperationResult
}

// ChangeQueue is the thread-safe intermediary between backend worker
// goroutines and the goroutine allowed to invoke observer callbacks (§4.6).
// Workers call AddStreamChange/CompleteTask; the owning goroutine calls
// ApplyStreamChanges/ApplyTaskCompletions, typically in response to Signal
// firing.
type ChangeQueue struct {
	mu      sync.Mutex
	streams map[int]streamEntry
	dirty   map[int]struct{}

	tasks       map[int]*Task
	taskResults []taskCompletion
	signal      chan struct{}
}

// NewChangeQueue constructs an empty change queue.
func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{
		streams: make(map[int]streamEntry),
		dirty:   make(map[int]struct{}),
		tasks:   make(map[int]*Task),
		signal:  make(chan struct{}, 1),
	}
}

// Signal fires whenever stream changes or task completions become pending.
// A Pump (or any main-loop integration) selects on this to know when to
// call ApplyStreamChanges/ApplyTaskCompletions.
func (q *ChangeQueue) Signal() <-chan struct{} { return q.signal }

func (q *ChangeQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// AddStream registers a stream; called by the backend when a stream is
// created. Streams buffer their own deltas (DataStream.IntegrateChanges);
// ChangeQueue only needs to know which streams exist so it can garbage
// collect detached ones and route dirty-stream notifications to them.
func (q *ChangeQueue) AddStream(s streamEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.streams[s.ID()] = s
}

// RemoveStream drops a stream from the registry immediately, bypassing the
// next fan-out tick's garbage collection. Nothing in this module calls it:
// netserver.Session.Close only closes its handles, and the detached streams
// are evicted by the next ApplyStreamChanges.
func (q *ChangeQueue) RemoveStream(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.streams, id)
	delete(q.dirty, id)
}

// AddStreamChange is the worker-side notification that streamID has a
// pending delta buffered on it (the delta itself already lives on the
// DataStream; this just marks it dirty and wakes the signal).
func (q *ChangeQueue) AddStreamChange(streamID int) {
	q.mu.Lock()
	q.dirty[streamID] = struct{}{}
	q.mu.Unlock()
	q.wake()
}

// ApplyStreamChanges is the main-thread drain (§4.6): it first evicts
// invalid (detached) streams from the registry, then takes a snapshot of
// dirty stream ids and calls IntegrateChanges on each that is still
// registered and valid. Streams no longer registered (already evicted or
// removed) are silently skipped.
func (q *ChangeQueue) ApplyStreamChanges() {
	q.mu.Lock()
	for id, s := range q.streams {
		if !s.IsValid() {
			delete(q.streams, id)
			delete(q.dirty, id)
		}
	}
	toIntegrate := make([]streamEntry, 0, len(q.dirty))
	for id := range q.dirty {
		if s, ok := q.streams[id]; ok {
			toIntegrate = append(toIntegrate, s)
		}
	}
	q.dirty = make(map[int]struct{})
	q.mu.Unlock()

	for _, s := range toIntegrate {
		s.IntegrateChanges()
	}
}

// AddTask registers a task awaiting completion; called by the backend for
// every queued batch, with or without a caller-supplied observer.
func (q *ChangeQueue) AddTask(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[t.ID()] = t
}

// CompleteTask is the worker-side notification that a task finished with
// the given results. Worker-safe; wakes the signal.
func (q *ChangeQueue) CompleteTask(taskID int, results []OperationResult) {
	q.mu.Lock()
	q.taskResults = append(q.taskResults, taskCompletion{taskID: taskID, results: results})
	q.mu.Unlock()
	q.wake()
}

// ApplyTaskCompletions is the main-thread drain for finished tasks: it
// snapshots pending completions and invokes each owning task's observer
// exactly once, then forgets the task (completion is one-shot, §3).
func (q *ChangeQueue) ApplyTaskCompletions() {
	q.mu.Lock()
	pending := q.taskResults
	q.taskResults = nil
	q.mu.Unlock()

	for _, c := range pending {
		q.mu.Lock()
		t, ok := q.tasks[c.taskID]
		if ok {
			delete(q.tasks, c.taskID)
		}
		q.mu.Unlock()
		if ok {
			t.complete(c.results)
		}
	}
}

// ApplyChanges drains both stream changes and task completions. This is
// the call a Pump makes on every signal.
func (q *ChangeQueue) ApplyChanges() {
	q.ApplyStreamChanges()
	q.ApplyTaskCompletions()
}
