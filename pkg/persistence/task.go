package persistence

import "sync"

// TaskObserver receives the results of a queued batch exactly once, on the
// thread allowed to invoke observer callbacks. Mirrors the original
// codebase's TaskObserver contract (persistence/task.h).
type TaskObserver interface {
	Completed(results []OperationResult)
}

// Task tracks one queued Operations batch from submission to completion.
// Completion is one-shot: complete panics if called twice, matching the
// "completed flag" in §3's Task state.
type Task struct {
	mu        sync.Mutex
	id        int
	completed bool
	results   []OperationResult
	observer  TaskObserver
}

// NewTask constructs a task with the given id and optional observer. A nil
// observer is valid: the caller can still poll Results()/IsCompleted()
// after the ChangeQueue drains the completion, or ignore the task entirely.
func NewTask(id int, observer TaskObserver) *Task {
	return &Task{id: id, observer: observer}
}

// ID returns the task's id, unique within its owning backend.
func (t *Task) ID() int { return t.id }

// IsCompleted reports whether the task has finished.
func (t *Task) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Results returns the task's results once completed, or nil before then.
func (t *Task) Results() []OperationResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results
}

// complete is called exactly once by ChangeQueue.ApplyTaskCompletions.
func (t *Task) complete(results []OperationResult) {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		panic("persistence: task completed twice")
	}
	t.completed = true
	t.results = results
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer.Completed(results)
	}
}

// UniqueTaskHandle gives access to a queued task. The ChangeQueue holds its
// own reference to every task until it completes, so the observer is
// notified whether the handle is kept, dropped or closed; the return value
// of QueueOperations can be safely ignored.
type UniqueTaskHandle struct {
	task *Task
}

// NewUniqueTaskHandle wraps a task in an owning handle.
func NewUniqueTaskHandle(task *Task) *UniqueTaskHandle {
	return &UniqueTaskHandle{task: task}
}

// Task returns the underlying task.
func (h *UniqueTaskHandle) Task() *Task { return h.task }

// Close is a no-op beyond releasing the reference: unlike streams, a
// completed task needs no detach step, since ChangeQueue already forgets
// tasks once they complete (§3: completion is one-shot).
func (h *UniqueTaskHandle) Close() error {
	h.task = nil
	return nil
}
