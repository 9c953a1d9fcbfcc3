package persistence

import "github.com/decden/hotelsync/pkg/fas"

// FutureTaskObserver adapts the old-style TaskObserver callback contract
// (persistence/simpletaskobserver.h in the original) onto a fas.Promise, so
// that Backend.QueueOperations can return a fas.Future[[]OperationResult]
// instead of requiring every caller to hand-write an observer.
type FutureTaskObserver struct {
	promise fas.Promise[[]OperationResult]
}

// NewFutureTaskObserver returns an observer bound to promise. Completed
// resolves promise with the batch's results.
func NewFutureTaskObserver(promise fas.Promise[[]OperationResult]) *FutureTaskObserver {
	return &FutureTaskObserver{promise: promise}
}

// Completed implements TaskObserver.
func (o *FutureTaskObserver) Completed(results []OperationResult) {
	o.promise.Resolve(results)
}
