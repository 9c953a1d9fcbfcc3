package persistence_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCompletePanicsOnDoubleComplete(t *testing.T) {
	task := persistence.NewTask(1, nil)
	results := []persistence.OperationResult{{Status: persistence.Successful}}

	q := persistence.NewChangeQueue()
	q.AddTask(task)
	q.CompleteTask(1, results)
	q.ApplyTaskCompletions()
	require.True(t, task.IsCompleted())

	q.AddTask(task)
	q.CompleteTask(1, results)
	assert.Panics(t, func() { q.ApplyTaskCompletions() })
}

func TestFutureTaskObserverResolvesPromise(t *testing.T) {
	future, promise := fas.NewPromise[[]persistence.OperationResult]()
	observer := persistence.NewFutureTaskObserver(promise)

	require.False(t, future.IsReady())
	results := []persistence.OperationResult{{Status: persistence.Successful}}
	observer.Completed(results)

	require.True(t, future.IsReady())
	assert.Equal(t, results, future.Get())
}
