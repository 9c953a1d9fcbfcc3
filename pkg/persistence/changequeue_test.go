package persistence_test

import (
	"sync"
	"testing"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeQueueAppliesDirtyStreamsInOrder(t *testing.T) {
	q := persistence.NewChangeQueue()
	obs := &recordingHotelObserver{}
	s := persistence.NewDataStream[hotel.Hotel](1, persistence.EntityHotel, "", nil, obs)
	q.AddStream(s)

	s.AddItems([]hotel.Hotel{{PersistentObject: hotel.PersistentObject{ID: 1}, Name: "A"}})
	q.AddStreamChange(s.ID())
	s.SetInitialized()
	q.AddStreamChange(s.ID())

	q.ApplyStreamChanges()
	require.Len(t, obs.added, 1)
	assert.Equal(t, 1, obs.initialized)
}

func TestChangeQueueEvictsDetachedStreams(t *testing.T) {
	q := persistence.NewChangeQueue()
	obs := &recordingHotelObserver{}
	s := persistence.NewDataStream[hotel.Hotel](1, persistence.EntityHotel, "", nil, obs)
	q.AddStream(s)

	s.Detach()
	s2 := persistence.NewDataStream[hotel.Hotel](2, persistence.EntityHotel, "", nil, &recordingHotelObserver{})
	_ = s2

	q.AddStreamChange(1)
	q.ApplyStreamChanges()
	assert.Empty(t, obs.added)
}

type recordingTaskObserver struct {
	results []persistence.OperationResult
	calls   int
}

func (o *recordingTaskObserver) Completed(results []persistence.OperationResult) {
	o.results = results
	o.calls++
}

func TestChangeQueueTaskCompletionIsOneShot(t *testing.T) {
	q := persistence.NewChangeQueue()
	obs := &recordingTaskObserver{}
	task := persistence.NewTask(1, obs)
	q.AddTask(task)

	results := []persistence.OperationResult{{Status: persistence.Successful}}
	q.CompleteTask(1, results)
	q.ApplyTaskCompletions()

	require.Equal(t, 1, obs.calls)
	assert.True(t, task.IsCompleted())
	assert.Equal(t, results, task.Results())

	// A second completion posted for the same (now-forgotten) id is dropped.
	q.CompleteTask(1, results)
	q.ApplyTaskCompletions()
	assert.Equal(t, 1, obs.calls)
}

// TestChangeQueueApplyStreamChangesRaceWithAddStream pins down a fix for a
// data race: ApplyStreamChanges must not read the streams map after
// releasing q.mu, since AddStream (called from arbitrary backend
// goroutines, e.g. one per netserver.Session) can write to that map
// concurrently with the Pump goroutine draining it. Run with -race.
func TestChangeQueueApplyStreamChangesRaceWithAddStream(t *testing.T) {
	q := persistence.NewChangeQueue()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			s := persistence.NewDataStream[hotel.Hotel](i, persistence.EntityHotel, "", nil, &recordingHotelObserver{})
			q.AddStream(s)
			q.AddStreamChange(i)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			q.ApplyStreamChanges()
		}
	}()

	wg.Wait()
	q.ApplyStreamChanges()
}

func TestChangeQueueSignalFiresOnChanges(t *testing.T) {
	q := persistence.NewChangeQueue()
	q.AddStreamChange(99)
	select {
	case <-q.Signal():
	default:
		t.Fatal("expected signal to have fired")
	}
}
