package fas_test

import (
	"sync"
	"testing"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/stretchr/testify/assert"
)

func TestThreadedExecutorFIFOOrdering(t *testing.T) {
	exec := fas.NewThreadedExecutor()
	exec.Start()
	defer exec.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		exec.Spawn(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestThreadedExecutorCopiedHandleSharesQueue(t *testing.T) {
	exec := fas.NewThreadedExecutor()
	exec.Start()
	defer exec.Stop()

	handleCopy := exec

	done := make(chan struct{})
	handleCopy.Spawn(func() { close(done) })
	<-done
}

func TestQueueExecutorRunDrainsNestedSpawns(t *testing.T) {
	exec := fas.NewQueueExecutor()
	ran := []int{}
	exec.Spawn(func() {
		ran = append(ran, 1)
		exec.Spawn(func() { ran = append(ran, 2) })
	})
	exec.Run()
	assert.Equal(t, []int{1, 2}, ran)
	assert.Equal(t, 0, exec.JobCount())
}

func TestSystemExecutorLifecycle(t *testing.T) {
	fas.InitSystemExecutor()
	done := make(chan struct{})
	fas.SystemExecutor{}.Spawn(func() { close(done) })
	<-done
	fas.ShutdownSystemExecutor()
}
