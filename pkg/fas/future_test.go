package fas_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuturePromise(t *testing.T) {
	future, promise := fas.NewPromise[int]()
	assert.False(t, future.IsReady())
	assert.True(t, future.IsValid())

	promise.Resolve(10)
	assert.True(t, future.IsReady())
	assert.Equal(t, 10, future.Get())
}

func TestFutureImplicitCancellation(t *testing.T) {
	exec := fas.NewQueueExecutor()

	executed1, executed2 := false, false

	future, promise := fas.NewPromise[int]()
	f1 := fas.Then(future, exec, func(i int) int { executed1 = true; return i })
	f2 := fas.Then(f1, exec, func(i int) int { executed2 = true; return i })
	promise.Resolve(10)

	f2.Reset()
	exec.Run()

	assert.False(t, executed1)
	assert.False(t, executed2)
}

func TestFuturePromiseContinuation(t *testing.T) {
	exec := fas.NewQueueExecutor()

	future, promise := fas.NewPromise[int]()
	promise.Resolve(10)

	type pair struct{ a, b int }
	future2 := fas.Then(future, exec, func(i int) pair { return pair{i, i * i} })

	assert.False(t, future2.IsReady())
	assert.True(t, future2.IsValid())
	assert.Equal(t, 1, exec.JobCount())

	exec.Run()
	require.True(t, future2.IsReady())
	assert.Equal(t, pair{10, 100}, future2.Get())
}

func TestFutureThreadedExecutor(t *testing.T) {
	exec := fas.NewThreadedExecutor()
	exec.Start()
	defer exec.Stop()

	future, promise := fas.NewPromise[int]()
	promise.Resolve(10)

	for i := 0; i < 100; i++ {
		future = fas.Then(future, exec, func(i int) int { return i + 2 })
		future = fas.Then(future, exec, func(i int) int { return i - 1 })
	}

	assert.Equal(t, 110, future.Get())
}

func TestFutureSystemExecutor(t *testing.T) {
	fas.InitSystemExecutor()
	defer fas.ShutdownSystemExecutor()
	exec := fas.SystemExecutor{}

	future, promise := fas.NewPromise[int]()
	promise.Resolve(10)

	for i := 0; i < 100; i++ {
		future = fas.Then(future, exec, func(i int) int { return i + 2 })
		future = fas.Then(future, exec, func(i int) int { return i - 1 })
	}

	assert.Equal(t, 110, future.Get())
}

func TestFutureMultipleExecutors(t *testing.T) {
	exec1 := fas.NewQueueExecutor()
	exec2 := fas.NewQueueExecutor()

	future, promise := fas.NewPromise[int]()
	future2 := fas.Then(future, exec1, func(i int) int { return i * 2 })
	future3 := fas.Then(future2, exec2, func(i int) int { return i * 3 })
	future4 := fas.Then(future3, exec1, func(i int) int { return i * 4 })

	promise.Resolve(10)

	assert.Equal(t, 1, exec1.JobCount())
	assert.Equal(t, 0, exec2.JobCount())

	exec1.Run()
	assert.Equal(t, 0, exec1.JobCount())
	assert.Equal(t, 1, exec2.JobCount())

	exec2.Run()
	assert.Equal(t, 1, exec1.JobCount())
	assert.Equal(t, 0, exec2.JobCount())

	exec1.Run()
	assert.Equal(t, 0, exec1.JobCount())
	assert.Equal(t, 0, exec2.JobCount())

	require.True(t, future4.IsReady())
	assert.Equal(t, 10*2*3*4, future4.Get())
}
