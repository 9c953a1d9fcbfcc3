package fas_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellationSubscribeThenCancel(t *testing.T) {
	exec := fas.NewQueueExecutor()
	src := fas.NewCancellationSource()
	token := src.Token()

	require.False(t, token.IsCanceled())

	fired := false
	token.Subscribe(exec, func() { fired = true })
	assert.Equal(t, 0, exec.JobCount())

	src.Cancel()
	require.True(t, token.IsCanceled())
	assert.Equal(t, 1, exec.JobCount())

	exec.Run()
	assert.True(t, fired)
}

func TestCancellationSubscribeAfterCancel(t *testing.T) {
	exec := fas.NewQueueExecutor()
	src := fas.NewCancellationSource()
	src.Cancel()

	fired := false
	src.Token().Subscribe(exec, func() { fired = true })
	exec.Run()
	assert.True(t, fired)
}

func TestCancellationIdempotent(t *testing.T) {
	exec := fas.NewQueueExecutor()
	src := fas.NewCancellationSource()

	calls := 0
	src.Token().Subscribe(exec, func() { calls++ })

	src.Cancel()
	src.Cancel()
	exec.Run()
	assert.Equal(t, 1, calls)
}
