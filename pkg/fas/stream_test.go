package fas_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamProducer(t *testing.T) {
	stream, producer := fas.NewStreamProducer[int]()
	assert.True(t, stream.IsValid())
	assert.False(t, stream.IsReady())

	producer.Send(1)
	assert.True(t, stream.IsReady())
	v, ok := stream.Get()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	producer.Send(2)
	producer.Close()

	assert.True(t, stream.IsReady())
	v, ok = stream.Get()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, stream.IsReady())
	_, ok = stream.Get()
	assert.False(t, ok)
}

func TestStreamContinuation(t *testing.T) {
	exec := fas.NewQueueExecutor()

	stream, producer := fas.NewStreamProducer[int]()
	producer.Send(10)
	producer.Send(20)

	type pair struct{ a, b int }
	s1 := fas.StreamThen(stream, exec, func(i int) pair { return pair{i, i * i} })
	s2 := fas.StreamThen(s1, exec, func(p pair) pair { return p })
	s3 := fas.StreamThen(s2, exec, func(p pair) pair { return p })
	s4 := fas.StreamThen(s3, exec, func(p pair) pair { return p })

	assert.False(t, s4.IsReady())
	assert.True(t, s4.IsValid())
	assert.Equal(t, 1, exec.JobCount())

	exec.Run()
	require.True(t, s4.IsReady())
	v, ok := s4.Get()
	require.True(t, ok)
	assert.Equal(t, pair{10, 100}, v)
	v, ok = s4.Get()
	require.True(t, ok)
	assert.Equal(t, pair{20, 400}, v)

	producer.Send(30)
	producer.Send(40)
	producer.Send(50)
	producer.Close()

	// Even when the executor runs callbacks in reverse order, values must
	// surface on s4 in production order.
	exec.RunLIFO()

	v, ok = s4.Get()
	require.True(t, ok)
	assert.Equal(t, pair{30, 900}, v)
	v, ok = s4.Get()
	require.True(t, ok)
	assert.Equal(t, pair{40, 1600}, v)
	v, ok = s4.Get()
	require.True(t, ok)
	assert.Equal(t, pair{50, 2500}, v)
	_, ok = s4.Get()
	assert.False(t, ok)
	_, ok = s4.Get()
	assert.False(t, ok)
}

func TestStreamThreadedExecutor(t *testing.T) {
	exec := fas.NewThreadedExecutor()
	exec.Start()
	defer exec.Stop()

	stream, producer := fas.NewStreamProducer[int]()
	producer.Send(10)
	producer.Send(15)

	for i := 0; i < 100; i++ {
		stream = fas.StreamThen(stream, exec, func(i int) int { return i + 2 })
		stream = fas.StreamThen(stream, exec, func(i int) int { return i - 1 })
	}

	producer.Close()

	v, ok := stream.Get()
	require.True(t, ok)
	assert.Equal(t, 110, v)

	v, ok = stream.Get()
	require.True(t, ok)
	assert.Equal(t, 115, v)

	_, ok = stream.Get()
	assert.False(t, ok)
}
