package asyncseq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceProduceThenNext(t *testing.T) {
	s := New[int](4)
	s.Produce(1)
	s.Produce(2)

	v, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSourceNextBlocksUntilProduce(t *testing.T) {
	s := New[string](4)
	done := make(chan string, 1)
	go func() {
		v, ok := s.Next(context.Background())
		if ok {
			done <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	s.Produce("hello")

	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("Next never returned")
	}
}

func TestSourceDropsOldestWhenFull(t *testing.T) {
	s := New[int](2)
	s.Produce(1)
	s.Produce(2)
	s.Produce(3) // drops 1

	v, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestSourceCloseDrainsThenStops(t *testing.T) {
	s := New[int](4)
	s.Produce(42)
	s.Close()

	v, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = s.Next(context.Background())
	assert.False(t, ok)
}

func TestSourceNextRespectsContextCancellation(t *testing.T) {
	s := New[int](4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := s.Next(ctx)
	assert.False(t, ok)
}
