// SPDX-License-Identifier: ice License 1.0

package queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedOverflowKeepsFIFO(t *testing.T) {
	t.Parallel()
	q := New[string](2, 0)
	assert.True(t, q.Enqueue("A"))
	assert.True(t, q.Enqueue("B"))
	assert.False(t, q.Enqueue("C"))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"A", "B"}, q.DequeueAll())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.DequeueAll())
	assert.True(t, q.Enqueue("D"))
}

func TestBoundedDequeueLimit(t *testing.T) {
	t.Parallel()
	q := New[int](10, 0)
	for i := range 5 {
		require.True(t, q.Enqueue(i))
	}
	assert.Equal(t, []int{0, 1}, q.Dequeue(2))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{2, 3, 4}, q.Dequeue(10))
	assert.Empty(t, q.Dequeue(1))
	for i := range 3 {
		require.True(t, q.Enqueue(i))
	}
	assert.Equal(t, []int{0, 1, 2}, q.Dequeue(0))
}

func TestBoundedReady(t *testing.T) {
	t.Parallel()
	q := New[int](10, 2)
	q.Enqueue(1)
	select {
	case <-q.Ready():
		require.Fail(t, "signaled below threshold")
	default:
	}
	q.Enqueue(2)
	q.Enqueue(3)
	select {
	case <-q.Ready():
	default:
		require.Fail(t, "not signaled at threshold")
	}
	select {
	case <-q.Ready():
		require.Fail(t, "signals must be coalesced")
	default:
	}
}

func TestBoundedClose(t *testing.T) {
	t.Parallel()
	q := New[int](10, 0)
	require.True(t, q.Enqueue(1))
	q.Close()
	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(2))
	assert.Equal(t, []int{1}, q.DequeueAll())
}

func TestBoundedConcurrentProducers(t *testing.T) {
	t.Parallel()
	const (
		producers   = 50
		perProducer = 100
		capacity    = 1000
	)
	q := New[int](capacity, 0)
	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		drained  int
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			closed := q.Closed()
			drained += len(q.DequeueAll())
			if closed {
				return
			}
		}
	}()
	wg.Add(producers)
	for range producers {
		go func() {
			defer wg.Done()
			for i := range perProducer {
				if q.Enqueue(i) {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	q.Close()
	<-done
	assert.Equal(t, int(accepted.Load()), drained)
	assert.Equal(t, 0, q.Len())
}
