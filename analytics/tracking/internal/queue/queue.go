// SPDX-License-Identifier: ice License 1.0

package queue

// New builds a queue holding at most capacity items.
// Ready() is signaled whenever an Enqueue leaves at least threshold items queued; 0 disables it.
func New[T any](capacity, threshold int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	if threshold < 0 {
		threshold = 0
	}

	return &Bounded[T]{
		capacity:  capacity,
		threshold: threshold,
		ready:     make(chan struct{}, 1),
	}
}

func (q *Bounded[T]) Enqueue(item T) bool {
	q.mx.Lock()
	defer q.mx.Unlock()
	if q.closed || len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, item)
	if q.threshold > 0 && len(q.items) >= q.threshold {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}

	return true
}

func (q *Bounded[T]) Len() int {
	q.mx.Lock()
	defer q.mx.Unlock()

	return len(q.items)
}

func (q *Bounded[T]) Cap() int {
	return q.capacity
}

// DequeueAll removes and returns every queued item, oldest first.
func (q *Bounded[T]) DequeueAll() []T {
	q.mx.Lock()
	defer q.mx.Unlock()
	items := q.items
	q.items = nil

	return items
}

// Dequeue removes and returns at most limit items, oldest first.
func (q *Bounded[T]) Dequeue(limit int) []T {
	q.mx.Lock()
	defer q.mx.Unlock()
	if limit <= 0 || limit >= len(q.items) {
		items := q.items
		q.items = nil

		return items
	}
	items := make([]T, limit)
	copy(items, q.items[:limit])
	var zero T
	for i := range limit {
		q.items[i] = zero
	}
	q.items = q.items[limit:]

	return items
}

func (q *Bounded[T]) Ready() <-chan struct{} {
	return q.ready
}

// Close rejects any further Enqueue; items already queued can still be dequeued.
func (q *Bounded[T]) Close() {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.closed = true
}

func (q *Bounded[T]) Closed() bool {
	q.mx.Lock()
	defer q.mx.Unlock()

	return q.closed
}
