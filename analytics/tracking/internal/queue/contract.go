// SPDX-License-Identifier: ice License 1.0

package queue

import (
	"sync"
)

// Public API.

type (
	// Bounded is a FIFO with a fixed capacity. It's safe for many producers and a single consumer.
	// Overflow never blocks: Enqueue reports it by returning false.
	Bounded[T any] struct {
		ready     chan struct{}
		items     []T
		mx        sync.Mutex
		capacity  int
		threshold int
		closed    bool
	}
)
