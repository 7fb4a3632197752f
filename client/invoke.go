package client

import "sync"

// invokeIDAllocator hands out monotonically increasing invoke-ids for one
// session, skipping 0: 0 marks "empty" in the shared response slot.
type invokeIDAllocator struct {
	mu      sync.Mutex
	counter uint32
}

func (a *invokeIDAllocator) next() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counter++
	if a.counter == 0 {
		a.counter = 1
	}
	return a.counter
}
