package client

import (
	"sync"
	"time"
)

// syncPollInterval is the busy-wait period for synchronous calls (§4.5):
// 10 ms for ordinary requests, 1 ms for conclude, 10 ms for connect.
const (
	syncPollInterval      = 10 * time.Millisecond
	concludePollInterval  = 1 * time.Millisecond
	connectPollInterval   = 10 * time.Millisecond
)

// responseSlot is the single-slot mailbox shared by every synchronous call
// on a session (§3, §4.4). A non-zero invokeID means the slot is occupied;
// the demultiplexer must drain-wait for it to empty before storing a new
// result, because back-to-back responses must not overwrite an unread one.
type responseSlot struct {
	mu       sync.Mutex
	invokeID uint32
	payload  []byte
	err      *Error
}

// drainWait busy-waits until the slot is empty, then returns. Called by the
// demultiplexer before storing a synchronous result.
func (s *responseSlot) drainWait() {
	for {
		s.mu.Lock()
		empty := s.invokeID == 0
		s.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(syncPollInterval)
	}
}

// store populates the slot. Caller must have drained it first.
func (s *responseSlot) store(invokeID uint32, payload []byte, callErr *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokeID = invokeID
	s.payload = payload
	s.err = callErr
}

// tryConsume returns (payload, err, true) and empties the slot if it
// currently holds invokeID; otherwise returns false without modifying it.
func (s *responseSlot) tryConsume(invokeID uint32) ([]byte, *Error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invokeID != invokeID {
		return nil, nil, false
	}
	payload, callErr := s.payload, s.err
	s.invokeID = 0
	s.payload = nil
	s.err = nil
	return payload, callErr, true
}
