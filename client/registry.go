package client

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// outstandingCallCapacity is the fixed table size from §4.2: MMS negotiates
// max-serv-outstanding-calling and a small constant matches protocol scale.
const outstandingCallCapacity = 10

// CallKind identifies which service an outstanding call belongs to, or
// CallNone for a synchronous call whose completion path is the shared
// response slot rather than a continuation.
type CallKind int

const (
	CallNone CallKind = iota
	CallReadVariable
	CallReadArrayElements
	CallReadMultipleVariables
	CallReadNvlValues
	CallReadNvlDirectory
	CallDefineNvl
	CallDeleteNvl
	CallGetVariableAccessAttributes
	CallGetNameList
	CallIdentify
	CallStatus
	CallReadJournal
	CallWriteVariable
	CallWriteArrayElements
	CallWriteMultipleVariables
	CallWriteNvl
	CallFileOpen
	CallFileRead
	CallFileClose
	CallFileRename
	CallFileDelete
	CallFileDirectory
	CallObtainFile
	CallInitiate
	CallConclude
)

// Continuation is invoked by the demultiplexer on the transport's reader
// goroutine when an asynchronous call completes.
type Continuation func(payload []byte, callErr *Error)

type outstandingCall struct {
	inUse        bool
	invokeID     uint32
	deadline     time.Time
	kind         CallKind
	continuation Continuation
}

// callRegistry is the fixed-capacity outstanding-call table from §4.2,
// guarded by one mutex.
type callRegistry struct {
	mu    sync.Mutex
	slots [outstandingCallCapacity]outstandingCall
}

// insert scans for the first free slot and occupies it with the given
// deadline. Returns false when the table is full.
func (r *callRegistry) insert(invokeID uint32, kind CallKind, cont Continuation, timeout time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.slots[:], func(c outstandingCall) bool { return !c.inUse })
	if i < 0 {
		return false
	}
	r.slots[i] = outstandingCall{
		inUse:        true,
		invokeID:     invokeID,
		deadline:     time.Now().Add(timeout),
		kind:         kind,
		continuation: cont,
	}
	return true
}

// find returns a copy of the slot for invokeID, if any is in use.
func (r *callRegistry) find(invokeID uint32) (outstandingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.slots[:], func(c outstandingCall) bool { return c.inUse && c.invokeID == invokeID })
	if i < 0 {
		return outstandingCall{}, false
	}
	return r.slots[i], true
}

// remove clears the first matching slot.
func (r *callRegistry) remove(invokeID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.slots[:], func(c outstandingCall) bool { return c.inUse && c.invokeID == invokeID })
	if i >= 0 {
		r.slots[i] = outstandingCall{}
	}
}

// sweep expires at most one slot per call: the lowest-indexed slot whose
// deadline has passed, per §4.2. It returns the expired call and true, or
// zero value and false if nothing was expired.
func (r *callRegistry) sweep(now time.Time) (outstandingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.slots[:], func(c outstandingCall) bool { return c.inUse && now.After(c.deadline) })
	if i < 0 {
		return outstandingCall{}, false
	}
	expired := r.slots[i]
	r.slots[i] = outstandingCall{}
	return expired, true
}
