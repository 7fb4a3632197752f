package client

// sweepTimeouts expires at most one outstanding call per Tick, per §4.2:
// the registry itself picks the lowest-indexed expired slot, so repeated
// ticks drain a backlog of expired calls one at a time rather than in a
// burst.
func (s *Session) sweepTimeouts() {
	expired, ok := s.registry.sweep(s.clk.now())
	if !ok {
		return
	}
	if expired.kind != CallNone {
		expired.continuation(nil, newError(ErrServiceTimeout))
		return
	}
	s.slot.drainWait()
	s.slot.store(expired.invokeID, nil, newError(ErrServiceTimeout))
}
