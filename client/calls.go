package client

// requestSync implements the synchronous half of §4.5's call-surface
// skeleton: build, register, send, then poll the shared response slot until
// it carries this call's result, the deadline passes, or the association
// closes.
func (s *Session) requestSync(buildRequest func(invokeID uint32) []byte) ([]byte, *Error) {
	if s.associationState.get() != AssociationConnected {
		return nil, newError(ErrConnectionLost)
	}

	invokeID := s.invokeIDs.next()
	request := buildRequest(invokeID)

	if !s.registry.insert(invokeID, CallNone, nil, s.requestTimeout) {
		return nil, newError(ErrOutstandingCallLimit)
	}

	if err := s.conn.Send(request); err != nil {
		s.registry.remove(invokeID)
		return nil, wrapError(ErrConnectionLost, err)
	}

	deadline := s.clk.now().Add(s.requestTimeout)
	for {
		if payload, callErr, ok := s.slot.tryConsume(invokeID); ok {
			return payload, callErr
		}
		if s.associationState.get() != AssociationConnected {
			s.registry.remove(invokeID)
			return nil, newError(ErrConnectionLost)
		}
		if s.clk.now().After(deadline) {
			s.registry.remove(invokeID)
			return nil, newError(ErrServiceTimeout)
		}
		s.clk.sleep(syncPollInterval)
	}
}

// requestAsync is the asynchronous half: it returns the invoke-id as soon as
// the request is sent, and cont fires on the transport's dispatch goroutine
// when the response, service error, reject, or timeout arrives.
func (s *Session) requestAsync(kind CallKind, buildRequest func(invokeID uint32) []byte, cont Continuation) (uint32, *Error) {
	if s.associationState.get() != AssociationConnected {
		return 0, newError(ErrConnectionLost)
	}

	invokeID := s.invokeIDs.next()
	request := buildRequest(invokeID)

	if !s.registry.insert(invokeID, kind, cont, s.requestTimeout) {
		return 0, newError(ErrOutstandingCallLimit)
	}

	if err := s.conn.Send(request); err != nil {
		s.registry.remove(invokeID)
		return 0, wrapError(ErrConnectionLost, err)
	}

	return invokeID, nil
}
