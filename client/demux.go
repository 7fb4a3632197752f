package client

import (
	"errors"
	"fmt"

	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/transport"
)

// Outer MMS PDU tags, per §4.4's dispatch table.
const (
	tagInitiateResponse  = 0xa9
	tagUnconfirmed       = 0xa3
	tagConfirmedError    = 0xa2
	tagReject            = 0xa4
	tagConfirmedResponse = 0xa1
	tagConfirmedRequest  = 0xa0
	tagConcludeRequest   = 0x8b
	tagConcludeAccept    = 0x8c
	tagConcludeReject    = 0x8d
)

// dispatchLoop drains the transport's indication stream until it closes.
// Runs on its own goroutine, started by Run: this is "the transport reader
// thread" the demultiplexer and the synchronous/asynchronous call surfaces
// are specified against.
func (s *Session) dispatchLoop() {
	for ind := range s.conn.Indications() {
		s.handleIndication(ind)
	}
}

func (s *Session) handleIndication(ind transport.Indication) {
	switch ind.Kind {
	case transport.Tick:
		s.sweepTimeouts()
	case transport.Closed:
		s.connectionState.set(ConnectionIdle)
		s.associationState.set(AssociationClosed)
		if handler := s.getConnectionLostHandler(); handler != nil {
			handler()
		}
	case transport.AssociationFailed:
		s.connectionState.set(ConnectionAssociationFailed)
		s.associationState.set(AssociationClosed)
	case transport.AssociationSuccess:
		// Arrives together with the initiate-response Data indication;
		// handleInitiateResponse reads it back via takeAssociationSuccess.
		s.setAssociationSuccess()
	case transport.Data:
		s.handleData(ind.Payload)
	}
}

func (s *Session) handleData(payload []byte) {
	if len(payload) == 0 {
		return
	}
	tag := payload[0]
	pos, length, err := ber.DecodeLength(payload, 1, len(payload))
	if err != nil {
		s.logger.Debug("demux: bad outer length for tag 0x%02x: %v", tag, err)
		return
	}
	if pos+length > len(payload) {
		s.logger.Debug("demux: outer PDU tag 0x%02x overruns buffer", tag)
		return
	}
	content := payload[pos : pos+length]

	switch tag {
	case tagInitiateResponse:
		s.handleInitiateResponse(content)
	case tagUnconfirmed:
		s.handleInformationReport(content)
	case tagConfirmedError:
		invokeID, kind, err := decodeConfirmedError(content)
		if err != nil {
			s.logger.Debug("demux: confirmed-error: %v", err)
			return
		}
		s.dispatchResult(invokeID, nil, newError(kind))
	case tagReject:
		invokeID, kind, err := decodeReject(content)
		if err != nil {
			s.logger.Debug("demux: reject: %v", err)
			return
		}
		s.dispatchResult(invokeID, nil, newError(kind))
	case tagConfirmedResponse:
		invokeID, body, err := parseLeadingInvokeID(content)
		if err != nil {
			s.logger.Debug("demux: confirmed-response: %v", err)
			return
		}
		s.dispatchResult(invokeID, body, nil)
	case tagConfirmedRequest:
		s.handleServerFileRequest(content)
	case tagConcludeRequest:
		s.concludeState.set(ConcludeRequested)
	case tagConcludeAccept:
		s.concludeState.set(ConcludeAccepted)
		s.associationState.set(AssociationClosed)
		_ = s.conn.Close()
	case tagConcludeReject:
		s.concludeState.set(ConcludeRejected)
	default:
		s.logger.Debug("demux: unrecognized outer PDU tag 0x%02x", tag)
	}
}

// parseLeadingInvokeID reads the BER universal INTEGER (tag 0x02) that leads
// a confirmed-ResponsePDU's content, per §4.4's tagConfirmedResponse row.
func parseLeadingInvokeID(content []byte) (invokeID uint32, body []byte, err error) {
	if len(content) < 2 {
		return 0, nil, errors.New("confirmed response too short")
	}
	if ber.Tag(content[0]) != ber.Integer {
		return 0, nil, fmt.Errorf("confirmed response: expected invokeID INTEGER, got tag 0x%02x", content[0])
	}
	pos, length, err := ber.DecodeLength(content, 1, len(content))
	if err != nil {
		return 0, nil, fmt.Errorf("confirmed response invokeID length: %w", err)
	}
	if pos+length > len(content) {
		return 0, nil, errors.New("confirmed response invokeID overruns buffer")
	}
	invokeID = ber.DecodeUint32(content, length, pos)
	return invokeID, content[pos+length:], nil
}

// dispatchResult implements §4.4's dispatch policy: find the outstanding
// call, then either invoke its continuation (async) or drain-wait and store
// into the shared response slot (sync). An invoke-id with no matching slot
// is logged and dropped.
func (s *Session) dispatchResult(invokeID uint32, payload []byte, callErr *Error) {
	call, ok := s.registry.find(invokeID)
	if !ok {
		s.logger.Debug("demux: no outstanding call for invoke-id %d", invokeID)
		return
	}
	s.registry.remove(invokeID)

	if call.kind != CallNone {
		call.continuation(payload, callErr)
		return
	}

	s.slot.drainWait()
	s.slot.store(invokeID, payload, callErr)
}
