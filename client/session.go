package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/logger"
	"github.com/slonegd/go61850mms/osi/mms"
	"github.com/slonegd/go61850mms/transport"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultMaxPDUSize     = 65000
)

// Session is the MMS client session engine: one per associated transport
// connection, owning the invoke-id allocator, the outstanding-call
// registry, the shared synchronous response slot, and the three state
// machines (association, connection, conclude).
type Session struct {
	conn   *transport.Conn
	logger logger.Logger

	invokeIDs invokeIDAllocator
	registry  callRegistry
	slot      responseSlot
	clk       clock

	associationState stateVar[AssociationState]
	connectionState  stateVar[ConnectionState]
	concludeState    stateVar[ConcludeState]

	requestTimeout time.Duration
	connectTimeout time.Duration
	maxPDUSize     uint32

	// pendingAssocSuccess records that the transport's most recent
	// AssociationSuccess indication has not yet been consumed by the
	// initiate-response Data indication that accompanies it.
	pendingAssocSuccess atomic.Bool

	initiateMu      sync.Mutex
	initiatePayload []byte

	reportMu      sync.Mutex
	reportHandler ReportHandler

	connLostMu      sync.Mutex
	connLostHandler func()

	filestore      FileStore
	obtainFileMode bool
}

// Option configures a Session at construction time.
type Option func(*Session)

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) { s.requestTimeout = d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

func WithMaxPDUSize(size uint32) Option {
	return func(s *Session) { s.maxPDUSize = size }
}

func WithReportHandler(h ReportHandler) Option {
	return func(s *Session) { s.reportHandler = h }
}

// WithConnectionLostHandler registers a callback invoked when the transport
// reports Closed. Cleared internally by Close so an orderly shutdown does
// not also report itself as a loss.
func WithConnectionLostHandler(h func()) Option {
	return func(s *Session) { s.connLostHandler = h }
}

func WithFileStore(fs FileStore) Option {
	return func(s *Session) { s.filestore = fs }
}

func WithObtainFileMode(enabled bool) Option {
	return func(s *Session) { s.obtainFileMode = enabled }
}

// NewSession wraps conn in a session engine. Call Run before issuing any
// calls, and Connect before any call surface method other than Close/Abort.
func NewSession(conn *transport.Conn, log logger.Logger, opts ...Option) *Session {
	s := &Session{
		conn:           conn,
		logger:         log,
		clk:            realClock{},
		requestTimeout: defaultRequestTimeout,
		connectTimeout: defaultConnectTimeout,
		maxPDUSize:     defaultMaxPDUSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the transport's reader/ticker goroutines and the session's own
// dispatch loop. Call once, after NewSession and before Connect.
func (s *Session) Run() {
	s.conn.Start()
	go s.dispatchLoop()
}

func (s *Session) getReportHandler() ReportHandler {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	return s.reportHandler
}

func (s *Session) getConnectionLostHandler() func() {
	s.connLostMu.Lock()
	defer s.connLostMu.Unlock()
	return s.connLostHandler
}

func (s *Session) clearConnectionLostHandler() {
	s.connLostMu.Lock()
	defer s.connLostMu.Unlock()
	s.connLostHandler = nil
}

func (s *Session) setAssociationSuccess() {
	s.pendingAssocSuccess.Store(true)
}

// handleInitiateResponse implements §4.4's tagInitiateResponse row: the
// connection state depends on whether this arrival was paired with an
// AssociationSuccess indication from the transport.
func (s *Session) handleInitiateResponse(content []byte) {
	success := s.pendingAssocSuccess.Swap(false)
	if success {
		s.connectionState.set(ConnectionAssociated)
	} else {
		s.connectionState.set(ConnectionAssociationFailed)
	}

	full := make([]byte, 0, len(content)+2+2)
	full = append(full, tagInitiateResponse)
	full = append(full, ber.AppendLength(len(content))...)
	full = append(full, content...)

	s.initiateMu.Lock()
	s.initiatePayload = full
	s.initiateMu.Unlock()
}

func (s *Session) takeInitiatePayload() []byte {
	s.initiateMu.Lock()
	defer s.initiateMu.Unlock()
	payload := s.initiatePayload
	s.initiatePayload = nil
	return payload
}

// Connect drives the connection state machine through the initiate
// handshake, per §4.8.
func (s *Session) Connect(ctx context.Context, opts ...mms.InitiateRequestOption) *Error {
	allOpts := append([]mms.InitiateRequestOption{mms.WithLocalDetailCalling(s.maxPDUSize)}, opts...)
	initiatePDU := mms.BuildInitiateRequestPDU(allOpts...)

	s.connectionState.set(ConnectionWaiting)

	associateCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	if err := s.conn.Associate(associateCtx, initiatePDU); err != nil {
		s.connectionState.set(ConnectionAssociationFailed)
		s.associationState.set(AssociationClosed)
		return wrapError(ErrConnectionRejected, err)
	}

	deadline := s.clk.now().Add(s.connectTimeout)
	for {
		state := s.connectionState.get()
		if state == ConnectionAssociated {
			break
		}
		if state == ConnectionAssociationFailed {
			s.connectionState.set(ConnectionIdle)
			s.associationState.set(AssociationClosed)
			return newError(ErrConnectionRejected)
		}
		if s.clk.now().After(deadline) {
			s.connectionState.set(ConnectionIdle)
			s.associationState.set(AssociationClosed)
			return newError(ErrConnectionRejected)
		}
		s.clk.sleep(connectPollInterval)
	}

	payload := s.takeInitiatePayload()
	if _, err := mms.ParseInitiateResponse(payload); err != nil {
		s.connectionState.set(ConnectionIdle)
		s.associationState.set(AssociationClosed)
		return wrapError(ErrParsingResponse, err)
	}

	s.associationState.set(AssociationConnected)
	return nil
}

// Close tears the session down without sending conclude-request. Clears the
// connection-lost handler first so the resulting transport close does not
// also report as a loss.
func (s *Session) Close() {
	s.clearConnectionLostHandler()
	_ = s.conn.Close()
	s.associationState.set(AssociationClosed)
	s.connectionState.set(ConnectionIdle)
}

// Abort is the non-orderly counterpart to Close.
func (s *Session) Abort() *Error {
	s.clearConnectionLostHandler()
	if err := s.conn.Abort(); err != nil {
		_ = s.conn.Close()
		return wrapError(ErrServiceTimeout, err)
	}
	s.associationState.set(AssociationClosed)
	s.connectionState.set(ConnectionIdle)
	return nil
}

// Conclude requests orderly release, per §4.9.
func (s *Session) Conclude(ctx context.Context) *Error {
	if s.associationState.get() != AssociationConnected {
		return newError(ErrConnectionLost)
	}

	if err := s.conn.Send(mms.BuildConcludeRequestPDU()); err != nil {
		return wrapError(ErrConnectionLost, err)
	}
	s.concludeState.set(ConcludeRequested)

	deadline := s.clk.now().Add(s.requestTimeout)
	for {
		select {
		case <-ctx.Done():
			return wrapError(ErrServiceTimeout, ctx.Err())
		default:
		}

		switch s.concludeState.get() {
		case ConcludeAccepted:
			return nil
		case ConcludeRejected:
			s.concludeState.set(ConcludeIdle)
			return newError(ErrConcludeRejected)
		}
		if s.associationState.get() != AssociationConnected {
			return newError(ErrConnectionLost)
		}
		if s.clk.now().After(deadline) {
			s.concludeState.set(ConcludeIdle)
			return newError(ErrServiceTimeout)
		}
		s.clk.sleep(concludePollInterval)
	}
}
