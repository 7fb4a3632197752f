package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/slonegd/go61850mms/logger"
	"github.com/slonegd/go61850mms/osi/acse"
	"github.com/slonegd/go61850mms/osi/cotp"
	"github.com/slonegd/go61850mms/osi/mms"
	"github.com/slonegd/go61850mms/osi/presentation"
	"github.com/slonegd/go61850mms/osi/session"
)

const defaultTickInterval = 10 * time.Millisecond

type options struct {
	tickInterval time.Duration
}

func defaultOptions() options {
	return options{tickInterval: defaultTickInterval}
}

// Option configures a Conn at construction time.
type Option func(*options)

// WithTickInterval overrides the default period between Tick indications.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.tickInterval = d }
}

// Conn wraps one connected COTP/MMS wire path and drives it from a reader
// goroutine, grounded in the recvLoop/sendLoop/tick-goroutine pattern of a
// channel-based protocol client: a dedicated goroutine blocks on the socket
// and republishes results as Indications, while a ticker goroutine drives
// periodic sweeping. Nothing here understands MMS service semantics; it
// only moves bytes and classifies transport-level events.
type Conn struct {
	rwc       io.Closer
	cotpConn  *cotp.Connection
	mmsClient *mms.Client
	logger    logger.Logger

	indications chan Indication
	opts        options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once

	obsMu     sync.RWMutex
	onSend    func([]byte)
	onReceive func([]byte)
}

// Dial opens a TCP connection to address, performs the COTP CR/CC handshake
// described by isoParams, and returns a Conn ready to Start.
func Dial(ctx context.Context, network, address string, isoParams *cotp.IsoConnectionParameters, log logger.Logger, opts ...Option) (*Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	cotpConn, err := cotp.NewConnectedConnection(ctx, rawConn, isoParams, cotp.WithLogger(log))
	if err != nil {
		rawConn.Close()
		return nil, err
	}

	return New(rawConn, cotpConn, log, opts...), nil
}

// New wraps an already-handshaked COTP connection. rwc is closed by Close
// and Abort; it is typically the same net.Conn cotpConn was built over.
func New(rwc io.Closer, cotpConn *cotp.Connection, log logger.Logger, opts ...Option) *Conn {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		rwc:         rwc,
		cotpConn:    cotpConn,
		mmsClient:   mms.NewClient(cotpConn, log),
		logger:      log,
		indications: make(chan Indication, 16),
		opts:        o,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Associate sends the association-request PDU chain (ACSE AARQ, carrying
// initiatePDU as user-information, wrapped in a Presentation CP-type and a
// Session CONNECT SPDU) directly over COTP, bypassing the give-tokens
// data-transfer wrapping Send uses for normal traffic, then blocks for the
// matching AARE and emits AssociationSuccess/AssociationFailed followed by
// the embedded MMS initiate-response as a Data indication. Call once, before
// Start.
func (c *Conn) Associate(ctx context.Context, initiatePDU []byte) error {
	aarq := acse.BuildAARQ(initiatePDU)
	cpType := presentation.BuildCPType(aarq)
	connectSPDU := session.BuildConnectSPDU(cpType)

	c.observeSend(initiatePDU)
	if err := c.cotpConn.SendDataMessage(connectSPDU); err != nil {
		return fmt.Errorf("transport: association request: %w", err)
	}

	for {
		state, err := c.cotpConn.ReadToTpktBuffer(ctx)
		if err != nil {
			c.emit(Indication{Kind: AssociationFailed})
			return fmt.Errorf("transport: association response: %w", err)
		}
		if state == cotp.TpktError {
			c.emit(Indication{Kind: AssociationFailed})
			return fmt.Errorf("transport: association response: TPKT error")
		}
		if state == cotp.TpktWaiting {
			continue
		}
		break
	}

	ind, err := c.cotpConn.ParseIncomingMessage()
	defer c.cotpConn.ResetPayload()
	if err != nil {
		c.emit(Indication{Kind: AssociationFailed})
		return fmt.Errorf("transport: association response: %w", err)
	}
	if ind != cotp.IndicationData {
		c.emit(Indication{Kind: AssociationFailed})
		return fmt.Errorf("transport: association response: unexpected COTP indication %d", ind)
	}

	payload := c.cotpConn.GetPayload()
	sessionPdu, err := session.ParseSessionSPDU(payload)
	if err != nil {
		c.emit(Indication{Kind: AssociationFailed})
		return fmt.Errorf("transport: association response session PDU: %w", err)
	}
	presentationPdu, err := presentation.ParsePresentationPDU(sessionPdu.Data)
	if err != nil {
		c.emit(Indication{Kind: AssociationFailed})
		return fmt.Errorf("transport: association response presentation PDU: %w", err)
	}
	acsePdu, err := acse.ParseACSEPDU(presentationPdu.Data)
	if err != nil {
		c.emit(Indication{Kind: AssociationFailed})
		return fmt.Errorf("transport: association response ACSE PDU: %w", err)
	}

	c.observeReceive(acsePdu.Data)
	c.emit(Indication{Kind: AssociationSuccess})
	c.emit(Indication{Kind: Data, Payload: acsePdu.Data})
	return nil
}

// Indications returns the channel the session's demultiplexer should drain.
func (c *Conn) Indications() <-chan Indication {
	return c.indications
}

// Start launches the receive and tick goroutines. Call once per Conn.
func (c *Conn) Start() {
	c.wg.Add(2)
	go c.recvLoop()
	go c.tickLoop()
}

func (c *Conn) recvLoop() {
	defer c.wg.Done()
	for {
		payload, err := c.mmsClient.ReceiveAndParseMmsResponse(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Debug("transport: receive failed: %v", err)
			c.emit(Indication{Kind: Closed})
			return
		}
		c.observeReceive(payload)
		c.emit(Indication{Kind: Data, Payload: payload})
	}
}

func (c *Conn) tickLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.emit(Indication{Kind: Tick})
		}
	}
}

func (c *Conn) emit(ind Indication) {
	select {
	case c.indications <- ind:
	case <-c.ctx.Done():
	}
}

// Send frames mmsPDU through Presentation/Session and writes it via COTP.
func (c *Conn) Send(mmsPDU []byte) error {
	c.observeSend(mmsPDU)
	return c.mmsClient.SendMmsPdu(mmsPDU)
}

// SetRawMessageObserver registers optional hooks invoked with the raw MMS
// PDU bytes of every outgoing (onSend) and incoming (onReceive) message.
// Either may be nil.
func (c *Conn) SetRawMessageObserver(onSend, onReceive func([]byte)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.onSend = onSend
	c.onReceive = onReceive
}

func (c *Conn) observeSend(pdu []byte) {
	c.obsMu.RLock()
	fn := c.onSend
	c.obsMu.RUnlock()
	if fn != nil {
		fn(pdu)
	}
}

func (c *Conn) observeReceive(pdu []byte) {
	c.obsMu.RLock()
	fn := c.onReceive
	c.obsMu.RUnlock()
	if fn != nil {
		fn(pdu)
	}
}

// Close stops the goroutines and closes the underlying socket in an orderly
// fashion. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.rwc.Close()
		c.wg.Wait()
	})
	return err
}

// Abort is the non-orderly counterpart to Close: same effect at this layer,
// since the engine has no separate COTP-level abort PDU to send once the
// association is up.
func (c *Conn) Abort() error {
	return c.Close()
}
