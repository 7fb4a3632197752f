// Package go61850 is the public facade wiring the transport and client
// packages into a single MMS client: dial, associate, and get back a
// *client.Session exposing the full call surface.
package go61850

import (
	"context"
	"fmt"
	"net"

	"github.com/slonegd/go61850mms/client"
	"github.com/slonegd/go61850mms/logger"
	"github.com/slonegd/go61850mms/osi/cotp"
	"github.com/slonegd/go61850mms/osi/mms"
	"github.com/slonegd/go61850mms/transport"
)

// Dial connects to address over TCP, performs the COTP connection-oriented
// handshake, and returns a running, but not yet associated, client.Session.
// Call Connect on the result before issuing any MMS service.
func Dial(ctx context.Context, address string, log logger.Logger, transportOpts []transport.Option, sessionOpts []client.Option) (*client.Session, error) {
	if log == nil {
		log = logger.NewLogger("")
	}

	isoParams := &cotp.IsoConnectionParameters{
		RemoteTSelector: cotp.TSelector{Value: []byte{0, 1}},
		LocalTSelector:  cotp.TSelector{Value: []byte{0, 1}},
	}

	conn, err := transport.Dial(ctx, "tcp", address, isoParams, log, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("go61850: dial: %w", err)
	}

	session := client.NewSession(conn, log, sessionOpts...)
	session.Run()
	return session, nil
}

// NewMmsClient wraps an already-connected net.Conn: useful when the caller
// owns the socket lifecycle (e.g. TLS, a listener-accepted connection).
func NewMmsClient(ctx context.Context, rawConn net.Conn, log logger.Logger, transportOpts []transport.Option, sessionOpts []client.Option) (*client.Session, error) {
	if log == nil {
		log = logger.NewLogger("")
	}

	isoParams := &cotp.IsoConnectionParameters{
		RemoteTSelector: cotp.TSelector{Value: []byte{0, 1}},
		LocalTSelector:  cotp.TSelector{Value: []byte{0, 1}},
	}

	cotpConn, err := cotp.NewConnectedConnection(ctx, rawConn, isoParams, cotp.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("go61850: establishing COTP connection: %w", err)
	}

	conn := transport.New(rawConn, cotpConn, log, transportOpts...)
	session := client.NewSession(conn, log, sessionOpts...)
	session.Run()
	return session, nil
}

// DefaultInitiateOptions mirrors the parameters the teacher's proof-of-
// concept negotiated: no extra local-detail beyond the session's configured
// max-PDU size.
func DefaultInitiateOptions() []mms.InitiateRequestOption {
	return nil
}
