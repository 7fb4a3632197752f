package client

import (
	"time"

	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/osi/mms"
)

// FileStore is the local collaborator backing obtain-file mode, in which
// the server pulls a file from the client and the client acts as
// responder for file-open/read/close (§4.7). Implementations are expected
// to serve a virtual filestore rooted at a configured base path.
type FileStore interface {
	// Open begins a read of filename, returning an FRSM identifying the
	// transfer, the file size, and its last-modified time.
	Open(filename string) (frsm int32, fileSize uint32, lastModified time.Time, err error)
	// Read returns the next chunk for frsm and whether more remain.
	Read(frsm int32) (chunk []byte, moreFollows bool, err error)
	// Close releases frsm.
	Close(frsm int32) error
}

const (
	fileOpenRequestTag  = 0x48
	fileReadRequestTag  = 0x49
	fileCloseRequestTag = 0x4a

	// fileErrorNonExistent is the class-11 file-error code for "non-existent",
	// matching mapServiceErrorToError's 1-indexed ordinal position 7.
	fileErrorNonExistent = 7
)

// handleServerFileRequest responds to a confirmed-request the server sent
// us while obtain-file mode is active. This is the only path where the
// client acts as a responder rather than a requester.
func (s *Session) handleServerFileRequest(content []byte) {
	if !s.obtainFileMode || s.filestore == nil {
		s.logger.Debug("dropping server-initiated file request: obtain-file mode disabled")
		return
	}

	invokeID, serviceTag, body, err := mms.ParseConfirmedRequestHeader(content)
	if err != nil {
		s.logger.Debug("server-initiated file request: %v", err)
		return
	}

	switch serviceTag {
	case fileOpenRequestTag:
		s.respondFileOpen(invokeID, body)
	case fileReadRequestTag:
		s.respondFileRead(invokeID, body)
	case fileCloseRequestTag:
		s.respondFileClose(invokeID, body)
	default:
		s.logger.Debug("server-initiated file request: unknown service tag 0x%02x", serviceTag)
	}
}

func (s *Session) respondFileOpen(invokeID uint32, body []byte) {
	filename := string(body)
	frsm, size, modified, err := s.filestore.Open(filename)
	if err != nil {
		s.sendFileServiceError(invokeID, fileErrorNonExistent)
		return
	}

	frsmBuf := make([]byte, 4)
	n := ber.EncodeInt32(frsm, frsmBuf, 0)
	sizeBuf := make([]byte, 4)
	m := ber.EncodeUInt32(size, sizeBuf, 0)
	modifiedBuf := mms.EncodeUTCTime(modified)

	attrs := []byte{0x80, byte(m)}
	attrs = append(attrs, sizeBuf[:m]...)
	attrs = append(attrs, 0x81, byte(len(modifiedBuf)))
	attrs = append(attrs, modifiedBuf...)

	body2 := []byte{0x80, byte(n)}
	body2 = append(body2, frsmBuf[:n]...)
	body2 = append(body2, 0xA1, byte(len(attrs)))
	body2 = append(body2, attrs...)

	resp := mms.BuildConfirmedResponsePDU(invokeID, 0x48, body2)
	if err := s.conn.Send(resp); err != nil {
		s.logger.Debug("file-open response: %v", err)
	}
}

func (s *Session) respondFileRead(invokeID uint32, body []byte) {
	frsm := int32(ber.DecodeInt32(body, len(body), 0))
	chunk, more, err := s.filestore.Read(frsm)
	if err != nil {
		s.sendFileServiceError(invokeID, fileErrorNonExistent)
		return
	}

	var respBody []byte
	if more {
		respBody = append(respBody, 0xA0)
		respBody = append(respBody, byte(len(chunk)+2))
		respBody = append(respBody, 0x80, byte(len(chunk)))
		respBody = append(respBody, chunk...)
	} else {
		respBody = append(respBody, 0xA1)
		respBody = append(respBody, byte(len(chunk)+2))
		respBody = append(respBody, 0x80, byte(len(chunk)))
		respBody = append(respBody, chunk...)
	}

	resp := mms.BuildConfirmedResponsePDU(invokeID, 0x49, respBody)
	if err := s.conn.Send(resp); err != nil {
		s.logger.Debug("file-read response: %v", err)
	}
}

func (s *Session) respondFileClose(invokeID uint32, body []byte) {
	frsm := int32(ber.DecodeInt32(body, len(body), 0))
	if err := s.filestore.Close(frsm); err != nil {
		s.sendFileServiceError(invokeID, fileErrorNonExistent)
		return
	}
	resp := mms.BuildConfirmedResponsePDU(invokeID, 0x4a, nil)
	if err := s.conn.Send(resp); err != nil {
		s.logger.Debug("file-close response: %v", err)
	}
}

// sendFileServiceError replies with a class-11 (file) service error, the
// same taxonomy mapServiceErrorToError consumes on the requester side.
func (s *Session) sendFileServiceError(invokeID uint32, code int) {
	resp := mms.BuildConfirmedErrorPDU(invokeID, 11, code)
	if err := s.conn.Send(resp); err != nil {
		s.logger.Debug("file service confirmed-error: %v", err)
	}
}
