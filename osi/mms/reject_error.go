package mms

import (
	"errors"
	"fmt"

	"github.com/slonegd/go61850mms/ber"
)

// parseTLVSequence walks a flat sequence of BER tag-length-value elements,
// invoking fn for each one. Shared by the confirmed-error and reject parsers,
// both of which (per the original implementation) accept their fields in any
// order and silently skip tags they do not recognize.
func parseTLVSequence(buffer []byte, fn func(tag byte, value []byte) error) error {
	pos := 0
	for pos < len(buffer) {
		tag := buffer[pos]
		pos++
		newPos, length, err := ber.DecodeLength(buffer, pos, len(buffer))
		if err != nil {
			return fmt.Errorf("tlv length: %w", err)
		}
		pos = newPos
		if pos+length > len(buffer) {
			return fmt.Errorf("tlv element 0x%02x overruns buffer", tag)
		}
		if err := fn(tag, buffer[pos:pos+length]); err != nil {
			return err
		}
		pos += length
	}
	return nil
}

func decodeUnsigned(value []byte) uint32 {
	var v uint32
	for _, b := range value {
		v = v<<8 | uint32(b)
	}
	return v
}

// ParseConfirmedErrorPDU parses the content of a confirmed-error PDU (outer
// tag 0xa2 already stripped): invokeID [0] Unsigned32, serviceError [1]
// SEQUENCE { errorClass CHOICE (tag = class number), additionalCode [1] INTEGER OPTIONAL }.
func ParseConfirmedErrorPDU(content []byte) (invokeID uint32, class int, code int, err error) {
	class, code = -1, 0

	parseErr := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case 0x80: // invokeID
			invokeID = decodeUnsigned(value)
		case 0xA1: // serviceError
			return parseTLVSequence(value, func(t byte, v []byte) error {
				if int(t&0x1F) <= 11 && t&0xC0 == 0x80 {
					class = int(t & 0x1F)
					return parseTLVSequence(v, func(et byte, ev []byte) error {
						if et == 0x80 && len(ev) > 0 {
							code = int(decodeUnsigned(ev))
						}
						return nil
					})
				}
				return nil
			})
		}
		return nil
	})
	if parseErr != nil {
		return 0, 0, 0, parseErr
	}
	if class < 0 {
		return invokeID, 0, 0, errors.New("confirmed-error PDU missing serviceError")
	}
	return invokeID, class, code, nil
}

// ParseRejectPDU parses the content of a reject PDU (outer tag 0xa4 already
// stripped): originalInvokeID [0] Unsigned32 OPTIONAL, followed by a CHOICE
// whose context tag number identifies the reject "type" (confirmed-request(1),
// confirmed-response(2), ...) and whose ENUMERATED content is the reason.
func ParseRejectPDU(content []byte) (invokeID uint32, rejectType int, rejectReason int, err error) {
	rejectType = -1

	parseErr := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch {
		case tag == 0x80: // originalInvokeID
			invokeID = decodeUnsigned(value)
		case tag&0xC0 == 0x80 && tag != 0x80:
			rejectType = int(tag & 0x1F)
			if len(value) > 0 {
				rejectReason = int(decodeUnsigned(value))
			}
		}
		return nil
	})
	if parseErr != nil {
		return 0, 0, 0, parseErr
	}
	if rejectType < 0 {
		return invokeID, 0, 0, errors.New("reject PDU missing reject reason")
	}
	return invokeID, rejectType, rejectReason, nil
}

// BuildConfirmedErrorPDU encodes a confirmed-error PDU for a service error
// identified by (class, code), the encode counterpart of
// ParseConfirmedErrorPDU. Used by the server-initiated file service when
// this client, acting as responder, must reject a request.
func BuildConfirmedErrorPDU(invokeID uint32, class int, code int) []byte {
	codeBuf := make([]byte, 4)
	n := ber.EncodeUInt32(uint32(code), codeBuf, 0)
	additionalCode := tlv(0x80, codeBuf[:n])

	classTag := byte(ber.MakeContextSpecificTag(byte(class), true))
	serviceError := tlv(classTag, additionalCode)

	invokeBuf := make([]byte, 4)
	m := ber.EncodeUInt32(invokeID, invokeBuf, 0)
	content := tlv(0x80, invokeBuf[:m])
	content = append(content, tlv(0xA1, serviceError)...)

	return tlv(0xA2, content)
}
