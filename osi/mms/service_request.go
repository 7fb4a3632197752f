package mms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/osi/mms/variant"
)

func tlv(tag byte, content []byte) []byte {
	out := make([]byte, 0, 2+len(content))
	out = append(out, tag)
	out = append(out, ber.AppendLength(len(content))...)
	out = append(out, content...)
	return out
}

func encodeUnsignedInteger(v uint32) []byte {
	buf := make([]byte, 4)
	n := ber.EncodeUInt32(v, buf, 0)
	return buf[:n]
}

func encodeSignedInteger(v int32) []byte {
	buf := make([]byte, 4)
	n := ber.EncodeInt32(v, buf, 0)
	return buf[:n]
}

// BuildConfirmedRequestPDU wraps a confirmed service request body under the
// invokeID and confirmed-RequestPDU envelope shared by every confirmed MMS
// service:
//
//	confirmed-RequestPDU ::= SEQUENCE {
//	  invokeID                [0] IMPLICIT Unsigned32,
//	  confirmedServiceRequest [1] CHOICE { ... }
//	}
//
// serviceTag is the context-specific tag identifying the service choice
// (read = 0xa4, write = 0xa5, getNameList = 0xa1, identify = 0xa2, ...).
func BuildConfirmedRequestPDU(invokeID uint32, serviceTag byte, serviceBody []byte) []byte {
	content := tlv(byte(ber.Integer), encodeUnsignedInteger(invokeID))
	content = append(content, tlv(serviceTag, serviceBody)...)
	return tlv(byte(ber.ContextSpecific0Constructed), content)
}

// objectNameBytes encodes an MMS ObjectName in domain-specific form:
//
//	name: domain-specific [1] SEQUENCE { domainId VisibleString, itemId VisibleString }
func objectNameBytes(domainID, itemID string) []byte {
	inner := tlv(byte(ber.VisibleString), []byte(domainID))
	inner = append(inner, tlv(byte(ber.VisibleString), []byte(itemID))...)
	return tlv(byte(ber.ContextSpecific1Constructed), inner)
}

// BuildIdentifyRequest encodes an Identify-Request, which has no body.
func BuildIdentifyRequest(invokeID uint32) []byte {
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(2, true)), nil)
}

// BuildStatusRequest encodes a Status-Request, whose single argument
// requests (true) or suppresses (false) an extended-status reply.
func BuildStatusRequest(invokeID uint32, extended bool) []byte {
	var body []byte
	if extended {
		body = []byte{0xff}
	} else {
		body = []byte{0x00}
	}
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(0, false)), body)
}

// BuildGetNameListRequest encodes a GetNameList request scoped to objectClass
// within domainID, resuming after continueAfter (empty for the first page).
//
//	GetNameList-Request ::= SEQUENCE {
//	  objectClass   [0] IMPLICIT ObjectClass,
//	  objectScope   [1] CHOICE { domainSpecific [1] VisibleString },
//	  continueAfter [2] VisibleString OPTIONAL
//	}
func BuildGetNameListRequest(invokeID uint32, objectClass int, domainID, continueAfter string) []byte {
	class := tlv(byte(ber.MakeContextSpecificTag(0, false)), encodeUnsignedInteger(uint32(objectClass)))
	scope := tlv(byte(ber.MakeContextSpecificTag(1, true)), tlv(byte(ber.VisibleString), []byte(domainID)))

	body := append(class, scope...)
	if continueAfter != "" {
		body = append(body, tlv(byte(ber.MakeContextSpecificTag(2, false)), []byte(continueAfter))...)
	}

	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(1, true)), body)
}

// BuildWriteRequest encodes a single-variable Write-Request:
//
//	Write-Request ::= SEQUENCE {
//	  variableAccessSpecification [0] listOfVariable,
//	  listOfData                  [1] SEQUENCE OF Data
//	}
func BuildWriteRequest(invokeID uint32, domainID, itemID string, value *variant.Variant) []byte {
	name := objectNameBytes(domainID, itemID)
	varSpec := tlv(byte(ber.ContextSpecific0Constructed), name)
	listOfVariable := tlv(byte(ber.SequenceConstructed), varSpec)
	accessSpec := tlv(byte(ber.ContextSpecific0Constructed), listOfVariable)

	data := EncodeDataValue(value)
	listOfData := tlv(byte(ber.SequenceConstructed), data)
	dataField := tlv(byte(ber.ContextSpecific1Constructed), listOfData)

	body := append(accessSpec, dataField...)
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(5, true)), body)
}

// EncodeDataValue encodes a Variant as an MMS Data CHOICE element.
// Data ::= CHOICE { boolean [3], integer [5], floating-point [7],
// visible-string [10], ... } — this
// client only ever constructs the primitive arms bool, integer,
// floating-point and visible-string; structure/array/bit-string
// values are written by the caller directly when needed.
func EncodeDataValue(value *variant.Variant) []byte {
	switch value.Type() {
	case variant.Bool:
		b := byte(0x00)
		if value.BoolValue() {
			b = 0xff
		}
		return tlv(byte(ber.MakeContextSpecificTag(3, false)), []byte{b})
	case variant.Int32:
		return tlv(byte(ber.MakeContextSpecificTag(5, false)), encodeSignedInteger(value.Int32()))
	case variant.Float32:
		bits := math.Float32bits(value.Float32())
		raw := make([]byte, 5)
		raw[0] = 0x08 // format: exponent width 8 bits (IEEE 754 single)
		binary.BigEndian.PutUint32(raw[1:], bits)
		return tlv(byte(ber.MakeContextSpecificTag(7, false)), raw)
	case variant.VisibleString:
		return tlv(byte(ber.MakeContextSpecificTag(10, false)), []byte(value.StringValue()))
	default:
		return tlv(byte(ber.MakeContextSpecificTag(3, false)), []byte{0x00})
	}
}

// BuildConfirmedResponsePDU mirrors BuildConfirmedRequestPDU for the
// confirmed-ResponsePDU envelope, used when this client must act as
// responder for the server-initiated file service.
func BuildConfirmedResponsePDU(invokeID uint32, serviceTag byte, serviceBody []byte) []byte {
	content := tlv(byte(ber.Integer), encodeUnsignedInteger(invokeID))
	content = append(content, tlv(serviceTag, serviceBody)...)
	return tlv(byte(ber.ContextSpecific1Constructed), content)
}

// ParseConfirmedRequestHeader parses the confirmed-RequestPDU envelope
// (outer tag 0xa0 already stripped, content passed in): invokeID followed
// by the confirmedServiceRequest CHOICE tag and body. It is the decode
// counterpart of BuildConfirmedRequestPDU, used for the server-initiated
// file-service requests a client receives while obtain-file mode is active.
func ParseConfirmedRequestHeader(content []byte) (invokeID uint32, serviceTag byte, body []byte, err error) {
	if len(content) < 2 {
		return 0, 0, nil, errors.New("confirmed request too short")
	}
	if content[0] != byte(ber.Integer) {
		return 0, 0, nil, fmt.Errorf("confirmed request: expected invokeID INTEGER, got tag 0x%02x", content[0])
	}
	pos, length, err := ber.DecodeLength(content, 1, len(content))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("confirmed request invokeID length: %w", err)
	}
	if pos+length > len(content) {
		return 0, 0, nil, errors.New("confirmed request invokeID overruns buffer")
	}
	invokeID = ber.DecodeUint32(content, length, pos)
	pos += length

	if pos >= len(content) {
		return invokeID, 0, nil, errors.New("confirmed request missing service choice")
	}
	serviceTag = content[pos]
	pos++
	bodyPos, bodyLen, err := ber.DecodeLength(content, pos, len(content))
	if err != nil {
		return invokeID, 0, nil, fmt.Errorf("confirmed request service length: %w", err)
	}
	if bodyPos+bodyLen > len(content) {
		return invokeID, 0, nil, errors.New("confirmed request service body overruns buffer")
	}
	return invokeID, serviceTag, content[bodyPos : bodyPos+bodyLen], nil
}

// BuildConcludeRequestPDU encodes the conclude-RequestPDU, an empty
// context-11 primitive element.
func BuildConcludeRequestPDU() []byte {
	return []byte{byte(ber.ContextSpecific11Primitive), 0x00}
}

// BuildConcludeResponsePDU encodes the accepting conclude-ResponsePDU.
func BuildConcludeResponsePDU() []byte {
	return []byte{byte(ber.MakeContextSpecificTag(12, false)), 0x00}
}
