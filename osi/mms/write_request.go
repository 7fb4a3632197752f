package mms

import (
	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/osi/mms/variant"
)

// ObjectReference names a single domain-scoped variable, as used by the
// multi-variable write and read requests.
type ObjectReference struct {
	DomainID string
	ItemID   string
}

// BuildWriteMultipleVariablesRequest encodes a Write-Request listing several
// domain-specific variables, mirroring BuildWriteRequest's single-variable
// shape but with one listOfVariable entry and one listOfData entry per item.
func BuildWriteMultipleVariablesRequest(invokeID uint32, refs []ObjectReference, values []*variant.Variant) []byte {
	var listOfVariable []byte
	for _, ref := range refs {
		name := objectNameBytes(ref.DomainID, ref.ItemID)
		varSpec := tlv(byte(ber.ContextSpecific0Constructed), name)
		listOfVariable = append(listOfVariable, tlv(byte(ber.SequenceConstructed), varSpec)...)
	}
	accessSpec := tlv(byte(ber.ContextSpecific0Constructed), listOfVariable)

	var listOfData []byte
	for _, v := range values {
		listOfData = append(listOfData, EncodeDataValue(v)...)
	}
	dataField := tlv(byte(ber.ContextSpecific1Constructed), tlv(byte(ber.SequenceConstructed), listOfData))

	body := append(accessSpec, dataField...)
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(5, true)), body)
}

// BuildWriteNvlRequest encodes a Write-Request targeting a named variable
// list's members in one call instead of a bare listOfVariable.
func BuildWriteNvlRequest(invokeID uint32, listDomainID, listName string, values []*variant.Variant, associationSpecific bool) []byte {
	var varSpec []byte
	if associationSpecific {
		varSpec = tlv(byte(ber.MakeContextSpecificTag(2, false)), []byte(listName))
	} else {
		varSpec = tlv(byte(ber.ContextSpecific1Constructed), objectNameBytes(listDomainID, listName))
	}
	accessSpec := tlv(byte(ber.ContextSpecific1Constructed), varSpec)

	var listOfData []byte
	for _, v := range values {
		listOfData = append(listOfData, EncodeDataValue(v)...)
	}
	dataField := tlv(byte(ber.ContextSpecific1Constructed), tlv(byte(ber.SequenceConstructed), listOfData))

	body := append(accessSpec, dataField...)
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(5, true)), body)
}

// WriteResult is one element of a Write-Response: either a DataAccessError
// for that variable or a plain success.
type WriteResult struct {
	Failed bool
	Error  DataAccessErrorCode
}

// ParseWriteResponse parses a Write-Response body (confirmedServiceResponse
// content, leading invoke-id already stripped):
//
//	Write-Response ::= SEQUENCE OF CHOICE {
//	  failure [0] DataAccessError,
//	  success [1] NULL
//	}
func ParseWriteResponse(content []byte) ([]WriteResult, error) {
	var results []WriteResult
	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch {
		case tag == byte(ber.MakeContextSpecificTag(0, false)):
			results = append(results, WriteResult{Failed: true, Error: DataAccessErrorCode(decodeUnsigned(value))})
		case tag == byte(ber.MakeContextSpecificTag(1, false)):
			results = append(results, WriteResult{Failed: false})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
