package mms

import (
	"fmt"

	"github.com/slonegd/go61850mms/ber"
)

// IdentifyResult is the decoded Identify-Response.
type IdentifyResult struct {
	VendorName     string
	ModelName      string
	Revision       string
	ListOfAbstractSyntaxes []string
}

// ParseIdentifyResponse parses an Identify-Response body
// (confirmedServiceResponse content, leading invoke-id already stripped):
//
//	Identify-Response ::= SEQUENCE {
//	  vendorName             VisibleString,
//	  modelName              VisibleString,
//	  revision               VisibleString,
//	  listOfAbstractSyntaxes [0] SEQUENCE OF OBJECT IDENTIFIER OPTIONAL
//	}
func ParseIdentifyResponse(content []byte) (IdentifyResult, error) {
	var res IdentifyResult
	field := 0

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch {
		case ber.Tag(tag) == ber.VisibleString:
			switch field {
			case 0:
				res.VendorName = string(value)
			case 1:
				res.ModelName = string(value)
			case 2:
				res.Revision = string(value)
			}
			field++
		case tag == byte(ber.MakeContextSpecificTag(0, true)):
			return parseTLVSequence(value, func(t byte, v []byte) error {
				if ber.Tag(t) != ber.ObjectIdentifier {
					return nil
				}
				res.ListOfAbstractSyntaxes = append(res.ListOfAbstractSyntaxes, fmt.Sprintf("% x", v))
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("identify response: %w", err)
	}
	return res, nil
}

// StatusResult is the decoded Status-Response.
type StatusResult struct {
	VMDLogicalStatus  int32
	VMDPhysicalStatus int32
	LocalDetail       []byte
}

// ParseStatusResponse parses a Status-Response body:
//
//	Status-Response ::= SEQUENCE {
//	  vmdLogicalStatus  INTEGER,
//	  vmdPhysicalStatus INTEGER,
//	  localDetail       BIT STRING OPTIONAL
//	}
func ParseStatusResponse(content []byte) (StatusResult, error) {
	var res StatusResult
	field := 0

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch {
		case ber.Tag(tag) == ber.Integer:
			switch field {
			case 0:
				res.VMDLogicalStatus = int32(decodeUnsigned(value))
			case 1:
				res.VMDPhysicalStatus = int32(decodeUnsigned(value))
			}
			field++
		case ber.Tag(tag) == ber.BitString:
			res.LocalDetail = append([]byte{}, value...)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("status response: %w", err)
	}
	return res, nil
}
