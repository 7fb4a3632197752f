package mms

import (
	"fmt"

	"github.com/slonegd/go61850mms/ber"
)

// ObjectClass identifies the scope of a GetNameList request: the server's
// domains, a domain's named variables, its named variable lists, its
// journals, or VMD/association-specific variable lists.
type ObjectClass int

const (
	ObjectClassNamedVariable ObjectClass = iota
	ObjectClassScatteredAccess
	ObjectClassNamedVariableList
	ObjectClassNamedType
	ObjectClassDomain
	ObjectClassCapabilityList
	ObjectClassProgramInvocation
	ObjectClassEventCondition
	ObjectClassEventAction
	ObjectClassEventEnrollment
	ObjectClassJournal
	ObjectClassOperatorStation
	ObjectClassAccessControlList
)

// NameListResponse is a single page of a GetNameList response: the
// identifiers on this page and whether more pages remain.
type NameListResponse struct {
	Identifiers []string
	MoreFollows bool
}

// ParseGetNameListResponse parses a GetNameList-Response body (the
// confirmedServiceResponse content, leading invoke-id already stripped):
//
//	GetNameList-Response ::= SEQUENCE {
//	  listOfIdentifier [0] SEQUENCE OF VisibleString,
//	  moreFollows      [1] BOOLEAN DEFAULT TRUE
//	}
func ParseGetNameListResponse(content []byte) (NameListResponse, error) {
	var resp NameListResponse
	resp.MoreFollows = true

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, true)):
			return parseTLVSequence(value, func(t byte, v []byte) error {
				if ber.Tag(t) != ber.VisibleString {
					return nil
				}
				resp.Identifiers = append(resp.Identifiers, string(v))
				return nil
			})
		case byte(ber.MakeContextSpecificTag(1, false)):
			resp.MoreFollows = len(value) > 0 && value[0] != 0x00
		}
		return nil
	})
	if err != nil {
		return resp, fmt.Errorf("get-name-list response: %w", err)
	}
	return resp, nil
}
