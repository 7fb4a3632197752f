package mms

import (
	"github.com/slonegd/go61850mms/ber"
)

// nvlObjectName encodes the ObjectName CHOICE used to identify a named
// variable list: domain-specific (domainID, listName) or
// association-specific (listName alone).
func nvlObjectName(domainID, listName string, associationSpecific bool) []byte {
	if associationSpecific {
		return tlv(byte(ber.MakeContextSpecificTag(2, false)), []byte(listName))
	}
	return objectNameBytes(domainID, listName)
}

// BuildReadNvlRequest encodes a Read-Request whose variableAccessSpecification
// is a variableListName rather than a bare listOfVariable, per the
// VariableAccessSpecification CHOICE's second arm.
func BuildReadNvlRequest(invokeID uint32, domainID, listName string, associationSpecific bool) []byte {
	body := tlv(byte(ber.ContextSpecific1Constructed), nvlObjectName(domainID, listName, associationSpecific))
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(4, true)), body)
}

// BuildDefineNamedVariableListRequest encodes a DefineNamedVariableList
// request naming listName within domainID (or association-specific) and
// listing its members (each a domain-specific variable reference).
func BuildDefineNamedVariableListRequest(invokeID uint32, domainID, listName string, members []ObjectReference, associationSpecific bool) []byte {
	name := nvlObjectName(domainID, listName, associationSpecific)

	var listOfVariable []byte
	for _, m := range members {
		varSpec := tlv(byte(ber.ContextSpecific0Constructed), objectNameBytes(m.DomainID, m.ItemID))
		listOfVariable = append(listOfVariable, tlv(byte(ber.SequenceConstructed), varSpec)...)
	}

	body := append(append([]byte{}, name...), tlv(byte(ber.SequenceConstructed), listOfVariable)...)
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(7, true)), body)
}

// BuildGetNamedVariableListAttributesRequest encodes a request for a named
// variable list's member names and mmsDeletable flag.
func BuildGetNamedVariableListAttributesRequest(invokeID uint32, domainID, listName string, associationSpecific bool) []byte {
	body := nvlObjectName(domainID, listName, associationSpecific)
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(8, true)), body)
}

// NamedVariableListAttributes is the decoded GetNamedVariableListAttributes
// response: the list's deletability and its member variables.
type NamedVariableListAttributes struct {
	MmsDeletable bool
	Members      []ObjectReference
}

// ParseGetNamedVariableListAttributesResponse parses the response body
// (confirmedServiceResponse content, leading invoke-id already stripped):
//
//	GetNamedVariableListAttributes-Response ::= SEQUENCE {
//	  mmsDeletable   [0] BOOLEAN,
//	  listOfVariable [1] SEQUENCE OF VariableSpecification
//	}
func ParseGetNamedVariableListAttributesResponse(content []byte) (NamedVariableListAttributes, error) {
	var attrs NamedVariableListAttributes

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, false)):
			attrs.MmsDeletable = len(value) > 0 && value[0] != 0x00
		case byte(ber.MakeContextSpecificTag(1, true)):
			return parseTLVSequence(value, func(t byte, v []byte) error {
				return parseTLVSequence(v, func(nt byte, nv []byte) error {
					if nt != byte(ber.ContextSpecific0Constructed) {
						return nil
					}
					return parseTLVSequence(nv, func(ot byte, ov []byte) error {
						if ot != byte(ber.ContextSpecific1Constructed) {
							return nil
						}
						var domainID, itemID string
						idx := 0
						err := parseTLVSequence(ov, func(st byte, sv []byte) error {
							if ber.Tag(st) != ber.VisibleString {
								return nil
							}
							if idx == 0 {
								domainID = string(sv)
							} else if idx == 1 {
								itemID = string(sv)
							}
							idx++
							return nil
						})
						if err != nil {
							return err
						}
						attrs.Members = append(attrs.Members, ObjectReference{DomainID: domainID, ItemID: itemID})
						return nil
					})
				})
			})
		}
		return nil
	})
	if err != nil {
		return attrs, err
	}
	return attrs, nil
}

// NamedVariableListRef identifies a named variable list for deletion: either
// domain-scoped (DomainID, ListName) or association-specific (ListName alone).
type NamedVariableListRef struct {
	DomainID            string
	ListName            string
	AssociationSpecific bool
}

// BuildDeleteNamedVariableListRequest encodes a DeleteNamedVariableList
// request for one or more lists.
func BuildDeleteNamedVariableListRequest(invokeID uint32, refs []NamedVariableListRef) []byte {
	var names []byte
	for _, r := range refs {
		names = append(names, nvlObjectName(r.DomainID, r.ListName, r.AssociationSpecific)...)
	}
	body := tlv(byte(ber.ContextSpecific0Constructed), tlv(byte(ber.SequenceConstructed), names))
	return BuildConfirmedRequestPDU(invokeID, byte(ber.MakeContextSpecificTag(9, true)), body)
}

// ParseDeleteNamedVariableListResponse parses a DeleteNamedVariableList
// response:
//
//	DeleteNamedVariableList-Response ::= SEQUENCE {
//	  numberMatched [0] Unsigned32,
//	  numberDeleted [1] Unsigned32 OPTIONAL
//	}
func ParseDeleteNamedVariableListResponse(content []byte) (numberMatched, numberDeleted uint32, err error) {
	err = parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, false)):
			numberMatched = decodeUnsigned(value)
		case byte(ber.MakeContextSpecificTag(1, false)):
			numberDeleted = decodeUnsigned(value)
		}
		return nil
	})
	return numberMatched, numberDeleted, err
}
