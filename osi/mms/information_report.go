package mms

import (
	"errors"
	"fmt"

	"github.com/slonegd/go61850mms/ber"
)

// InformationReportPDU is a parsed unconfirmed information-report PDU (outer
// tag 0xa3 already stripped by the caller).
//
//	unconfirmed-PDU ::= SEQUENCE {
//	  unconfirmedService [0] CHOICE { informationReport [0] InformationReport }
//	}
//	InformationReport ::= SEQUENCE {
//	  variableAccessSpecification CHOICE {
//	    variableListName  [0] ObjectName,
//	    listOfVariable    [1] SEQUENCE OF VariableSpecification
//	  },
//	  listOfAccessResult [1] SEQUENCE OF AccessResult
//	}
//
// Only VMD-specific and domain-specific list names are recognized; for an
// association-specific name, Name, DomainID and IsList stay unset, while
// Results is still filled from listOfAccessResult.
type InformationReportPDU struct {
	DomainID string // empty for VMD-specific names
	Name     string
	IsList   bool
	Results  []AccessResult
}

func ParseInformationReport(content []byte) (*InformationReportPDU, error) {
	report := &InformationReportPDU{}

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		if tag != 0xA0 { // unconfirmedService: informationReport
			return nil
		}
		return parseTLVSequence(value, func(t byte, v []byte) error {
			switch t {
			case 0x80: // variableListName: vmd-specific (VisibleString, primitive)
				report.Name = string(v)
				report.IsList = true
			case 0xA1: // variableListName: domain-specific, or listOfVariable
				return parseInformationReportSpec(v, report)
			case 0xA2: // listOfAccessResult
				results, err := parseListOfAccessResult(v, len(v))
				if err != nil {
					return fmt.Errorf("information report access results: %w", err)
				}
				report.Results = results
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if report.Name == "" && report.DomainID == "" && len(report.Results) == 0 {
		return nil, errors.New("information report: no variable access specification recognized")
	}
	return report, nil
}

// parseInformationReportSpec disambiguates domain-specific list names from a
// bare listOfVariable sequence: both arrive under tag 0xa1, so peek at the
// first nested tag. Two VisibleStrings (domainId, itemId) means a
// domain-specific list name; anything else is treated as listOfVariable and
// left unparsed here (single-variable domain/association reports are
// identified via their eventual AccessResult instead).
func parseInformationReportSpec(value []byte, report *InformationReportPDU) error {
	if len(value) < 2 {
		return errors.New("information report: empty variable specification")
	}
	if ber.Tag(value[0]) != ber.VisibleString {
		return nil
	}
	var domainID, itemID string
	count := 0
	err := parseTLVSequence(value, func(t byte, v []byte) error {
		if ber.Tag(t) != ber.VisibleString {
			return nil
		}
		switch count {
		case 0:
			domainID = string(v)
		case 1:
			itemID = string(v)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count >= 2 {
		report.DomainID = domainID
		report.Name = itemID
		report.IsList = true
	}
	return nil
}
