package client

import (
	"github.com/slonegd/go61850mms/osi/mms"
	"github.com/slonegd/go61850mms/osi/mms/variant"
)

// ReportHandler receives an unsolicited information report. For a report on
// a named variable list, isList is true, name is the list's name and
// domainID its domain (empty for a VMD-specific name); for a listOfVariable
// report, isList is false and name and domainID are empty. values holds the
// value of every successful AccessResult in order; failed results are left
// out.
type ReportHandler func(domainID, name string, isList bool, values []*variant.Variant)

// handleInformationReport parses an unconfirmed PDU and, if a handler is
// registered, delivers its values. Per §4.6, value ownership transfers per
// element when the report lists multiple variables and whole-tree otherwise;
// since this client decodes directly into fresh Variants per AccessResult,
// that asymmetry shows up only in how many elements are handed over, not in
// any shared backing storage.
func (s *Session) handleInformationReport(content []byte) {
	report, err := mms.ParseInformationReport(content)
	if err != nil {
		s.logger.Debug("dropping unparsable information report: %v", err)
		return
	}

	handler := s.getReportHandler()
	if handler == nil {
		return
	}

	values := make([]*variant.Variant, 0, len(report.Results))
	for _, r := range report.Results {
		if r.Value != nil {
			values = append(values, r.Value)
		}
	}
	handler(report.DomainID, report.Name, report.IsList, values)
}
