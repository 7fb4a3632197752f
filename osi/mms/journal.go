package mms

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/slonegd/go61850mms/ber"
	"github.com/slonegd/go61850mms/osi/mms/variant"
)

// readJournalRequestTag is the complete confirmedServiceRequest choice tag
// byte for readJournal (service number 41 in ISO 9506's numbering). The
// number exceeds what ber.MakeContextSpecificTag can encode (it has no
// high-tag-number form), so it cannot be built as
// byte(ber.MakeContextSpecificTag(41, true)) the way the low-numbered
// services (read, write, getNameList, ...) are; it is a standalone raw byte
// instead, matching the convention file.go already uses for its tags.
const readJournalRequestTag = 0xc9

// EncodeUTCTime mirrors parseUTCTime's layout: 4 bytes of unix seconds, 3
// bytes of fractional second (units of 1/2^24 s), 1 byte of time quality.
func EncodeUTCTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t.Unix()))
	fraction := uint32(uint64(t.Nanosecond()) * 0x1000000 / 1_000_000_000)
	buf[4] = byte(fraction >> 16)
	buf[5] = byte(fraction >> 8)
	buf[6] = byte(fraction)
	buf[7] = 0x0a // time quality: clock not synchronized bit clear, accuracy unspecified
	return buf
}

// BuildReadJournalTimeRangeRequest encodes a ReadJournal request selecting
// entries between startTime and stopTime, inclusive.
func BuildReadJournalTimeRangeRequest(invokeID uint32, domainID, journalName string, startTime, stopTime time.Time) []byte {
	name := objectNameBytes(domainID, journalName)
	rangeStart := tlv(byte(ber.MakeContextSpecificTag(1, false)), EncodeUTCTime(startTime))
	rangeStop := tlv(byte(ber.MakeContextSpecificTag(1, false)), EncodeUTCTime(stopTime))
	body := append(append([]byte{}, name...), rangeStart...)
	body = append(body, rangeStop...)
	return BuildConfirmedRequestPDU(invokeID, readJournalRequestTag, body)
}

// BuildReadJournalStartAfterRequest encodes a ReadJournal request resuming
// after entryID (as returned by a previous page's last JournalEntry),
// fetching up to numberOfEntries further entries.
func BuildReadJournalStartAfterRequest(invokeID uint32, domainID, journalName string, entryID []byte, numberOfEntries uint32) []byte {
	name := objectNameBytes(domainID, journalName)
	rangeStart := tlv(byte(ber.MakeContextSpecificTag(0, false)), entryID)
	rangeStop := tlv(byte(ber.MakeContextSpecificTag(0, false)), encodeUnsignedInteger(numberOfEntries))
	body := append(append([]byte{}, name...), rangeStart...)
	body = append(body, rangeStop...)
	return BuildConfirmedRequestPDU(invokeID, readJournalRequestTag, body)
}

// JournalVariable is one tag/value pair within a journal entry's content.
// ParseReadJournalResponse fills Tag only; Value is left nil.
type JournalVariable struct {
	Tag   string
	Value *variant.Variant
}

// JournalEntry is a single logged occurrence returned by ReadJournal.
type JournalEntry struct {
	EntryID        []byte
	OccurrenceTime time.Time
	Variables      []JournalVariable
}

// ReadJournalResponse is a page of JournalEntry values plus the
// pagination flag shared with GetNameList.
type ReadJournalResponse struct {
	Entries     []JournalEntry
	MoreFollows bool
}

// ParseReadJournalResponse parses a ReadJournal-Response body
// (confirmedServiceResponse content, leading invoke-id already stripped):
//
//	ReadJournal-Response ::= SEQUENCE {
//	  listOfJournalEntry [0] SEQUENCE OF JournalEntry,
//	  moreFollows        [1] BOOLEAN DEFAULT FALSE
//	}
//	JournalEntry ::= SEQUENCE {
//	  entryIdentifier OCTET STRING,
//	  occurrenceTime  UtcTime,
//	  listOfJournalVariable [1] SEQUENCE OF SEQUENCE { variableTag VisibleString, valueSpecification MMSString/Data }
//	}
func ParseReadJournalResponse(content []byte) (ReadJournalResponse, error) {
	var resp ReadJournalResponse

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, true)):
			return parseTLVSequence(value, func(t byte, v []byte) error {
				entry, err := parseJournalEntry(v)
				if err != nil {
					return err
				}
				resp.Entries = append(resp.Entries, entry)
				return nil
			})
		case byte(ber.MakeContextSpecificTag(1, false)):
			resp.MoreFollows = len(value) > 0 && value[0] != 0x00
		}
		return nil
	})
	if err != nil {
		return resp, fmt.Errorf("read-journal response: %w", err)
	}
	return resp, nil
}

func parseJournalEntry(buffer []byte) (JournalEntry, error) {
	var entry JournalEntry

	err := parseTLVSequence(buffer, func(tag byte, value []byte) error {
		switch {
		case ber.Tag(tag) == ber.OctetString:
			entry.EntryID = append([]byte{}, value...)
		case ber.Tag(tag) == ber.UTCTime:
			t, err := parseUTCTime(value, len(value))
			if err != nil {
				return err
			}
			entry.OccurrenceTime = t
		case tag == byte(ber.MakeContextSpecificTag(1, true)):
			return parseTLVSequence(value, func(_ byte, v []byte) error {
				return parseTLVSequence(v, func(vt byte, vv []byte) error {
					if ber.Tag(vt) != ber.VisibleString {
						return nil
					}
					entry.Variables = append(entry.Variables, JournalVariable{Tag: string(vv)})
					return nil
				})
			})
		}
		return nil
	})
	if err != nil {
		return entry, err
	}
	return entry, nil
}
