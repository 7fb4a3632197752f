package mms

import (
	"fmt"
	"time"

	"github.com/slonegd/go61850mms/ber"
)

// Requester-side file service tags, matching the server-responder tags the
// client answers under in obtain-file mode. These are used as complete
// confirmedServiceRequest choice tag bytes, not low-tag-number values: the
// service numbers they stand for (readJournal excepted) exceed 30, which
// ber.MakeContextSpecificTag cannot encode (it has no high-tag-number
// form), so they must not be passed through it.
const (
	fileOpenTag      = 0x48
	fileReadTag      = 0x49
	fileCloseTag     = 0x4a
	fileRenameTag    = 0x4b
	fileDeleteTag    = 0x4c
	fileDirectoryTag = 0x4d
	obtainFileTag    = 0x4e
)

// BuildFileOpenRequest encodes a FileOpen-Request for filename, resuming at
// initialPosition (0 for a fresh read).
func BuildFileOpenRequest(invokeID uint32, filename string, initialPosition uint32) []byte {
	name := tlv(byte(ber.MakeContextSpecificTag(0, false)), []byte(filename))
	pos := tlv(byte(ber.MakeContextSpecificTag(1, false)), encodeUnsignedInteger(initialPosition))
	body := append(name, pos...)
	return BuildConfirmedRequestPDU(invokeID, fileOpenTag, body)
}

// FileOpenResult is the decoded FileOpen-Response: the frsm identifying the
// transfer and the file's reported attributes.
type FileOpenResult struct {
	FRSM         int32
	FileSize     uint32
	LastModified time.Time
}

// ParseFileOpenResponse parses a FileOpen-Response body:
//
//	FileOpen-Response ::= SEQUENCE {
//	  frsmID         [0] Unsigned32,
//	  fileAttributes [1] SEQUENCE {
//	    sizeOfFile   [0] Unsigned32,
//	    lastModified [1] UtcTime OPTIONAL
//	  }
//	}
func ParseFileOpenResponse(content []byte) (FileOpenResult, error) {
	var res FileOpenResult

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, false)):
			res.FRSM = int32(decodeUnsigned(value))
		case byte(ber.MakeContextSpecificTag(1, true)):
			return parseTLVSequence(value, func(t byte, v []byte) error {
				switch t {
				case byte(ber.MakeContextSpecificTag(0, false)):
					res.FileSize = decodeUnsigned(v)
				case byte(ber.MakeContextSpecificTag(1, false)):
					if t, err := parseUTCTime(v, len(v)); err == nil {
						res.LastModified = t
					}
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("file-open response: %w", err)
	}
	return res, nil
}

// BuildFileReadRequest encodes a FileRead-Request, a bare frsm identifier.
func BuildFileReadRequest(invokeID uint32, frsm int32) []byte {
	return BuildConfirmedRequestPDU(invokeID, fileReadTag, encodeSignedInteger(frsm))
}

// FileReadResult is one FileRead-Response: a chunk and whether more follow.
type FileReadResult struct {
	Chunk       []byte
	MoreFollows bool
}

// ParseFileReadResponse parses a FileRead-Response body:
//
//	FileRead-Response ::= CHOICE {
//	  fileData [0] OCTET STRING,
//	  fileData-last [1] OCTET STRING
//	}
func ParseFileReadResponse(content []byte) (FileReadResult, error) {
	var res FileReadResult
	if len(content) < 2 {
		return res, fmt.Errorf("file-read response too short")
	}

	tag := content[0]
	pos, length, err := ber.DecodeLength(content, 1, len(content))
	if err != nil {
		return res, fmt.Errorf("file-read response length: %w", err)
	}
	if pos+length > len(content) {
		return res, fmt.Errorf("file-read response overruns buffer")
	}
	res.Chunk = append([]byte{}, content[pos:pos+length]...)

	switch tag {
	case byte(ber.MakeContextSpecificTag(0, false)):
		res.MoreFollows = true
	case byte(ber.MakeContextSpecificTag(1, false)):
		res.MoreFollows = false
	default:
		return res, fmt.Errorf("file-read response: unexpected tag 0x%02x", tag)
	}
	return res, nil
}

// BuildFileCloseRequest encodes a FileClose-Request, a bare frsm identifier.
func BuildFileCloseRequest(invokeID uint32, frsm int32) []byte {
	return BuildConfirmedRequestPDU(invokeID, fileCloseTag, encodeSignedInteger(frsm))
}

// BuildFileRenameRequest encodes a FileRename-Request.
func BuildFileRenameRequest(invokeID uint32, currentFileName, newFileName string) []byte {
	cur := tlv(byte(ber.MakeContextSpecificTag(0, false)), []byte(currentFileName))
	newName := tlv(byte(ber.MakeContextSpecificTag(1, false)), []byte(newFileName))
	body := append(cur, newName...)
	return BuildConfirmedRequestPDU(invokeID, fileRenameTag, body)
}

// BuildFileDeleteRequest encodes a FileDelete-Request, a bare filename.
func BuildFileDeleteRequest(invokeID uint32, filename string) []byte {
	return BuildConfirmedRequestPDU(invokeID, fileDeleteTag, []byte(filename))
}

// BuildFileDirectoryRequest encodes a FileDirectory-Request listing entries
// under filenameSpec, resuming after continueAfter if non-empty.
func BuildFileDirectoryRequest(invokeID uint32, filenameSpec, continueAfter string) []byte {
	var body []byte
	if filenameSpec != "" {
		body = append(body, tlv(byte(ber.MakeContextSpecificTag(0, false)), []byte(filenameSpec))...)
	}
	if continueAfter != "" {
		body = append(body, tlv(byte(ber.MakeContextSpecificTag(1, false)), []byte(continueAfter))...)
	}
	return BuildConfirmedRequestPDU(invokeID, fileDirectoryTag, body)
}

// FileDirectoryEntry is one listed file: its name, size, and modification
// time.
type FileDirectoryEntry struct {
	Filename     string
	FileSize     uint32
	LastModified time.Time
}

// FileDirectoryResponse is a page of FileDirectoryEntry values.
type FileDirectoryResponse struct {
	Entries     []FileDirectoryEntry
	MoreFollows bool
}

// ParseFileDirectoryResponse parses a FileDirectory-Response body:
//
//	FileDirectory-Response ::= SEQUENCE {
//	  listOfDirectoryEntry [0] SEQUENCE OF SEQUENCE {
//	    filename       FileName,
//	    fileAttributes SEQUENCE { sizeOfFile [0] Unsigned32, lastModified [1] UtcTime OPTIONAL }
//	  },
//	  moreFollows [1] BOOLEAN DEFAULT FALSE
//	}
func ParseFileDirectoryResponse(content []byte) (FileDirectoryResponse, error) {
	var resp FileDirectoryResponse

	err := parseTLVSequence(content, func(tag byte, value []byte) error {
		switch tag {
		case byte(ber.MakeContextSpecificTag(0, true)):
			return parseTLVSequence(value, func(_ byte, v []byte) error {
				var entry FileDirectoryEntry
				err := parseTLVSequence(v, func(et byte, ev []byte) error {
					switch {
					case ber.Tag(et) == ber.VisibleString:
						entry.Filename = string(ev)
					case et == byte(ber.SequenceConstructed):
						return parseTLVSequence(ev, func(at byte, av []byte) error {
							switch at {
							case byte(ber.MakeContextSpecificTag(0, false)):
								entry.FileSize = decodeUnsigned(av)
							case byte(ber.MakeContextSpecificTag(1, false)):
								if t, err := parseUTCTime(av, len(av)); err == nil {
									entry.LastModified = t
								}
							}
							return nil
						})
					}
					return nil
				})
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
		return resp, fmt.Errorf("file-directory response: %w", err)
	}
	return resp, nil
}

// BuildObtainFileRequest encodes an ObtainFile-Request instructing the
// server to pull sourceFile from this client (obtain-file mode's trigger),
// storing it as destinationFile on the server.
func BuildObtainFileRequest(invokeID uint32, sourceFile, destinationFile string) []byte {
	src := tlv(byte(ber.MakeContextSpecificTag(1, false)), []byte(sourceFile))
	dst := tlv(byte(ber.MakeContextSpecificTag(2, false)), []byte(destinationFile))
	body := append(src, dst...)
	return BuildConfirmedRequestPDU(invokeID, obtainFileTag, body)
}
