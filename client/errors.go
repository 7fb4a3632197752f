package client

import (
	"fmt"

	"github.com/slonegd/go61850mms/osi/mms"
)

// ErrorKind classifies every way a call into the session can fail. Kind
// values are compared by callers, not formatted; Error.Error() carries the
// human-readable text.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrConnectionLost
	ErrConnectionRejected
	ErrServiceTimeout
	ErrOutstandingCallLimit
	ErrParsingResponse
	ErrConcludeRejected

	ErrRejectUnrecognizedService
	ErrRejectUnknownPduType
	ErrRejectRequestInvalidArgument
	ErrRejectInvalidPdu
	ErrRejectOther

	ErrVmdStateOther
	ErrApplicationReferenceOther

	ErrDefinitionObjectUndefined
	ErrDefinitionInvalidAddress
	ErrDefinitionTypeUnsupported
	ErrDefinitionTypeInconsistent
	ErrDefinitionObjectExists
	ErrDefinitionObjectAttributeInconsistent
	ErrDefinitionOther

	ErrResourceOther
	ErrServiceOther
	ErrServicePreemptOther
	ErrTimeResolutionOther

	ErrAccessUnsupported
	ErrAccessNonExistent
	ErrAccessDenied
	ErrAccessInvalidated
	ErrAccessOther

	ErrFileAmbiguousName
	ErrFileBusy
	ErrFileSyntaxError
	ErrFileContentTypeInvalid
	ErrFilePositionInvalid
	ErrFileAccessDenied
	ErrFileNonExistent
	ErrFileDuplicateFilename
	ErrFileInsufficientSpace
	ErrFileOther

	ErrInvalidArguments
	ErrOther
)

var errorKindNames = map[ErrorKind]string{
	ErrNone:                 "none",
	ErrConnectionLost:       "connection lost",
	ErrConnectionRejected:   "connection rejected",
	ErrServiceTimeout:       "service timeout",
	ErrOutstandingCallLimit: "outstanding call limit reached",
	ErrParsingResponse:      "parsing response",
	ErrConcludeRejected:     "conclude rejected",

	ErrRejectUnrecognizedService:    "reject: unrecognized service",
	ErrRejectUnknownPduType:         "reject: unknown PDU type",
	ErrRejectRequestInvalidArgument: "reject: invalid argument",
	ErrRejectInvalidPdu:             "reject: invalid PDU",
	ErrRejectOther:                  "reject: other",

	ErrVmdStateOther:             "VMD state error",
	ErrApplicationReferenceOther: "application reference error",

	ErrDefinitionObjectUndefined:             "definition error: object undefined",
	ErrDefinitionInvalidAddress:              "definition error: invalid address",
	ErrDefinitionTypeUnsupported:             "definition error: type unsupported",
	ErrDefinitionTypeInconsistent:            "definition error: type inconsistent",
	ErrDefinitionObjectExists:                "definition error: object exists",
	ErrDefinitionObjectAttributeInconsistent: "definition error: object attribute inconsistent",
	ErrDefinitionOther:                       "definition error: other",

	ErrResourceOther:       "resource error",
	ErrServiceOther:        "service error",
	ErrServicePreemptOther: "service preempt error",
	ErrTimeResolutionOther: "time resolution error",

	ErrAccessUnsupported: "access error: unsupported",
	ErrAccessNonExistent: "access error: object non-existent",
	ErrAccessDenied:      "access error: access denied",
	ErrAccessInvalidated: "access error: invalidated",
	ErrAccessOther:       "access error: other",

	ErrFileAmbiguousName:      "file error: ambiguous name",
	ErrFileBusy:               "file error: busy",
	ErrFileSyntaxError:        "file error: syntax error",
	ErrFileContentTypeInvalid: "file error: content type invalid",
	ErrFilePositionInvalid:    "file error: position invalid",
	ErrFileAccessDenied:       "file error: access denied",
	ErrFileNonExistent:        "file error: non-existent",
	ErrFileDuplicateFilename:  "file error: duplicate filename",
	ErrFileInsufficientSpace: "file error: insufficient space",
	ErrFileOther:             "file error: other",

	ErrInvalidArguments: "invalid arguments",
	ErrOther:            "other",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the concrete error type returned by every call surface method.
// Callers compare Kind, not the error text.
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.Kind.String()
}

func newError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

func wrapError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf("%s: %v", kind, cause)}
}

// mapRejectToError implements §4.10's reject (type, reason) table.
func mapRejectToError(rejectType, rejectReason int) ErrorKind {
	switch {
	case rejectType == 1 && rejectReason == 1:
		return ErrRejectUnrecognizedService
	case rejectType == 5 && rejectReason == 0:
		return ErrRejectUnknownPduType
	case rejectType == 1 && rejectReason == 4:
		return ErrRejectRequestInvalidArgument
	case rejectType == 5 && rejectReason == 1:
		return ErrRejectInvalidPdu
	default:
		return ErrRejectOther
	}
}

// mapServiceErrorToError implements §4.10's service-error (class, code)
// table. Within a class, code is 1-indexed: code 1 is the first named
// sub-kind in the class's enumeration. Code 0 and any code past the last
// named sub-kind map to that class's Other.
func mapServiceErrorToError(class, code int) ErrorKind {
	switch class {
	case 0:
		return ErrVmdStateOther
	case 1:
		return ErrApplicationReferenceOther
	case 2:
		switch code {
		case 1:
			return ErrDefinitionObjectUndefined
		case 2:
			return ErrDefinitionInvalidAddress
		case 3:
			return ErrDefinitionTypeUnsupported
		case 4:
			return ErrDefinitionTypeInconsistent
		case 5:
			return ErrDefinitionObjectExists
		case 6:
			return ErrDefinitionObjectAttributeInconsistent
		default:
			return ErrDefinitionOther
		}
	case 3:
		return ErrResourceOther
	case 4:
		return ErrServiceOther
	case 5:
		return ErrServicePreemptOther
	case 6:
		return ErrTimeResolutionOther
	case 7:
		switch code {
		case 1:
			return ErrAccessUnsupported
		case 2:
			return ErrAccessNonExistent
		case 3:
			return ErrAccessDenied
		case 4:
			return ErrAccessInvalidated
		default:
			return ErrAccessOther
		}
	case 11:
		switch code {
		case 1:
			return ErrFileAmbiguousName
		case 2:
			return ErrFileBusy
		case 3:
			return ErrFileSyntaxError
		case 4:
			return ErrFileContentTypeInvalid
		case 5:
			return ErrFilePositionInvalid
		case 6:
			return ErrFileAccessDenied
		case 7:
			return ErrFileNonExistent
		case 8:
			return ErrFileDuplicateFilename
		case 9:
			return ErrFileInsufficientSpace
		default:
			return ErrFileOther
		}
	default:
		return ErrOther
	}
}

// decodeConfirmedError parses a confirmed-error PDU body (outer tag already
// stripped) and maps it to an ErrorKind, per §4.10.
func decodeConfirmedError(content []byte) (invokeID uint32, kind ErrorKind, err error) {
	invokeID, class, code, perr := mms.ParseConfirmedErrorPDU(content)
	if perr != nil {
		return 0, ErrParsingResponse, perr
	}
	return invokeID, mapServiceErrorToError(class, code), nil
}

// decodeReject parses a reject PDU body (outer tag already stripped) and
// maps it to an ErrorKind, per §4.10.
func decodeReject(content []byte) (invokeID uint32, kind ErrorKind, err error) {
	invokeID, rejectType, rejectReason, perr := mms.ParseRejectPDU(content)
	if perr != nil {
		return 0, ErrParsingResponse, perr
	}
	return invokeID, mapRejectToError(rejectType, rejectReason), nil
}
