package client

import (
	"time"

	"github.com/slonegd/go61850mms/osi/mms"
	"github.com/slonegd/go61850mms/osi/mms/variant"
)

// ObjectReference re-exports the mms package's domain-scoped variable
// reference so callers building multi-variable requests don't need to
// import osi/mms directly.
type ObjectReference = mms.ObjectReference

// ReadVariable reads a single domain-specific variable.
func (s *Session) ReadVariable(domainID, itemID string) (*mms.ReadResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.NewReadRequest(invokeID, domainID, itemID).Bytes()
	})
	if err != nil {
		return nil, err
	}
	return parseReadResponse(payload)
}

// ReadVariableAsync is ReadVariable's asynchronous counterpart.
func (s *Session) ReadVariableAsync(domainID, itemID string, cont func(*mms.ReadResponse, *Error)) (uint32, *Error) {
	return s.requestAsync(CallReadVariable, func(invokeID uint32) []byte {
		return mms.NewReadRequest(invokeID, domainID, itemID).Bytes()
	}, wrapReadContinuation(cont))
}

// ReadArrayElements reads a contiguous slice of an array-typed variable.
func (s *Session) ReadArrayElements(domainID, itemID string, startIndex, numberOfElements uint32) (*mms.ReadResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadArrayElementsRequest(invokeID, domainID, itemID, startIndex, numberOfElements)
	})
	if err != nil {
		return nil, err
	}
	return parseReadResponse(payload)
}

// ReadArrayElementsAsync is ReadArrayElements's asynchronous counterpart.
func (s *Session) ReadArrayElementsAsync(domainID, itemID string, startIndex, numberOfElements uint32, cont func(*mms.ReadResponse, *Error)) (uint32, *Error) {
	return s.requestAsync(CallReadArrayElements, func(invokeID uint32) []byte {
		return mms.BuildReadArrayElementsRequest(invokeID, domainID, itemID, startIndex, numberOfElements)
	}, wrapReadContinuation(cont))
}

// ReadSingleArrayElementWithComponent reads one array element's named
// component.
func (s *Session) ReadSingleArrayElementWithComponent(domainID, itemID string, index uint32, component string) (*mms.ReadResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadSingleArrayElementWithComponentRequest(invokeID, domainID, itemID, index, component)
	})
	if err != nil {
		return nil, err
	}
	return parseReadResponse(payload)
}

// ReadMultipleVariables reads several domain-specific variables in one call.
func (s *Session) ReadMultipleVariables(refs []ObjectReference) (*mms.ReadResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadMultipleVariablesRequest(invokeID, refs)
	})
	if err != nil {
		return nil, err
	}
	return parseReadResponse(payload)
}

// ReadMultipleVariablesAsync is ReadMultipleVariables's asynchronous
// counterpart.
func (s *Session) ReadMultipleVariablesAsync(refs []ObjectReference, cont func(*mms.ReadResponse, *Error)) (uint32, *Error) {
	return s.requestAsync(CallReadMultipleVariables, func(invokeID uint32) []byte {
		return mms.BuildReadMultipleVariablesRequest(invokeID, refs)
	}, wrapReadContinuation(cont))
}

// ReadNamedVariableListValues reads every member of a named variable list,
// domain-scoped or association-specific.
func (s *Session) ReadNamedVariableListValues(domainID, listName string, associationSpecific bool) (*mms.ReadResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadNvlRequest(invokeID, domainID, listName, associationSpecific)
	})
	if err != nil {
		return nil, err
	}
	return parseReadResponse(payload)
}

// ReadNamedVariableListValuesAsync is ReadNamedVariableListValues's
// asynchronous counterpart.
func (s *Session) ReadNamedVariableListValuesAsync(domainID, listName string, associationSpecific bool, cont func(*mms.ReadResponse, *Error)) (uint32, *Error) {
	return s.requestAsync(CallReadNvlValues, func(invokeID uint32) []byte {
		return mms.BuildReadNvlRequest(invokeID, domainID, listName, associationSpecific)
	}, wrapReadContinuation(cont))
}

func parseReadResponse(payload []byte) (*mms.ReadResponse, *Error) {
	resp, perr := mms.ParseReadResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &resp, nil
}

func wrapReadContinuation(cont func(*mms.ReadResponse, *Error)) Continuation {
	return func(payload []byte, callErr *Error) {
		if callErr != nil {
			cont(nil, callErr)
			return
		}
		resp, err := parseReadResponse(payload)
		cont(resp, err)
	}
}

// DefineNamedVariableList creates a named variable list with the given
// members, domain-scoped or association-specific.
func (s *Session) DefineNamedVariableList(domainID, listName string, members []ObjectReference, associationSpecific bool) *Error {
	_, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildDefineNamedVariableListRequest(invokeID, domainID, listName, members, associationSpecific)
	})
	return err
}

// GetNamedVariableListDirectory reports a named variable list's members and
// mmsDeletable flag.
func (s *Session) GetNamedVariableListDirectory(domainID, listName string, associationSpecific bool) (*mms.NamedVariableListAttributes, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildGetNamedVariableListAttributesRequest(invokeID, domainID, listName, associationSpecific)
	})
	if err != nil {
		return nil, err
	}
	attrs, perr := mms.ParseGetNamedVariableListAttributesResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &attrs, nil
}

// DeleteNamedVariableList deletes one or more named variable lists.
func (s *Session) DeleteNamedVariableList(refs []mms.NamedVariableListRef) (numberMatched, numberDeleted uint32, callErr *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildDeleteNamedVariableListRequest(invokeID, refs)
	})
	if err != nil {
		return 0, 0, err
	}
	matched, deleted, perr := mms.ParseDeleteNamedVariableListResponse(payload)
	if perr != nil {
		return 0, 0, wrapError(ErrParsingResponse, perr)
	}
	return matched, deleted, nil
}

// GetVariableAccessAttributes reports a variable's type description.
func (s *Session) GetVariableAccessAttributes(domainID, itemID string) (*mms.VariableAccessAttributesResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildGetVariableAccessAttributesRequest(invokeID, domainID, itemID)
	})
	if err != nil {
		return nil, err
	}
	attrs, perr := mms.ParseGetVariableAccessAttributesResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return attrs, nil
}

// getNameListPage fetches one page of a GetNameList request.
func (s *Session) getNameListPage(objectClass mms.ObjectClass, domainID, continueAfter string) (mms.NameListResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildGetNameListRequest(invokeID, int(objectClass), domainID, continueAfter)
	})
	if err != nil {
		return mms.NameListResponse{}, err
	}
	resp, perr := mms.ParseGetNameListResponse(payload)
	if perr != nil {
		return mms.NameListResponse{}, wrapError(ErrParsingResponse, perr)
	}
	return resp, nil
}

// getNameListAll drains every page of a GetNameList request into one slice.
func (s *Session) getNameListAll(objectClass mms.ObjectClass, domainID string) ([]string, *Error) {
	var identifiers []string
	continueAfter := ""
	for {
		page, err := s.getNameListPage(objectClass, domainID, continueAfter)
		if err != nil {
			return nil, err
		}
		identifiers = append(identifiers, page.Identifiers...)
		if !page.MoreFollows || len(page.Identifiers) == 0 {
			return identifiers, nil
		}
		continueAfter = page.Identifiers[len(page.Identifiers)-1]
	}
}

// GetNameList is the raw paginated GetNameList call.
func (s *Session) GetNameList(objectClass mms.ObjectClass, domainID, continueAfter string) (mms.NameListResponse, *Error) {
	return s.getNameListPage(objectClass, domainID, continueAfter)
}

// GetVMDVariableNames lists every VMD-scoped named variable.
func (s *Session) GetVMDVariableNames() ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassNamedVariable, "")
}

// GetDomainNames lists every domain the server hosts.
func (s *Session) GetDomainNames() ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassDomain, "")
}

// GetDomainVariableNames lists a domain's named variables.
func (s *Session) GetDomainVariableNames(domainID string) ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassNamedVariable, domainID)
}

// GetDomainVariableListNames lists a domain's named variable lists.
func (s *Session) GetDomainVariableListNames(domainID string) ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassNamedVariableList, domainID)
}

// GetDomainJournals lists a domain's journals.
func (s *Session) GetDomainJournals(domainID string) ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassJournal, domainID)
}

// GetVariableListNamesAssociationSpecific lists the named variable lists
// scoped to this association rather than any domain.
func (s *Session) GetVariableListNamesAssociationSpecific() ([]string, *Error) {
	return s.getNameListAll(mms.ObjectClassNamedVariableList, "")
}

// Identify reports the server's vendor, model, and revision.
func (s *Session) Identify() (*mms.IdentifyResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildIdentifyRequest(invokeID)
	})
	if err != nil {
		return nil, err
	}
	res, perr := mms.ParseIdentifyResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &res, nil
}

// GetServerStatus reports the server's logical and physical state.
func (s *Session) GetServerStatus(extended bool) (*mms.StatusResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildStatusRequest(invokeID, extended)
	})
	if err != nil {
		return nil, err
	}
	res, perr := mms.ParseStatusResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &res, nil
}

// ReadJournalTimeRange reads journal entries logged between startTime and
// stopTime, inclusive.
func (s *Session) ReadJournalTimeRange(domainID, journalName string, startTime, stopTime time.Time) (*mms.ReadJournalResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadJournalTimeRangeRequest(invokeID, domainID, journalName, startTime, stopTime)
	})
	if err != nil {
		return nil, err
	}
	resp, perr := mms.ParseReadJournalResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &resp, nil
}

// ReadJournalStartAfter resumes a journal read after entryID, per the
// previous page's last JournalEntry.
func (s *Session) ReadJournalStartAfter(domainID, journalName string, entryID []byte, numberOfEntries uint32) (*mms.ReadJournalResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildReadJournalStartAfterRequest(invokeID, domainID, journalName, entryID, numberOfEntries)
	})
	if err != nil {
		return nil, err
	}
	resp, perr := mms.ParseReadJournalResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &resp, nil
}

// WriteVariable writes a single domain-specific variable.
func (s *Session) WriteVariable(domainID, itemID string, value *variant.Variant) ([]mms.WriteResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildWriteRequest(invokeID, domainID, itemID, value)
	})
	if err != nil {
		return nil, err
	}
	return parseWriteResponse(payload)
}

// WriteVariableAsync is WriteVariable's asynchronous counterpart.
func (s *Session) WriteVariableAsync(domainID, itemID string, value *variant.Variant, cont func([]mms.WriteResult, *Error)) (uint32, *Error) {
	return s.requestAsync(CallWriteVariable, func(invokeID uint32) []byte {
		return mms.BuildWriteRequest(invokeID, domainID, itemID, value)
	}, wrapWriteContinuation(cont))
}

// WriteMultipleVariables writes several domain-specific variables in one
// call.
func (s *Session) WriteMultipleVariables(refs []ObjectReference, values []*variant.Variant) ([]mms.WriteResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildWriteMultipleVariablesRequest(invokeID, refs, values)
	})
	if err != nil {
		return nil, err
	}
	return parseWriteResponse(payload)
}

// WriteMultipleVariablesAsync is WriteMultipleVariables's asynchronous
// counterpart.
func (s *Session) WriteMultipleVariablesAsync(refs []ObjectReference, values []*variant.Variant, cont func([]mms.WriteResult, *Error)) (uint32, *Error) {
	return s.requestAsync(CallWriteMultipleVariables, func(invokeID uint32) []byte {
		return mms.BuildWriteMultipleVariablesRequest(invokeID, refs, values)
	}, wrapWriteContinuation(cont))
}

// WriteArrayElements writes a contiguous slice of an array-typed variable.
// The array-element write shares the multi-variable wire shape: one
// listOfVariable entry per element via BuildWriteMultipleVariablesRequest
// against repeated references into the same array item.
func (s *Session) WriteArrayElements(domainID, itemID string, values []*variant.Variant) ([]mms.WriteResult, *Error) {
	refs := make([]ObjectReference, len(values))
	for i := range values {
		refs[i] = ObjectReference{DomainID: domainID, ItemID: itemID}
	}
	return s.WriteMultipleVariables(refs, values)
}

// WriteNamedVariableList writes every member of a named variable list in
// one call, domain-scoped or association-specific.
func (s *Session) WriteNamedVariableList(domainID, listName string, values []*variant.Variant, associationSpecific bool) ([]mms.WriteResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildWriteNvlRequest(invokeID, domainID, listName, values, associationSpecific)
	})
	if err != nil {
		return nil, err
	}
	return parseWriteResponse(payload)
}

func parseWriteResponse(payload []byte) ([]mms.WriteResult, *Error) {
	results, perr := mms.ParseWriteResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return results, nil
}

func wrapWriteContinuation(cont func([]mms.WriteResult, *Error)) Continuation {
	return func(payload []byte, callErr *Error) {
		if callErr != nil {
			cont(nil, callErr)
			return
		}
		results, err := parseWriteResponse(payload)
		cont(results, err)
	}
}

// FileOpen opens filename for reading from position initialPosition,
// returning the frsm identifying the transfer.
func (s *Session) FileOpen(filename string, initialPosition uint32) (*mms.FileOpenResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileOpenRequest(invokeID, filename, initialPosition)
	})
	if err != nil {
		return nil, err
	}
	res, perr := mms.ParseFileOpenResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &res, nil
}

// FileRead reads the next chunk of an open transfer.
func (s *Session) FileRead(frsm int32) (*mms.FileReadResult, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileReadRequest(invokeID, frsm)
	})
	if err != nil {
		return nil, err
	}
	res, perr := mms.ParseFileReadResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &res, nil
}

// FileClose releases an open transfer.
func (s *Session) FileClose(frsm int32) *Error {
	_, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileCloseRequest(invokeID, frsm)
	})
	return err
}

// FileRename renames a file on the server.
func (s *Session) FileRename(currentFileName, newFileName string) *Error {
	_, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileRenameRequest(invokeID, currentFileName, newFileName)
	})
	return err
}

// FileDelete deletes a file on the server.
func (s *Session) FileDelete(filename string) *Error {
	_, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileDeleteRequest(invokeID, filename)
	})
	return err
}

// GetFileDirectory lists files under filenameSpec, resuming after
// continueAfter if non-empty.
func (s *Session) GetFileDirectory(filenameSpec, continueAfter string) (*mms.FileDirectoryResponse, *Error) {
	payload, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildFileDirectoryRequest(invokeID, filenameSpec, continueAfter)
	})
	if err != nil {
		return nil, err
	}
	resp, perr := mms.ParseFileDirectoryResponse(payload)
	if perr != nil {
		return nil, wrapError(ErrParsingResponse, perr)
	}
	return &resp, nil
}

// ObtainFile triggers obtain-file mode: the server pulls sourceFile from
// this client (served by FileStore, see fileserver.go) and stores it as
// destinationFile.
func (s *Session) ObtainFile(sourceFile, destinationFile string) *Error {
	_, err := s.requestSync(func(invokeID uint32) []byte {
		return mms.BuildObtainFileRequest(invokeID, sourceFile, destinationFile)
	})
	return err
}
