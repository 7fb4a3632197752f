package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReadNvlRequest(t *testing.T) {
	domainSpecific := BuildReadNvlRequest(1, "domain1", "list1", false)
	assert.Equal(t, byte(0xa0), domainSpecific[0])

	assocSpecific := BuildReadNvlRequest(1, "", "list1", true)
	assert.NotEqual(t, domainSpecific, assocSpecific)
}

func TestBuildDefineNamedVariableListRequest(t *testing.T) {
	members := []ObjectReference{
		{DomainID: "domain1", ItemID: "item1"},
		{DomainID: "domain1", ItemID: "item2"},
	}
	req := BuildDefineNamedVariableListRequest(2, "domain1", "list1", members, false)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(2), invokeID)
	assert.Equal(t, byte(0xa7), serviceTag)
}

func TestBuildGetNamedVariableListAttributesRequest(t *testing.T) {
	req := BuildGetNamedVariableListAttributesRequest(3, "domain1", "list1", false)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), invokeID)
	assert.Equal(t, byte(0xa8), serviceTag)
}

func TestBuildAndParseDeleteNamedVariableListRequest(t *testing.T) {
	refs := []NamedVariableListRef{
		{DomainID: "domain1", ListName: "list1"},
		{ListName: "list2", AssociationSpecific: true},
	}
	req := BuildDeleteNamedVariableListRequest(4, refs)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(4), invokeID)
	assert.Equal(t, byte(0xa9), serviceTag)
}

func TestParseDeleteNamedVariableListResponse(t *testing.T) {
	// numberMatched [0] 2, numberDeleted [1] 1
	content := []byte{0x80, 0x01, 0x02, 0x81, 0x01, 0x01}
	matched, deleted, err := ParseDeleteNamedVariableListResponse(content)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), matched)
	assert.Equal(t, uint32(1), deleted)
}
