package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReadMultipleVariablesRequest(t *testing.T) {
	refs := []ObjectReference{
		{DomainID: "d1", ItemID: "i1"},
		{DomainID: "d1", ItemID: "i2"},
	}
	req := BuildReadMultipleVariablesRequest(1, refs)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), invokeID)
	assert.Equal(t, byte(0xa4), serviceTag)
}

func TestBuildReadArrayElementsRequest(t *testing.T) {
	req := BuildReadArrayElementsRequest(2, "d1", "arr1", 0, 5)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(2), invokeID)
	assert.Equal(t, byte(0xa4), serviceTag)
}

func TestBuildReadSingleArrayElementWithComponentRequest(t *testing.T) {
	req := BuildReadSingleArrayElementWithComponentRequest(3, "d1", "arr1", 2, "mag")
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), invokeID)
	assert.Equal(t, byte(0xa4), serviceTag)
}
