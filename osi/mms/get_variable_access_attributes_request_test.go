package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGetVariableAccessAttributesRequest(t *testing.T) {
	req := BuildGetVariableAccessAttributesRequest(9, "domain1", "item1")
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(9), invokeID)
	assert.Equal(t, byte(0xa6), serviceTag)
}
