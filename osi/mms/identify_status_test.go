package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifyResponse(t *testing.T) {
	content := []byte{
		0x1a, 0x06, 'V', 'e', 'n', 'd', 'o', 'r',
		0x1a, 0x05, 'M', 'o', 'd', 'e', 'l',
		0x1a, 0x01, '1',
	}
	res, err := ParseIdentifyResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "Vendor", res.VendorName)
	assert.Equal(t, "Model", res.ModelName)
	assert.Equal(t, "1", res.Revision)
	assert.Empty(t, res.ListOfAbstractSyntaxes)
}

func TestParseStatusResponse(t *testing.T) {
	content := []byte{0x02, 0x01, 0x00, 0x02, 0x01, 0x01}
	res, err := ParseStatusResponse(content)
	require.NoError(t, err)
	assert.Equal(t, int32(0), res.VMDLogicalStatus)
	assert.Equal(t, int32(1), res.VMDPhysicalStatus)
}

func TestBuildIdentifyAndStatusRequests(t *testing.T) {
	idReq := BuildIdentifyRequest(1)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(idReq[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), invokeID)
	assert.Equal(t, byte(0xa2), serviceTag)

	statusReq := BuildStatusRequest(2, true)
	invokeID, serviceTag, body, err := ParseConfirmedRequestHeader(statusReq[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(2), invokeID)
	assert.Equal(t, byte(0x80), serviceTag)
	assert.Equal(t, []byte{0xff}, body)
}
