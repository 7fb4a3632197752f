package mms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUTCTime(t *testing.T) {
	ts := time.Unix(1700000000, 500000000).UTC()
	buf := EncodeUTCTime(ts)
	require.Len(t, buf, 8)

	decoded, err := parseUTCTime(buf, len(buf))
	require.NoError(t, err)
	assert.Equal(t, ts.Unix(), decoded.Unix())
	assert.InDelta(t, ts.Nanosecond(), decoded.Nanosecond(), float64(time.Millisecond))
}

func TestBuildReadJournalTimeRangeRequest(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	stop := time.Unix(1700003600, 0).UTC()
	req := BuildReadJournalTimeRangeRequest(5, "domain1", "journal1", start, stop)

	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(5), invokeID)
	assert.Equal(t, byte(readJournalRequestTag), serviceTag)
}

func TestBuildReadJournalStartAfterRequest(t *testing.T) {
	req := BuildReadJournalStartAfterRequest(6, "domain1", "journal1", []byte{0x01, 0x02}, 10)
	invokeID, _, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(6), invokeID)
}

func TestParseReadJournalResponseEmpty(t *testing.T) {
	// listOfJournalEntry [0] empty, moreFollows [1] false
	content := []byte{0xa0, 0x00, 0x81, 0x01, 0x00}
	resp, err := ParseReadJournalResponse(content)
	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	assert.False(t, resp.MoreFollows)
}
