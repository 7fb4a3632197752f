package mms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFileOpenRequest(t *testing.T) {
	req := BuildFileOpenRequest(1, "file.txt", 0)
	invokeID, serviceTag, _, err := ParseConfirmedRequestHeader(req[2:])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), invokeID)
	assert.Equal(t, byte(fileOpenTag), serviceTag)
}

func TestParseFileOpenResponse(t *testing.T) {
	// frsmID [0] 7, fileAttributes [1] { sizeOfFile [0] 1024 }
	content := []byte{
		0x80, 0x01, 0x07,
		0xa1, 0x05,
		0x80, 0x03, 0x00, 0x04, 0x00,
	}
	res, err := ParseFileOpenResponse(content)
	require.NoError(t, err)
	assert.Equal(t, int32(7), res.FRSM)
	assert.Equal(t, uint32(1024), res.FileSize)
}

func TestParseFileReadResponse(t *testing.T) {
	content := append([]byte{0x80, 0x03}, []byte("abc")...)
	res, err := ParseFileReadResponse(content)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), res.Chunk)
	assert.True(t, res.MoreFollows)

	content = append([]byte{0x81, 0x03}, []byte("xyz")...)
	res, err = ParseFileReadResponse(content)
	require.NoError(t, err)
	assert.False(t, res.MoreFollows)
}

func TestBuildFileCloseRenameDeleteDirectoryObtainRequests(t *testing.T) {
	tests := []struct {
		name string
		req  []byte
		tag  byte
	}{
		{"close", BuildFileCloseRequest(2, 7), fileCloseTag},
		{"rename", BuildFileRenameRequest(3, "a.txt", "b.txt"), fileRenameTag},
		{"delete", BuildFileDeleteRequest(4, "a.txt"), fileDeleteTag},
		{"directory", BuildFileDirectoryRequest(5, "", ""), fileDirectoryTag},
		{"obtain", BuildObtainFileRequest(6, "src", "dst"), obtainFileTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, serviceTag, _, err := ParseConfirmedRequestHeader(tt.req[2:])
			require.NoError(t, err)
			assert.Equal(t, tt.tag, serviceTag)
		})
	}
}

func TestParseFileDirectoryResponse(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	entry := append([]byte{0x1a, 0x05}, []byte("a.txt")...)
	entry = append(entry, 0x30, 0x02, 0x80, 0x00)
	list := tlv(0xa0, tlv(0x30, entry))
	content := append(list, []byte{0x81, 0x01, 0x00}...)
	_ = ts

	resp, err := ParseFileDirectoryResponse(content)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "a.txt", resp.Entries[0].Filename)
	assert.False(t, resp.MoreFollows)
}
