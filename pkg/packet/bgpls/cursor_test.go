// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_ReadHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected TLVHeader
		err      error
	}{
		{
			name:     "Complete header",
			input:    []byte{0x01, 0x00, 0x00, 0x04},
			expected: TLVHeader{Type: TLVLocalNodeDescriptor, Length: 4},
		},
		{
			name:  "Three bytes",
			input: []byte{0x01, 0x00, 0x00},
			err:   ErrTruncatedHeader,
		},
		{
			name:  "Empty",
			input: []byte{},
			err:   ErrTruncatedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewCursor(tt.input).ReadHeader()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, h)
		})
	}
}

func TestCursor_ReadValue(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})

	v, err := c.ReadValue(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)
	assert.Equal(t, 2, c.Offset())

	_, err = c.ReadValue(2)
	assert.ErrorIs(t, err, ErrTruncatedValue)
	assert.Equal(t, 2, c.Offset(), "a failed read must not move the cursor")
	assert.Equal(t, 1, c.Remaining())
}

func TestCursor_SubRegion(t *testing.T) {
	c := NewCursor([]byte{0xaa, 0x01, 0x02, 0x03, 0xbb})
	_, err := c.ReadUint8()
	require.NoError(t, err)

	sub, err := c.SubRegion(3)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Offset())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, sub.Bytes())
	assert.Equal(t, 4, c.Offset())

	_, err = sub.ReadValue(4)
	assert.ErrorIs(t, err, ErrTruncatedValue, "reads must stay inside the sub-region")

	_, err = c.SubRegion(2)
	assert.ErrorIs(t, err, ErrTLVOverrun)
}

func TestCursor_Next(t *testing.T) {
	buf := AppendByteSlices(
		rawTLV(TLVAutonomousSystem, 0x00, 0x00, 0xfd, 0xe9),
		rawTLV(TLVBGPLSIdentifier, 0x00, 0x00, 0x00, 0x01),
	)
	c := NewCursor(buf)

	h, sub, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, TLVHeader{Type: TLVAutonomousSystem, Length: 4}, h)
	assert.Equal(t, 4, sub.Offset())
	assert.Equal(t, 8, c.Offset())

	h, sub, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, TLVBGPLSIdentifier, h.Type)
	assert.Equal(t, 12, sub.Offset())
	assert.True(t, c.Done())
}

func TestCursor_NextNestedOffsets(t *testing.T) {
	buf := append([]byte{0xff}, rawTLV(TLVLocalNodeDescriptor, rawTLV(TLVAutonomousSystem, 0, 0, 0, 1)...)...)
	c := NewCursor(buf)
	_, err := c.ReadUint8()
	require.NoError(t, err)

	_, outer, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 5, outer.Offset())

	_, inner, err := outer.Next()
	require.NoError(t, err)
	assert.Equal(t, 9, inner.Offset())
	assert.True(t, outer.Done())
	assert.True(t, c.Done())
}

func TestCursor_NextOverrun(t *testing.T) {
	// declared length 10, two value bytes present
	c := NewCursor([]byte{0x04, 0x00, 0x00, 0x0a, 0x01, 0x02})

	_, _, err := c.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTLVOverrun)

	var tlvErr *TLVError
	require.True(t, errors.As(err, &tlvErr))
	assert.Equal(t, TLVNodeFlagBits, tlvErr.Type)
	assert.Equal(t, 0, tlvErr.Offset)
	assert.True(t, IsStructural(err))
}
