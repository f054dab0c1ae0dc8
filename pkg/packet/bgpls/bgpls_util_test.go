// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendByteSlices(t *testing.T) {
	tests := []struct {
		name     string
		input    [][]byte
		expected []byte
	}{
		{
			name:     "Concatenate non-empty slices",
			input:    [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}},
			expected: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		},
		{
			name:     "Concatenate empty slices",
			input:    [][]byte{{}, {}},
			expected: []byte{},
		},
		{
			name:     "Nil slice in the middle",
			input:    [][]byte{{0x01}, nil, {0x02}},
			expected: []byte{0x01, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AppendByteSlices(tt.input...))
		})
	}
}

func TestUint16ToByteSlice(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02}, Uint16ToByteSlice(uint16(0x0102)))
	assert.Equal(t, []byte{0x02, 0x03}, Uint16ToByteSlice(TLVIGPRouterID))
	assert.Equal(t, []byte{0xff, 0xff}, Uint16ToByteSlice(TLVType(0xffff)))
}

func TestUint32ToByteSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    uint32
		expected []byte
	}{
		{name: "AS 65001", input: 65001, expected: []byte{0x00, 0x00, 0xfd, 0xe9}},
		{name: "Max uint32", input: 0xffffffff, expected: []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Uint32ToByteSlice(tt.input))
		})
	}
}

func TestUint64ToByteSlice(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x01, 0x02}, Uint64ToByteSlice(0x0102))
}

func TestFloat32ByteSlice(t *testing.T) {
	tests := []struct {
		name  string
		value float32
		wire  []byte
	}{
		{name: "Zero", value: 0, wire: []byte{0x00, 0x00, 0x00, 0x00}},
		{name: "One", value: 1, wire: []byte{0x3f, 0x80, 0x00, 0x00}},
		{name: "1 Gbit/s in bytes", value: 1.25e8, wire: []byte{0x4c, 0xee, 0x6b, 0x28}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wire, Float32ToByteSlice(tt.value))
			assert.Equal(t, tt.value, ByteSliceToFloat32(tt.wire))
		})
	}
}

func TestIsBitSet(t *testing.T) {
	tests := []struct {
		name     string
		value    uint8
		mask     uint8
		expected bool
	}{
		{name: "Overload bit set", value: 0x80, mask: uint8(NodeFlagOverload), expected: true},
		{name: "Overload bit clear", value: 0x7f, mask: uint8(NodeFlagOverload), expected: false},
		{name: "Any bit of mask", value: 0x08, mask: 0x0c, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBitSet(tt.value, tt.mask))
		})
	}
}

func TestSetBit(t *testing.T) {
	assert.Equal(t, uint8(0x88), SetBit(uint8(0x80), 0x08, true))
	assert.Equal(t, uint8(0x80), SetBit(uint8(0x80), 0x08, false))
	assert.Equal(t, IGPFlagDown|IGPFlagNoUnicast, SetBit(IGPFlagDown, IGPFlagNoUnicast, true))
}
