// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// AppendByteSlices concatenates multiple byte slices into a single slice.
func AppendByteSlices(slices ...[]byte) []byte {
	totalLen := 0
	for _, s := range slices {
		totalLen += len(s)
	}

	result := make([]byte, totalLen)
	offset := 0
	for _, s := range slices {
		copy(result[offset:], s)
		offset += len(s)
	}

	return result
}

// Uint16ToByteSlice converts a uint16 or TLVType value to a big-endian byte slice.
func Uint16ToByteSlice[T ~uint16](v T) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

// Uint32ToByteSlice converts a uint32 value to a big-endian byte slice.
func Uint32ToByteSlice(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// Uint64ToByteSlice converts a uint64 value to a big-endian byte slice.
func Uint64ToByteSlice(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Float32ToByteSlice converts an IEEE-754 float32 to its big-endian wire form.
func Float32ToByteSlice(v float32) []byte {
	return Uint32ToByteSlice(math.Float32bits(v))
}

// ByteSliceToFloat32 reads a big-endian IEEE-754 float32. b must hold at least 4 bytes.
func ByteSliceToFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// Bitwise is a type constraint for the unsigned integer types used as flag fields.
type Bitwise interface {
	constraints.Unsigned
}

// IsBitSet checks if any bit of mask is set in value.
func IsBitSet[T Bitwise](value, mask T) bool {
	return value&mask != 0
}

// SetBit sets bit in value when condition holds.
func SetBit[T Bitwise](value, bit T, condition bool) T {
	if condition {
		return value | bit
	}
	return value
}

// tlvBytes frames value with a type and length header.
func tlvBytes(typ TLVType, value []byte) []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(typ),
		Uint16ToByteSlice(uint16(len(value))),
		value,
	)
}
