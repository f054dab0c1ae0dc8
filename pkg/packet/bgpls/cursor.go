// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import "encoding/binary"

// TLV header length (type + length)
const TLVHeaderLength = 4

// MaxTLVValueLength is the largest value a 2-byte length field describes.
const MaxTLVValueLength = 0xffff

// TLVHeader is the fixed part of every BGP-LS TLV. Length counts the value
// bytes only.
type TLVHeader struct {
	Type   TLVType
	Length uint16
}

// Cursor is a bounds-checked reader over one region of a buffer. A region
// never grows: sub-regions are carved out of the parent and reads past the
// end of a region fail instead of touching sibling bytes.
type Cursor struct {
	buf  []byte
	pos  int
	base int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Offset is the absolute position of the cursor in the outermost buffer.
func (c *Cursor) Offset() int {
	return c.base + c.pos
}

func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) Done() bool {
	return c.pos >= len(c.buf)
}

// Bytes returns the unread part of the region without consuming it.
func (c *Cursor) Bytes() []byte {
	return c.buf[c.pos:]
}

func (c *Cursor) ReadHeader() (TLVHeader, error) {
	if c.Remaining() < TLVHeaderLength {
		return TLVHeader{}, &TLVError{Offset: c.Offset(), Err: ErrTruncatedHeader}
	}
	h := TLVHeader{
		Type:   TLVType(binary.BigEndian.Uint16(c.buf[c.pos : c.pos+2])),
		Length: binary.BigEndian.Uint16(c.buf[c.pos+2 : c.pos+4]),
	}
	c.pos += TLVHeaderLength
	return h, nil
}

func (c *Cursor) ReadValue(length int) ([]byte, error) {
	if length < 0 || c.Remaining() < length {
		return nil, &TLVError{Offset: c.Offset(), Err: ErrTruncatedValue}
	}
	v := c.buf[c.pos : c.pos+length]
	c.pos += length
	return v, nil
}

// SubRegion bounds a nested decode to exactly length bytes and advances the
// parent past them.
func (c *Cursor) SubRegion(length int) (*Cursor, error) {
	if length < 0 || c.Remaining() < length {
		return nil, &TLVError{Offset: c.Offset(), Err: ErrTLVOverrun}
	}
	sub := &Cursor{buf: c.buf[c.pos : c.pos+length], base: c.Offset()}
	c.pos += length
	return sub, nil
}

// Next reads one TLV and returns its header and a region scoped to its value.
// The parent always advances by exactly TLVHeaderLength+Length bytes.
func (c *Cursor) Next() (TLVHeader, *Cursor, error) {
	start := c.Offset()
	h, err := c.ReadHeader()
	if err != nil {
		return TLVHeader{}, nil, err
	}
	sub, err := c.SubRegion(int(h.Length))
	if err != nil {
		return TLVHeader{}, nil, &TLVError{Type: h.Type, Offset: start, Err: ErrTLVOverrun}
	}
	return h, sub, nil
}

func (c *Cursor) ReadUint8() (uint8, error) {
	v, err := c.ReadValue(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (c *Cursor) ReadUint64() (uint64, error) {
	v, err := c.ReadValue(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}
