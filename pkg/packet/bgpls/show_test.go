// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	tlvs := []SubTLV{
		&NodeDescriptorTLV{Typ: TLVLocalNodeDescriptor, Node: NodeDescriptor{ASN: ptr(uint32(65001))}},
		&Uint8TLV{Typ: TLVNodeFlagBits, Value: 0x80},
		&UnknownTLV{Typ: 9999, Length: 10, Value: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tlvs))
	expected := "  Local Node Descriptors (RFC7752):\n" +
		"    Autonomous System (RFC7752): 65001\n" +
		"  Node Flag Bits (RFC7752): overload\n" +
		"  Unknown TLV (0x270f): 10 bytes\n" +
		"    00 01 02 03 04 05 06 07\n" +
		"    08 09\n"
	assert.Equal(t, expected, buf.String())
}

func TestDumpNLRI(t *testing.T) {
	node, _, _ := testNLRIs()

	var buf bytes.Buffer
	require.NoError(t, DumpNLRI(&buf, node))
	assert.Equal(t, "node NLRI: node [OSPFv2] AS 65001, area 0, router 192.0.2.1\n"+
		"  Local Node Descriptors (RFC7752):\n"+
		"    Autonomous System (RFC7752): 65001\n"+
		"    OSPF Area-ID (RFC7752): 0.0.0.0\n"+
		"    IGP Router-ID (RFC7752): 192.0.2.1\n", buf.String())
}

func TestDumpAttribute(t *testing.T) {
	attr := &PrefixAttribute{Metric: ptr(uint32(10)), IGPFlags: ptr(IGPFlagNoUnicast)}

	var buf bytes.Buffer
	require.NoError(t, DumpAttribute(&buf, attr))
	assert.Equal(t, "BGP-LS attribute:\n"+
		"  IGP Flags (RFC7752): no-unicast\n"+
		"  Prefix Metric (RFC5305): 10\n", buf.String())
}
