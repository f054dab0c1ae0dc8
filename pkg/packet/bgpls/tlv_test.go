// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func rawTLV(typ TLVType, value ...byte) []byte {
	return tlvBytes(typ, value)
}

func ptr[T any](v T) *T {
	return &v
}

func decodeSubTLV(t *testing.T, raw []byte) SubTLV {
	t.Helper()
	h, sub, err := NewCursor(raw).Next()
	require.NoError(t, err)
	shape, ok := tlvRegistry[h.Type]
	require.True(t, ok, "type %d not registered", h.Type)
	require.NoError(t, shape.check(int(h.Length)))
	tlv := shape.new(h.Type)
	require.NoError(t, tlv.DecodeFromBytes(sub.Bytes()))
	return tlv
}

var v6Addr = []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}

// One minimal valid instance of every registered shape, with a region the
// type is valid in.
var shapeCases = []struct {
	name   string
	region region
	raw    []byte
}{
	{"Local node descriptor", regionNodeNLRI, rawTLV(TLVLocalNodeDescriptor, rawTLV(TLVAutonomousSystem, 0, 0, 0xfd, 0xe9)...)},
	{"Remote node descriptor", regionLinkNLRI, rawTLV(TLVRemoteNodeDescriptor, rawTLV(TLVIGPRouterID, 192, 0, 2, 2)...)},
	{"Link identifiers", regionLinkNLRI, rawTLV(TLVLinkIdentifiers, 0, 0, 0, 3, 0, 0, 0, 7)},
	{"IPv4 interface address", regionLinkNLRI, rawTLV(TLVIPv4InterfaceAddress, 10, 0, 0, 1)},
	{"IPv4 neighbor address", regionLinkNLRI, rawTLV(TLVIPv4NeighborAddress, 10, 0, 0, 2)},
	{"IPv6 interface address", regionLinkNLRI, rawTLV(TLVIPv6InterfaceAddress, v6Addr...)},
	{"IPv6 neighbor address", regionLinkNLRI, rawTLV(TLVIPv6NeighborAddress, v6Addr...)},
	{"Multi-topology ID", regionLinkNLRI, rawTLV(TLVMultiTopologyID, 0, 2)},
	{"OSPF route type", regionPrefixNLRI, rawTLV(TLVOSPFRouteType, 1)},
	{"IPv4 reachability", regionPrefixNLRI, rawTLV(TLVIPReachability, 24, 10, 1, 2)},
	{"IPv6 reachability", regionPrefixNLRI, rawTLV(TLVIPReachability, 64, 0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 1)},
	{"Autonomous system", regionNodeDescriptor, rawTLV(TLVAutonomousSystem, 0, 0, 0xfd, 0xe9)},
	{"BGP-LS identifier", regionNodeDescriptor, rawTLV(TLVBGPLSIdentifier, 0, 0, 0, 1)},
	{"OSPF area ID", regionNodeDescriptor, rawTLV(TLVOSPFAreaID, 0, 0, 0, 0)},
	{"IGP router-ID OSPF", regionNodeDescriptor, rawTLV(TLVIGPRouterID, 192, 0, 2, 1)},
	{"IGP router-ID IS-IS", regionNodeDescriptor, rawTLV(TLVIGPRouterID, 0, 0, 0, 0, 0, 1)},
	{"IGP router-ID IS-IS pseudonode", regionNodeDescriptor, rawTLV(TLVIGPRouterID, 0, 0, 0, 0, 0, 1, 2)},
	{"IGP router-ID OSPF pseudonode", regionNodeDescriptor, rawTLV(TLVIGPRouterID, 192, 0, 2, 1, 10, 0, 0, 1)},
	{"Node flag bits", regionNodeAttribute, rawTLV(TLVNodeFlagBits, 0x80)},
	{"Opaque node attribute", regionNodeAttribute, rawTLV(TLVOpaqueNodeAttribute, 1, 2, 3)},
	{"Node name", regionNodeAttribute, rawTLV(TLVNodeName, 'r', '1')},
	{"IS-IS area ID", regionNodeAttribute, rawTLV(TLVISISAreaID, 0x49, 0x00, 0x01)},
	{"IPv4 local router-ID", regionNodeAttribute, rawTLV(TLVIPv4LocalRouterID, 192, 0, 2, 1)},
	{"IPv6 local router-ID", regionLinkAttribute, rawTLV(TLVIPv6LocalRouterID, v6Addr...)},
	{"IPv4 remote router-ID", regionLinkAttribute, rawTLV(TLVIPv4RemoteRouterID, 192, 0, 2, 2)},
	{"IPv6 remote router-ID", regionLinkAttribute, rawTLV(TLVIPv6RemoteRouterID, v6Addr...)},
	{"Admin group", regionLinkAttribute, rawTLV(TLVAdminGroup, 0, 0, 0, 0x05)},
	{"Max link bandwidth", regionLinkAttribute, rawTLV(TLVMaxLinkBandwidth, 0x4c, 0xee, 0x6b, 0x28)},
	{"Max reservable bandwidth", regionLinkAttribute, rawTLV(TLVMaxReservableBandwidth, 0x3f, 0x80, 0, 0)},
	{"Unreserved bandwidth", regionLinkAttribute, rawTLV(TLVUnreservedBandwidth,
		0x4c, 0xee, 0x6b, 0x28, 0x4c, 0xee, 0x6b, 0x28, 0x4c, 0xee, 0x6b, 0x28, 0x4c, 0xee, 0x6b, 0x28,
		0x3f, 0x80, 0, 0, 0x3f, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)},
	{"TE default metric", regionLinkAttribute, rawTLV(TLVTEDefaultMetric, 0, 0, 0, 20)},
	{"Link protection type", regionLinkAttribute, rawTLV(TLVLinkProtectionType, 0x04, 0x00)},
	{"MPLS protocol mask", regionLinkAttribute, rawTLV(TLVMPLSProtocolMask, 0xc0)},
	{"IGP metric narrow", regionLinkAttribute, rawTLV(TLVIGPMetric, 10)},
	{"IGP metric OSPF", regionLinkAttribute, rawTLV(TLVIGPMetric, 0, 10)},
	{"IGP metric wide", regionLinkAttribute, rawTLV(TLVIGPMetric, 0x01, 0x00, 0x0a)},
	{"SRLG", regionLinkAttribute, rawTLV(TLVSRLG, 0, 0, 0, 100, 0, 0, 0, 200)},
	{"Opaque link attribute", regionLinkAttribute, rawTLV(TLVOpaqueLinkAttribute, 0xde, 0xad)},
	{"Link name", regionLinkAttribute, rawTLV(TLVLinkName, 'g', 'e', '0')},
	{"IGP flags", regionPrefixAttribute, rawTLV(TLVIGPFlags, 0x80)},
	{"Route tag", regionPrefixAttribute, rawTLV(TLVRouteTag, 0, 0, 0, 1)},
	{"Extended route tag", regionPrefixAttribute, rawTLV(TLVExtendedRouteTag, 0, 0, 0, 0, 0, 0, 0, 1)},
	{"Prefix metric", regionPrefixAttribute, rawTLV(TLVPrefixMetric, 0, 0, 0, 10)},
	{"OSPF forwarding address IPv4", regionPrefixAttribute, rawTLV(TLVOSPFForwardingAddress, 10, 0, 0, 9)},
	{"OSPF forwarding address IPv6", regionPrefixAttribute, rawTLV(TLVOSPFForwardingAddress, v6Addr...)},
	{"Opaque prefix attribute", regionPrefixAttribute, rawTLV(TLVOpaquePrefixAttribute, 0x01)},
}

func TestSubTLV_RoundTrip(t *testing.T) {
	for _, tt := range shapeCases {
		t.Run(tt.name, func(t *testing.T) {
			tlv := decodeSubTLV(t, tt.raw)
			assert.Equal(t, tt.raw, tlv.Serialize())
			assert.Equal(t, uint16(len(tt.raw)), tlv.Len())
		})
	}
}

func TestSubTLV_Truncated(t *testing.T) {
	d := NewDecoder(nil)
	noop := func(SubTLV) (bool, error) { return false, nil }

	for _, tt := range shapeCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.walk(NewCursor(tt.raw), tt.region, noop)
			require.NoError(t, err)

			for n := 1; n < len(tt.raw); n++ {
				assert.NotPanics(t, func() {
					_, err := d.walk(NewCursor(tt.raw[:n]), tt.region, noop)
					assert.True(t, IsStructural(err), "truncated at %d: %v", n, err)
				})
			}
		})
	}
}

func TestArrayTLV_NonMultipleLength(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected []uint16
		err      error
	}{
		{
			name:     "Length 4 yields two elements",
			raw:      rawTLV(TLVMultiTopologyID, 0x00, 0x01, 0x00, 0x02),
			expected: []uint16{1, 2},
		},
		{
			name: "Length 5 is not a multiple of 2",
			raw:  rawTLV(TLVMultiTopologyID, 0x00, 0x01, 0x00, 0x02, 0x00),
			err:  ErrNonMultipleLength,
		},
		{
			name:     "Empty array",
			raw:      rawTLV(TLVMultiTopologyID),
			expected: []uint16{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr, res := NewDecoder(nil).DecodeAttribute(tt.raw, NLRITypeNode)
			node, ok := attr.(*NodeAttribute)
			require.True(t, ok)
			if tt.err != nil {
				assert.Equal(t, StatusRecoverablePartial, res.Status)
				require.Len(t, res.Warnings, 1)
				assert.ErrorIs(t, res.Warnings[0], tt.err)
				assert.Nil(t, node.MultiTopologyIDs)
				return
			}
			assert.Equal(t, StatusDecoded, res.Status)
			assert.Equal(t, tt.expected, node.MultiTopologyIDs)
		})
	}
}

func TestIGPRouterIDTLV_LengthDispatch(t *testing.T) {
	tests := []struct {
		name     string
		value    []byte
		expected *IGPRouterID
		err      error
	}{
		{
			name:     "Length 4 is OSPF non-pseudonode",
			value:    []byte{192, 0, 2, 1},
			expected: &IGPRouterID{Kind: OSPFNonPseudonode, RouterID: netip.MustParseAddr("192.0.2.1")},
		},
		{
			name:     "Length 6 is IS-IS non-pseudonode",
			value:    []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
			expected: &IGPRouterID{Kind: ISISNonPseudonode, SystemID: [6]byte{0, 0, 0, 0, 0, 1}},
		},
		{
			name:     "Length 7 is IS-IS pseudonode",
			value:    []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02},
			expected: &IGPRouterID{Kind: ISISPseudonode, SystemID: [6]byte{0, 0, 0, 0, 0, 1}, PseudonodeID: 2},
		},
		{
			name:  "Length 8 is OSPF pseudonode",
			value: []byte{192, 0, 2, 1, 10, 0, 0, 1},
			expected: &IGPRouterID{
				Kind:        OSPFPseudonode,
				RouterID:    netip.MustParseAddr("192.0.2.1"),
				DRInterface: netip.MustParseAddr("10.0.0.1"),
			},
		},
		{
			name:  "Length 5 is unsupported",
			value: []byte{192, 0, 2, 1, 0},
			err:   ErrUnsupportedUnionLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTLV(TLVIGPRouterID, tt.value...)
			c := NewCursor(raw)
			nd, warnings, err := NewDecoder(nil).DecodeNodeDescriptor(c)
			require.NoError(t, err)
			assert.True(t, c.Done())
			if tt.err != nil {
				require.Len(t, warnings, 1)
				assert.ErrorIs(t, warnings[0], tt.err)
				assert.Equal(t, TLVIGPRouterID, warnings[0].Type)
				assert.Nil(t, nd.IGPRouterID)
				return
			}
			assert.Empty(t, warnings)
			assert.Equal(t, tt.expected, nd.IGPRouterID)
		})
	}
}

func TestFixedTLV_ShapeMismatch(t *testing.T) {
	raw := AppendByteSlices(
		rawTLV(TLVAutonomousSystem, 0x00, 0xfd, 0xe9),
		rawTLV(TLVBGPLSIdentifier, 0x00, 0x00, 0x00, 0x01),
	)
	nd, warnings, err := NewDecoder(nil).DecodeNodeDescriptor(NewCursor(raw))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrShapeMismatch)
	assert.Equal(t, 0, warnings[0].Offset)
	assert.Nil(t, nd.ASN)
	assert.Equal(t, ptr(uint32(1)), nd.BGPLSID)
}

func TestUnreservedBandwidth_WrongLength(t *testing.T) {
	raw := rawTLV(TLVUnreservedBandwidth, make([]byte, 28)...)
	attr, res := NewDecoder(nil).DecodeAttribute(raw, NLRITypeLink)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrShapeMismatch)
	assert.Nil(t, attr.(*LinkAttribute).UnreservedBandwidth)
}

func TestLinkProtectionTLV_OneByte(t *testing.T) {
	tlv := decodeSubTLV(t, rawTLV(TLVLinkProtectionType, 0x10))
	lp, ok := tlv.(*LinkProtectionTLV)
	require.True(t, ok)
	assert.Equal(t, LinkProtectionDedicated1Plus1, lp.Value)
	assert.Equal(t, rawTLV(TLVLinkProtectionType, 0x10, 0x00), lp.Serialize())
}

func TestIGPMetricTLV_Width(t *testing.T) {
	tests := []struct {
		name     string
		value    []byte
		expected uint32
	}{
		{name: "1 byte", value: []byte{0x3f}, expected: 63},
		{name: "2 bytes", value: []byte{0x01, 0x00}, expected: 256},
		{name: "3 bytes", value: []byte{0xff, 0xff, 0xff}, expected: 0xffffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decodeSubTLV(t, rawTLV(TLVIGPMetric, tt.value...)).(*IGPMetricTLV)
			assert.Equal(t, tt.expected, m.Value)
			assert.Equal(t, uint8(len(tt.value)), m.Width)
		})
	}

	assert.Equal(t, rawTLV(TLVIGPMetric, 0x00, 0x00, 0x0a), NewIGPMetricTLV(10, 0).Serialize())
	assert.Equal(t, rawTLV(TLVIGPMetric, 0x00, 0x0a), NewIGPMetricTLV(10, 2).Serialize())

	widened := NewIGPMetricTLV(0x010000, 2)
	assert.Equal(t, rawTLV(TLVIGPMetric, 0x01, 0x00, 0x00), widened.Serialize())
	assert.Equal(t, uint16(TLVHeaderLength+3), widened.Len())
	m := decodeSubTLV(t, widened.Serialize()).(*IGPMetricTLV)
	assert.Equal(t, uint32(0x010000), m.Value)
}

func TestIPReachabilityTLV(t *testing.T) {
	tests := []struct {
		name     string
		value    []byte
		ipv6     bool
		expected netip.Prefix
		err      error
	}{
		{name: "IPv4 /24", value: []byte{24, 10, 1, 2}, expected: netip.MustParsePrefix("10.1.2.0/24")},
		{name: "IPv4 /32", value: []byte{32, 192, 0, 2, 1}, expected: netip.MustParsePrefix("192.0.2.1/32")},
		{name: "IPv4 default", value: []byte{0}, expected: netip.MustParsePrefix("0.0.0.0/0")},
		{name: "IPv6 /64", value: []byte{64, 0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 1}, ipv6: true, expected: netip.MustParsePrefix("2001:db8:0:1::/64")},
		{name: "Byte count does not match length", value: []byte{24, 10, 1}, err: ErrShapeMismatch},
		{name: "Length over 128", value: []byte{129}, err: ErrShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tlv IPReachabilityTLV
			err := tlv.DecodeFromBytes(tt.value)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			p, err := tlv.NetipPrefix(tt.ipv6)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.Equal(t, &tlv, newIPReachabilityFromPrefix(p))
		})
	}
}

func TestTLVType_String(t *testing.T) {
	assert.Equal(t, "Autonomous System (RFC7752)", TLVAutonomousSystem.String())
	assert.Equal(t, "Unknown TLV (0x270f)", TLVType(9999).String())
}

func TestFlags_String(t *testing.T) {
	assert.Equal(t, "overload|router", (NodeFlagOverload | NodeFlagRouter).String())
	assert.Equal(t, "none", NodeFlags(0).String())
	assert.Equal(t, "ldp|rsvp-te", MPLSProtocolMask(0xc0).String())
	assert.Equal(t, "down", IGPFlagDown.String())
	assert.Equal(t, "shared", LinkProtectionShared.String())
}

func TestSubTLV_String(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{"OSPF area", rawTLV(TLVOSPFAreaID, 0, 0, 0, 1), "0.0.0.1"},
		{"BGP-LS identifier", rawTLV(TLVBGPLSIdentifier, 0, 0, 0, 1), "0x00000001"},
		{"IS-IS router-ID", rawTLV(TLVIGPRouterID, 0, 0, 0, 0, 0, 1, 2), "0000.0000.0001-02"},
		{"OSPF pseudonode", rawTLV(TLVIGPRouterID, 192, 0, 2, 1, 10, 0, 0, 1), "192.0.2.1:10.0.0.1"},
		{"IS-IS area", rawTLV(TLVISISAreaID, 0x49, 0x00, 0x01), "49.0001"},
		{"Node name", rawTLV(TLVNodeName, 'r', '1'), "r1"},
		{"Route type", rawTLV(TLVOSPFRouteType, 2), "Inter-Area"},
		{"Node flags", rawTLV(TLVNodeFlagBits, 0x80), "overload"},
		{"Link identifiers", rawTLV(TLVLinkIdentifiers, 0, 0, 0, 3, 0, 0, 0, 7), "local 3, remote 7"},
		{"SRLG", rawTLV(TLVSRLG, 0, 0, 0, 100, 0, 0, 0, 200), "100, 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeSubTLV(t, tt.raw).String())
		})
	}
}

func TestParseIGPRouterID(t *testing.T) {
	for _, s := range []string{"0000.0000.0001", "0000.0000.0001-02", "192.0.2.1", "192.0.2.1:10.0.0.1"} {
		t.Run(s, func(t *testing.T) {
			id, err := ParseIGPRouterID(s)
			require.NoError(t, err)
			assert.Equal(t, s, id.String())
		})
	}

	_, err := ParseIGPRouterID("2001:db8::1")
	assert.Error(t, err)
	_, err = ParseIGPRouterID("0000.0001")
	assert.Error(t, err)
}

func TestSubTLV_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, (&Uint32TLV{Typ: TLVAutonomousSystem, Value: 65001}).MarshalLogObject(enc))
	assert.Equal(t, uint16(TLVAutonomousSystem), enc.Fields["type"])
	assert.Equal(t, uint32(65001), enc.Fields["value"])

	enc = zapcore.NewMapObjectEncoder()
	require.NoError(t, (&UnknownTLV{Typ: 9999, Length: 3, Value: []byte{1, 2, 3}}).MarshalLogObject(enc))
	assert.Equal(t, uint16(9999), enc.Fields["type"])
	assert.Equal(t, uint16(3), enc.Fields["length"])
	assert.Equal(t, "010203", enc.Fields["value"])

	enc = zapcore.NewMapObjectEncoder()
	require.NoError(t, (&ArrayTLV[uint32]{Typ: TLVSRLG, Values: []uint32{100, 200}}).MarshalLogObject(enc))
	assert.Equal(t, []interface{}{uint64(100), uint64(200)}, enc.Fields["values"])
}
