// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

type TLVType uint16

// NLRI descriptor TLV types (RFC 7752 section 3.2)
const (
	TLVLocalNodeDescriptor  TLVType = 256
	TLVRemoteNodeDescriptor TLVType = 257
	TLVLinkIdentifiers      TLVType = 258
	TLVIPv4InterfaceAddress TLVType = 259
	TLVIPv4NeighborAddress  TLVType = 260
	TLVIPv6InterfaceAddress TLVType = 261
	TLVIPv6NeighborAddress  TLVType = 262
	TLVMultiTopologyID      TLVType = 263
	TLVOSPFRouteType        TLVType = 264
	TLVIPReachability       TLVType = 265
)

// Node descriptor sub-TLV types
const (
	TLVAutonomousSystem TLVType = 512
	TLVBGPLSIdentifier  TLVType = 513
	TLVOSPFAreaID       TLVType = 514
	TLVIGPRouterID      TLVType = 515
)

// Link-State attribute TLV types (RFC 7752 section 3.3)
const (
	TLVNodeFlagBits           TLVType = 1024
	TLVOpaqueNodeAttribute    TLVType = 1025
	TLVNodeName               TLVType = 1026
	TLVISISAreaID             TLVType = 1027
	TLVIPv4LocalRouterID      TLVType = 1028
	TLVIPv6LocalRouterID      TLVType = 1029
	TLVIPv4RemoteRouterID     TLVType = 1030
	TLVIPv6RemoteRouterID     TLVType = 1031
	TLVAdminGroup             TLVType = 1088
	TLVMaxLinkBandwidth       TLVType = 1089
	TLVMaxReservableBandwidth TLVType = 1090
	TLVUnreservedBandwidth    TLVType = 1091
	TLVTEDefaultMetric        TLVType = 1092
	TLVLinkProtectionType     TLVType = 1093
	TLVMPLSProtocolMask       TLVType = 1094
	TLVIGPMetric              TLVType = 1095
	TLVSRLG                   TLVType = 1096
	TLVOpaqueLinkAttribute    TLVType = 1097
	TLVLinkName               TLVType = 1098
	TLVIGPFlags               TLVType = 1152
	TLVRouteTag               TLVType = 1153
	TLVExtendedRouteTag       TLVType = 1154
	TLVPrefixMetric           TLVType = 1155
	TLVOSPFForwardingAddress  TLVType = 1156
	TLVOpaquePrefixAttribute  TLVType = 1157
)

var tlvDescriptions = map[TLVType]struct {
	Description string
	Reference   string
}{
	TLVLocalNodeDescriptor:    {"Local Node Descriptors", "RFC7752"},
	TLVRemoteNodeDescriptor:   {"Remote Node Descriptors", "RFC7752"},
	TLVLinkIdentifiers:        {"Link Local/Remote Identifiers", "RFC5307"},
	TLVIPv4InterfaceAddress:   {"IPv4 interface address", "RFC5305"},
	TLVIPv4NeighborAddress:    {"IPv4 neighbor address", "RFC5305"},
	TLVIPv6InterfaceAddress:   {"IPv6 interface address", "RFC6119"},
	TLVIPv6NeighborAddress:    {"IPv6 neighbor address", "RFC6119"},
	TLVMultiTopologyID:        {"Multi-Topology Identifier", "RFC7752"},
	TLVOSPFRouteType:          {"OSPF Route Type", "RFC7752"},
	TLVIPReachability:         {"IP Reachability Information", "RFC7752"},
	TLVAutonomousSystem:       {"Autonomous System", "RFC7752"},
	TLVBGPLSIdentifier:        {"BGP-LS Identifier", "RFC7752"},
	TLVOSPFAreaID:             {"OSPF Area-ID", "RFC7752"},
	TLVIGPRouterID:            {"IGP Router-ID", "RFC7752"},
	TLVNodeFlagBits:           {"Node Flag Bits", "RFC7752"},
	TLVOpaqueNodeAttribute:    {"Opaque Node Attribute", "RFC7752"},
	TLVNodeName:               {"Node Name", "RFC5301"},
	TLVISISAreaID:             {"IS-IS Area Identifier", "RFC1195"},
	TLVIPv4LocalRouterID:      {"IPv4 Router-ID of Local Node", "RFC5305"},
	TLVIPv6LocalRouterID:      {"IPv6 Router-ID of Local Node", "RFC6119"},
	TLVIPv4RemoteRouterID:     {"IPv4 Router-ID of Remote Node", "RFC5305"},
	TLVIPv6RemoteRouterID:     {"IPv6 Router-ID of Remote Node", "RFC6119"},
	TLVAdminGroup:             {"Administrative group (color)", "RFC5305"},
	TLVMaxLinkBandwidth:       {"Maximum link bandwidth", "RFC5305"},
	TLVMaxReservableBandwidth: {"Max. reservable link bandwidth", "RFC5305"},
	TLVUnreservedBandwidth:    {"Unreserved bandwidth", "RFC5305"},
	TLVTEDefaultMetric:        {"TE Default Metric", "RFC7752"},
	TLVLinkProtectionType:     {"Link Protection Type", "RFC5307"},
	TLVMPLSProtocolMask:       {"MPLS Protocol Mask", "RFC7752"},
	TLVIGPMetric:              {"IGP Metric", "RFC7752"},
	TLVSRLG:                   {"Shared Risk Link Group", "RFC7752"},
	TLVOpaqueLinkAttribute:    {"Opaque Link Attribute", "RFC7752"},
	TLVLinkName:               {"Link Name", "RFC7752"},
	TLVIGPFlags:               {"IGP Flags", "RFC7752"},
	TLVRouteTag:               {"Route Tag", "RFC5130"},
	TLVExtendedRouteTag:       {"Extended Tag", "RFC5130"},
	TLVPrefixMetric:           {"Prefix Metric", "RFC5305"},
	TLVOSPFForwardingAddress:  {"OSPF Forwarding Address", "RFC2328"},
	TLVOpaquePrefixAttribute:  {"Opaque Prefix Attribute", "RFC7752"},
}

func (t TLVType) String() string {
	if desc, ok := tlvDescriptions[t]; ok {
		return fmt.Sprintf("%s (%s)", desc.Description, desc.Reference)
	}
	return fmt.Sprintf("Unknown TLV (0x%04x)", uint16(t))
}

// Shape is the length discipline a registered TLV value follows.
type Shape uint8

const (
	ShapeScalar Shape = iota // fixed-width number
	ShapeFixed               // fixed-size blob: addresses, identifier pairs, bandwidth table
	ShapeArray               // length / element size elements
	ShapeUnion               // layout chosen by the length
	ShapeOpaque              // any length
	ShapeNested              // value is itself a sub-TLV region
)

type tlvShape struct {
	shape   Shape
	size    int   // exact length for ShapeScalar and ShapeFixed, element size for ShapeArray
	lengths []int // accepted lengths for ShapeUnion
	new     func(TLVType) SubTLV
}

func (s tlvShape) check(length int) error {
	switch s.shape {
	case ShapeScalar, ShapeFixed:
		if length != s.size {
			return fmt.Errorf("%w: expected %d bytes, but got %d bytes", ErrShapeMismatch, s.size, length)
		}
	case ShapeArray:
		if length%s.size != 0 {
			return fmt.Errorf("%w: %d bytes with %d-byte elements", ErrNonMultipleLength, length, s.size)
		}
	case ShapeUnion:
		if !slices.Contains(s.lengths, length) {
			return fmt.Errorf("%w: %d bytes, expected one of %v", ErrUnsupportedUnionLength, length, s.lengths)
		}
	}
	return nil
}

var tlvRegistry = map[TLVType]tlvShape{
	TLVLocalNodeDescriptor:  {shape: ShapeNested, new: newNodeDescriptorTLV},
	TLVRemoteNodeDescriptor: {shape: ShapeNested, new: newNodeDescriptorTLV},
	TLVLinkIdentifiers:      {shape: ShapeFixed, size: 8, new: newLinkIdentifiersTLV},
	TLVIPv4InterfaceAddress: {shape: ShapeFixed, size: 4, new: newAddressTLV},
	TLVIPv4NeighborAddress:  {shape: ShapeFixed, size: 4, new: newAddressTLV},
	TLVIPv6InterfaceAddress: {shape: ShapeFixed, size: 16, new: newAddressTLV},
	TLVIPv6NeighborAddress:  {shape: ShapeFixed, size: 16, new: newAddressTLV},
	TLVMultiTopologyID:      {shape: ShapeArray, size: 2, new: newArrayTLV[uint16]},
	TLVOSPFRouteType:        {shape: ShapeScalar, size: 1, new: newUint8TLV},
	TLVIPReachability:       {shape: ShapeOpaque, new: newIPReachabilityTLV},

	TLVAutonomousSystem: {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVBGPLSIdentifier:  {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVOSPFAreaID:       {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVIGPRouterID:      {shape: ShapeUnion, lengths: []int{4, 6, 7, 8}, new: newIGPRouterIDTLV},

	TLVNodeFlagBits:        {shape: ShapeScalar, size: 1, new: newUint8TLV},
	TLVOpaqueNodeAttribute: {shape: ShapeOpaque, new: newOpaqueTLV},
	TLVNodeName:            {shape: ShapeOpaque, new: newOpaqueTLV},
	TLVISISAreaID:          {shape: ShapeOpaque, new: newOpaqueTLV},
	TLVIPv4LocalRouterID:   {shape: ShapeFixed, size: 4, new: newAddressTLV},
	TLVIPv6LocalRouterID:   {shape: ShapeFixed, size: 16, new: newAddressTLV},
	TLVIPv4RemoteRouterID:  {shape: ShapeFixed, size: 4, new: newAddressTLV},
	TLVIPv6RemoteRouterID:  {shape: ShapeFixed, size: 16, new: newAddressTLV},

	TLVAdminGroup:             {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVMaxLinkBandwidth:       {shape: ShapeScalar, size: 4, new: newFloat32TLV},
	TLVMaxReservableBandwidth: {shape: ShapeScalar, size: 4, new: newFloat32TLV},
	TLVUnreservedBandwidth:    {shape: ShapeFixed, size: 32, new: newUnreservedBandwidthTLV},
	TLVTEDefaultMetric:        {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVLinkProtectionType:     {shape: ShapeUnion, lengths: []int{1, 2}, new: newLinkProtectionTLV},
	TLVMPLSProtocolMask:       {shape: ShapeScalar, size: 1, new: newUint8TLV},
	TLVIGPMetric:              {shape: ShapeUnion, lengths: []int{1, 2, 3}, new: newIGPMetricTLV},
	TLVSRLG:                   {shape: ShapeArray, size: 4, new: newArrayTLV[uint32]},
	TLVOpaqueLinkAttribute:    {shape: ShapeOpaque, new: newOpaqueTLV},
	TLVLinkName:               {shape: ShapeOpaque, new: newOpaqueTLV},

	TLVIGPFlags:              {shape: ShapeScalar, size: 1, new: newUint8TLV},
	TLVRouteTag:              {shape: ShapeArray, size: 4, new: newArrayTLV[uint32]},
	TLVExtendedRouteTag:      {shape: ShapeArray, size: 8, new: newArrayTLV[uint64]},
	TLVPrefixMetric:          {shape: ShapeScalar, size: 4, new: newUint32TLV},
	TLVOSPFForwardingAddress: {shape: ShapeUnion, lengths: []int{4, 16}, new: newAddressTLV},
	TLVOpaquePrefixAttribute: {shape: ShapeOpaque, new: newOpaqueTLV},
}

// region names the sub-TLV region being walked; a type registered globally
// is only recognised inside the regions that list it.
type region uint8

const (
	regionNodeNLRI region = iota
	regionLinkNLRI
	regionPrefixNLRI
	regionNodeDescriptor
	regionNodeAttribute
	regionLinkAttribute
	regionPrefixAttribute
)

var regionTLVs = map[region][]TLVType{
	regionNodeNLRI: {TLVLocalNodeDescriptor},
	regionLinkNLRI: {
		TLVLocalNodeDescriptor, TLVRemoteNodeDescriptor, TLVLinkIdentifiers,
		TLVIPv4InterfaceAddress, TLVIPv4NeighborAddress, TLVIPv6InterfaceAddress,
		TLVIPv6NeighborAddress, TLVMultiTopologyID,
	},
	regionPrefixNLRI:     {TLVLocalNodeDescriptor, TLVMultiTopologyID, TLVOSPFRouteType, TLVIPReachability},
	regionNodeDescriptor: {TLVAutonomousSystem, TLVBGPLSIdentifier, TLVOSPFAreaID, TLVIGPRouterID},
	regionNodeAttribute: {
		TLVMultiTopologyID, TLVNodeFlagBits, TLVOpaqueNodeAttribute, TLVNodeName,
		TLVISISAreaID, TLVIPv4LocalRouterID, TLVIPv6LocalRouterID,
	},
	regionLinkAttribute: {
		TLVIPv4LocalRouterID, TLVIPv6LocalRouterID, TLVIPv4RemoteRouterID, TLVIPv6RemoteRouterID,
		TLVAdminGroup, TLVMaxLinkBandwidth, TLVMaxReservableBandwidth, TLVUnreservedBandwidth,
		TLVTEDefaultMetric, TLVLinkProtectionType, TLVMPLSProtocolMask, TLVIGPMetric,
		TLVSRLG, TLVOpaqueLinkAttribute, TLVLinkName,
	},
	regionPrefixAttribute: {
		TLVIGPFlags, TLVRouteTag, TLVExtendedRouteTag, TLVPrefixMetric,
		TLVOSPFForwardingAddress, TLVOpaquePrefixAttribute,
	},
}

func (r region) String() string {
	switch r {
	case regionNodeNLRI:
		return "node-nlri"
	case regionLinkNLRI:
		return "link-nlri"
	case regionPrefixNLRI:
		return "prefix-nlri"
	case regionNodeDescriptor:
		return "node-descriptor"
	case regionNodeAttribute:
		return "node-attribute"
	case regionLinkAttribute:
		return "link-attribute"
	case regionPrefixAttribute:
		return "prefix-attribute"
	default:
		return "region(" + strconv.Itoa(int(r)) + ")"
	}
}

// lookupShape returns the registry entry for t when t is valid inside r.
func lookupShape(r region, t TLVType) (tlvShape, bool) {
	if !slices.Contains(regionTLVs[r], t) {
		return tlvShape{}, false
	}
	shape, ok := tlvRegistry[t]
	return shape, ok
}

// SubTLV is one decoded TLV. DecodeFromBytes receives the value only;
// Serialize returns the full TLV including its header.
type SubTLV interface {
	DecodeFromBytes(value []byte) error
	Serialize() []byte
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() TLVType
	Len() uint16 // Total length of Type, Length, and Value
	String() string
}

func lengthMismatch(expected, got int, name string) error {
	return fmt.Errorf("%w: expected %d bytes, but got %d bytes for %s", ErrShapeMismatch, expected, got, name)
}

type Uint8TLV struct {
	Typ   TLVType
	Value uint8
}

func newUint8TLV(t TLVType) SubTLV { return &Uint8TLV{Typ: t} }

func (tlv *Uint8TLV) DecodeFromBytes(value []byte) error {
	if len(value) != 1 {
		return lengthMismatch(1, len(value), tlv.Typ.String())
	}
	tlv.Value = value[0]
	return nil
}

func (tlv *Uint8TLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, []byte{tlv.Value})
}

func (tlv *Uint8TLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddString("value", tlv.String())
	return nil
}

func (tlv *Uint8TLV) Type() TLVType { return tlv.Typ }

func (tlv *Uint8TLV) Len() uint16 { return TLVHeaderLength + 1 }

func (tlv *Uint8TLV) String() string {
	switch tlv.Typ {
	case TLVNodeFlagBits:
		return NodeFlags(tlv.Value).String()
	case TLVMPLSProtocolMask:
		return MPLSProtocolMask(tlv.Value).String()
	case TLVIGPFlags:
		return IGPFlags(tlv.Value).String()
	case TLVOSPFRouteType:
		return OSPFRouteType(tlv.Value).String()
	default:
		return strconv.Itoa(int(tlv.Value))
	}
}

type Uint32TLV struct {
	Typ   TLVType
	Value uint32
}

func newUint32TLV(t TLVType) SubTLV { return &Uint32TLV{Typ: t} }

func (tlv *Uint32TLV) DecodeFromBytes(value []byte) error {
	if len(value) != 4 {
		return lengthMismatch(4, len(value), tlv.Typ.String())
	}
	tlv.Value = binary.BigEndian.Uint32(value)
	return nil
}

func (tlv *Uint32TLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, Uint32ToByteSlice(tlv.Value))
}

func (tlv *Uint32TLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddUint32("value", tlv.Value)
	return nil
}

func (tlv *Uint32TLV) Type() TLVType { return tlv.Typ }

func (tlv *Uint32TLV) Len() uint16 { return TLVHeaderLength + 4 }

func (tlv *Uint32TLV) String() string {
	switch tlv.Typ {
	case TLVAdminGroup, TLVBGPLSIdentifier:
		return fmt.Sprintf("0x%08x", tlv.Value)
	case TLVOSPFAreaID:
		return netip.AddrFrom4([4]byte(Uint32ToByteSlice(tlv.Value))).String()
	default:
		return strconv.FormatUint(uint64(tlv.Value), 10)
	}
}

// Float32TLV holds a bandwidth in bytes per second.
type Float32TLV struct {
	Typ   TLVType
	Value float32
}

func newFloat32TLV(t TLVType) SubTLV { return &Float32TLV{Typ: t} }

func (tlv *Float32TLV) DecodeFromBytes(value []byte) error {
	if len(value) != 4 {
		return lengthMismatch(4, len(value), tlv.Typ.String())
	}
	tlv.Value = ByteSliceToFloat32(value)
	return nil
}

func (tlv *Float32TLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, Float32ToByteSlice(tlv.Value))
}

func (tlv *Float32TLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddFloat32("value", tlv.Value)
	return nil
}

func (tlv *Float32TLV) Type() TLVType { return tlv.Typ }

func (tlv *Float32TLV) Len() uint16 { return TLVHeaderLength + 4 }

func (tlv *Float32TLV) String() string {
	return strconv.FormatFloat(float64(tlv.Value), 'g', -1, 32) + " B/s"
}

// AddressTLV is an IPv4 or IPv6 address; the registry fixes which one a
// type carries, except for the OSPF forwarding address where the length
// decides.
type AddressTLV struct {
	Typ  TLVType
	Addr netip.Addr
}

func newAddressTLV(t TLVType) SubTLV { return &AddressTLV{Typ: t} }

func (tlv *AddressTLV) DecodeFromBytes(value []byte) error {
	addr, ok := netip.AddrFromSlice(value)
	if !ok {
		return fmt.Errorf("%w: %d bytes is not an IPv4 or IPv6 address for %s", ErrUnsupportedUnionLength, len(value), tlv.Typ)
	}
	tlv.Addr = addr
	return nil
}

func (tlv *AddressTLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, tlv.Addr.AsSlice())
}

func (tlv *AddressTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddString("address", tlv.Addr.String())
	return nil
}

func (tlv *AddressTLV) Type() TLVType { return tlv.Typ }

func (tlv *AddressTLV) Len() uint16 { return TLVHeaderLength + uint16(tlv.Addr.BitLen()/8) }

func (tlv *AddressTLV) String() string { return tlv.Addr.String() }

type LinkIdentifiersTLV struct {
	LinkIdentifiers
}

func newLinkIdentifiersTLV(TLVType) SubTLV { return &LinkIdentifiersTLV{} }

func (tlv *LinkIdentifiersTLV) DecodeFromBytes(value []byte) error {
	if len(value) != 8 {
		return lengthMismatch(8, len(value), "LinkIdentifiers")
	}
	tlv.Local = binary.BigEndian.Uint32(value[0:4])
	tlv.Remote = binary.BigEndian.Uint32(value[4:8])
	return nil
}

func (tlv *LinkIdentifiersTLV) Serialize() []byte {
	return tlvBytes(TLVLinkIdentifiers, AppendByteSlices(
		Uint32ToByteSlice(tlv.Local),
		Uint32ToByteSlice(tlv.Remote),
	))
}

func (tlv *LinkIdentifiersTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("local", tlv.Local)
	enc.AddUint32("remote", tlv.Remote)
	return nil
}

func (tlv *LinkIdentifiersTLV) Type() TLVType { return TLVLinkIdentifiers }

func (tlv *LinkIdentifiersTLV) Len() uint16 { return TLVHeaderLength + 8 }

func (tlv *LinkIdentifiersTLV) String() string {
	return fmt.Sprintf("local %d, remote %d", tlv.Local, tlv.Remote)
}

type arrayElem interface {
	uint16 | uint32 | uint64
}

func elemSize[T arrayElem]() int {
	var zero T
	return binary.Size(zero)
}

// ArrayTLV is a count-derived array: Length / element size elements.
type ArrayTLV[T arrayElem] struct {
	Typ    TLVType
	Values []T
}

func newArrayTLV[T arrayElem](t TLVType) SubTLV { return &ArrayTLV[T]{Typ: t} }

func (tlv *ArrayTLV[T]) DecodeFromBytes(value []byte) error {
	size := elemSize[T]()
	if len(value)%size != 0 {
		return fmt.Errorf("%w: %d bytes with %d-byte elements for %s", ErrNonMultipleLength, len(value), size, tlv.Typ)
	}
	tlv.Values = make([]T, 0, len(value)/size)
	for i := 0; i < len(value); i += size {
		switch size {
		case 2:
			tlv.Values = append(tlv.Values, T(binary.BigEndian.Uint16(value[i:])))
		case 4:
			tlv.Values = append(tlv.Values, T(binary.BigEndian.Uint32(value[i:])))
		case 8:
			tlv.Values = append(tlv.Values, T(binary.BigEndian.Uint64(value[i:])))
		}
	}
	return nil
}

func (tlv *ArrayTLV[T]) Serialize() []byte {
	size := elemSize[T]()
	value := make([]byte, len(tlv.Values)*size)
	for i, v := range tlv.Values {
		switch size {
		case 2:
			binary.BigEndian.PutUint16(value[i*size:], uint16(v))
		case 4:
			binary.BigEndian.PutUint32(value[i*size:], uint32(v))
		case 8:
			binary.BigEndian.PutUint64(value[i*size:], uint64(v))
		}
	}
	return tlvBytes(tlv.Typ, value)
}

func (tlv *ArrayTLV[T]) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	return enc.AddArray("values", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, v := range tlv.Values {
			ae.AppendUint64(uint64(v))
		}
		return nil
	}))
}

func (tlv *ArrayTLV[T]) Type() TLVType { return tlv.Typ }

func (tlv *ArrayTLV[T]) Len() uint16 {
	return TLVHeaderLength + uint16(len(tlv.Values)*elemSize[T]())
}

func (tlv *ArrayTLV[T]) String() string {
	s := make([]string, 0, len(tlv.Values))
	for _, v := range tlv.Values {
		s = append(s, strconv.FormatUint(uint64(v), 10))
	}
	return strings.Join(s, ", ")
}

// UnreservedBandwidthTLV holds one bandwidth per priority level 0-7.
type UnreservedBandwidthTLV struct {
	Values [8]float32
}

func newUnreservedBandwidthTLV(TLVType) SubTLV { return &UnreservedBandwidthTLV{} }

func (tlv *UnreservedBandwidthTLV) DecodeFromBytes(value []byte) error {
	if len(value) != 32 {
		return lengthMismatch(32, len(value), "UnreservedBandwidth")
	}
	for i := range tlv.Values {
		tlv.Values[i] = ByteSliceToFloat32(value[i*4:])
	}
	return nil
}

func (tlv *UnreservedBandwidthTLV) Serialize() []byte {
	value := make([]byte, 0, 32)
	for _, v := range tlv.Values {
		value = append(value, Float32ToByteSlice(v)...)
	}
	return tlvBytes(TLVUnreservedBandwidth, value)
}

func (tlv *UnreservedBandwidthTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("unreservedBandwidth", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, v := range tlv.Values {
			ae.AppendFloat32(v)
		}
		return nil
	}))
}

func (tlv *UnreservedBandwidthTLV) Type() TLVType { return TLVUnreservedBandwidth }

func (tlv *UnreservedBandwidthTLV) Len() uint16 { return TLVHeaderLength + 32 }

func (tlv *UnreservedBandwidthTLV) String() string {
	s := make([]string, 0, len(tlv.Values))
	for i, v := range tlv.Values {
		s = append(s, fmt.Sprintf("[%d] %g", i, v))
	}
	return strings.Join(s, " ")
}

// MaxIGPMetric is the largest metric the 3-byte form carries.
const MaxIGPMetric = 0xffffff

// IGPMetricTLV is 1 byte for IS-IS narrow metrics, 2 for OSPF and 3 for
// IS-IS wide metrics. The value is widened to 32 bits.
type IGPMetricTLV struct {
	Value uint32
	Width uint8
}

func newIGPMetricTLV(TLVType) SubTLV { return &IGPMetricTLV{} }

func NewIGPMetricTLV(value uint32, width uint8) *IGPMetricTLV {
	return &IGPMetricTLV{Value: value, Width: width}
}

func (tlv *IGPMetricTLV) DecodeFromBytes(value []byte) error {
	if len(value) < 1 || len(value) > 3 {
		return fmt.Errorf("%w: IGP metric of %d bytes", ErrUnsupportedUnionLength, len(value))
	}
	var v uint32
	for _, b := range value {
		v = v<<8 | uint32(b)
	}
	tlv.Value, tlv.Width = v, uint8(len(value))
	return nil
}

// width grows Width until Value fits. Only the low 3 bytes of a value
// above MaxIGPMetric are encoded.
func (tlv *IGPMetricTLV) width() int {
	w := int(tlv.Width)
	if w < 1 || w > 3 {
		w = 3
	}
	for w < 3 && tlv.Value>>(8*w) != 0 {
		w++
	}
	return w
}

func (tlv *IGPMetricTLV) Serialize() []byte {
	w := tlv.width()
	return tlvBytes(TLVIGPMetric, Uint32ToByteSlice(tlv.Value)[4-w:])
}

func (tlv *IGPMetricTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("igpMetric", tlv.Value)
	return nil
}

func (tlv *IGPMetricTLV) Type() TLVType { return TLVIGPMetric }

func (tlv *IGPMetricTLV) Len() uint16 { return TLVHeaderLength + uint16(tlv.width()) }

func (tlv *IGPMetricTLV) String() string { return strconv.FormatUint(uint64(tlv.Value), 10) }

// LinkProtectionTLV carries the RFC 5307 protection capability octet. A
// one-octet value is accepted on decode; the two-octet form (capabilities,
// reserved) is always emitted.
type LinkProtectionTLV struct {
	Value LinkProtectionType
}

func newLinkProtectionTLV(TLVType) SubTLV { return &LinkProtectionTLV{} }

func (tlv *LinkProtectionTLV) DecodeFromBytes(value []byte) error {
	if len(value) != 1 && len(value) != 2 {
		return fmt.Errorf("%w: link protection type of %d bytes", ErrUnsupportedUnionLength, len(value))
	}
	tlv.Value = LinkProtectionType(value[0])
	return nil
}

func (tlv *LinkProtectionTLV) Serialize() []byte {
	return tlvBytes(TLVLinkProtectionType, []byte{uint8(tlv.Value), 0})
}

func (tlv *LinkProtectionTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("linkProtection", tlv.Value.String())
	return nil
}

func (tlv *LinkProtectionTLV) Type() TLVType { return TLVLinkProtectionType }

func (tlv *LinkProtectionTLV) Len() uint16 { return TLVHeaderLength + 2 }

func (tlv *LinkProtectionTLV) String() string { return tlv.Value.String() }

type IGPRouterIDTLV struct {
	ID IGPRouterID
}

func newIGPRouterIDTLV(TLVType) SubTLV { return &IGPRouterIDTLV{} }

func (tlv *IGPRouterIDTLV) DecodeFromBytes(value []byte) error {
	id, err := igpRouterIDFromBytes(value)
	if err != nil {
		return err
	}
	tlv.ID = id
	return nil
}

func (tlv *IGPRouterIDTLV) Serialize() []byte {
	return tlvBytes(TLVIGPRouterID, tlv.ID.Bytes())
}

func (tlv *IGPRouterIDTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("igpRouterID", tlv.ID.String())
	return nil
}

func (tlv *IGPRouterIDTLV) Type() TLVType { return TLVIGPRouterID }

func (tlv *IGPRouterIDTLV) Len() uint16 { return TLVHeaderLength + uint16(len(tlv.ID.Bytes())) }

func (tlv *IGPRouterIDTLV) String() string { return tlv.ID.String() }

// IPReachabilityTLV keeps the prefix as it appeared on the wire: a length
// octet followed by the minimum number of octets holding that many bits.
type IPReachabilityTLV struct {
	PrefixLength uint8
	Prefix       []byte
}

func newIPReachabilityTLV(TLVType) SubTLV { return &IPReachabilityTLV{} }

func (tlv *IPReachabilityTLV) DecodeFromBytes(value []byte) error {
	if len(value) < 1 {
		return lengthMismatch(1, 0, "IPReachability")
	}
	pl := value[0]
	if pl > 128 {
		return fmt.Errorf("%w: prefix length %d", ErrShapeMismatch, pl)
	}
	if need := (int(pl) + 7) / 8; len(value)-1 != need {
		return lengthMismatch(need+1, len(value), "IPReachability")
	}
	tlv.PrefixLength = pl
	tlv.Prefix = slices.Clone(value[1:])
	return nil
}

func (tlv *IPReachabilityTLV) Serialize() []byte {
	return tlvBytes(TLVIPReachability, AppendByteSlices([]byte{tlv.PrefixLength}, tlv.Prefix))
}

func (tlv *IPReachabilityTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("prefix", tlv.String())
	return nil
}

func (tlv *IPReachabilityTLV) Type() TLVType { return TLVIPReachability }

func (tlv *IPReachabilityTLV) Len() uint16 { return TLVHeaderLength + 1 + uint16(len(tlv.Prefix)) }

func (tlv *IPReachabilityTLV) String() string {
	if p, err := tlv.NetipPrefix(tlv.PrefixLength > 32); err == nil {
		return p.String()
	}
	return fmt.Sprintf("%x/%d", tlv.Prefix, tlv.PrefixLength)
}

// NetipPrefix expands the wire prefix to a full address of the given
// family. Host bits present on the wire are kept.
func (tlv *IPReachabilityTLV) NetipPrefix(ipv6 bool) (netip.Prefix, error) {
	if ipv6 {
		var a [16]byte
		copy(a[:], tlv.Prefix)
		return netip.PrefixFrom(netip.AddrFrom16(a), int(tlv.PrefixLength)), nil
	}
	if tlv.PrefixLength > 32 || len(tlv.Prefix) > 4 {
		return netip.Prefix{}, fmt.Errorf("%w: prefix length %d for IPv4", ErrShapeMismatch, tlv.PrefixLength)
	}
	var a [4]byte
	copy(a[:], tlv.Prefix)
	return netip.PrefixFrom(netip.AddrFrom4(a), int(tlv.PrefixLength)), nil
}

func newIPReachabilityFromPrefix(p netip.Prefix) *IPReachabilityTLV {
	n := (p.Bits() + 7) / 8
	return &IPReachabilityTLV{
		PrefixLength: uint8(p.Bits()),
		Prefix:       slices.Clone(p.Addr().AsSlice()[:n]),
	}
}

// OpaqueTLV is an uninterpreted value owned by the decoded record.
type OpaqueTLV struct {
	Typ   TLVType
	Value []byte
}

func newOpaqueTLV(t TLVType) SubTLV { return &OpaqueTLV{Typ: t} }

func (tlv *OpaqueTLV) DecodeFromBytes(value []byte) error {
	tlv.Value = slices.Clone(value)
	if tlv.Value == nil {
		tlv.Value = []byte{}
	}
	return nil
}

func (tlv *OpaqueTLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, tlv.Value)
}

func (tlv *OpaqueTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddString("value", tlv.String())
	return nil
}

func (tlv *OpaqueTLV) Type() TLVType { return tlv.Typ }

func (tlv *OpaqueTLV) Len() uint16 { return TLVHeaderLength + uint16(len(tlv.Value)) }

func (tlv *OpaqueTLV) String() string {
	switch tlv.Typ {
	case TLVNodeName, TLVLinkName:
		return string(tlv.Value)
	case TLVISISAreaID:
		return FormatISISArea(tlv.Value)
	default:
		return hex.EncodeToString(tlv.Value)
	}
}

// FormatISISArea renders an area address as 49.0001 style groups.
func FormatISISArea(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(hex.EncodeToString(b[:1]))
	for i := 1; i < len(b); i += 2 {
		sb.WriteByte('.')
		sb.WriteString(hex.EncodeToString(b[i:min(i+2, len(b))]))
	}
	return sb.String()
}

// UnknownTLV preserves a TLV the registry does not know in the region it
// appeared in.
type UnknownTLV struct {
	Typ    TLVType
	Length uint16
	Value  []byte
}

func (tlv *UnknownTLV) DecodeFromBytes(value []byte) error {
	tlv.Length = uint16(len(value))
	tlv.Value = slices.Clone(value)
	return nil
}

func (tlv *UnknownTLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, tlv.Value)
}

func (tlv *UnknownTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(tlv.Typ))
	enc.AddUint16("length", tlv.Length)
	enc.AddString("value", hex.EncodeToString(tlv.Value))
	return nil
}

func (tlv *UnknownTLV) Type() TLVType { return tlv.Typ }

func (tlv *UnknownTLV) Len() uint16 { return TLVHeaderLength + tlv.Length }

func (tlv *UnknownTLV) String() string {
	return fmt.Sprintf("%d bytes", tlv.Length)
}
