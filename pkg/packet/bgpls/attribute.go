// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"encoding/hex"
	"net/netip"
	"strings"

	"go.uber.org/zap/zapcore"
)

// BGP path attribute types of the BGP-LS attribute. 99 is the early draft
// code point still emitted by some speakers; IANA assigned 29 (RFC 7752).
const (
	PathAttrTypeLinkState     uint8 = 99
	PathAttrTypeLinkStateIANA uint8 = 29
)

// IsLinkStateAttrType reports whether t carries a BGP-LS attribute.
func IsLinkStateAttrType(t uint8) bool {
	return t == PathAttrTypeLinkState || t == PathAttrTypeLinkStateIANA
}

type flagName[T Bitwise] struct {
	bit  T
	name string
}

func flagString[T Bitwise](v T, names []flagName[T]) string {
	var set []string
	for _, f := range names {
		if IsBitSet(v, f.bit) {
			set = append(set, f.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, "|")
}

type NodeFlags uint8

const (
	NodeFlagOverload NodeFlags = 0x80
	NodeFlagAttached NodeFlags = 0x40
	NodeFlagExternal NodeFlags = 0x20
	NodeFlagABR      NodeFlags = 0x10
	NodeFlagRouter   NodeFlags = 0x08
	NodeFlagV6       NodeFlags = 0x04
)

func (f NodeFlags) String() string {
	return flagString(f, []flagName[NodeFlags]{
		{NodeFlagOverload, "overload"},
		{NodeFlagAttached, "attached"},
		{NodeFlagExternal, "external"},
		{NodeFlagABR, "abr"},
		{NodeFlagRouter, "router"},
		{NodeFlagV6, "v6"},
	})
}

type MPLSProtocolMask uint8

const (
	MPLSProtocolLDP    MPLSProtocolMask = 0x80
	MPLSProtocolRSVPTE MPLSProtocolMask = 0x40
)

func (m MPLSProtocolMask) String() string {
	return flagString(m, []flagName[MPLSProtocolMask]{
		{MPLSProtocolLDP, "ldp"},
		{MPLSProtocolRSVPTE, "rsvp-te"},
	})
}

type IGPFlags uint8

const (
	IGPFlagDown          IGPFlags = 0x80
	IGPFlagNoUnicast     IGPFlags = 0x40
	IGPFlagLocalAddress  IGPFlags = 0x20
	IGPFlagPropagateNSSA IGPFlags = 0x10
)

func (f IGPFlags) String() string {
	return flagString(f, []flagName[IGPFlags]{
		{IGPFlagDown, "down"},
		{IGPFlagNoUnicast, "no-unicast"},
		{IGPFlagLocalAddress, "local-address"},
		{IGPFlagPropagateNSSA, "propagate-nssa"},
	})
}

// LinkProtectionType is the RFC 5307 protection capability bit vector.
type LinkProtectionType uint16

const (
	LinkProtectionExtraTraffic    LinkProtectionType = 0x01
	LinkProtectionUnprotected     LinkProtectionType = 0x02
	LinkProtectionShared          LinkProtectionType = 0x04
	LinkProtectionDedicated1To1   LinkProtectionType = 0x08
	LinkProtectionDedicated1Plus1 LinkProtectionType = 0x10
	LinkProtectionEnhanced        LinkProtectionType = 0x20
)

func (p LinkProtectionType) String() string {
	return flagString(p, []flagName[LinkProtectionType]{
		{LinkProtectionExtraTraffic, "extra-traffic"},
		{LinkProtectionUnprotected, "unprotected"},
		{LinkProtectionShared, "shared"},
		{LinkProtectionDedicated1To1, "dedicated-1:1"},
		{LinkProtectionDedicated1Plus1, "dedicated-1+1"},
		{LinkProtectionEnhanced, "enhanced"},
	})
}

// LinkStateAttribute is the decoded value of the BGP-LS path attribute. The
// concrete type is *NodeAttribute, *LinkAttribute or *PrefixAttribute,
// matching the NLRI the attribute was announced with.
type LinkStateAttribute interface {
	TLVs() []SubTLV
	Serialize() []byte
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	isLinkStateAttribute()
}

type NodeAttribute struct {
	MultiTopologyIDs  []uint16
	Flags             *NodeFlags
	OpaqueProperties  []byte
	Name              []byte
	ISISAreaID        []byte
	LocalIPv4RouterID netip.Addr
	LocalIPv6RouterID netip.Addr
	Unknown           []*UnknownTLV
}

func (*NodeAttribute) isLinkStateAttribute() {}

func (a *NodeAttribute) set(tlv SubTLV) bool {
	switch t := tlv.(type) {
	case *ArrayTLV[uint16]:
		return replaceSlice(&a.MultiTopologyIDs, t.Values)
	case *Uint8TLV:
		return replace(&a.Flags, NodeFlags(t.Value))
	case *OpaqueTLV:
		switch t.Typ {
		case TLVOpaqueNodeAttribute:
			return replaceSlice(&a.OpaqueProperties, t.Value)
		case TLVNodeName:
			return replaceSlice(&a.Name, t.Value)
		case TLVISISAreaID:
			return replaceSlice(&a.ISISAreaID, t.Value)
		}
	case *AddressTLV:
		switch t.Typ {
		case TLVIPv4LocalRouterID:
			return replaceAddr(&a.LocalIPv4RouterID, t.Addr)
		case TLVIPv6LocalRouterID:
			return replaceAddr(&a.LocalIPv6RouterID, t.Addr)
		}
	case *UnknownTLV:
		a.Unknown = append(a.Unknown, t)
	}
	return false
}

func (a *NodeAttribute) TLVs() []SubTLV {
	var tlvs []SubTLV
	if a.MultiTopologyIDs != nil {
		tlvs = append(tlvs, &ArrayTLV[uint16]{Typ: TLVMultiTopologyID, Values: a.MultiTopologyIDs})
	}
	if a.Flags != nil {
		tlvs = append(tlvs, &Uint8TLV{Typ: TLVNodeFlagBits, Value: uint8(*a.Flags)})
	}
	if a.OpaqueProperties != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVOpaqueNodeAttribute, Value: a.OpaqueProperties})
	}
	if a.Name != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVNodeName, Value: a.Name})
	}
	if a.ISISAreaID != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVISISAreaID, Value: a.ISISAreaID})
	}
	if a.LocalIPv4RouterID.IsValid() {
		tlvs = append(tlvs, &AddressTLV{Typ: TLVIPv4LocalRouterID, Addr: a.LocalIPv4RouterID})
	}
	if a.LocalIPv6RouterID.IsValid() {
		tlvs = append(tlvs, &AddressTLV{Typ: TLVIPv6LocalRouterID, Addr: a.LocalIPv6RouterID})
	}
	return appendUnknown(tlvs, a.Unknown)
}

func (a *NodeAttribute) Serialize() []byte {
	return serializeTLVs(a.TLVs())
}

func (a *NodeAttribute) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if a.Name != nil {
		enc.AddString("name", string(a.Name))
	}
	if a.Flags != nil {
		enc.AddString("flags", a.Flags.String())
	}
	if a.ISISAreaID != nil {
		enc.AddString("isisAreaID", FormatISISArea(a.ISISAreaID))
	}
	if a.LocalIPv4RouterID.IsValid() {
		enc.AddString("localIPv4RouterID", a.LocalIPv4RouterID.String())
	}
	if a.LocalIPv6RouterID.IsValid() {
		enc.AddString("localIPv6RouterID", a.LocalIPv6RouterID.String())
	}
	return nil
}

type LinkAttribute struct {
	LocalIPv4RouterID      netip.Addr
	LocalIPv6RouterID      netip.Addr
	RemoteIPv4RouterID     netip.Addr
	RemoteIPv6RouterID     netip.Addr
	AdminGroup             *uint32
	MaxLinkBandwidth       *float32
	MaxReservableBandwidth *float32
	UnreservedBandwidth    *[8]float32
	TEDefaultMetric        *uint32
	ProtectionType         *LinkProtectionType
	MPLSProtocolMask       *MPLSProtocolMask
	IGPMetric              *uint32
	IGPMetricWidth         uint8 // wire width of IGPMetric in bytes, 0 encodes as 3
	SRLGs                  []uint32
	OpaqueAttribute        []byte
	Name                   []byte
	Unknown                []*UnknownTLV
}

func (*LinkAttribute) isLinkStateAttribute() {}

func (a *LinkAttribute) set(tlv SubTLV) bool {
	switch t := tlv.(type) {
	case *AddressTLV:
		switch t.Typ {
		case TLVIPv4LocalRouterID:
			return replaceAddr(&a.LocalIPv4RouterID, t.Addr)
		case TLVIPv6LocalRouterID:
			return replaceAddr(&a.LocalIPv6RouterID, t.Addr)
		case TLVIPv4RemoteRouterID:
			return replaceAddr(&a.RemoteIPv4RouterID, t.Addr)
		case TLVIPv6RemoteRouterID:
			return replaceAddr(&a.RemoteIPv6RouterID, t.Addr)
		}
	case *Uint32TLV:
		switch t.Typ {
		case TLVAdminGroup:
			return replace(&a.AdminGroup, t.Value)
		case TLVTEDefaultMetric:
			return replace(&a.TEDefaultMetric, t.Value)
		}
	case *Float32TLV:
		switch t.Typ {
		case TLVMaxLinkBandwidth:
			return replace(&a.MaxLinkBandwidth, t.Value)
		case TLVMaxReservableBandwidth:
			return replace(&a.MaxReservableBandwidth, t.Value)
		}
	case *UnreservedBandwidthTLV:
		return replace(&a.UnreservedBandwidth, t.Values)
	case *LinkProtectionTLV:
		return replace(&a.ProtectionType, t.Value)
	case *Uint8TLV:
		return replace(&a.MPLSProtocolMask, MPLSProtocolMask(t.Value))
	case *IGPMetricTLV:
		a.IGPMetricWidth = t.Width
		return replace(&a.IGPMetric, t.Value)
	case *ArrayTLV[uint32]:
		return replaceSlice(&a.SRLGs, t.Values)
	case *OpaqueTLV:
		switch t.Typ {
		case TLVOpaqueLinkAttribute:
			return replaceSlice(&a.OpaqueAttribute, t.Value)
		case TLVLinkName:
			return replaceSlice(&a.Name, t.Value)
		}
	case *UnknownTLV:
		a.Unknown = append(a.Unknown, t)
	}
	return false
}

func (a *LinkAttribute) TLVs() []SubTLV {
	var tlvs []SubTLV
	for _, r := range []struct {
		typ  TLVType
		addr netip.Addr
	}{
		{TLVIPv4LocalRouterID, a.LocalIPv4RouterID},
		{TLVIPv6LocalRouterID, a.LocalIPv6RouterID},
		{TLVIPv4RemoteRouterID, a.RemoteIPv4RouterID},
		{TLVIPv6RemoteRouterID, a.RemoteIPv6RouterID},
	} {
		if r.addr.IsValid() {
			tlvs = append(tlvs, &AddressTLV{Typ: r.typ, Addr: r.addr})
		}
	}
	if a.AdminGroup != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVAdminGroup, Value: *a.AdminGroup})
	}
	if a.MaxLinkBandwidth != nil {
		tlvs = append(tlvs, &Float32TLV{Typ: TLVMaxLinkBandwidth, Value: *a.MaxLinkBandwidth})
	}
	if a.MaxReservableBandwidth != nil {
		tlvs = append(tlvs, &Float32TLV{Typ: TLVMaxReservableBandwidth, Value: *a.MaxReservableBandwidth})
	}
	if a.UnreservedBandwidth != nil {
		tlvs = append(tlvs, &UnreservedBandwidthTLV{Values: *a.UnreservedBandwidth})
	}
	if a.TEDefaultMetric != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVTEDefaultMetric, Value: *a.TEDefaultMetric})
	}
	if a.ProtectionType != nil {
		tlvs = append(tlvs, &LinkProtectionTLV{Value: *a.ProtectionType})
	}
	if a.MPLSProtocolMask != nil {
		tlvs = append(tlvs, &Uint8TLV{Typ: TLVMPLSProtocolMask, Value: uint8(*a.MPLSProtocolMask)})
	}
	if a.IGPMetric != nil {
		tlvs = append(tlvs, NewIGPMetricTLV(*a.IGPMetric, a.IGPMetricWidth))
	}
	if a.SRLGs != nil {
		tlvs = append(tlvs, &ArrayTLV[uint32]{Typ: TLVSRLG, Values: a.SRLGs})
	}
	if a.OpaqueAttribute != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVOpaqueLinkAttribute, Value: a.OpaqueAttribute})
	}
	if a.Name != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVLinkName, Value: a.Name})
	}
	return appendUnknown(tlvs, a.Unknown)
}

func (a *LinkAttribute) Serialize() []byte {
	return serializeTLVs(a.TLVs())
}

func (a *LinkAttribute) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if a.Name != nil {
		enc.AddString("name", string(a.Name))
	}
	if a.IGPMetric != nil {
		enc.AddUint32("igpMetric", *a.IGPMetric)
	}
	if a.TEDefaultMetric != nil {
		enc.AddUint32("teMetric", *a.TEDefaultMetric)
	}
	if a.AdminGroup != nil {
		enc.AddUint32("adminGroup", *a.AdminGroup)
	}
	if a.MaxLinkBandwidth != nil {
		enc.AddFloat32("maxLinkBandwidth", *a.MaxLinkBandwidth)
	}
	if a.MaxReservableBandwidth != nil {
		enc.AddFloat32("maxReservableBandwidth", *a.MaxReservableBandwidth)
	}
	if a.ProtectionType != nil {
		enc.AddString("protection", a.ProtectionType.String())
	}
	if len(a.SRLGs) > 0 {
		if err := enc.AddArray("srlg", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for _, s := range a.SRLGs {
				ae.AppendUint32(s)
			}
			return nil
		})); err != nil {
			return err
		}
	}
	return nil
}

type PrefixAttribute struct {
	IGPFlags          *IGPFlags
	RouteTags         []uint32
	ExtendedRouteTags []uint64
	Metric            *uint32
	ForwardingAddress netip.Addr
	OpaqueAttribute   []byte
	Unknown           []*UnknownTLV
}

func (*PrefixAttribute) isLinkStateAttribute() {}

func (a *PrefixAttribute) set(tlv SubTLV) bool {
	switch t := tlv.(type) {
	case *Uint8TLV:
		return replace(&a.IGPFlags, IGPFlags(t.Value))
	case *ArrayTLV[uint32]:
		return replaceSlice(&a.RouteTags, t.Values)
	case *ArrayTLV[uint64]:
		return replaceSlice(&a.ExtendedRouteTags, t.Values)
	case *Uint32TLV:
		return replace(&a.Metric, t.Value)
	case *AddressTLV:
		return replaceAddr(&a.ForwardingAddress, t.Addr)
	case *OpaqueTLV:
		return replaceSlice(&a.OpaqueAttribute, t.Value)
	case *UnknownTLV:
		a.Unknown = append(a.Unknown, t)
	}
	return false
}

func (a *PrefixAttribute) TLVs() []SubTLV {
	var tlvs []SubTLV
	if a.IGPFlags != nil {
		tlvs = append(tlvs, &Uint8TLV{Typ: TLVIGPFlags, Value: uint8(*a.IGPFlags)})
	}
	if a.RouteTags != nil {
		tlvs = append(tlvs, &ArrayTLV[uint32]{Typ: TLVRouteTag, Values: a.RouteTags})
	}
	if a.ExtendedRouteTags != nil {
		tlvs = append(tlvs, &ArrayTLV[uint64]{Typ: TLVExtendedRouteTag, Values: a.ExtendedRouteTags})
	}
	if a.Metric != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVPrefixMetric, Value: *a.Metric})
	}
	if a.ForwardingAddress.IsValid() {
		tlvs = append(tlvs, &AddressTLV{Typ: TLVOSPFForwardingAddress, Addr: a.ForwardingAddress})
	}
	if a.OpaqueAttribute != nil {
		tlvs = append(tlvs, &OpaqueTLV{Typ: TLVOpaquePrefixAttribute, Value: a.OpaqueAttribute})
	}
	return appendUnknown(tlvs, a.Unknown)
}

func (a *PrefixAttribute) Serialize() []byte {
	return serializeTLVs(a.TLVs())
}

func (a *PrefixAttribute) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if a.IGPFlags != nil {
		enc.AddString("igpFlags", a.IGPFlags.String())
	}
	if a.Metric != nil {
		enc.AddUint32("metric", *a.Metric)
	}
	if a.ForwardingAddress.IsValid() {
		enc.AddString("forwardingAddress", a.ForwardingAddress.String())
	}
	if a.OpaqueAttribute != nil {
		enc.AddString("opaque", hex.EncodeToString(a.OpaqueAttribute))
	}
	return nil
}
