// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

type IGPRouterIDKind uint8

const (
	IGPRouterIDUnknown IGPRouterIDKind = iota
	ISISNonPseudonode                  // 6-octet ISO system-ID
	ISISPseudonode                     // system-ID of the DIS + PSN identifier
	OSPFNonPseudonode                  // 4-octet router-ID
	OSPFPseudonode                     // DR router-ID + DR interface address (OSPFv2) or interface ID (OSPFv3)
)

func (k IGPRouterIDKind) String() string {
	switch k {
	case ISISNonPseudonode:
		return "IS-IS"
	case ISISPseudonode:
		return "IS-IS pseudonode"
	case OSPFNonPseudonode:
		return "OSPF"
	case OSPFPseudonode:
		return "OSPF pseudonode"
	default:
		return "unknown"
	}
}

// IGPRouterID is the length-discriminated union carried by TLV 515.
// The value is comparable and can be used as a map key.
type IGPRouterID struct {
	Kind         IGPRouterIDKind
	SystemID     [6]byte
	PseudonodeID uint8
	RouterID     netip.Addr
	DRInterface  netip.Addr
}

func igpRouterIDFromBytes(b []byte) (IGPRouterID, error) {
	var id IGPRouterID
	switch len(b) {
	case 4:
		id.Kind = OSPFNonPseudonode
		id.RouterID = netip.AddrFrom4([4]byte(b))
	case 6:
		id.Kind = ISISNonPseudonode
		id.SystemID = [6]byte(b)
	case 7:
		id.Kind = ISISPseudonode
		id.SystemID = [6]byte(b[:6])
		id.PseudonodeID = b[6]
	case 8:
		id.Kind = OSPFPseudonode
		id.RouterID = netip.AddrFrom4([4]byte(b[:4]))
		id.DRInterface = netip.AddrFrom4([4]byte(b[4:8]))
	default:
		return id, fmt.Errorf("%w: IGP router-ID of %d bytes", ErrUnsupportedUnionLength, len(b))
	}
	return id, nil
}

func (id IGPRouterID) Bytes() []byte {
	switch id.Kind {
	case OSPFNonPseudonode:
		return id.RouterID.AsSlice()
	case ISISNonPseudonode:
		return id.SystemID[:]
	case ISISPseudonode:
		return append(id.SystemID[:], id.PseudonodeID)
	case OSPFPseudonode:
		return AppendByteSlices(id.RouterID.AsSlice(), id.DRInterface.AsSlice())
	default:
		return nil
	}
}

// String uses the same notation as gobgp: 0000.0000.0001, 0000.0000.0001-02,
// 192.0.2.1 and 192.0.2.1:198.51.100.1.
func (id IGPRouterID) String() string {
	switch id.Kind {
	case ISISNonPseudonode, ISISPseudonode:
		s := fmt.Sprintf("%s.%s.%s", hex.EncodeToString(id.SystemID[0:2]), hex.EncodeToString(id.SystemID[2:4]), hex.EncodeToString(id.SystemID[4:6]))
		if id.Kind == ISISPseudonode {
			s += fmt.Sprintf("-%02x", id.PseudonodeID)
		}
		return s
	case OSPFNonPseudonode:
		return id.RouterID.String()
	case OSPFPseudonode:
		return id.RouterID.String() + ":" + id.DRInterface.String()
	default:
		return ""
	}
}

func (id IGPRouterID) IsPseudonode() bool {
	return id.Kind == ISISPseudonode || id.Kind == OSPFPseudonode
}

// ParseIGPRouterID is the inverse of IGPRouterID.String.
func ParseIGPRouterID(s string) (IGPRouterID, error) {
	if rid, iface, ok := strings.Cut(s, ":"); ok {
		r, err1 := netip.ParseAddr(rid)
		i, err2 := netip.ParseAddr(iface)
		if err1 != nil || err2 != nil || !r.Is4() || !i.Is4() {
			return IGPRouterID{}, fmt.Errorf("invalid OSPF pseudonode router-ID %q", s)
		}
		return IGPRouterID{Kind: OSPFPseudonode, RouterID: r, DRInterface: i}, nil
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		if !addr.Is4() {
			return IGPRouterID{}, fmt.Errorf("invalid OSPF router-ID %q", s)
		}
		return IGPRouterID{Kind: OSPFNonPseudonode, RouterID: addr}, nil
	}

	sys, psn, pseudo := strings.Cut(s, "-")
	b, err := hex.DecodeString(strings.ReplaceAll(sys, ".", ""))
	if err != nil || len(b) != 6 {
		return IGPRouterID{}, fmt.Errorf("invalid IS-IS system-ID %q", s)
	}
	id := IGPRouterID{Kind: ISISNonPseudonode, SystemID: [6]byte(b)}
	if pseudo {
		n, err := strconv.ParseUint(psn, 16, 8)
		if err != nil {
			return IGPRouterID{}, fmt.Errorf("invalid IS-IS pseudonode ID %q: %w", s, err)
		}
		id.Kind, id.PseudonodeID = ISISPseudonode, uint8(n)
	}
	return id, nil
}

type OSPFRouteType uint8

const (
	OSPFRouteIntraArea OSPFRouteType = iota + 1
	OSPFRouteInterArea
	OSPFRouteExternal1
	OSPFRouteExternal2
	OSPFRouteNSSA1
	OSPFRouteNSSA2
)

func (r OSPFRouteType) String() string {
	switch r {
	case OSPFRouteIntraArea:
		return "Intra-Area"
	case OSPFRouteInterArea:
		return "Inter-Area"
	case OSPFRouteExternal1:
		return "External 1"
	case OSPFRouteExternal2:
		return "External 2"
	case OSPFRouteNSSA1:
		return "NSSA 1"
	case OSPFRouteNSSA2:
		return "NSSA 2"
	default:
		return fmt.Sprintf("Unknown OSPFRouteType (%d)", uint8(r))
	}
}

func (r OSPFRouteType) valid() bool {
	return r >= OSPFRouteIntraArea && r <= OSPFRouteNSSA2
}

// replace stores v in *field and reports whether a value was already there.
func replace[T any](field **T, v T) bool {
	dup := *field != nil
	*field = &v
	return dup
}

func replaceAddr(field *netip.Addr, v netip.Addr) bool {
	dup := field.IsValid()
	*field = v
	return dup
}

func replaceSlice[T any](field *[]T, v []T) bool {
	dup := *field != nil
	*field = v
	return dup
}

func serializeTLVs(tlvs []SubTLV) []byte {
	b := []byte{}
	for _, tlv := range tlvs {
		b = append(b, tlv.Serialize()...)
	}
	return b
}

func appendUnknown(tlvs []SubTLV, unknown []*UnknownTLV) []SubTLV {
	for _, u := range unknown {
		tlvs = append(tlvs, u)
	}
	return tlvs
}

// NodeDescriptor holds the sub-TLVs of a Local or Remote Node Descriptors
// TLV. Nil fields were absent on the wire.
type NodeDescriptor struct {
	ASN         *uint32
	BGPLSID     *uint32
	OSPFAreaID  *uint32
	IGPRouterID *IGPRouterID
	Unknown     []*UnknownTLV
}

func (nd *NodeDescriptor) set(tlv SubTLV) bool {
	switch t := tlv.(type) {
	case *Uint32TLV:
		switch t.Typ {
		case TLVAutonomousSystem:
			return replace(&nd.ASN, t.Value)
		case TLVBGPLSIdentifier:
			return replace(&nd.BGPLSID, t.Value)
		case TLVOSPFAreaID:
			return replace(&nd.OSPFAreaID, t.Value)
		}
	case *IGPRouterIDTLV:
		return replace(&nd.IGPRouterID, t.ID)
	case *UnknownTLV:
		nd.Unknown = append(nd.Unknown, t)
	}
	return false
}

// TLVs returns the sub-TLVs in ascending type order, unknown ones last.
func (nd *NodeDescriptor) TLVs() []SubTLV {
	var tlvs []SubTLV
	if nd.ASN != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVAutonomousSystem, Value: *nd.ASN})
	}
	if nd.BGPLSID != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVBGPLSIdentifier, Value: *nd.BGPLSID})
	}
	if nd.OSPFAreaID != nil {
		tlvs = append(tlvs, &Uint32TLV{Typ: TLVOSPFAreaID, Value: *nd.OSPFAreaID})
	}
	if nd.IGPRouterID != nil {
		tlvs = append(tlvs, &IGPRouterIDTLV{ID: *nd.IGPRouterID})
	}
	return appendUnknown(tlvs, nd.Unknown)
}

// Serialize returns the node descriptor sub-TLV region.
func (nd *NodeDescriptor) Serialize() []byte {
	return serializeTLVs(nd.TLVs())
}

func (nd *NodeDescriptor) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if nd.ASN != nil {
		enc.AddUint32("asn", *nd.ASN)
	}
	if nd.BGPLSID != nil {
		enc.AddUint32("bgplsID", *nd.BGPLSID)
	}
	if nd.OSPFAreaID != nil {
		enc.AddUint32("ospfAreaID", *nd.OSPFAreaID)
	}
	if nd.IGPRouterID != nil {
		enc.AddString("igpRouterID", nd.IGPRouterID.String())
	}
	return nil
}

func (nd *NodeDescriptor) String() string {
	var parts []string
	if nd.ASN != nil {
		parts = append(parts, fmt.Sprintf("AS %d", *nd.ASN))
	}
	if nd.BGPLSID != nil {
		parts = append(parts, fmt.Sprintf("BGP-LS ID 0x%08x", *nd.BGPLSID))
	}
	if nd.OSPFAreaID != nil {
		parts = append(parts, fmt.Sprintf("area %d", *nd.OSPFAreaID))
	}
	if nd.IGPRouterID != nil {
		parts = append(parts, "router "+nd.IGPRouterID.String())
	}
	return strings.Join(parts, ", ")
}

// NodeDescriptorTLV is the 256/257 wrapper whose value is a node
// descriptor sub-TLV region.
type NodeDescriptorTLV struct {
	Typ  TLVType
	Node NodeDescriptor
}

func newNodeDescriptorTLV(t TLVType) SubTLV { return &NodeDescriptorTLV{Typ: t} }

func (tlv *NodeDescriptorTLV) DecodeFromBytes(value []byte) error {
	_, err := NewDecoder(nil).decodeNodeDescriptor(NewCursor(value), &tlv.Node)
	return err
}

func (tlv *NodeDescriptorTLV) Serialize() []byte {
	return tlvBytes(tlv.Typ, tlv.Node.Serialize())
}

func (tlv *NodeDescriptorTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return tlv.Node.MarshalLogObject(enc)
}

func (tlv *NodeDescriptorTLV) Type() TLVType { return tlv.Typ }

func (tlv *NodeDescriptorTLV) Len() uint16 {
	return TLVHeaderLength + uint16(len(tlv.Node.Serialize()))
}

func (tlv *NodeDescriptorTLV) String() string { return tlv.Node.String() }

type LinkIdentifiers struct {
	Local  uint32
	Remote uint32
}

// LinkDescriptor identifies a link by its two end nodes and the link-scoped
// descriptor TLVs. Invalid addresses and nil slices were absent on the wire.
type LinkDescriptor struct {
	LocalNode         NodeDescriptor
	RemoteNode        NodeDescriptor
	LinkIDs           *LinkIdentifiers
	IPv4InterfaceAddr netip.Addr
	IPv4NeighborAddr  netip.Addr
	IPv6InterfaceAddr netip.Addr
	IPv6NeighborAddr  netip.Addr
	MultiTopologyIDs  []uint16
	Unknown           []*UnknownTLV
}

func (ld *LinkDescriptor) set(tlv SubTLV) bool {
	switch t := tlv.(type) {
	case *LinkIdentifiersTLV:
		return replace(&ld.LinkIDs, t.LinkIdentifiers)
	case *AddressTLV:
		switch t.Typ {
		case TLVIPv4InterfaceAddress:
			return replaceAddr(&ld.IPv4InterfaceAddr, t.Addr)
		case TLVIPv4NeighborAddress:
			return replaceAddr(&ld.IPv4NeighborAddr, t.Addr)
		case TLVIPv6InterfaceAddress:
			return replaceAddr(&ld.IPv6InterfaceAddr, t.Addr)
		case TLVIPv6NeighborAddress:
			return replaceAddr(&ld.IPv6NeighborAddr, t.Addr)
		}
	case *ArrayTLV[uint16]:
		return replaceSlice(&ld.MultiTopologyIDs, t.Values)
	case *UnknownTLV:
		ld.Unknown = append(ld.Unknown, t)
	}
	return false
}

func (ld *LinkDescriptor) TLVs() []SubTLV {
	tlvs := []SubTLV{
		&NodeDescriptorTLV{Typ: TLVLocalNodeDescriptor, Node: ld.LocalNode},
		&NodeDescriptorTLV{Typ: TLVRemoteNodeDescriptor, Node: ld.RemoteNode},
	}
	if ld.LinkIDs != nil {
		tlvs = append(tlvs, &LinkIdentifiersTLV{LinkIdentifiers: *ld.LinkIDs})
	}
	for _, a := range []struct {
		typ  TLVType
		addr netip.Addr
	}{
		{TLVIPv4InterfaceAddress, ld.IPv4InterfaceAddr},
		{TLVIPv4NeighborAddress, ld.IPv4NeighborAddr},
		{TLVIPv6InterfaceAddress, ld.IPv6InterfaceAddr},
		{TLVIPv6NeighborAddress, ld.IPv6NeighborAddr},
	} {
		if a.addr.IsValid() {
			tlvs = append(tlvs, &AddressTLV{Typ: a.typ, Addr: a.addr})
		}
	}
	if ld.MultiTopologyIDs != nil {
		tlvs = append(tlvs, &ArrayTLV[uint16]{Typ: TLVMultiTopologyID, Values: ld.MultiTopologyIDs})
	}
	return appendUnknown(tlvs, ld.Unknown)
}

func (ld *LinkDescriptor) Serialize() []byte {
	return serializeTLVs(ld.TLVs())
}

func (ld *LinkDescriptor) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if err := enc.AddObject("localNode", &ld.LocalNode); err != nil {
		return err
	}
	if err := enc.AddObject("remoteNode", &ld.RemoteNode); err != nil {
		return err
	}
	if ld.LinkIDs != nil {
		enc.AddUint32("linkLocalID", ld.LinkIDs.Local)
		enc.AddUint32("linkRemoteID", ld.LinkIDs.Remote)
	}
	if ld.IPv4InterfaceAddr.IsValid() {
		enc.AddString("ipv4InterfaceAddr", ld.IPv4InterfaceAddr.String())
	}
	if ld.IPv4NeighborAddr.IsValid() {
		enc.AddString("ipv4NeighborAddr", ld.IPv4NeighborAddr.String())
	}
	if ld.IPv6InterfaceAddr.IsValid() {
		enc.AddString("ipv6InterfaceAddr", ld.IPv6InterfaceAddr.String())
	}
	if ld.IPv6NeighborAddr.IsValid() {
		enc.AddString("ipv6NeighborAddr", ld.IPv6NeighborAddr.String())
	}
	return nil
}

// PrefixDescriptor identifies a prefix originated by LocalNode.
type PrefixDescriptor struct {
	LocalNode        NodeDescriptor
	MultiTopologyIDs []uint16
	OSPFRouteType    OSPFRouteType // zero when absent
	Prefix           netip.Prefix  // invalid when absent
	Unknown          []*UnknownTLV
}

func (pd *PrefixDescriptor) set(tlv SubTLV, ipv6 bool) (bool, error) {
	switch t := tlv.(type) {
	case *ArrayTLV[uint16]:
		return replaceSlice(&pd.MultiTopologyIDs, t.Values), nil
	case *Uint8TLV:
		rt := OSPFRouteType(t.Value)
		if !rt.valid() {
			return false, fmt.Errorf("%w: %s", ErrShapeMismatch, rt)
		}
		dup := pd.OSPFRouteType != 0
		pd.OSPFRouteType = rt
		return dup, nil
	case *IPReachabilityTLV:
		p, err := t.NetipPrefix(ipv6)
		if err != nil {
			return false, err
		}
		dup := pd.Prefix.IsValid()
		pd.Prefix = p
		return dup, nil
	case *UnknownTLV:
		pd.Unknown = append(pd.Unknown, t)
	}
	return false, nil
}

func (pd *PrefixDescriptor) TLVs() []SubTLV {
	tlvs := []SubTLV{&NodeDescriptorTLV{Typ: TLVLocalNodeDescriptor, Node: pd.LocalNode}}
	if pd.MultiTopologyIDs != nil {
		tlvs = append(tlvs, &ArrayTLV[uint16]{Typ: TLVMultiTopologyID, Values: pd.MultiTopologyIDs})
	}
	if pd.OSPFRouteType != 0 {
		tlvs = append(tlvs, &Uint8TLV{Typ: TLVOSPFRouteType, Value: uint8(pd.OSPFRouteType)})
	}
	if pd.Prefix.IsValid() {
		tlvs = append(tlvs, newIPReachabilityFromPrefix(pd.Prefix))
	}
	return appendUnknown(tlvs, pd.Unknown)
}

func (pd *PrefixDescriptor) Serialize() []byte {
	return serializeTLVs(pd.TLVs())
}

func (pd *PrefixDescriptor) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if err := enc.AddObject("localNode", &pd.LocalNode); err != nil {
		return err
	}
	if pd.OSPFRouteType != 0 {
		enc.AddString("ospfRouteType", pd.OSPFRouteType.String())
	}
	if pd.Prefix.IsValid() {
		enc.AddString("prefix", pd.Prefix.String())
	}
	return nil
}
