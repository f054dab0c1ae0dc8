// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// AFI/SAFI of the BGP-LS address family (RFC 7752 section 3)
const (
	AFILinkState  uint16 = 16388
	SAFILinkState uint8  = 71
)

type NLRIType uint16

const (
	NLRITypeNode       NLRIType = 1
	NLRITypeLink       NLRIType = 2
	NLRITypeIPv4Prefix NLRIType = 3
	NLRITypeIPv6Prefix NLRIType = 4
)

// NLRITypes lists every NLRI type in wire order.
var NLRITypes = []NLRIType{NLRITypeNode, NLRITypeLink, NLRITypeIPv4Prefix, NLRITypeIPv6Prefix}

func (t NLRIType) valid() bool {
	return t >= NLRITypeNode && t <= NLRITypeIPv6Prefix
}

func (t NLRIType) String() string {
	switch t {
	case NLRITypeNode:
		return "node"
	case NLRITypeLink:
		return "link"
	case NLRITypeIPv4Prefix:
		return "ipv4-prefix"
	case NLRITypeIPv6Prefix:
		return "ipv6-prefix"
	default:
		return fmt.Sprintf("NLRIType(%d)", uint16(t))
	}
}

type ProtocolID uint8

const (
	ProtocolISISL1 ProtocolID = 1
	ProtocolISISL2 ProtocolID = 2
	ProtocolOSPFv2 ProtocolID = 3
	ProtocolDirect ProtocolID = 4
	ProtocolStatic ProtocolID = 5
	ProtocolOSPFv3 ProtocolID = 6
)

func (p ProtocolID) String() string {
	switch p {
	case ProtocolISISL1:
		return "IS-IS Level 1"
	case ProtocolISISL2:
		return "IS-IS Level 2"
	case ProtocolOSPFv2:
		return "OSPFv2"
	case ProtocolDirect:
		return "Direct"
	case ProtocolStatic:
		return "Static configuration"
	case ProtocolOSPFv3:
		return "OSPFv3"
	default:
		return fmt.Sprintf("Unknown ProtocolID (%d)", uint8(p))
	}
}

// DescriptorKey identifies an NLRI inside its type. It is the canonical
// encoding of protocol-id, identifier and descriptor TLVs, so two NLRIs
// describing the same object yield the same key.
type DescriptorKey string

// NLRI is one decoded Link-State NLRI.
type NLRI interface {
	Type() NLRIType
	Key() DescriptorKey
	Serialize() []byte // NLRI type, length and body
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	TLVs() []SubTLV
	String() string
}

func nlriBody(pid ProtocolID, id uint64, descriptors []byte) []byte {
	return AppendByteSlices([]byte{uint8(pid)}, Uint64ToByteSlice(id), descriptors)
}

func marshalNLRIHeader(enc zapcore.ObjectEncoder, t NLRIType, pid ProtocolID, id uint64) {
	enc.AddString("nlriType", t.String())
	enc.AddString("protocolID", pid.String())
	enc.AddUint64("identifier", id)
}

type NodeNLRI struct {
	ProtocolID ProtocolID
	Identifier uint64
	Node       NodeDescriptor
	Unknown    []*UnknownTLV
}

func (n *NodeNLRI) Type() NLRIType { return NLRITypeNode }

func (n *NodeNLRI) TLVs() []SubTLV {
	return appendUnknown([]SubTLV{&NodeDescriptorTLV{Typ: TLVLocalNodeDescriptor, Node: n.Node}}, n.Unknown)
}

func (n *NodeNLRI) body() []byte {
	return nlriBody(n.ProtocolID, n.Identifier, serializeTLVs(n.TLVs()))
}

func (n *NodeNLRI) Key() DescriptorKey { return DescriptorKey(n.body()) }

func (n *NodeNLRI) Serialize() []byte {
	return tlvBytes(TLVType(NLRITypeNode), n.body())
}

func (n *NodeNLRI) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	marshalNLRIHeader(enc, NLRITypeNode, n.ProtocolID, n.Identifier)
	return enc.AddObject("localNode", &n.Node)
}

func (n *NodeNLRI) String() string {
	return fmt.Sprintf("node [%s] %s", n.ProtocolID, n.Node.String())
}

type LinkNLRI struct {
	ProtocolID ProtocolID
	Identifier uint64
	Link       LinkDescriptor
}

func (l *LinkNLRI) Type() NLRIType { return NLRITypeLink }

func (l *LinkNLRI) TLVs() []SubTLV { return l.Link.TLVs() }

func (l *LinkNLRI) body() []byte {
	return nlriBody(l.ProtocolID, l.Identifier, l.Link.Serialize())
}

func (l *LinkNLRI) Key() DescriptorKey { return DescriptorKey(l.body()) }

func (l *LinkNLRI) Serialize() []byte {
	return tlvBytes(TLVType(NLRITypeLink), l.body())
}

func (l *LinkNLRI) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	marshalNLRIHeader(enc, NLRITypeLink, l.ProtocolID, l.Identifier)
	return l.Link.MarshalLogObject(enc)
}

func (l *LinkNLRI) String() string {
	s := fmt.Sprintf("link [%s] {%s} -> {%s}", l.ProtocolID, l.Link.LocalNode.String(), l.Link.RemoteNode.String())
	if l.Link.IPv4InterfaceAddr.IsValid() {
		s += " " + l.Link.IPv4InterfaceAddr.String()
	}
	if l.Link.IPv6InterfaceAddr.IsValid() {
		s += " " + l.Link.IPv6InterfaceAddr.String()
	}
	return s
}

type PrefixNLRI struct {
	NLRIType   NLRIType // NLRITypeIPv4Prefix or NLRITypeIPv6Prefix
	ProtocolID ProtocolID
	Identifier uint64
	Prefix     PrefixDescriptor
}

func (p *PrefixNLRI) Type() NLRIType { return p.NLRIType }

func (p *PrefixNLRI) TLVs() []SubTLV { return p.Prefix.TLVs() }

func (p *PrefixNLRI) body() []byte {
	return nlriBody(p.ProtocolID, p.Identifier, p.Prefix.Serialize())
}

func (p *PrefixNLRI) Key() DescriptorKey { return DescriptorKey(p.body()) }

func (p *PrefixNLRI) Serialize() []byte {
	return tlvBytes(TLVType(p.NLRIType), p.body())
}

func (p *PrefixNLRI) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	marshalNLRIHeader(enc, p.NLRIType, p.ProtocolID, p.Identifier)
	return p.Prefix.MarshalLogObject(enc)
}

func (p *PrefixNLRI) String() string {
	return fmt.Sprintf("prefix [%s] {%s} %s", p.ProtocolID, p.Prefix.LocalNode.String(), p.Prefix.Prefix)
}
