// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"fmt"

	"go.uber.org/zap"
)

// Decoder walks BGP-LS TLV regions. It keeps no state between calls.
type Decoder struct {
	logger *zap.Logger

	// OnUnknownTLV, when set, is called for every TLV skipped as unknown.
	OnUnknownTLV func(t TLVType)
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// setFunc stores a decoded TLV in the record being built and reports
// whether it replaced an earlier instance.
type setFunc func(SubTLV) (bool, error)

// walk reads TLVs until the region is consumed. Per-field errors are
// returned as warnings; the first structural error stops the walk.
func (d *Decoder) walk(c *Cursor, r region, set setFunc) ([]*TLVError, error) {
	var warnings []*TLVError
	for !c.Done() {
		start := c.Offset()
		h, sub, err := c.Next()
		if err != nil {
			return warnings, err
		}
		warn := func(err error) {
			warnings = append(warnings, &TLVError{Type: h.Type, Offset: start, Err: err})
		}

		shape, ok := lookupShape(r, h.Type)
		if !ok {
			u := &UnknownTLV{Typ: h.Type}
			_ = u.DecodeFromBytes(sub.Bytes())
			d.logger.Debug("skip unknown TLV",
				zap.Stringer("region", r), zap.Int("offset", start), zap.Object("tlv", u))
			if d.OnUnknownTLV != nil {
				d.OnUnknownTLV(h.Type)
			}
			if _, err := set(u); err != nil {
				warn(err)
			}
			continue
		}
		if err := shape.check(int(h.Length)); err != nil {
			warn(err)
			continue
		}

		tlv := shape.new(h.Type)
		if nd, ok := tlv.(*NodeDescriptorTLV); ok {
			w, err := d.decodeNodeDescriptor(sub, &nd.Node)
			warnings = append(warnings, w...)
			if err != nil {
				return warnings, err
			}
		} else if err := tlv.DecodeFromBytes(sub.Bytes()); err != nil {
			warn(err)
			continue
		}

		dup, err := set(tlv)
		if err != nil {
			warn(err)
			continue
		}
		if dup {
			warn(ErrDuplicateTLV)
		}
	}
	return warnings, nil
}

func (d *Decoder) decodeNodeDescriptor(c *Cursor, nd *NodeDescriptor) ([]*TLVError, error) {
	return d.walk(c, regionNodeDescriptor, func(tlv SubTLV) (bool, error) {
		return nd.set(tlv), nil
	})
}

// DecodeNodeDescriptor decodes the body of a Local or Remote Node
// Descriptors TLV.
func (d *Decoder) DecodeNodeDescriptor(c *Cursor) (NodeDescriptor, []*TLVError, error) {
	var nd NodeDescriptor
	warnings, err := d.decodeNodeDescriptor(c, &nd)
	return nd, warnings, err
}

func missing(t TLVType, offset int) *TLVError {
	return &TLVError{Type: t, Offset: offset, Err: ErrMissingDescriptor}
}

// decodeNodeNLRI decodes the descriptor region of a Node NLRI. Unknown
// TLVs at this level are returned separately since the NLRI owns them.
func (d *Decoder) decodeNodeNLRI(c *Cursor) (NodeDescriptor, []*UnknownTLV, []*TLVError, error) {
	var (
		nd      NodeDescriptor
		unknown []*UnknownTLV
		local   bool
	)
	start := c.Offset()
	warnings, err := d.walk(c, regionNodeNLRI, func(tlv SubTLV) (bool, error) {
		switch t := tlv.(type) {
		case *NodeDescriptorTLV:
			dup := local
			nd, local = t.Node, true
			return dup, nil
		case *UnknownTLV:
			unknown = append(unknown, t)
		}
		return false, nil
	})
	if err == nil && !local {
		warnings = append(warnings, missing(TLVLocalNodeDescriptor, start))
	}
	return nd, unknown, warnings, err
}

// DecodeLinkDescriptor decodes the descriptor region of a Link NLRI: the
// Local and Remote Node Descriptors TLVs followed by link-scoped TLVs in
// any order.
func (d *Decoder) DecodeLinkDescriptor(c *Cursor) (LinkDescriptor, []*TLVError, error) {
	var (
		ld            LinkDescriptor
		local, remote bool
	)
	start := c.Offset()
	warnings, err := d.walk(c, regionLinkNLRI, func(tlv SubTLV) (bool, error) {
		if t, ok := tlv.(*NodeDescriptorTLV); ok {
			var dup bool
			switch t.Typ {
			case TLVLocalNodeDescriptor:
				dup, ld.LocalNode, local = local, t.Node, true
			case TLVRemoteNodeDescriptor:
				dup, ld.RemoteNode, remote = remote, t.Node, true
			}
			return dup, nil
		}
		return ld.set(tlv), nil
	})
	if err != nil {
		return ld, warnings, err
	}
	if !local {
		warnings = append(warnings, missing(TLVLocalNodeDescriptor, start))
	}
	if !remote {
		warnings = append(warnings, missing(TLVRemoteNodeDescriptor, start))
	}
	return ld, warnings, nil
}

// DecodePrefixDescriptor decodes the descriptor region of an IPv4 or IPv6
// Prefix NLRI.
func (d *Decoder) DecodePrefixDescriptor(c *Cursor, ipv6 bool) (PrefixDescriptor, []*TLVError, error) {
	var (
		pd    PrefixDescriptor
		local bool
	)
	start := c.Offset()
	warnings, err := d.walk(c, regionPrefixNLRI, func(tlv SubTLV) (bool, error) {
		if t, ok := tlv.(*NodeDescriptorTLV); ok {
			dup := local
			pd.LocalNode, local = t.Node, true
			return dup, nil
		}
		return pd.set(tlv, ipv6)
	})
	if err == nil && !local {
		warnings = append(warnings, missing(TLVLocalNodeDescriptor, start))
	}
	return pd, warnings, err
}

// decodeNLRIBody decodes protocol-id, identifier and descriptors of one
// NLRI whose type and length were already read.
func (d *Decoder) decodeNLRIBody(t NLRIType, c *Cursor) (NLRI, []*TLVError, error) {
	pid, err := c.ReadUint8()
	if err != nil {
		return nil, nil, err
	}
	id, err := c.ReadUint64()
	if err != nil {
		return nil, nil, err
	}

	switch t {
	case NLRITypeNode:
		nd, unknown, warnings, err := d.decodeNodeNLRI(c)
		return &NodeNLRI{ProtocolID: ProtocolID(pid), Identifier: id, Node: nd, Unknown: unknown}, warnings, err
	case NLRITypeLink:
		ld, warnings, err := d.DecodeLinkDescriptor(c)
		return &LinkNLRI{ProtocolID: ProtocolID(pid), Identifier: id, Link: ld}, warnings, err
	default:
		pd, warnings, err := d.DecodePrefixDescriptor(c, t == NLRITypeIPv6Prefix)
		return &PrefixNLRI{NLRIType: t, ProtocolID: ProtocolID(pid), Identifier: id, Prefix: pd}, warnings, err
	}
}

// DecodeNLRIs decodes the Link-State NLRI field of an MP_REACH_NLRI or
// MP_UNREACH_NLRI attribute. A structural error is reported as an Invalid
// Network Field NOTIFICATION; the NLRIs before it are still returned.
func (d *Decoder) DecodeNLRIs(b []byte) ([]NLRI, Result) {
	c := NewCursor(b)
	var (
		nlris    []NLRI
		warnings []*TLVError
	)
	for !c.Done() {
		start := c.Offset()
		h, body, err := c.Next()
		if err != nil {
			return nlris, newResult(warnings, err, NotifErrSubcodeInvalidNetworkField)
		}
		t := NLRIType(h.Type)
		if !t.valid() {
			d.logger.Debug("skip unknown NLRI type", zap.Uint16("type", uint16(t)), zap.Int("offset", start))
			warnings = append(warnings, &TLVError{Offset: start, Err: fmt.Errorf("%w: %d", ErrUnknownNLRIType, uint16(t))})
			continue
		}
		nlri, w, err := d.decodeNLRIBody(t, body)
		warnings = append(warnings, w...)
		if err != nil {
			return nlris, newResult(warnings, err, NotifErrSubcodeInvalidNetworkField)
		}
		nlris = append(nlris, nlri)
	}
	return nlris, newResult(warnings, nil, 0)
}

// DecodeAttribute decodes the value of the BGP-LS path attribute (type 99 or 29)
// announced with NLRIs of type t. A structural error is reported as an
// Optional Attribute Error NOTIFICATION and no attribute is returned.
func (d *Decoder) DecodeAttribute(b []byte, t NLRIType) (LinkStateAttribute, Result) {
	var (
		attr LinkStateAttribute
		r    region
		set  func(SubTLV) bool
	)
	switch t {
	case NLRITypeNode:
		a := &NodeAttribute{}
		attr, r, set = a, regionNodeAttribute, a.set
	case NLRITypeLink:
		a := &LinkAttribute{}
		attr, r, set = a, regionLinkAttribute, a.set
	case NLRITypeIPv4Prefix, NLRITypeIPv6Prefix:
		a := &PrefixAttribute{}
		attr, r, set = a, regionPrefixAttribute, a.set
	default:
		err := fmt.Errorf("%w: %d", ErrUnknownNLRIType, uint16(t))
		return nil, newResult(nil, err, NotifErrSubcodeMalformedAttr)
	}

	warnings, err := d.walk(NewCursor(b), r, func(tlv SubTLV) (bool, error) {
		return set(tlv), nil
	})
	if err != nil {
		return nil, newResult(warnings, err, NotifErrSubcodeOptionalAttrError)
	}
	return attr, newResult(warnings, nil, 0)
}
