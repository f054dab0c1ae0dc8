// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package transcode

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

// TELink is a traffic-engineering link as reported by an OSPF or IS-IS
// instance. Router-IDs use the IGPRouterID string notation; bandwidths are
// in bytes per second.
type TELink struct {
	Protocol        string    `yaml:"protocol"`
	Identifier      uint64    `yaml:"identifier"`
	ASN             uint32    `yaml:"asn"`
	AreaID          *uint32   `yaml:"areaID"`
	LocalRouterID   string    `yaml:"localRouterID"`
	RemoteRouterID  string    `yaml:"remoteRouterID"`
	LocalLinkID     uint32    `yaml:"localLinkID"`
	RemoteLinkID    uint32    `yaml:"remoteLinkID"`
	LocalAddr       string    `yaml:"localAddr"`
	RemoteAddr      string    `yaml:"remoteAddr"`
	AdminGroup      *uint32   `yaml:"adminGroup"`
	MaxBandwidth    *float32  `yaml:"maxBandwidth"`
	MaxRsvBandwidth *float32  `yaml:"maxReservableBandwidth"`
	UnrsvBandwidth  []float32 `yaml:"unreservedBandwidth"`
	TEMetric        *uint32   `yaml:"teMetric"`
	IGPMetric       *uint32   `yaml:"igpMetric"`
	SRLGs           []uint32  `yaml:"srlg"`
	Name            string    `yaml:"name"`
}

var protocolNames = map[string]bgpls.ProtocolID{
	"isis-l1": bgpls.ProtocolISISL1,
	"isis-l2": bgpls.ProtocolISISL2,
	"ospfv2":  bgpls.ProtocolOSPFv2,
	"ospfv3":  bgpls.ProtocolOSPFv3,
}

func ParseProtocol(s string) (bgpls.ProtocolID, error) {
	if p, ok := protocolNames[strings.ToLower(s)]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unsupported IGP protocol %q", s)
}

func parseAddr(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	return netip.ParseAddr(s)
}

func (l *TELink) node(routerID string, ospf bool) (bgpls.NodeDescriptor, error) {
	id, err := bgpls.ParseIGPRouterID(routerID)
	if err != nil {
		return bgpls.NodeDescriptor{}, err
	}
	if isOSPFID := id.Kind == bgpls.OSPFNonPseudonode || id.Kind == bgpls.OSPFPseudonode; isOSPFID != ospf {
		return bgpls.NodeDescriptor{}, fmt.Errorf("%s router-ID %q used with %s", id.Kind, routerID, l.Protocol)
	}
	asn := l.ASN
	nd := bgpls.NodeDescriptor{ASN: &asn, IGPRouterID: &id}
	if l.AreaID != nil {
		area := *l.AreaID
		nd.OSPFAreaID = &area
	}
	return nd, nil
}

// FromTELink builds the Link NLRI and the attribute that together describe
// l, ready to be added to the LSDB.
func FromTELink(l TELink) (*bgpls.LinkNLRI, *bgpls.LinkAttribute, error) {
	protocol, err := ParseProtocol(l.Protocol)
	if err != nil {
		return nil, nil, err
	}
	isOSPF := protocol == bgpls.ProtocolOSPFv2 || protocol == bgpls.ProtocolOSPFv3
	if l.AreaID != nil && !isOSPF {
		return nil, nil, errors.New("area ID is only valid for OSPF links")
	}

	local, err := l.node(l.LocalRouterID, isOSPF)
	if err != nil {
		return nil, nil, fmt.Errorf("local router: %w", err)
	}
	remote, err := l.node(l.RemoteRouterID, isOSPF)
	if err != nil {
		return nil, nil, fmt.Errorf("remote router: %w", err)
	}

	localAddr, err := parseAddr(l.LocalAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("local address: %w", err)
	}
	remoteAddr, err := parseAddr(l.RemoteAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("remote address: %w", err)
	}
	if localAddr.IsValid() && remoteAddr.IsValid() && localAddr.Is4() != remoteAddr.Is4() {
		return nil, nil, fmt.Errorf("address family mismatch: %s and %s", localAddr, remoteAddr)
	}

	nlri := &bgpls.LinkNLRI{
		ProtocolID: protocol,
		Identifier: l.Identifier,
		Link: bgpls.LinkDescriptor{
			LocalNode:  local,
			RemoteNode: remote,
		},
	}
	if l.LocalLinkID != 0 || l.RemoteLinkID != 0 {
		nlri.Link.LinkIDs = &bgpls.LinkIdentifiers{Local: l.LocalLinkID, Remote: l.RemoteLinkID}
	}
	if localAddr.Is4() || remoteAddr.Is4() {
		nlri.Link.IPv4InterfaceAddr, nlri.Link.IPv4NeighborAddr = localAddr, remoteAddr
	} else {
		nlri.Link.IPv6InterfaceAddr, nlri.Link.IPv6NeighborAddr = localAddr, remoteAddr
	}

	if l.IGPMetric != nil && *l.IGPMetric > bgpls.MaxIGPMetric {
		return nil, nil, fmt.Errorf("IGP metric %d exceeds %d", *l.IGPMetric, bgpls.MaxIGPMetric)
	}
	if len(l.Name) > bgpls.MaxTLVValueLength {
		return nil, nil, fmt.Errorf("link name of %d bytes does not fit a TLV", len(l.Name))
	}
	if 4*len(l.SRLGs) > bgpls.MaxTLVValueLength {
		return nil, nil, fmt.Errorf("%d SRLGs do not fit a TLV", len(l.SRLGs))
	}

	attr := &bgpls.LinkAttribute{
		AdminGroup:             l.AdminGroup,
		MaxLinkBandwidth:       l.MaxBandwidth,
		MaxReservableBandwidth: l.MaxRsvBandwidth,
		TEDefaultMetric:        l.TEMetric,
		IGPMetric:              l.IGPMetric,
		SRLGs:                  l.SRLGs,
	}
	if l.Name != "" {
		attr.Name = []byte(l.Name)
	}
	if len(l.UnrsvBandwidth) > 0 {
		if len(l.UnrsvBandwidth) != 8 {
			return nil, nil, fmt.Errorf("unreserved bandwidth needs 8 priorities, got %d", len(l.UnrsvBandwidth))
		}
		bw := [8]float32(l.UnrsvBandwidth)
		attr.UnreservedBandwidth = &bw
	}
	// OSPF router-IDs double as TE router addresses
	if isOSPF {
		attr.LocalIPv4RouterID = local.IGPRouterID.RouterID
		attr.RemoteIPv4RouterID = remote.IGPRouterID.RouterID
	}
	return nlri, attr, nil
}
