// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package gobgp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"

	api "github.com/osrg/gobgp/v3/api"
	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

// Route is one Link-State path in wire form.
type Route struct {
	NLRI      []byte // NLRI type, length and body
	Attribute []byte // BGP-LS attribute value, nil when the path carries none
	Withdraw  bool
}

type Client struct {
	cc     *grpc.ClientConn
	client api.GobgpApiClient
}

func NewClient(serverAddr string, serverPort string) (*Client, error) {
	gobgpAddress := net.JoinHostPort(serverAddr, serverPort)

	cc, err := grpc.NewClient(
		gobgpAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}
	return &Client{cc: cc, client: api.NewGobgpApiClient(cc)}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// ListRoutes returns every path of the Link-State family in gobgp's global
// RIB.
func (c *Client) ListRoutes(ctx context.Context) ([]Route, error) {
	req := &api.ListPathRequest{
		TableType: api.TableType_GLOBAL,
		Family: &api.Family{
			Afi:  api.Family_AFI_LS,
			Safi: api.Family_SAFI_LS,
		},
		Name:                  "",
		SortType:              api.ListPathRequest_PREFIX,
		EnableNlriBinary:      true,
		EnableAttributeBinary: true,
	}

	stream, err := c.client.ListPath(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve paths: %w", err)
	}

	var routes []Route
	for {
		r, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error receiving stream data: %w", err)
		}
		converted, err := ConvertToRoutes(r.Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to convert destination %s: %w", r.Destination.GetPrefix(), err)
		}
		routes = append(routes, converted...)
	}
	return routes, nil
}

// ConvertToRoutes prefers the binary NLRI and attributes gobgp sends when
// asked to, and rebuilds them from the structured form otherwise.
func ConvertToRoutes(dst *api.Destination) ([]Route, error) {
	var routes []Route
	for _, path := range dst.GetPaths() {
		var (
			route Route
			err   error
		)
		if len(path.GetNlriBinary()) > 0 {
			route, err = routeFromBinary(path)
		} else {
			route, err = routeFromAny(path)
		}
		if err != nil {
			return nil, err
		}
		route.Withdraw = path.GetIsWithdraw()
		routes = append(routes, route)
	}
	return routes, nil
}

func routeFromBinary(path *api.Path) (Route, error) {
	route := Route{NLRI: path.GetNlriBinary()}
	for _, raw := range path.GetPattrsBinary() {
		var pa bgp.PathAttribute
		value, err := pa.DecodeFromBytes(raw)
		if err != nil {
			return Route{}, fmt.Errorf("failed to decode path attribute header: %w", err)
		}
		if bgpls.IsLinkStateAttrType(uint8(pa.Type)) {
			route.Attribute = value
		}
	}
	return route, nil
}

func routeFromAny(path *api.Path) (Route, error) {
	nlri, err := path.GetNlri().UnmarshalNew()
	if err != nil {
		return Route{}, fmt.Errorf("failed to unmarshal NLRI: %w", err)
	}
	prefix, ok := nlri.(*api.LsAddrPrefix)
	if !ok {
		return Route{}, errors.New("invalid NLRI type")
	}

	ls, err := toNLRI(prefix)
	if err != nil {
		return Route{}, err
	}
	route := Route{NLRI: ls.Serialize()}

	for _, pathAttr := range path.GetPattrs() {
		typedPathAttr, err := pathAttr.UnmarshalNew()
		if err != nil {
			return Route{}, fmt.Errorf("failed to unmarshal path attribute: %w", err)
		}
		if lsAttr, ok := typedPathAttr.(*api.LsAttribute); ok {
			route.Attribute = toAttribute(ls.Type(), lsAttr).Serialize()
		}
	}
	return route, nil
}

func toNLRI(prefix *api.LsAddrPrefix) (bgpls.NLRI, error) {
	linkStateNlri, err := prefix.GetNlri().UnmarshalNew()
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal LS Address Prefix: %w", err)
	}
	pid, id := bgpls.ProtocolID(prefix.GetProtocolId()), prefix.GetIdentifier()

	switch linkStateNlri := linkStateNlri.(type) {
	case *api.LsNodeNLRI:
		local, err := toNodeDescriptor(linkStateNlri.GetLocalNode())
		if err != nil {
			return nil, fmt.Errorf("failed to process LS Node NLRI: %w", err)
		}
		return &bgpls.NodeNLRI{ProtocolID: pid, Identifier: id, Node: local}, nil
	case *api.LsLinkNLRI:
		link, err := toLinkDescriptor(linkStateNlri)
		if err != nil {
			return nil, fmt.Errorf("failed to process LS Link NLRI: %w", err)
		}
		return &bgpls.LinkNLRI{ProtocolID: pid, Identifier: id, Link: link}, nil
	case *api.LsPrefixV4NLRI:
		pd, err := toPrefixDescriptor(linkStateNlri.GetLocalNode(), linkStateNlri.GetPrefixDescriptor())
		if err != nil {
			return nil, fmt.Errorf("failed to process LS Prefix V4 NLRI: %w", err)
		}
		return &bgpls.PrefixNLRI{NLRIType: bgpls.NLRITypeIPv4Prefix, ProtocolID: pid, Identifier: id, Prefix: pd}, nil
	case *api.LsPrefixV6NLRI:
		pd, err := toPrefixDescriptor(linkStateNlri.GetLocalNode(), linkStateNlri.GetPrefixDescriptor())
		if err != nil {
			return nil, fmt.Errorf("failed to process LS Prefix V6 NLRI: %w", err)
		}
		return &bgpls.PrefixNLRI{NLRIType: bgpls.NLRITypeIPv6Prefix, ProtocolID: pid, Identifier: id, Prefix: pd}, nil
	default:
		return nil, fmt.Errorf("unsupported Link State NLRI type %T", linkStateNlri)
	}
}

func toNodeDescriptor(nd *api.LsNodeDescriptor) (bgpls.NodeDescriptor, error) {
	asn := nd.GetAsn()
	rid, err := bgpls.ParseIGPRouterID(nd.GetIgpRouterId())
	if err != nil {
		return bgpls.NodeDescriptor{}, err
	}
	return bgpls.NodeDescriptor{ASN: &asn, IGPRouterID: &rid}, nil
}

func parseOptionalAddr(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	return netip.ParseAddr(s)
}

func toLinkDescriptor(link *api.LsLinkNLRI) (bgpls.LinkDescriptor, error) {
	local, err := toNodeDescriptor(link.GetLocalNode())
	if err != nil {
		return bgpls.LinkDescriptor{}, fmt.Errorf("local node: %w", err)
	}
	remote, err := toNodeDescriptor(link.GetRemoteNode())
	if err != nil {
		return bgpls.LinkDescriptor{}, fmt.Errorf("remote node: %w", err)
	}
	ld := bgpls.LinkDescriptor{LocalNode: local, RemoteNode: remote}

	if ld.IPv4InterfaceAddr, err = parseOptionalAddr(link.GetLinkDescriptor().GetInterfaceAddrIpv4()); err != nil {
		return bgpls.LinkDescriptor{}, fmt.Errorf("failed to parse local IP address: %w", err)
	}
	if ld.IPv4NeighborAddr, err = parseOptionalAddr(link.GetLinkDescriptor().GetNeighborAddrIpv4()); err != nil {
		return bgpls.LinkDescriptor{}, fmt.Errorf("failed to parse remote IP address: %w", err)
	}
	return ld, nil
}

func toPrefixDescriptor(nd *api.LsNodeDescriptor, desc *api.LsPrefixDescriptor) (bgpls.PrefixDescriptor, error) {
	local, err := toNodeDescriptor(nd)
	if err != nil {
		return bgpls.PrefixDescriptor{}, err
	}
	reach := desc.GetIpReachability()
	if len(reach) != 1 {
		return bgpls.PrefixDescriptor{}, fmt.Errorf("invalid prefix count: expected 1, got %d", len(reach))
	}
	prefix, err := netip.ParsePrefix(reach[0])
	if err != nil {
		return bgpls.PrefixDescriptor{}, fmt.Errorf("failed to parse prefix: %w", err)
	}
	return bgpls.PrefixDescriptor{LocalNode: local, Prefix: prefix}, nil
}

// toAttribute keeps the fields gobgp reports as non-zero values; a zero
// metric or bandwidth cannot be told apart from an absent one.
func toAttribute(t bgpls.NLRIType, attr *api.LsAttribute) bgpls.LinkStateAttribute {
	switch t {
	case bgpls.NLRITypeNode:
		node := &bgpls.NodeAttribute{ISISAreaID: attr.GetNode().GetIsisArea()}
		if name := attr.GetNode().GetName(); name != "" {
			node.Name = []byte(name)
		}
		return node
	case bgpls.NLRITypeLink:
		l := attr.GetLink()
		link := &bgpls.LinkAttribute{SRLGs: l.GetSrlgs()}
		if name := l.GetName(); name != "" {
			link.Name = []byte(name)
		}
		if v := l.GetIgpMetric(); v != 0 {
			link.IGPMetric = &v
		}
		if v := l.GetDefaultTeMetric(); v != 0 {
			link.TEDefaultMetric = &v
		}
		if v := l.GetAdminGroup(); v != 0 {
			link.AdminGroup = &v
		}
		if v := l.GetBandwidth(); v != 0 {
			link.MaxLinkBandwidth = &v
		}
		return link
	default:
		return &bgpls.PrefixAttribute{}
	}
}
