// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package table

import (
	"fmt"
	"io"
	"maps"
	"net/netip"
	"slices"
	"strings"

	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

// LsTed is a read-only topology view assembled from the LSDB.
type LsTed struct {
	Id    int
	Nodes map[uint32]map[string]*LsNode // { ASN1: {"NodeID1": node1, "NodeID2": node2}, ASN2: {"NodeID3": node3, "NodeID4": node4}}
}

func NewLsTed(id int) *LsTed {
	return &LsTed{
		Id:    id,
		Nodes: make(map[uint32]map[string]*LsNode),
	}
}

// BuildTed walks every index of db. Nodes are added first so that links
// and prefixes find their attributes already in place.
func BuildTed(id int, db *LSDB) *LsTed {
	ted := NewLsTed(id)
	var tedElems []TedElem
	for _, t := range bgpls.NLRITypes {
		for ref := range db.Iterate(t) {
			if elem := NewTedElem(ref.NLRI(), ref.Attribute()); elem != nil {
				tedElems = append(tedElems, elem)
			}
		}
	}
	ted.Update(tedElems)
	return ted
}

func (ted *LsTed) Update(tedElems []TedElem) {
	for _, tedElem := range tedElems {
		tedElem.UpdateTed(ted)
	}
}

// Node returns the node with the given IGP router-ID.
func (ted *LsTed) Node(asn uint32, routerID string) (*LsNode, bool) {
	node, ok := ted.Nodes[asn][routerID]
	return node, ok
}

func (ted *LsTed) node(asn uint32, routerID string) *LsNode {
	if _, ok := ted.Nodes[asn]; !ok {
		ted.Nodes[asn] = make(map[string]*LsNode)
	}
	node, ok := ted.Nodes[asn][routerID]
	if !ok {
		node = NewLsNode(asn, routerID)
		ted.Nodes[asn][routerID] = node
	}
	return node
}

func (ted *LsTed) Print(w io.Writer) {
	var sb strings.Builder
	for _, asn := range slices.Sorted(maps.Keys(ted.Nodes)) {
		nodes := ted.Nodes[asn]
		nodeCnt := 1
		for _, nodeId := range slices.Sorted(maps.Keys(nodes)) {
			node := nodes[nodeId]
			fmt.Fprintf(&sb, "Node: %d\n", nodeCnt)
			fmt.Fprintf(&sb, "  %s (AS %d)\n", nodeId, asn)
			fmt.Fprintf(&sb, "  Hostname: %s\n", node.Hostname)
			fmt.Fprintf(&sb, "  ISIS Area ID: %s\n", node.IsisAreaId)
			fmt.Fprintf(&sb, "  Prefixes:\n")
			for _, prefix := range node.Prefixes {
				fmt.Fprintf(&sb, "    %s\n", prefix.Prefix.String())
				if prefix.Metric != nil {
					fmt.Fprintf(&sb, "      metric: %d\n", *prefix.Metric)
				}
			}

			fmt.Fprintf(&sb, "  Links:\n")
			for _, link := range node.Links {
				fmt.Fprintf(&sb, "    Local: %s Remote: %s\n", link.LocalIP.String(), link.RemoteIP.String())
				fmt.Fprintf(&sb, "      RemoteNode: %s\n", link.RemoteNode.RouterId)
				fmt.Fprintf(&sb, "      Metrics:\n")
				for _, metric := range link.Metrics {
					fmt.Fprintf(&sb, "        %s: %d\n", metric.Type.String(), metric.Value)
				}
				if link.MaxBandwidth != 0 {
					fmt.Fprintf(&sb, "      Max Bandwidth: %g bytes/s\n", link.MaxBandwidth)
				}
				if len(link.Srlgs) > 0 {
					fmt.Fprintf(&sb, "      SRLG: %v\n", link.Srlgs)
				}
			}
			nodeCnt++
			sb.WriteString("\n")
		}
	}
	_, _ = io.WriteString(w, sb.String())
}

type TedElem interface {
	UpdateTed(ted *LsTed)
}

// NewTedElem converts one LSDB entry. It returns nil for entries whose
// local node has no IGP router-ID, as they cannot be placed in the graph.
func NewTedElem(nlri bgpls.NLRI, attr bgpls.LinkStateAttribute) TedElem {
	switch n := nlri.(type) {
	case *bgpls.NodeNLRI:
		if n.Node.IGPRouterID == nil {
			return nil
		}
		node := newLsNodeFromDescriptor(&n.Node)
		if a, ok := attr.(*bgpls.NodeAttribute); ok {
			node.Hostname = string(a.Name)
			node.IsisAreaId = bgpls.FormatISISArea(a.ISISAreaID)
		}
		return node
	case *bgpls.LinkNLRI:
		if n.Link.LocalNode.IGPRouterID == nil || n.Link.RemoteNode.IGPRouterID == nil {
			return nil
		}
		link := NewLsLink(newLsNodeFromDescriptor(&n.Link.LocalNode), newLsNodeFromDescriptor(&n.Link.RemoteNode))
		link.LocalIP, link.RemoteIP = n.Link.IPv4InterfaceAddr, n.Link.IPv4NeighborAddr
		if !link.LocalIP.IsValid() {
			link.LocalIP, link.RemoteIP = n.Link.IPv6InterfaceAddr, n.Link.IPv6NeighborAddr
		}
		if a, ok := attr.(*bgpls.LinkAttribute); ok {
			link.setAttribute(a)
		}
		return link
	case *bgpls.PrefixNLRI:
		if n.Prefix.LocalNode.IGPRouterID == nil {
			return nil
		}
		prefix := NewLsPrefix(newLsNodeFromDescriptor(&n.Prefix.LocalNode))
		prefix.Prefix = n.Prefix.Prefix
		if a, ok := attr.(*bgpls.PrefixAttribute); ok {
			prefix.Metric = a.Metric
		}
		return prefix
	}
	return nil
}

type LsNode struct {
	Asn        uint32 // primary key, in MP_REACH_NLRI Attr
	RouterId   string // primary key, in MP_REACH_NLRI Attr
	IsisAreaId string // in BGP-LS Attr
	Hostname   string // in BGP-LS Attr
	Links      []*LsLink
	Prefixes   []*LsPrefix
}

func NewLsNode(asn uint32, nodeId string) *LsNode {
	return &LsNode{
		Asn:      asn,
		RouterId: nodeId,
	}
}

func newLsNodeFromDescriptor(nd *bgpls.NodeDescriptor) *LsNode {
	var asn uint32
	if nd.ASN != nil {
		asn = *nd.ASN
	}
	return NewLsNode(asn, nd.IGPRouterID.String())
}

// LoopbackAddr returns the first host prefix advertised by the node.
func (n *LsNode) LoopbackAddr() (netip.Addr, error) {
	for _, prefix := range n.Prefixes {
		if prefix.Prefix.IsSingleIP() {
			return prefix.Prefix.Addr(), nil
		}
	}

	return netip.Addr{}, fmt.Errorf("node %s doesn't have a loopback address", n.RouterId)
}

func (n *LsNode) UpdateTed(ted *LsTed) {
	node := ted.node(n.Asn, n.RouterId)
	node.Hostname = n.Hostname
	node.IsisAreaId = n.IsisAreaId
}

func (n *LsNode) AddLink(link *LsLink) {
	n.Links = append(n.Links, link)
}

type LsLink struct {
	LocalNode    *LsNode    // Primary key, in MP_REACH_NLRI Attr
	RemoteNode   *LsNode    // Primary key, in MP_REACH_NLRI Attr
	LocalIP      netip.Addr // In MP_REACH_NLRI Attr
	RemoteIP     netip.Addr // In MP_REACH_NLRI Attr
	Metrics      []*Metric  // In BGP-LS Attr
	AdminGroup   uint32     // In BGP-LS Attr
	MaxBandwidth float32    // In BGP-LS Attr, bytes per second
	Srlgs        []uint32   // In BGP-LS Attr
}

func NewLsLink(localNode *LsNode, remoteNode *LsNode) *LsLink {
	return &LsLink{
		LocalNode:  localNode,
		RemoteNode: remoteNode,
	}
}

func (l *LsLink) setAttribute(a *bgpls.LinkAttribute) {
	if a.IGPMetric != nil {
		l.Metrics = append(l.Metrics, NewMetric(IGP_METRIC, *a.IGPMetric))
	}
	if a.TEDefaultMetric != nil {
		l.Metrics = append(l.Metrics, NewMetric(TE_METRIC, *a.TEDefaultMetric))
	}
	if a.AdminGroup != nil {
		l.AdminGroup = *a.AdminGroup
	}
	if a.MaxLinkBandwidth != nil {
		l.MaxBandwidth = *a.MaxLinkBandwidth
	}
	l.Srlgs = a.SRLGs
}

func (l *LsLink) Metric(metricType MetricType) (uint32, error) {
	if metricType == HOPCOUNT_METRIC {
		return 1, nil
	}
	for _, metric := range l.Metrics {
		if metric.Type == metricType {
			return metric.Value, nil
		}
	}

	return 0, fmt.Errorf("metric %s not defined", metricType)
}

func (l *LsLink) UpdateTed(ted *LsTed) {
	l.LocalNode = ted.node(l.LocalNode.Asn, l.LocalNode.RouterId)
	l.RemoteNode = ted.node(l.RemoteNode.Asn, l.RemoteNode.RouterId)
	l.LocalNode.AddLink(l)
}

type LsPrefix struct {
	LocalNode *LsNode      // primary key, in MP_REACH_NLRI Attr
	Prefix    netip.Prefix // in MP_REACH_NLRI Attr
	Metric    *uint32      // in BGP-LS Attr
}

func NewLsPrefix(localNode *LsNode) *LsPrefix {
	return &LsPrefix{
		LocalNode: localNode,
	}
}

func (lp *LsPrefix) UpdateTed(ted *LsTed) {
	localNode := ted.node(lp.LocalNode.Asn, lp.LocalNode.RouterId)
	lp.LocalNode = localNode
	for _, pref := range localNode.Prefixes {
		if pref.Prefix == lp.Prefix {
			return
		}
	}

	localNode.Prefixes = append(localNode.Prefixes, lp)
}

type Metric struct {
	Type  MetricType
	Value uint32
}

func NewMetric(metricType MetricType, value uint32) *Metric {
	return &Metric{
		Type:  metricType,
		Value: value,
	}
}

type MetricType int

const (
	IGP_METRIC MetricType = iota
	TE_METRIC
	DELAY_METRIC
	HOPCOUNT_METRIC
)

func (m MetricType) String() string {
	switch m {
	case IGP_METRIC:
		return "IGP"
	case TE_METRIC:
		return "TE"
	case DELAY_METRIC:
		return "DELAY"
	case HOPCOUNT_METRIC:
		return "HOPCOUNT"
	default:
		return "Unknown"
	}
}

// ParseMetricType accepts the names printed by MetricType.String, in any
// case.
func ParseMetricType(s string) (MetricType, error) {
	for _, m := range []MetricType{IGP_METRIC, TE_METRIC, DELAY_METRIC, HOPCOUNT_METRIC} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric type %q", s)
}
