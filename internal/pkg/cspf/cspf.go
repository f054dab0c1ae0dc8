// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package cspf

import (
	"errors"
	"fmt"

	"github.com/nttcom/bgpls/internal/pkg/table"
)

var ErrNoPath = errors.New("no path")

type node struct {
	id         string
	calculated bool
	cost       uint32
	prevNode   string
	prevLink   *table.LsLink
}

func newNode(id string, cost uint32) *node {
	node := &node{
		id:   id,
		cost: cost,
	}
	return node
}

// Path is a shortest path from the source node. Links[i] leaves Nodes[i]
// and reaches Nodes[i+1].
type Path struct {
	Cost  uint32
	Nodes []*table.LsNode
	Links []*table.LsLink
}

// Cspf computes the shortest path between two routers of one AS. Links that
// do not advertise the requested metric are left out of the graph.
func Cspf(srcRouterId string, dstRouterId string, as uint32, metric table.MetricType, ted *table.LsTed) (*Path, error) {
	network, ok := ted.Nodes[as]
	if !ok {
		return nil, fmt.Errorf("AS %d not found in TED", as)
	}
	for _, id := range []string{srcRouterId, dstRouterId} {
		if _, ok := network[id]; !ok {
			return nil, fmt.Errorf("node %s not found in AS %d", id, as)
		}
	}
	path, err := spf(srcRouterId, dstRouterId, metric, network)
	if err != nil {
		return nil, err
	}
	return path, nil
}

func spf(srcRouterId string, dstRouterId string, metric table.MetricType, network map[string]*table.LsNode) (*Path, error) {
	calculatingNodes := map[string]*node{}
	calculatingNodes[srcRouterId] = newNode(srcRouterId, 0)

	for {
		// Selection of nodes for calculation
		calcNodeId, err := nextNode(calculatingNodes)
		if err != nil {
			return nil, fmt.Errorf("%w from %s to %s: %w", ErrNoPath, srcRouterId, dstRouterId, err)
		}

		if calcNodeId == dstRouterId {
			// End of calculation of shortest path
			break
		}

		for _, link := range network[calcNodeId].Links {
			linkMetric, err := link.Metric(metric)
			if err != nil {
				continue
			}
			if link.RemoteNode.Asn != link.LocalNode.Asn {
				continue
			}

			cost := calculatingNodes[calcNodeId].cost + linkMetric
			remoteId := link.RemoteNode.RouterId
			if remote, exist := calculatingNodes[remoteId]; exist {
				if !remote.calculated && cost < remote.cost {
					remote.cost = cost
					remote.prevNode = calcNodeId
					remote.prevLink = link
				}
			} else {
				calculatingNodes[remoteId] = newNode(remoteId, cost)
				calculatingNodes[remoteId].prevNode = calcNodeId
				calculatingNodes[remoteId].prevLink = link
			}
		}
	}

	// Walk back from the destination
	path := &Path{Cost: calculatingNodes[dstRouterId].cost}
	pathNode := calculatingNodes[dstRouterId]
	for ; pathNode.id != srcRouterId; pathNode = calculatingNodes[pathNode.prevNode] {
		path.Nodes = append([]*table.LsNode{network[pathNode.id]}, path.Nodes...)
		path.Links = append([]*table.LsLink{pathNode.prevLink}, path.Links...)
	}
	path.Nodes = append([]*table.LsNode{network[srcRouterId]}, path.Nodes...)
	return path, nil
}

func nextNode(calculatingNodes map[string]*node) (nextNodeId string, err error) {
	for nodeId, node := range calculatingNodes {
		if node.calculated {
			continue
		}
		if nextNodeId == "" {
			nextNodeId = nodeId
		}
		next := calculatingNodes[nextNodeId]
		// ties go to the smaller router-ID so results do not depend on map order
		if next.cost > node.cost || (next.cost == node.cost && nodeId < nextNodeId) {
			nextNodeId = nodeId
		}
	}
	if nextNodeId == "" {
		return nextNodeId, errors.New("next node not found")
	}
	// Set the node with the smallest arrival cost as calculated
	calculatingNodes[nextNodeId].calculated = true
	return
}
