// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nttcom/bgpls/internal/pkg/table"
)

func newTedCmd() *cobra.Command {
	tedCmd := &cobra.Command{
		Use:   "ted",
		Short: "Show the traffic engineering database built from the LSDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, stop, err := loadServer(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stop()

			ted, err := s.Ted(cmd.Context())
			if err != nil {
				return err
			}
			return showTed(cmd.OutOrStdout(), ted, jsonFmt)
		},
	}
	return tedCmd
}

func showTed(w io.Writer, ted *table.LsTed, jsonFlag bool) error {
	if !jsonFlag {
		//output user-friendly format
		ted.Print(w)
		return nil
	}

	nodes := []map[string]interface{}{}
	for _, asn := range slices.Sorted(maps.Keys(ted.Nodes)) {
		for _, id := range slices.Sorted(maps.Keys(ted.Nodes[asn])) {
			node := ted.Nodes[asn][id]
			tmpNode := map[string]interface{}{
				"asn":        node.Asn,
				"routerId":   node.RouterId,
				"isisAreaId": node.IsisAreaId,
				"hostname":   node.Hostname,
			}
			links := []map[string]interface{}{}
			for _, link := range node.Links {
				tmpLink := map[string]interface{}{
					"localIP":    link.LocalIP.String(),
					"remoteIP":   link.RemoteIP.String(),
					"remoteNode": link.RemoteNode.RouterId,
					"adminGroup": link.AdminGroup,
					"srlg":       link.Srlgs,
				}
				if link.MaxBandwidth != 0 {
					tmpLink["maxBandwidth"] = link.MaxBandwidth
				}
				metrics := []map[string]interface{}{}
				for _, metric := range link.Metrics {
					metrics = append(metrics, map[string]interface{}{
						"type":  metric.Type.String(),
						"value": metric.Value,
					})
				}
				tmpLink["metrics"] = metrics
				links = append(links, tmpLink)
			}
			tmpNode["links"] = links
			prefixes := []map[string]interface{}{}
			for _, prefix := range node.Prefixes {
				tmpPrefix := map[string]interface{}{
					"prefix": prefix.Prefix.String(),
				}
				if prefix.Metric != nil {
					tmpPrefix["metric"] = *prefix.Metric
				}
				prefixes = append(prefixes, tmpPrefix)
			}
			tmpNode["prefixes"] = prefixes
			nodes = append(nodes, tmpNode)
		}
	}

	output, err := json.Marshal(map[string]interface{}{"ted": nodes})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", output)
	return err
}
