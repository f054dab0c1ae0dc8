// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nttcom/bgpls/internal/pkg/cspf"
	"github.com/nttcom/bgpls/internal/pkg/table"
)

func newPathCmd() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:   "path <src router-id> <dst router-id>",
		Short: "Compute the shortest path between two routers of one AS",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asn, err := cmd.Flags().GetUint32("asn")
			if err != nil {
				return err
			}
			metricName, err := cmd.Flags().GetString("metric")
			if err != nil {
				return err
			}
			metric, err := table.ParseMetricType(metricName)
			if err != nil {
				return err
			}

			s, stop, err := loadServer(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stop()

			path, err := s.Path(cmd.Context(), args[0], args[1], asn, metric)
			if err != nil {
				return err
			}
			showPath(cmd.OutOrStdout(), path, metric)
			return nil
		},
	}
	pathCmd.Flags().Uint32("asn", 0, "AS number of both routers")
	pathCmd.Flags().StringP("metric", "m", "igp", "metric to minimize (igp, te, hopcount)")
	_ = pathCmd.MarkFlagRequired("asn")
	return pathCmd
}

func showPath(w io.Writer, path *cspf.Path, metric table.MetricType) {
	ids := make([]string, 0, len(path.Nodes))
	for _, node := range path.Nodes {
		ids = append(ids, node.RouterId)
	}
	fmt.Fprintf(w, "Path: %s\n", strings.Join(ids, " -> "))
	fmt.Fprintf(w, "Cost: %d (%s)\n", path.Cost, metric)
	for _, link := range path.Links {
		fmt.Fprintf(w, "  %s %s -> %s %s\n", link.LocalNode.RouterId, link.LocalIP, link.RemoteIP, link.RemoteNode.RouterId)
	}
}
