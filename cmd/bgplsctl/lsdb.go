// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nttcom/bgpls/internal/pkg/table"
	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

func newLSDBCmd() *cobra.Command {
	lsdbCmd := &cobra.Command{
		Use:   "lsdb",
		Short: "Show the Link-State RIB of gobgpd as decoded entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			s, stop, err := loadServer(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer stop()
			return showLSDB(cmd.OutOrStdout(), s.LSDB(), jsonFmt, verbose)
		},
	}
	lsdbCmd.Flags().BoolP("verbose", "v", false, "dump every TLV")
	return lsdbCmd
}

func showLSDB(w io.Writer, db *table.LSDB, jsonFlag bool, verbose bool) error {
	if jsonFlag {
		entries := []map[string]interface{}{}
		checksums := map[string]uint32{}
		for _, t := range bgpls.NLRITypes {
			checksums[t.String()] = db.Checksum(t)
			for ref := range db.Iterate(t) {
				entry := map[string]interface{}{
					"type":     t.String(),
					"nlri":     ref.NLRI().String(),
					"key":      hex.EncodeToString([]byte(ref.Key())),
					"refCount": ref.RefCount(),
				}
				if attr := ref.Attribute(); attr != nil {
					entry["attribute"] = hex.EncodeToString(attr.Serialize())
				}
				entries = append(entries, entry)
			}
		}
		output, err := json.Marshal(map[string]interface{}{
			"checksums": checksums,
			"lsdb":     entries,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", output)
		return err
	}

	for _, t := range bgpls.NLRITypes {
		fmt.Fprintf(w, "%s (%d entries, checksum %08x)\n", t, db.Count(t), db.Checksum(t))
		for ref := range db.Iterate(t) {
			fmt.Fprintf(w, "  %s refcount=%d\n", ref.NLRI(), ref.RefCount())
			if !verbose {
				continue
			}
			if err := bgpls.Dump(w, ref.NLRI().TLVs()); err != nil {
				return err
			}
			if attr := ref.Attribute(); attr != nil {
				if err := bgpls.DumpAttribute(w, attr); err != nil {
					return err
				}
			}
		}
	}
	fmt.Fprintf(w, "Total: %d\n", db.CountAll())
	return nil
}
