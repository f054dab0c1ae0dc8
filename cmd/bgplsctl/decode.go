// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode BGP-LS wire data given in hex",
	}

	nlriCmd := &cobra.Command{
		Use:  "nlri <hex>",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := parseHex(args)
			if err != nil {
				return err
			}
			return decodeNLRI(cmd.OutOrStdout(), b)
		},
	}

	attrCmd := &cobra.Command{
		Use:  "attr <hex>",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeName, err := cmd.Flags().GetString("type")
			if err != nil {
				return err
			}
			t, err := parseNLRIType(typeName)
			if err != nil {
				return err
			}
			b, err := parseHex(args)
			if err != nil {
				return err
			}
			return decodeAttribute(cmd.OutOrStdout(), b, t)
		},
	}
	attrCmd.Flags().StringP("type", "t", "link", "NLRI type the attribute belongs to (node, link, ipv4-prefix, ipv6-prefix)")

	decodeCmd.AddCommand(nlriCmd, attrCmd)
	return decodeCmd
}

// parseHex joins args and accepts the separators of common packet dumps.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}

func parseNLRIType(s string) (bgpls.NLRIType, error) {
	for _, t := range bgpls.NLRITypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown NLRI type %q", s)
}

func writeResult(w io.Writer, res bgpls.Result) {
	fmt.Fprintf(w, "Status: %s\n", res.Status)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	if res.Err != nil {
		fmt.Fprintf(w, "  error: %s\n", res.Err)
	}
}

func decodeNLRI(w io.Writer, b []byte) error {
	nlris, res := bgpls.NewDecoder(zap.NewNop()).DecodeNLRIs(b)
	writeResult(w, res)
	for _, n := range nlris {
		if err := bgpls.DumpNLRI(w, n); err != nil {
			return err
		}
	}
	return res.Err
}

func decodeAttribute(w io.Writer, b []byte, t bgpls.NLRIType) error {
	attr, res := bgpls.NewDecoder(zap.NewNop()).DecodeAttribute(b, t)
	writeResult(w, res)
	if attr != nil {
		if err := bgpls.DumpAttribute(w, attr); err != nil {
			return err
		}
	}
	return res.Err
}
