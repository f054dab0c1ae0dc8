// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package bgpls

import (
	"fmt"
	"io"
	"strings"
)

// Bytes per row when an uninterpreted value is dumped.
const dumpRowBytes = 8

// Dump writes one line per TLV. Node descriptor TLVs are expanded one
// level deeper and unknown TLVs are written as hex rows.
func Dump(w io.Writer, tlvs []SubTLV) error {
	var sb strings.Builder
	dumpTLVs(&sb, tlvs, 1)
	_, err := io.WriteString(w, sb.String())
	return err
}

func dumpTLVs(sb *strings.Builder, tlvs []SubTLV, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, tlv := range tlvs {
		switch t := tlv.(type) {
		case *NodeDescriptorTLV:
			fmt.Fprintf(sb, "%s%s:\n", indent, t.Typ)
			dumpTLVs(sb, t.Node.TLVs(), depth+1)
		case *UnknownTLV:
			fmt.Fprintf(sb, "%s%s: %d bytes\n", indent, t.Typ, t.Length)
			for _, row := range hexRows(t.Value) {
				fmt.Fprintf(sb, "%s  %s\n", indent, row)
			}
		default:
			fmt.Fprintf(sb, "%s%s: %s\n", indent, tlv.Type(), tlv.String())
		}
	}
}

func hexRows(b []byte) []string {
	var rows []string
	for len(b) > 0 {
		n := min(dumpRowBytes, len(b))
		rows = append(rows, fmt.Sprintf("% x", b[:n]))
		b = b[n:]
	}
	return rows
}

// DumpNLRI writes the NLRI header line followed by its descriptor TLVs.
func DumpNLRI(w io.Writer, nlri NLRI) error {
	if _, err := fmt.Fprintf(w, "%s NLRI: %s\n", nlri.Type(), nlri.String()); err != nil {
		return err
	}
	return Dump(w, nlri.TLVs())
}

func DumpAttribute(w io.Writer, attr LinkStateAttribute) error {
	if _, err := io.WriteString(w, "BGP-LS attribute:\n"); err != nil {
		return err
	}
	return Dump(w, attr.TLVs())
}
