// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package metrics

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nttcom/bgpls/internal/pkg/table"
	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

func TestObserveLSDB(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	db := table.NewLSDB()
	asn := uint32(65001)
	for _, id := range []string{"192.0.2.1", "192.0.2.2"} {
		rid := bgpls.IGPRouterID{Kind: bgpls.OSPFNonPseudonode, RouterID: netip.MustParseAddr(id)}
		db.Add(&bgpls.NodeNLRI{ProtocolID: bgpls.ProtocolOSPFv2, Node: bgpls.NodeDescriptor{ASN: &asn, IGPRouterID: &rid}}, nil)
	}
	m.ObserveLSDB(db)

	expected := `
# HELP bgpls_lsdb_entries Number of LSDB entries per NLRI type.
# TYPE bgpls_lsdb_entries gauge
bgpls_lsdb_entries{nlri_type="ipv4-prefix"} 0
bgpls_lsdb_entries{nlri_type="ipv6-prefix"} 0
bgpls_lsdb_entries{nlri_type="link"} 0
bgpls_lsdb_entries{nlri_type="node"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bgpls_lsdb_entries"))
}

func TestObserveResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResult(bgpls.Result{Status: bgpls.StatusDecoded})
	m.ObserveResult(bgpls.Result{Status: bgpls.StatusDecoded})
	m.ObserveResult(bgpls.Result{Status: bgpls.StatusFatal})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Decodes.WithLabelValues("decoded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Decodes.WithLabelValues("fatal")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Decodes.WithLabelValues("partial")))
}

func TestObserveSync(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSync(nil)
	m.ObserveSync(errors.New("connection refused"))
	m.ObserveSync(nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Syncs.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Syncs.WithLabelValues("error")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
