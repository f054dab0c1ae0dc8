// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nttcom/bgpls/internal/pkg/cspf"
	"github.com/nttcom/bgpls/internal/pkg/table"
	"github.com/nttcom/bgpls/internal/pkg/transcode"
)

func testDB(t *testing.T) *table.LSDB {
	t.Helper()
	metric := uint32(10)
	db := table.NewLSDB()
	for _, l := range []transcode.TELink{
		{Protocol: "ospfv2", ASN: 65001, LocalRouterID: "192.0.2.1", RemoteRouterID: "192.0.2.2",
			LocalAddr: "10.0.0.1", RemoteAddr: "10.0.0.2", IGPMetric: &metric},
		{Protocol: "ospfv2", ASN: 65001, LocalRouterID: "192.0.2.2", RemoteRouterID: "192.0.2.1",
			LocalAddr: "10.0.0.2", RemoteAddr: "10.0.0.1", IGPMetric: &metric},
	} {
		nlri, attr, err := transcode.FromTELink(l)
		require.NoError(t, err)
		db.Add(nlri, attr)
	}
	return db
}

func TestShowPath(t *testing.T) {
	ted := table.BuildTed(1, testDB(t))
	path, err := cspf.Cspf("192.0.2.1", "192.0.2.2", 65001, table.IGP_METRIC, ted)
	require.NoError(t, err)

	var out bytes.Buffer
	showPath(&out, path, table.IGP_METRIC)
	assert.Equal(t, "Path: 192.0.2.1 -> 192.0.2.2\n"+
		"Cost: 10 (IGP)\n"+
		"  192.0.2.1 10.0.0.1 -> 10.0.0.2 192.0.2.2\n", out.String())
}

func TestShowTed_JSON(t *testing.T) {
	ted := table.BuildTed(1, testDB(t))

	var out bytes.Buffer
	require.NoError(t, showTed(&out, ted, true))

	var got struct {
		Ted []struct {
			Asn      uint32 `json:"asn"`
			RouterID string `json:"routerId"`
			Links    []struct {
				RemoteNode string `json:"remoteNode"`
				Metrics    []struct {
					Type  string `json:"type"`
					Value uint32 `json:"value"`
				} `json:"metrics"`
			} `json:"links"`
		} `json:"ted"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Ted, 2)
	assert.Equal(t, "192.0.2.1", got.Ted[0].RouterID)
	require.Len(t, got.Ted[0].Links, 1)
	assert.Equal(t, "192.0.2.2", got.Ted[0].Links[0].RemoteNode)
	assert.Equal(t, "IGP", got.Ted[0].Links[0].Metrics[0].Type)
	assert.Equal(t, uint32(10), got.Ted[0].Links[0].Metrics[0].Value)
}

func TestShowLSDB(t *testing.T) {
	db := testDB(t)

	var out bytes.Buffer
	require.NoError(t, showLSDB(&out, db, false, false))
	assert.Contains(t, out.String(), "link (2 entries, checksum ")
	assert.Contains(t, out.String(), "refcount=1\n")
	assert.Contains(t, out.String(), "Total: 2\n")

	out.Reset()
	require.NoError(t, showLSDB(&out, db, true, false))
	var got struct {
		LSDB []struct {
			Type     string `json:"type"`
			RefCount uint32 `json:"refCount"`
		} `json:"lsdb"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.LSDB, 2)
	assert.Equal(t, "link", got.LSDB[0].Type)
	assert.Equal(t, uint32(1), got.LSDB[0].RefCount)
}
