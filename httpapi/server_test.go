package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drand/fte/aeadheader"
	"github.com/drand/fte/config"
	"github.com/drand/fte/dfa"
	"github.com/drand/fte/httpapi"
	"github.com/drand/fte/registry"
)

type fixedLoader struct{ n int }

func (l fixedLoader) Load(string) (*dfa.Automaton, error) {
	a := dfa.NewAutomaton(l.n+1, 0)
	for i := 0; i < l.n; i++ {
		a.SetTransition(i, 'a', i+1)
		a.SetTransition(i, 'b', i+1)
	}
	a.SetAccept(l.n, true)
	return a, nil
}

func testSetup(t *testing.T) (*registry.Registry, *config.Config) {
	t.Helper()
	cfg := &config.Config{General: config.General{DFADir: "/unused"}}
	cfg.Languages.Regex = map[string]config.LanguageConfig{
		"ab": {MTU: 140, FixedSlice: true, AllowAEBits: true},
	}
	cfg.Runtime.FTE.RecordLayer.MaxCellSize = 4096

	ae, err := aeadheader.New([]byte("httpapi test master secret"))
	require.NoError(t, err)

	reg := registry.New(cfg, ae, registry.WithLoader(fixedLoader{n: 140}))
	return reg, cfg
}

func TestHealthz(t *testing.T) {
	reg, cfg := testSetup(t)
	srv := httpapi.New(reg, cfg, nil, "fte-test")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestLanguages_ReportsUnbuiltThenBuilt(t *testing.T) {
	reg, cfg := testSetup(t)
	srv := httpapi.New(reg, cfg, nil, "fte-test")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/languages")
	require.NoError(t, err)
	var before []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&before))
	require.NoError(t, resp.Body.Close())
	require.Len(t, before, 1)
	require.Equal(t, "ab", before[0]["name"])
	require.Equal(t, false, before[0]["built"])

	codec, err := reg.Codec("ab")
	require.NoError(t, err)

	resp, err = http.Get(ts.URL + "/languages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var after []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	require.Equal(t, true, after[0]["built"])
	require.EqualValues(t, codec.Language.Capacity(), after[0]["capacity_bits"])
}

func TestMetricsEndpoint_Serves(t *testing.T) {
	reg, cfg := testSetup(t)
	srv := httpapi.New(reg, cfg, nil, "fte-test")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
